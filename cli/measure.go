package cli

// This file contains the measure command: run benchmarks and stream their
// measurements as CSV records to stdout.

import (
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/rexbench/benchdef"
	"github.com/perfgo/rexbench/model"
	"github.com/perfgo/rexbench/results"
	"github.com/perfgo/rexbench/runner"
)

// defaultExecConfig supplies the default values displayed for the measure
// command's budget flags.
var defaultExecConfig = runner.DefaultConfig()

func (a *App) measure(ctx *cli.Context) error {
	filters, err := benchdefFiltersFromFlags(ctx)
	if err != nil {
		return err
	}
	config, err := measureConfig(ctx)
	if err != nil {
		return err
	}
	benchmarks, err := benchdef.Load(a.logger, ctx.String("dir"), filters)
	if err != nil {
		return err
	}
	// Each definition spawns one execution per regex engine it names.
	var executions []runner.Execution
	for _, def := range benchmarks.Defs {
		for _, engine := range def.Engines {
			executions = append(executions, runner.Execution{
				Config: config,
				Def:    def,
				Engine: engine,
			})
		}
	}
	switch {
	case ctx.Bool("list"):
		return a.listExecutions(executions)
	case ctx.Bool("verify") || ctx.Bool("test"):
		verbose := ctx.Bool("verbose") || ctx.Bool("test")
		return a.verifyExecutions(executions, verbose)
	default:
		return a.measureExecutions(ctx, executions)
	}
}

// measureConfig resolves the budget flags into a runner config. The process
// timeout scales with the configured time budgets unless set explicitly.
func measureConfig(ctx *cli.Context) (runner.Config, error) {
	config := runner.Config{
		MaxIters:       ctx.Uint64("max-iters"),
		MaxWarmupIters: ctx.Uint64("max-warmup-iters"),
	}
	var err error
	if config.MaxTime, err = model.ParseDuration(ctx.String("max-time")); err != nil {
		return runner.Config{}, fmt.Errorf("failed to parse --max-time: %w", err)
	}
	if config.MaxWarmupTime, err = model.ParseDuration(ctx.String("max-warmup-time")); err != nil {
		return runner.Config{}, fmt.Errorf("failed to parse --max-warmup-time: %w", err)
	}
	if ctx.IsSet("timeout") {
		if config.Timeout, err = model.ParseDuration(ctx.String("timeout")); err != nil {
			return runner.Config{}, fmt.Errorf("failed to parse --timeout: %w", err)
		}
	} else {
		config.Timeout = runner.DefaultTimeout(config.MaxTime, config.MaxWarmupTime)
	}
	return config, nil
}

// listExecutions prints the benchmark and engine pairs that would run,
// without running them. Getting this far still validates all of the
// benchmark data, so listing doubles as a load check.
func (a *App) listExecutions(executions []runner.Execution) error {
	w := csv.NewWriter(a.stdout)
	for i := range executions {
		e := &executions[i]
		record := []string{e.Def.Name.Full, e.Def.Model, e.Engine.Name, e.Engine.Version}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record for '%s': %w", e.Def.Name.Full, err)
		}
	}
	w.Flush()
	return w.Error()
}

// verifyExecutions runs every benchmark for a single iteration and reports
// the ones whose runner failed or produced the wrong count. Verbose mode
// additionally prints an OK record per passing benchmark, as a way to see
// progress.
func (a *App) verifyExecutions(executions []runner.Execution, verbose bool) error {
	w := csv.NewWriter(a.stdout)
	errored := false
	for i := range executions {
		e := executions[i].Verifier()
		m := e.Aggregate(e.Collect(a.logger, verbose))
		if m.Err != "" {
			errored = true
			record := []string{m.Name, m.Model, m.Engine, m.EngineVersion, m.Err}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV record for '%s': %w", m.Name, err)
			}
		} else if verbose {
			record := []string{m.Name, m.Model, m.Engine, m.EngineVersion, "OK"}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV record for '%s': %w", m.Name, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	if errored {
		return errors.New("some benchmarks failed")
	}
	return nil
}

// measureExecutions runs every benchmark and streams one measurement record
// per execution. Every record is flushed as soon as it exists so that
// progress is visible during long sessions.
func (a *App) measureExecutions(ctx *cli.Context, executions []runner.Execution) error {
	verbose := ctx.Bool("verbose")
	saveDir := ctx.String("save")
	w := model.NewCSVWriter(a.stdout)
	var measurements []model.Measurement
	for i := range executions {
		e := &executions[i]
		m := e.Aggregate(e.Collect(a.logger, verbose))
		if err := w.Write(&m); err != nil {
			return err
		}
		if saveDir != "" {
			measurements = append(measurements, m)
		}
	}
	if saveDir != "" {
		store := results.Store{Dir: saveDir}
		path, err := store.Save(a.logger, measurements)
		if err != nil {
			return err
		}
		a.logger.Info().Str("path", path).Msg("Saved measurement set")
	}
	return nil
}
