package cli

// This file contains the build command: run the build steps of every
// selected engine so that its runner program exists and reports a version.

import (
	"bytes"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/rexbench/benchdef"
)

func (a *App) build(ctx *cli.Context) error {
	engineFilter, err := engineFilterFromFlags(ctx)
	if err != nil {
		return err
	}
	engines, err := benchdef.LoadEngines(a.logger, ctx.String("dir"), func(e *benchdef.Engine) bool {
		return engineFilter.Include(e.Name)
	})
	if err != nil {
		return err
	}
	// Build failures don't stop the command: measuring doesn't need every
	// engine to exist, and a missing one shows up as a measurement error.
	// Each note below is printed at most once per run.
	printedNote := false
	printedDepNote := false
ENGINES:
	for i := range engines.List {
		e := &engines.List[i]
		label := labelColor.Sprintf("%s: ", e.Name)
		for j := range e.Dependencies {
			dep := &e.Dependencies[j]
			out, err := dep.Output(a.logger)
			if err != nil {
				fmt.Fprintf(
					a.stderr, "%s%s%v\n",
					label, errorColor.Sprint("dependency command failed: "), err,
				)
				a.printDepNote(e.Name, &printedDepNote)
				a.printBuildNote(e.Name, &printedNote)
				continue ENGINES
			}
			if !dep.IsSatisfiedBy(out) {
				fmt.Fprintf(
					a.stderr, "%s%scould not find match for %q in output of %s\n",
					label, errorColor.Sprint("dependency command did not print expected output: "),
					dep.Regex, dep.QuotedString(),
				)
				a.printDepNote(e.Name, &printedDepNote)
				a.printBuildNote(e.Name, &printedNote)
				if len(bytes.TrimSpace(out)) == 0 {
					a.logger.Debug().
						Str("command", dep.QuotedString()).
						Msg("Dependency command printed no output")
				} else {
					a.logger.Debug().
						Str("command", dep.QuotedString()).
						Str("output", string(out)).
						Msg("Dependency command output")
				}
				continue ENGINES
			}
		}
		if len(e.Build) == 0 {
			if e.IsMissingVersion() {
				fmt.Fprintf(
					a.stderr, "%s%s\n",
					label, errorColor.Sprint("no build steps, but version is missing"),
				)
				a.printBuildNote(e.Name, &printedNote)
			} else {
				fmt.Fprintf(a.stdout, "%snothing to do\n", label)
			}
			continue
		}
		for j := range e.Build {
			cmd := &e.Build[j]
			fmt.Fprintf(a.stdout, "%srunning: %s\n", label, cmd.QuotedString())
			out, err := cmd.Output(a.logger)
			if err != nil {
				fmt.Fprintf(
					a.stderr, "%s%s%v\n",
					label, errorColor.Sprint("build failed: "), err,
				)
				a.printBuildNote(e.Name, &printedNote)
				continue ENGINES
			}
			a.logger.Debug().Str("stdout", string(out)).Msg("Build command output")
		}
		// A successful build should make the version discoverable, so
		// resolve it again. The version printed acts as a receipt that the
		// runner program can be executed in this environment.
		version, err := e.VersionConfig.Get(a.logger)
		if err != nil {
			return fmt.Errorf("failed to get version for engine '%s' after build: %w", e.Name, err)
		}
		fmt.Fprintf(a.stdout, "%sbuild complete for version %s\n", label, version)
	}
	return nil
}

func (a *App) printDepNote(engine string, printed *bool) {
	if *printed {
		return
	}
	fmt.Fprintf(
		a.stderr,
		"%sa dependency that is required to build '%s' could not be found, "+
			"either because it isn't installed or because it didn't behave as expected\n",
		noteColor.Sprint("note: "), engine,
	)
	*printed = true
}

func (a *App) printBuildNote(engine string, printed *bool) {
	if *printed {
		return
	}
	fmt.Fprintf(
		a.stderr,
		"%srun `%s --verbose build -e '^%s$'` to see more details\n",
		noteColor.Sprint("note: "), AppName, engine,
	)
	*printed = true
}
