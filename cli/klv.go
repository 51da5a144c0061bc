package cli

// This file contains the klv command: print one benchmark in the KLV format
// that runner programs accept on stdin.

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/rexbench/benchdef"
	"github.com/perfgo/rexbench/klv"
	"github.com/perfgo/rexbench/model"
)

func (a *App) klv(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected exactly one benchmark name")
	}
	maxTime, err := model.ParseDuration(ctx.String("max-time"))
	if err != nil {
		return fmt.Errorf("failed to parse --max-time: %w", err)
	}
	maxWarmupTime, err := model.ParseDuration(ctx.String("max-warmup-time"))
	if err != nil {
		return fmt.Errorf("failed to parse --max-warmup-time: %w", err)
	}
	def, err := benchdef.FindOne(a.logger, ctx.String("dir"), ctx.Args().First())
	if err != nil {
		return err
	}
	bench := &klv.Benchmark{
		Name:            def.Name.Full,
		Model:           def.Model,
		Patterns:        def.Regexes,
		CaseInsensitive: def.CaseInsensitive,
		Unicode:         def.Unicode,
		Haystack:        def.Haystack,
		MaxIters:        ctx.Uint64("max-iters"),
		MaxWarmupIters:  ctx.Uint64("max-warmup-iters"),
		MaxTime:         maxTime,
		MaxWarmupTime:   maxWarmupTime,
	}
	if err := bench.Write(a.stdout); err != nil {
		return fmt.Errorf("failed to write KLV data to stdout: %w", err)
	}
	return nil
}
