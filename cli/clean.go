package cli

// This file contains the clean command: remove the artifacts produced by
// the build command.

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/rexbench/benchdef"
)

func (a *App) clean(ctx *cli.Context) error {
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
	for i := range engines.List {
		e := &engines.List[i]
		for j := range e.Clean {
			cmd := &e.Clean[j]
			fmt.Fprintf(a.stdout, "%s: running: %s\n", e.Name, cmd.QuotedString())
			out, err := cmd.Output(a.logger)
			if err != nil {
				return fmt.Errorf("failed to clean engine '%s': %w", e.Name, err)
			}
			a.logger.Debug().Str("stdout", string(out)).Msg("Clean command output")
		}
	}
	return nil
}
