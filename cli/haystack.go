package cli

// This file contains the haystack command: print the exact haystack bytes a
// benchmark runs against, after any transformations from its definition.

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/rexbench/benchdef"
)

func (a *App) haystack(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected exactly one benchmark name")
	}
	def, err := benchdef.FindOne(a.logger, ctx.String("dir"), ctx.Args().First())
	if err != nil {
		return err
	}
	for i := 0; i < ctx.Int("repeat"); i++ {
		if _, err := a.stdout.Write(def.Haystack); err != nil {
			// Truncated reads are normal when piping into head and such.
			if errors.Is(err, syscall.EPIPE) {
				break
			}
			return fmt.Errorf("failed to write haystack to stdout: %w", err)
		}
	}
	return nil
}
