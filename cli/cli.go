// Package cli implements the rexbench command line interface: running
// benchmarks, comparing measurements and managing the runner programs that
// expose regex engines for measurement.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/perfgo/rexbench/model"
	"github.com/perfgo/rexbench/results"
)

const AppName = "rexbench"

// Styles for comparison tables and build diagnostics.
var (
	labelColor = color.New(color.Bold)
	errorColor = color.New(color.FgRed, color.Bold)
	noteColor  = color.New(color.FgBlue, color.Bold)
	bestColor  = color.New(color.FgGreen, color.Bold)
)

type App struct {
	logger zerolog.Logger
	stdout io.Writer
	stderr io.Writer
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		stdout: os.Stdout,
		stderr: os.Stderr,
		cli: &cli.App{
			Name:  AppName,
			Usage: "A regex barometer tool for running benchmarks and comparing results",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
				&cli.StringFlag{
					Name:  "color",
					Usage: "Colorize output: auto, always or never",
					Value: "auto",
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return setColorMode(ctx.String("color"))
			},
		},
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "measure",
		Usage:  "Capture timings to CSV by running benchmarks",
		Action: app.measure,
		Flags: []cli.Flag{
			dirFlag(),
			engineFlag(),
			engineNotFlag(),
			benchFlag(),
			benchNotFlag(),
			modelFlag(),
			modelNotFlag(),
			&cli.BoolFlag{
				Name:    "ignore-missing-engines",
				Aliases: []string{"i"},
				Usage:   "Silently drop engines whose version could not be resolved",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "List the benchmarks that would run without executing them",
			},
			&cli.Uint64Flag{
				Name:  "max-iters",
				Usage: "Maximum number of timed iterations per benchmark",
				Value: defaultExecConfig.MaxIters,
			},
			&cli.Uint64Flag{
				Name:  "max-warmup-iters",
				Usage: "Maximum number of warmup iterations per benchmark",
				Value: defaultExecConfig.MaxWarmupIters,
			},
			&cli.StringFlag{
				Name:  "max-time",
				Usage: "Approximate time budget for timed iterations, e.g. 3s or 500ms",
				Value: model.FormatDuration(defaultExecConfig.MaxTime),
			},
			&cli.StringFlag{
				Name:  "max-warmup-time",
				Usage: "Approximate time budget for warmup iterations",
				Value: model.FormatDuration(defaultExecConfig.MaxWarmupTime),
			},
			&cli.StringFlag{
				Name:        "timeout",
				Usage:       "Kill a benchmark runner after this much wall time",
				DefaultText: "twice the combined time budgets, at least 10s",
			},
			&cli.BoolFlag{
				Name:    "test",
				Aliases: []string{"t"},
				Usage:   "Shorthand for --verify with verbose output",
			},
			&cli.BoolFlag{
				Name:  "verify",
				Usage: "Run each benchmark once and report failures without measuring",
			},
			&cli.StringFlag{
				Name:  "save",
				Usage: "Directory to additionally save the measurement CSV into",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "rank",
		Usage:     "Print a ranking of regex engines from benchmark results",
		ArgsUsage: "<csv-path> ...",
		Action:    app.rank,
		Flags: []cli.Flag{
			engineFlag(),
			engineNotFlag(),
			benchFlag(),
			benchNotFlag(),
			modelFlag(),
			modelNotFlag(),
			statFlag(),
			intersectionFlag(),
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "cmp",
		Usage:     "Compare timings across regex engines",
		ArgsUsage: "<csv-path> ...",
		Action:    app.cmp,
		Flags: []cli.Flag{
			engineFlag(),
			engineNotFlag(),
			benchFlag(),
			benchNotFlag(),
			modelFlag(),
			modelNotFlag(),
			statFlag(),
			unitsFlag(),
			intersectionFlag(),
			thresholdMinFlag(),
			thresholdMaxFlag(),
			&cli.StringFlag{
				Name:  "row",
				Usage: "What table rows represent: benchmark or engine",
				Value: "benchmark",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "diff",
		Usage:     "Compare timings across time for the same regex engine",
		ArgsUsage: "[<csv-path> ...]",
		Action:    app.diff,
		Description: `Compare timings across time for the same regex engine.

Each CSV path given becomes one column of the comparison, so runs of the
same benchmark suite at different points in time can be diffed side by
side. Without any paths, the two most recently saved measurement sets from
the '` + results.DefaultName + `' directory are compared (see 'measure --save').`,
		Flags: []cli.Flag{
			engineFlag(),
			engineNotFlag(),
			benchFlag(),
			benchNotFlag(),
			modelFlag(),
			modelNotFlag(),
			statFlag(),
			unitsFlag(),
			thresholdMinFlag(),
			thresholdMaxFlag(),
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "klv",
		Usage:     "Print the KLV format of a benchmark",
		ArgsUsage: "<benchmark-name>",
		Action:    app.klv,
		Description: `Print the given benchmark in key-length-value (KLV) format.

Runner programs accept benchmark definitions in KLV format on stdin.
Normally that data is generated by 'rexbench measure' automatically, but
when debugging a runner program directly this command generates the same
bytes. The --max-* budgets all default to 0, so set the ones the runner
should honor.`,
		Flags: []cli.Flag{
			dirFlag(),
			&cli.Uint64Flag{
				Name:  "max-iters",
				Usage: "Maximum number of timed iterations per benchmark",
			},
			&cli.Uint64Flag{
				Name:  "max-warmup-iters",
				Usage: "Maximum number of warmup iterations per benchmark",
			},
			&cli.StringFlag{
				Name:  "max-time",
				Usage: "Approximate time budget for timed iterations, e.g. 3s or 500ms",
				Value: "0",
			},
			&cli.StringFlag{
				Name:  "max-warmup-time",
				Usage: "Approximate time budget for warmup iterations",
				Value: "0",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "haystack",
		Usage:     "Print the haystack contents of a benchmark to stdout",
		ArgsUsage: "<benchmark-name>",
		Action:    app.haystack,
		Flags: []cli.Flag{
			dirFlag(),
			&cli.IntFlag{
				Name:    "repeat",
				Aliases: []string{"r"},
				Usage:   "Print the haystack this many times",
				Value:   1,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "build",
		Usage:  "Build the runner programs that expose regex engines",
		Action: app.build,
		Flags: []cli.Flag{
			dirFlag(),
			engineFlag(),
			engineNotFlag(),
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "clean",
		Usage:  "Clean artifacts produced by 'rexbench build'",
		Action: app.clean,
		Flags: []cli.Flag{
			dirFlag(),
			engineFlag(),
			engineNotFlag(),
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:  "version",
		Usage: "Print the version of rexbench and exit",
		Action: func(ctx *cli.Context) error {
			cli.ShowVersion(ctx)
			return nil
		},
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}

// setColorMode applies the global --color choice. The fatih/color package
// already disables itself when stdout is not a terminal, which is the
// behavior wanted for "auto".
func setColorMode(mode string) error {
	switch mode {
	case "auto":
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		return fmt.Errorf("unrecognized color mode '%s' (must be one of: auto, always, never)", mode)
	}
	return nil
}
