package cli

// This file contains the flag constructors and filter assembly shared by the
// commands. Filter flags are repeatable; a pattern with a '!' prefix becomes
// an exclude rule, and the dedicated exclude flags are applied after all
// include patterns.

import (
	"github.com/urfave/cli/v2"

	"github.com/perfgo/rexbench/benchdef"
	"github.com/perfgo/rexbench/filter"
	"github.com/perfgo/rexbench/grouped"
)

// dirFlag returns the benchmark directory flag shared by every command that
// reads benchmark definitions.
func dirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "dir",
		Aliases: []string{"d"},
		Usage:   "Directory containing benchmark definitions",
		Value:   "benchmarks",
	}
}

// engineFlag returns the engine include filter flag.
func engineFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "engine",
		Aliases: []string{"e"},
		Usage:   "Include only regex engines matching this pattern (can be specified multiple times)",
	}
}

// engineNotFlag returns the engine exclude filter flag.
func engineNotFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "engine-not",
		Aliases: []string{"E"},
		Usage:   "Exclude regex engines matching this pattern (can be specified multiple times)",
	}
}

// benchFlag returns the benchmark name include filter flag.
func benchFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "filter",
		Aliases: []string{"f"},
		Usage:   "Include only benchmarks matching this pattern (can be specified multiple times)",
	}
}

// benchNotFlag returns the benchmark name exclude filter flag.
func benchNotFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "filter-not",
		Aliases: []string{"F"},
		Usage:   "Exclude benchmarks matching this pattern (can be specified multiple times)",
	}
}

// modelFlag returns the benchmark model include filter flag.
func modelFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "model",
		Aliases: []string{"m"},
		Usage:   "Include only benchmark models matching this pattern (can be specified multiple times)",
	}
}

// modelNotFlag returns the benchmark model exclude filter flag.
func modelNotFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "model-not",
		Aliases: []string{"M"},
		Usage:   "Exclude benchmark models matching this pattern (can be specified multiple times)",
	}
}

// statFlag returns the aggregate statistic selector flag.
func statFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "statistic",
		Aliases: []string{"s"},
		Usage:   "Statistic to compare: median, mad, mean, stddev, min or max",
		Value:   "median",
	}
}

// unitsFlag returns the comparison units selector flag.
func unitsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "units",
		Aliases: []string{"u"},
		Usage:   "Units to compare: time or throughput",
		Value:   "throughput",
	}
}

// intersectionFlag returns the flag restricting comparisons to benchmarks
// that cover the full engine set.
func intersectionFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "intersection",
		Usage: "Only consider benchmarks that contain all regex engines",
	}
}

// thresholdMinFlag returns the lower speedup ratio bound flag.
func thresholdMinFlag() cli.Flag {
	return &cli.Float64Flag{
		Name:    "threshold-min",
		Aliases: []string{"t"},
		Usage:   "Hide rows whose speedup ratios all fall below this minimum",
	}
}

// thresholdMaxFlag returns the upper speedup ratio bound flag.
func thresholdMaxFlag() cli.Flag {
	return &cli.Float64Flag{
		Name:    "threshold-max",
		Aliases: []string{"T"},
		Usage:   "Hide rows whose speedup ratios all exceed this maximum",
	}
}

// newFilter compiles one include/exclude flag pair into a filter. Include
// patterns are added first, so an exclude always beats an include it
// overlaps with.
func newFilter(includes, excludes []string) (filter.Filter, error) {
	f, err := filter.New(includes...)
	if err != nil {
		return filter.Filter{}, err
	}
	for _, pattern := range excludes {
		if err := f.AddExclude(pattern); err != nil {
			return filter.Filter{}, err
		}
	}
	return *f, nil
}

// engineFilterFromFlags compiles the -e/-E pair.
func engineFilterFromFlags(ctx *cli.Context) (filter.Filter, error) {
	return newFilter(ctx.StringSlice("engine"), ctx.StringSlice("engine-not"))
}

// benchdefFiltersFromFlags compiles the benchmark selection flags used by
// commands that load benchmark definitions.
func benchdefFiltersFromFlags(ctx *cli.Context) (*benchdef.Filters, error) {
	var filters benchdef.Filters
	var err error
	if filters.Name, err = newFilter(ctx.StringSlice("filter"), ctx.StringSlice("filter-not")); err != nil {
		return nil, err
	}
	if filters.Model, err = newFilter(ctx.StringSlice("model"), ctx.StringSlice("model-not")); err != nil {
		return nil, err
	}
	if filters.Engine, err = engineFilterFromFlags(ctx); err != nil {
		return nil, err
	}
	filters.IgnoreMissingEngines = ctx.Bool("ignore-missing-engines")
	return &filters, nil
}

// groupedFiltersFromFlags compiles the measurement selection flags used by
// commands that read measurement CSV data back.
func groupedFiltersFromFlags(ctx *cli.Context) (*grouped.Filters, error) {
	var filters grouped.Filters
	var err error
	if filters.Name, err = newFilter(ctx.StringSlice("filter"), ctx.StringSlice("filter-not")); err != nil {
		return nil, err
	}
	if filters.Model, err = newFilter(ctx.StringSlice("model"), ctx.StringSlice("model-not")); err != nil {
		return nil, err
	}
	if filters.Engine, err = engineFilterFromFlags(ctx); err != nil {
		return nil, err
	}
	return &filters, nil
}
