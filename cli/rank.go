package cli

// This file contains the rank command: a summary of entire measurement sets
// as one geometric mean of speedup ratios per regex engine.

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/rexbench/grouped"
	"github.com/perfgo/rexbench/model"
)

func (a *App) rank(ctx *cli.Context) error {
	paths := ctx.Args().Slice()
	if len(paths) == 0 {
		return errors.New("no CSV file paths given")
	}
	stat, err := model.ParseStat(ctx.String("statistic"))
	if err != nil {
		return err
	}
	filters, err := groupedFiltersFromFlags(ctx)
	if err != nil {
		return err
	}
	reader := grouped.Reader{
		Paths:        paths,
		Filters:      filters,
		Intersection: ctx.Bool("intersection"),
	}
	measurements, err := reader.Read(a.logger)
	if err != nil {
		return err
	}
	byName, err := grouped.New(measurements)
	if err != nil {
		return err
	}

	columns := []string{
		"Engine", "Version", "Geometric mean of speed ratios", "Benchmark count",
	}
	var t table
	t.addRow(columns...)
	t.addDivider(columns...)
	for _, summary := range byName.Ranking(stat) {
		t.addRow(
			summary.Name,
			summary.Version,
			fmt.Sprintf("%.2f", summary.Geomean),
			strconv.Itoa(summary.Count),
		)
	}
	return t.write(a.stdout)
}
