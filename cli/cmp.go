package cli

// This file contains the cmp command: a table comparing regex engines
// against each other, one benchmark per row.

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/rexbench/grouped"
	"github.com/perfgo/rexbench/model"
)

// rowKind selects what the rows of the comparison table represent.
type rowKind uint8

const (
	rowBenchmark rowKind = iota
	rowEngine
)

func parseRowKind(s string) (rowKind, error) {
	switch s {
	case "benchmark":
		return rowBenchmark, nil
	case "engine":
		return rowEngine, nil
	}
	return 0, fmt.Errorf("unrecognized row kind '%s'", s)
}

func (a *App) cmp(ctx *cli.Context) error {
	paths := ctx.Args().Slice()
	if len(paths) == 0 {
		return errors.New("no CSV file paths given")
	}
	stat, err := model.ParseStat(ctx.String("statistic"))
	if err != nil {
		return err
	}
	units, err := model.ParseUnits(ctx.String("units"))
	if err != nil {
		return err
	}
	row, err := parseRowKind(ctx.String("row"))
	if err != nil {
		return err
	}
	var speedups grouped.ThresholdRange
	if ctx.IsSet("threshold-min") {
		speedups.SetMin(ctx.Float64("threshold-min"))
	}
	if ctx.IsSet("threshold-max") {
		speedups.SetMax(ctx.Float64("threshold-max"))
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
	engines := byName.EngineNames()

	var t table
	switch row {
	case rowBenchmark:
		t.addRow(append([]string{"benchmark"}, engines...)...)
		t.addDivider(append([]string{"benchmark"}, engines...)...)
		for i := range byName.Groups {
			group := &byName.Groups[i]
			if !group.IsWithinRange(stat, speedups) {
				continue
			}
			// Every engine gets a cell even when it has no measurement in
			// this group, so that the columns stay aligned. Dense output is
			// what the filter flags are for.
			cells := []string{group.Name}
			for _, engine := range engines {
				cells = append(cells, engineCell(group, engine, stat, units))
			}
			t.addRow(cells...)
		}
	case rowEngine:
		header := []string{"engine"}
		for i := range byName.Groups {
			group := &byName.Groups[i]
			if !group.IsWithinRange(stat, speedups) {
				continue
			}
			header = append(header, group.Name)
		}
		t.addRow(header...)
		t.addDivider(header...)
		for _, engine := range engines {
			cells := []string{engine}
			for i := range byName.Groups {
				group := &byName.Groups[i]
				if !group.IsWithinRange(stat, speedups) {
					continue
				}
				cells = append(cells, engineCell(group, engine, stat, units))
			}
			t.addRow(cells...)
		}
	}
	return t.write(a.stdout)
}

// engineCell renders one aggregate statistic for the given engine from the
// given group. The fastest engine of the group is highlighted.
func engineCell(group *grouped.Group, engine string, stat model.Stat, units model.Units) string {
	m, ok := group.ByEngine[engine]
	if !ok {
		return "-"
	}
	ratio, _ := group.Ratio(engine, stat)
	var cell string
	if tput, ok := m.Throughput(stat); units == model.UnitsThroughput && ok {
		cell = fmt.Sprintf("%s (%.2fx)", tput, ratio)
	} else {
		cell = fmt.Sprintf("%s (%.2fx)", model.FormatDuration(m.Duration(stat)), ratio)
	}
	if engine == group.Best(stat) {
		cell = bestColor.Sprint(cell)
	}
	return cell
}
