package cli

// This file contains the diff command: a table comparing runs of the same
// benchmarks over time, one column per measurement CSV file.

import (
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/perfgo/rexbench/grouped"
	"github.com/perfgo/rexbench/model"
	"github.com/perfgo/rexbench/results"
)

func (a *App) diff(ctx *cli.Context) error {
	stat, err := model.ParseStat(ctx.String("statistic"))
	if err != nil {
		return err
	}
	units, err := model.ParseUnits(ctx.String("units"))
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
	paths := ctx.Args().Slice()
	if len(paths) == 0 {
		store := results.Store{Dir: results.DefaultName}
		if paths, err = store.Latest(2); err != nil {
			return err
		}
		a.logger.Debug().
			Strs("paths", paths).
			Msg("Diffing the most recently saved measurement sets")
	}
	groups, err := readMeasurementGroups(a.logger, paths, filters)
	if err != nil {
		return err
	}

	header := append([]string{"benchmark", "engine"}, paths...)
	var t table
	t.addRow(header...)
	t.addDivider(header...)
	for i := range groups {
		group := &groups[i]
		if !group.isWithinRange(stat, speedups) {
			continue
		}
		// Every data set gets a cell even when this benchmark is missing
		// from it, so that the columns stay aligned. Dense output is what
		// the filter flags are for.
		cells := []string{group.Name, group.Engine}
		for _, dataName := range paths {
			cells = append(cells, diffCell(group, dataName, stat, units))
		}
		t.addRow(cells...)
	}
	return t.write(a.stdout)
}

// measurementGroup holds every measurement collected over time for a single
// (benchmark name, engine name) pair, keyed by the name of the data set the
// measurement came from. The CSV file path serves as the data set name,
// since anything shorter is too easy to collide.
type measurementGroup struct {
	Name   string
	Engine string
	ByData map[string]model.Measurement
}

// readMeasurementGroups reads every measurement from every path and groups
// them by (benchmark name, engine name). Groups are returned in order of
// first appearance. Measurements that recorded an error are logged and
// skipped, the same as when comparing engines.
func readMeasurementGroups(
	logger zerolog.Logger,
	paths []string,
	filters *grouped.Filters,
) ([]measurementGroup, error) {
	type pairKey struct {
		name, engine string
	}
	pair2idx := make(map[pairKey]int)
	var groups []measurementGroup
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open measurements: %w", err)
		}
		ms, err := model.ReadCSV(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read measurements from %s: %w", path, err)
		}
		for _, m := range ms {
			if m.Err != "" {
				logger.Warn().
					Str("benchmark", m.Name).
					Str("engine", m.Engine).
					Str("error", m.Err).
					Msg("Skipping measurement with error")
				continue
			}
			if !filters.Include(&m) {
				continue
			}
			pair := pairKey{name: m.Name, engine: m.Engine}
			idx, ok := pair2idx[pair]
			if !ok {
				idx = len(groups)
				pair2idx[pair] = idx
				groups = append(groups, measurementGroup{
					Name:   m.Name,
					Engine: m.Engine,
					ByData: make(map[string]model.Measurement),
				})
			}
			groups[idx].ByData[path] = m
		}
	}
	return groups, nil
}

// dataNames returns the data set names in this group, lexicographically
// ascending.
func (g *measurementGroup) dataNames() []string {
	names := make([]string, 0, len(g.ByData))
	for name := range g.ByData {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// best returns the data set name with the smallest value of the given
// statistic. Ties go to the lexicographically first data set name. The group
// must be non-empty.
func (g *measurementGroup) best(stat model.Stat) string {
	names := g.dataNames()
	best := names[0]
	for _, name := range names {
		candidate := g.ByData[name]
		if winner := g.ByData[best]; candidate.Duration(stat) < winner.Duration(stat) {
			best = name
		}
	}
	return best
}

// ratio returns how many times slower the given data set is than the best
// data set in this group for the given statistic. A group with fewer than
// two measurements has nothing to compare against, so the ratio is 1.
func (g *measurementGroup) ratio(dataName string, stat model.Stat) float64 {
	if len(g.ByData) < 2 {
		return 1.0
	}
	thisM := g.ByData[dataName]
	bestM := g.ByData[g.best(stat)]
	this := thisM.Duration(stat).Seconds()
	best := bestM.Duration(stat).Seconds()
	return this / best
}

// isWithinRange reports whether at least one measurement in this group has a
// speedup ratio within the given range for the given statistic.
func (g *measurementGroup) isWithinRange(stat model.Stat, r grouped.ThresholdRange) bool {
	// The best data set always has a ratio of exactly 1, so it never
	// participates in the check below. A group of size 1 would then never
	// match anything, which isn't sensible, so it is handled up front.
	if len(g.ByData) == 1 {
		return r.Contains(1.0)
	}
	best := g.best(stat)
	bestM := g.ByData[best]
	bestSecs := bestM.Duration(stat).Seconds()
	for name, m := range g.ByData {
		if name == best {
			continue
		}
		ratio := m.Duration(stat).Seconds() / bestSecs
		if r.Contains(ratio) {
			return true
		}
	}
	return false
}

// anyThroughput reports whether at least one measurement in this group has
// throughputs available. A benchmark can gain or lose its haystack between
// runs, so this is a property of the group rather than one measurement.
func (g *measurementGroup) anyThroughput() bool {
	for _, m := range g.ByData {
		if m.Aggregate.Tputs != nil {
			return true
		}
	}
	return false
}

// diffCell renders one aggregate statistic for the given data set from the
// given group. The fastest data set of the group is highlighted.
func diffCell(group *measurementGroup, dataName string, stat model.Stat, units model.Units) string {
	m, ok := group.ByData[dataName]
	if !ok {
		return "-"
	}
	var cell string
	if units == model.UnitsThroughput && group.anyThroughput() {
		if tput, ok := m.Throughput(stat); ok {
			cell = fmt.Sprintf("%s (%.2fx)", tput, group.ratio(dataName, stat))
		} else {
			cell = "NO-THROUGHPUT"
		}
	} else {
		d := m.Duration(stat)
		cell = fmt.Sprintf("%s (%.2fx)", model.FormatDuration(d), group.ratio(dataName, stat))
	}
	if dataName == group.best(stat) {
		cell = bestColor.Sprint(cell)
	}
	return cell
}
