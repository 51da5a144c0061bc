// Package grouped associates measurements that share a benchmark name so
// that regex engines can be compared against each other. A group is a map
// from engine name to the measurement for that engine, and it is where
// speedup ratios come from. Ratios across many groups reduce to a geometric
// mean, which is the summary statistic used to rank engines over an entire
// corpus of measurements.
package grouped

import (
	"fmt"
	"math"
	"sort"

	"github.com/perfgo/rexbench/model"
)

// ByBenchmarkName groups measurements by their benchmark name. Groups appear
// in the same order as the first measurement of each benchmark.
type ByBenchmarkName struct {
	Groups []Group
}

// Group is a set of measurements sharing one benchmark name, at most one per
// engine.
type Group struct {
	// The benchmark name shared by every measurement in this group.
	Name string
	// A map from engine name to that engine's measurement.
	ByEngine map[string]model.Measurement
}

// EngineSummary is the ranking result for one engine across every group it
// participates in.
type EngineSummary struct {
	// Name of the regex engine.
	Name string
	// Version of the regex engine, identical in every measurement that
	// contributed to this summary.
	Version string
	// The geometric mean of this engine's speedup ratios. 1.0 means the
	// engine was the fastest in every benchmark it participated in.
	Geomean float64
	// The number of benchmarks that contributed to Geomean.
	Count int
}

// New groups the given measurements by benchmark name.
//
// It is an error for two measurements to share both a benchmark name and an
// engine name, or for two measurements with the same engine to disagree on
// the engine version. Either one indicates a corrupted or mismatched data
// set, so the whole operation fails rather than guessing.
func New(measurements []model.Measurement) (*ByBenchmarkName, error) {
	byName := make(map[string]*Group)
	versions := make(map[string]string)
	var order []string
	for _, m := range measurements {
		group, ok := byName[m.Name]
		if !ok {
			group = &Group{Name: m.Name, ByEngine: make(map[string]model.Measurement)}
			byName[m.Name] = group
			order = append(order, m.Name)
		}
		if version, ok := versions[m.Engine]; !ok {
			versions[m.Engine] = m.EngineVersion
		} else if version != m.EngineVersion {
			return nil, fmt.Errorf(
				"found mismatching versions '%s' and '%s' for engine '%s'",
				m.EngineVersion, version, m.Engine,
			)
		}
		if _, ok := group.ByEngine[m.Engine]; ok {
			return nil, fmt.Errorf(
				"found measurement for benchmark '%s' with duplicative engine name '%s'",
				m.Name, m.Engine,
			)
		}
		group.ByEngine[m.Engine] = m
	}
	grouping := &ByBenchmarkName{}
	for _, name := range order {
		grouping.Groups = append(grouping.Groups, *byName[name])
	}
	return grouping, nil
}

// Ranking summarizes every engine in this grouping by the geometric mean of
// its speedup ratios, using the given statistic. The summaries returned are
// sorted by geometric mean in ascending order, so the best engine overall
// comes first.
//
// The version reported for each engine is taken from the measurements rather
// than any engine definition, since a definition reflects whatever is
// installed now and not what was installed when the measurements were
// collected.
func (b *ByBenchmarkName) Ranking(stat model.Stat) []EngineSummary {
	type withData struct {
		version string
		ratios  []float64
	}
	byEngine := make(map[string]*withData)
	for i := range b.Groups {
		group := &b.Groups[i]
		for _, engine := range group.Engines() {
			m := group.ByEngine[engine]
			data, ok := byEngine[engine]
			if !ok {
				data = &withData{version: m.EngineVersion}
				byEngine[engine] = data
			}
			ratio, _ := group.Ratio(engine, stat)
			data.ratios = append(data.ratios, ratio)
		}
	}

	engines := make([]string, 0, len(byEngine))
	for engine := range byEngine {
		engines = append(engines, engine)
	}
	sort.Strings(engines)

	summaries := make([]EngineSummary, 0, len(byEngine))
	for _, engine := range engines {
		data := byEngine[engine]
		geomean := 1.0
		for _, ratio := range data.ratios {
			geomean *= math.Pow(ratio, 1.0/float64(len(data.ratios)))
		}
		summaries = append(summaries, EngineSummary{
			Name:    engine,
			Version: data.version,
			Geomean: geomean,
			Count:   len(data.ratios),
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Geomean < summaries[j].Geomean
	})
	return summaries
}

// EngineNames returns the names of all engines appearing anywhere in this
// grouping, lexicographically ascending.
func (b *ByBenchmarkName) EngineNames() []string {
	seen := make(map[string]bool)
	for i := range b.Groups {
		for engine := range b.Groups[i].ByEngine {
			seen[engine] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engines returns the engine names in this group, lexicographically
// ascending.
func (g *Group) Engines() []string {
	engines := make([]string, 0, len(g.ByEngine))
	for engine := range g.ByEngine {
		engines = append(engines, engine)
	}
	sort.Strings(engines)
	return engines
}

// Best returns the engine with the smallest value of the given statistic.
// Ties go to the lexicographically first engine. The group must be
// non-empty.
func (g *Group) Best(stat model.Stat) string {
	engines := g.Engines()
	best := engines[0]
	for _, engine := range engines {
		candidate := g.ByEngine[engine]
		if winner := g.ByEngine[best]; candidate.Duration(stat) < winner.Duration(stat) {
			best = engine
		}
	}
	return best
}

// Ratio returns how many times slower the given engine is than the best
// engine in this group for the given statistic. The best engine itself gets
// exactly 1.0, so the ratio is always at least 1.0. It reports false when
// the engine has no measurement in this group.
func (g *Group) Ratio(engine string, stat model.Stat) (float64, bool) {
	m, ok := g.ByEngine[engine]
	if !ok {
		return 0, false
	}
	this := m.Duration(stat).Seconds()
	bestM := g.ByEngine[g.Best(stat)]
	best := bestM.Duration(stat).Seconds()
	return this / best, true
}

// IsWithinRange reports whether at least one measurement in this group has a
// speedup ratio within the given range for the given statistic.
func (g *Group) IsWithinRange(stat model.Stat, r ThresholdRange) bool {
	// The best engine always has a ratio of exactly 1, so it never
	// participates in the check below. A group of size 1 would then never
	// match anything, which isn't sensible, so it is handled up front.
	if len(g.ByEngine) == 1 {
		return r.Contains(1.0)
	}
	best := g.Best(stat)
	bestM := g.ByEngine[best]
	bestSecs := bestM.Duration(stat).Seconds()
	for engine, m := range g.ByEngine {
		if engine == best {
			continue
		}
		ratio := m.Duration(stat).Seconds() / bestSecs
		if r.Contains(ratio) {
			return true
		}
	}
	return false
}

// ThresholdRange is an optional lower and upper bound on speedup ratios,
// used to trim comparison output down to interesting rows. The zero value
// contains everything.
type ThresholdRange struct {
	min, max       float64
	hasMin, hasMax bool
}

// SetMin sets the lower bound.
func (r *ThresholdRange) SetMin(x float64) {
	r.min, r.hasMin = x, true
}

// SetMax sets the upper bound.
func (r *ThresholdRange) SetMax(x float64) {
	r.max, r.hasMax = x, true
}

// Contains reports whether x falls within this range. Bounds are inclusive.
func (r ThresholdRange) Contains(x float64) bool {
	if r.hasMin && x < r.min {
		return false
	}
	if r.hasMax && x > r.max {
		return false
	}
	return true
}
