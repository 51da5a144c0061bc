package grouped

// This file contains the loader that comparison commands use to read
// measurements back out of CSV files before grouping them.

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/perfgo/rexbench/filter"
	"github.com/perfgo/rexbench/model"
)

// Filters selects measurements by benchmark name, model and engine name. A
// measurement must pass all three filters to be included.
type Filters struct {
	Name   filter.Filter
	Model  filter.Filter
	Engine filter.Filter
}

// Include reports whether the given measurement passes all filters.
func (f *Filters) Include(m *model.Measurement) bool {
	return f.Name.Include(m.Name) &&
		f.Model.Include(m.Model) &&
		f.Engine.Include(m.Engine)
}

// Reader loads measurements from one or more CSV files written by the
// measure command.
type Reader struct {
	// Paths to the CSV files to load, read in the order given.
	Paths []string
	// Filters to apply to each measurement read.
	Filters *Filters
	// When set, only benchmarks with the largest engine set are kept. This
	// avoids biasing a ranking toward engines that only participate in a
	// few benchmarks.
	Intersection bool
}

// Read loads every measurement from every path.
//
// Measurements that recorded an error are logged and skipped rather than
// failing the load, since an error for one engine shouldn't prevent
// comparing the rest.
func (r *Reader) Read(logger zerolog.Logger) ([]model.Measurement, error) {
	var measurements []model.Measurement
	for _, path := range r.Paths {
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
			if !r.Filters.Include(&m) {
				continue
			}
			measurements = append(measurements, m)
		}
	}
	if r.Intersection {
		measurements = intersection(measurements)
	}
	return measurements, nil
}

// intersection keeps only measurements for benchmarks whose engine set is as
// large as the largest engine set of any benchmark. When no benchmark covers
// every engine in the corpus, this settles for the biggest ties instead of
// dropping everything.
func intersection(measurements []model.Measurement) []model.Measurement {
	engines := make(map[string]map[string]bool)
	for _, m := range measurements {
		if engines[m.Name] == nil {
			engines[m.Name] = make(map[string]bool)
		}
		engines[m.Name][m.Engine] = true
	}
	max := 0
	for _, set := range engines {
		if len(set) > max {
			max = len(set)
		}
	}
	kept := measurements[:0]
	for _, m := range measurements {
		if len(engines[m.Name]) == max {
			kept = append(kept, m)
		}
	}
	return kept
}
