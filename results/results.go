// Package results persists measurement sets as timestamped CSV files so a
// run can be compared against earlier ones without stashing stdout by hand.
package results

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/perfgo/rexbench/model"
)

// DefaultName is the directory name used for the store when none is given
// explicitly, resolved relative to the benchmark directory.
const DefaultName = "results"

// stampFormat names saved sets after their UTC save time. Colons are
// avoided so the names stay portable, and the fixed width keeps
// lexicographic order equal to chronological order.
const stampFormat = "2006-01-02T15-04-05.000000000Z"

// Store is a directory of saved measurement sets. Each set is one CSV file
// named after the time it was saved.
type Store struct {
	Dir string
}

// Save writes one measurement set to the store and returns the path of the
// new file. The file appears atomically: it is fully written under a
// temporary name first and renamed into place at the end.
func (s *Store) Save(logger zerolog.Logger, measurements []model.Measurement) (string, error) {
	if len(measurements) == 0 {
		return "", fmt.Errorf("no measurements to save")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results directory %s: %w", s.Dir, err)
	}
	tmp, err := os.CreateTemp(s.Dir, ".unsaved-*.csv")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file in %s: %w", s.Dir, err)
	}
	discard := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	w := model.NewCSVWriter(tmp)
	for i := range measurements {
		if err := w.Write(&measurements[i]); err != nil {
			discard()
			return "", err
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	path := filepath.Join(s.Dir, time.Now().UTC().Format(stampFormat)+".csv")
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to rename %s to %s: %w", tmp.Name(), path, err)
	}
	logger.Debug().
		Str("path", path).
		Int("measurements", len(measurements)).
		Msg("Saved measurement set")
	return path, nil
}

// List returns the paths of all saved sets, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list results directory %s: %w", s.Dir, err)
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(s.Dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// Latest returns the n most recent saved sets, still oldest first so that
// comparisons read left to right in time order.
func (s *Store) Latest(n int) ([]string, error) {
	paths, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(paths) < n {
		return nil, fmt.Errorf(
			"need %d saved measurement sets in %s, but found %d", n, s.Dir, len(paths),
		)
	}
	return paths[len(paths)-n:], nil
}
