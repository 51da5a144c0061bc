package grouped

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/rexbench/model"
)

func writeCSV(t *testing.T, path string, ms ...model.Measurement) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := model.NewCSVWriter(f)
	for _, m := range ms {
		require.NoError(t, w.Write(&m))
	}
}

func measurementNames(ms []model.Measurement) []string {
	var names []string
	for _, m := range ms {
		names = append(names, m.Name+":"+m.Engine)
	}
	return names
}

func TestReaderSkipsErrored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")
	failed := mkMeasurement("bench/b", "go/regexp", "go1.24.6", 0)
	failed.Err = "failed to run command for 'go/regexp' but stderr was empty"
	writeCSV(t, path,
		mkMeasurement("bench/a", "go/regexp", "go1.24.6", 10*time.Nanosecond),
		failed,
	)

	r := &Reader{Paths: []string{path}, Filters: &Filters{}}
	ms, err := r.Read(zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, []string{"bench/a:go/regexp"}, measurementNames(ms))
}

func TestReaderAppliesFilters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")
	writeCSV(t, path,
		mkMeasurement("bench/a", "go/regexp", "go1.24.6", 10*time.Nanosecond),
		mkMeasurement("bench/a", "rust/regex", "1.89.0", 20*time.Nanosecond),
		mkMeasurement("bench/b", "rust/regex", "1.89.0", 30*time.Nanosecond),
	)

	filters := &Filters{}
	require.NoError(t, filters.Engine.Add("^rust/"))
	require.NoError(t, filters.Name.Add("!b$"))
	r := &Reader{Paths: []string{path}, Filters: filters}
	ms, err := r.Read(zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, []string{"bench/a:rust/regex"}, measurementNames(ms))
}

func TestReaderMultiplePaths(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.csv")
	writeCSV(t, first, mkMeasurement("bench/a", "go/regexp", "go1.24.6", 10*time.Nanosecond))
	writeCSV(t, second, mkMeasurement("bench/b", "go/regexp", "go1.24.6", 20*time.Nanosecond))

	r := &Reader{Paths: []string{first, second}, Filters: &Filters{}}
	ms, err := r.Read(zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, []string{"bench/a:go/regexp", "bench/b:go/regexp"}, measurementNames(ms))
}

func TestReaderIntersection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")
	writeCSV(t, path,
		mkMeasurement("bench/a", "go/regexp", "go1.24.6", 10*time.Nanosecond),
		mkMeasurement("bench/a", "rust/regex", "1.89.0", 20*time.Nanosecond),
		mkMeasurement("bench/c", "go/regexp", "go1.24.6", 30*time.Nanosecond),
	)

	r := &Reader{Paths: []string{path}, Filters: &Filters{}, Intersection: true}
	ms, err := r.Read(zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t,
		[]string{"bench/a:go/regexp", "bench/a:rust/regex"},
		measurementNames(ms))
}

func TestReaderMissingFile(t *testing.T) {
	r := &Reader{
		Paths:   []string{filepath.Join(t.TempDir(), "nope.csv")},
		Filters: &Filters{},
	}
	_, err := r.Read(zerolog.Nop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to open measurements")
}
