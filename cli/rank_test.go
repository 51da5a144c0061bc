package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRank(t *testing.T) {
	restoreColor(t)
	path := filepath.Join(t.TempDir(), "m.csv")
	writeMeasurementsCSV(t, path,
		mkMeasurement("bench/a", "go", "1.24", 10*time.Millisecond, 0),
		mkMeasurement("bench/a", "rust", "1.89", 20*time.Millisecond, 0),
		mkMeasurement("bench/b", "go", "1.24", 10*time.Millisecond, 0),
		mkMeasurement("bench/b", "rust", "1.89", 80*time.Millisecond, 0),
	)

	app, stdout, _ := newTestApp()
	require.NoError(t, app.Run([]string{"rexbench", "--color", "never", "rank", path}))
	want := "Engine  Version  Geometric mean of speed ratios  Benchmark count\n" +
		"------  -------  ------------------------------  ---------------\n" +
		"go      1.24     1.00                            2\n" +
		"rust    1.89     4.00                            2\n"
	require.Equal(t, want, stdout.String())
}

func TestRankIntersection(t *testing.T) {
	restoreColor(t)
	path := filepath.Join(t.TempDir(), "m.csv")
	writeMeasurementsCSV(t, path,
		mkMeasurement("bench/a", "go", "1.24", 10*time.Millisecond, 0),
		mkMeasurement("bench/a", "rust", "1.89", 20*time.Millisecond, 0),
		mkMeasurement("bench/b", "go", "1.24", 10*time.Millisecond, 0),
		mkMeasurement("bench/b", "rust", "1.89", 80*time.Millisecond, 0),
		mkMeasurement("bench/c", "rust", "1.89", 10*time.Millisecond, 0),
	)

	// The rust-only benchmark hands rust a free 1.00 ratio, dragging its
	// geometric mean down to 2.52 over three benchmarks.
	app, stdout, _ := newTestApp()
	require.NoError(t, app.Run([]string{"rexbench", "--color", "never", "rank", path}))
	want := "Engine  Version  Geometric mean of speed ratios  Benchmark count\n" +
		"------  -------  ------------------------------  ---------------\n" +
		"go      1.24     1.00                            2\n" +
		"rust    1.89     2.52                            3\n"
	require.Equal(t, want, stdout.String())

	// Intersection drops benchmarks not covered by the largest engine set,
	// removing the bias.
	app, stdout, _ = newTestApp()
	require.NoError(t, app.Run([]string{
		"rexbench", "--color", "never", "rank", "--intersection", path,
	}))
	want = "Engine  Version  Geometric mean of speed ratios  Benchmark count\n" +
		"------  -------  ------------------------------  ---------------\n" +
		"go      1.24     1.00                            2\n" +
		"rust    1.89     4.00                            2\n"
	require.Equal(t, want, stdout.String())
}

func TestRankNoPaths(t *testing.T) {
	app, _, _ := newTestApp()
	err := app.Run([]string{"rexbench", "rank"})
	require.EqualError(t, err, "no CSV file paths given")
}
