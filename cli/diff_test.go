package cli

import (
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/rexbench/model"
	"github.com/perfgo/rexbench/results"
)

// writeDiffCSVs writes two measurement sets into the current directory so
// that the paths given on the command line, and therefore the column
// headers, stay short.
func writeDiffCSVs(t *testing.T) {
	t.Helper()
	writeMeasurementsCSV(t, "old.csv",
		mkMeasurement("bench/a", "go", "1.24", 10*time.Millisecond, 0),
	)
	writeMeasurementsCSV(t, "new.csv",
		mkMeasurement("bench/a", "go", "1.24", 20*time.Millisecond, 0),
		mkMeasurement("bench/b", "go", "1.24", 20*time.Millisecond, 0),
	)
}

func TestDiff(t *testing.T) {
	restoreColor(t)
	chdir(t, t.TempDir())
	writeDiffCSVs(t)

	// Groups appear in order of first sighting across the inputs, and a
	// benchmark missing from one data set keeps its cell.
	app, stdout, _ := newTestApp()
	require.NoError(t, app.Run([]string{
		"rexbench", "--color", "never", "diff", "old.csv", "new.csv",
	}))
	want := "benchmark  engine  old.csv          new.csv\n" +
		"---------  ------  -------          -------\n" +
		"bench/a    go      10.00ms (1.00x)  20.00ms (2.00x)\n" +
		"bench/b    go      -                20.00ms (1.00x)\n"
	require.Equal(t, want, stdout.String())
}

func TestDiffThresholdMin(t *testing.T) {
	restoreColor(t)
	chdir(t, t.TempDir())
	writeDiffCSVs(t)

	// bench/a regressed by 2.00x and bench/b has nothing to compare, so a
	// minimum of 3 leaves only the header.
	app, stdout, _ := newTestApp()
	require.NoError(t, app.Run([]string{
		"rexbench", "--color", "never", "diff", "-t", "3", "old.csv", "new.csv",
	}))
	want := "benchmark  engine  old.csv  new.csv\n" +
		"---------  ------  -------  -------\n"
	require.Equal(t, want, stdout.String())
}

func TestDiffDefaultStore(t *testing.T) {
	restoreColor(t)
	chdir(t, t.TempDir())
	store := results.Store{Dir: results.DefaultName}
	_, err := store.Save(zerolog.Nop(), []model.Measurement{
		mkMeasurement("bench/a", "go", "1.24", 10*time.Millisecond, 0),
	})
	require.NoError(t, err)
	_, err = store.Save(zerolog.Nop(), []model.Measurement{
		mkMeasurement("bench/a", "go", "1.24", 20*time.Millisecond, 0),
	})
	require.NoError(t, err)
	paths, err := store.Latest(2)
	require.NoError(t, err)

	// Without paths the two most recently saved sets are compared, oldest
	// first.
	app, stdout, _ := newTestApp()
	require.NoError(t, app.Run([]string{"rexbench", "--color", "never", "diff"}))
	out := stdout.String()
	require.Contains(t, out, paths[0])
	require.Contains(t, out, paths[1])
	require.Contains(t, out, "10.00ms (1.00x)")
	require.Contains(t, out, "20.00ms (2.00x)")
}

func TestDiffTies(t *testing.T) {
	restoreColor(t)
	chdir(t, t.TempDir())
	writeMeasurementsCSV(t, "a.csv",
		mkMeasurement("bench/a", "go", "1.24", 10*time.Millisecond, 0),
	)
	writeMeasurementsCSV(t, "b.csv",
		mkMeasurement("bench/a", "go", "1.24", 10*time.Millisecond, 0),
	)

	// On an exact tie the first data set name wins the highlight, so the
	// output stays deterministic.
	app, stdout, _ := newTestApp()
	require.NoError(t, app.Run([]string{
		"rexbench", "--color", "always", "diff", "a.csv", "b.csv",
	}))
	green := color.New(color.FgGreen, color.Bold)
	want := "benchmark  engine  a.csv            b.csv\n" +
		"---------  ------  -----            -----\n" +
		"bench/a    go      " + green.Sprint("10.00ms (1.00x)") + "  10.00ms (1.00x)\n"
	require.Equal(t, want, stdout.String())
}

func TestDiffNoThroughput(t *testing.T) {
	restoreColor(t)
	chdir(t, t.TempDir())
	writeMeasurementsCSV(t, "old.csv",
		mkMeasurement("bench/a", "go", "1.24", 10*time.Millisecond, 1<<20),
	)
	writeMeasurementsCSV(t, "new.csv",
		mkMeasurement("bench/a", "go", "1.24", 20*time.Millisecond, 0),
	)

	// The group has throughputs, so the data set that lost its haystack
	// says so instead of quietly switching units.
	app, stdout, _ := newTestApp()
	require.NoError(t, app.Run([]string{
		"rexbench", "--color", "never", "diff", "old.csv", "new.csv",
	}))
	want := "benchmark  engine  old.csv             new.csv\n" +
		"---------  ------  -------             -------\n" +
		"bench/a    go      100.0 MB/s (1.00x)  NO-THROUGHPUT\n"
	require.Equal(t, want, stdout.String())
}
