package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	restoreColor(t)
	scratch := t.TempDir()
	artifact := filepath.Join(scratch, "runner-binary")
	require.NoError(t, os.WriteFile(artifact, []byte("stale"), 0o644))
	dir := writeEnginesDir(t, fmt.Sprintf(`
[[engine]]
  name = "first"
  [engine.version]
    file = "/nonexistent"
  [engine.run]
    bin = "runner"
  [[engine.clean]]
    bin = "rm"
    args = [%q]

[[engine]]
  name = "second"
  [engine.version]
    file = "/nonexistent"
  [engine.run]
    bin = "runner"
  [[engine.clean]]
    bin = "sh"
    args = ["-c", "true"]
`, artifact))

	app, stdout, _ := newTestApp()
	require.NoError(t, app.Run([]string{"rexbench", "clean", "-d", dir}))
	want := fmt.Sprintf("first: running: rm %s\n", artifact) +
		"second: running: sh -c true\n"
	require.Equal(t, want, stdout.String())
	require.NoFileExists(t, artifact)
}

func TestCleanFailureAborts(t *testing.T) {
	restoreColor(t)
	dir := writeEnginesDir(t, `
[[engine]]
  name = "bad"
  [engine.version]
    file = "/nonexistent"
  [engine.run]
    bin = "runner"
  [[engine.clean]]
    bin = "sh"
    args = ["-c", "echo oops >&2; exit 1"]

[[engine]]
  name = "later"
  [engine.version]
    file = "/nonexistent"
  [engine.run]
    bin = "runner"
  [[engine.clean]]
    bin = "sh"
    args = ["-c", "true"]
`)

	app, stdout, _ := newTestApp()
	err := app.Run([]string{"rexbench", "clean", "-d", dir})
	require.ErrorContains(t, err, "failed to clean engine 'bad'")
	require.ErrorContains(t, err, `last line of stderr: "oops"`)
	// Unlike build, clean is not expected to run into missing toolchains,
	// so a failure stops the command before later engines run.
	require.Equal(t, "bad: running: sh -c 'echo oops >&2; exit 1'\n", stdout.String())
}
