package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeEnginesDir lays out a benchmark directory holding only engines.toml,
// which is all the build and clean commands load.
func writeEnginesDir(t *testing.T, enginesTOML string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "engines.toml"), []byte(enginesTOML), 0o644))
	return dir
}

// writeVersionFile returns the path of a file holding the given version.
func writeVersionFile(t *testing.T, dir, version string) string {
	t.Helper()
	path := filepath.Join(dir, "version.txt")
	require.NoError(t, os.WriteFile(path, []byte(version+"\n"), 0o644))
	return path
}

func TestBuild(t *testing.T) {
	restoreColor(t)
	dir := t.TempDir()
	versionPath := writeVersionFile(t, dir, "1.0.0")
	dir = writeEnginesDir(t, fmt.Sprintf(`
[[engine]]
  name = "ok"
  [engine.version]
    file = %q
  [engine.run]
    bin = "runner"
  [[engine.build]]
    bin = "sh"
    args = ["-c", "true"]

[[engine]]
  name = "nobuild"
  [engine.version]
    file = %q
  [engine.run]
    bin = "runner"
`, versionPath, versionPath))

	app, stdout, stderr := newTestApp()
	require.NoError(t, app.Run([]string{"rexbench", "--color", "never", "build", "-d", dir}))
	want := "ok: running: sh -c true\n" +
		"ok: build complete for version 1.0.0\n" +
		"nobuild: nothing to do\n"
	require.Equal(t, want, stdout.String())
	require.Empty(t, stderr.String())
}

func TestBuildVersionReceipt(t *testing.T) {
	restoreColor(t)
	scratch := t.TempDir()
	versionPath := filepath.Join(scratch, "built-version.txt")
	dir := writeEnginesDir(t, fmt.Sprintf(`
[[engine]]
  name = "dyn"
  [engine.version]
    file = %q
  [engine.run]
    bin = "runner"
  [[engine.build]]
    bin = "sh"
    args = ["-c", %q]
`, versionPath, "echo 2.0.0 > "+versionPath))

	// The version is unresolvable before the build and the receipt printed
	// afterwards proves the build made it discoverable.
	app, stdout, stderr := newTestApp()
	require.NoError(t, app.Run([]string{"rexbench", "--color", "never", "build", "-d", dir}))
	require.Contains(t, stdout.String(), "dyn: build complete for version 2.0.0\n")
	require.Empty(t, stderr.String())
}

func TestBuildMissingVersionWithoutSteps(t *testing.T) {
	restoreColor(t)
	dir := writeEnginesDir(t, `
[[engine]]
  name = "missing"
  [engine.version]
    bin = "sh"
    args = ["-c", "exit 1"]
  [engine.run]
    bin = "runner"
`)

	app, stdout, stderr := newTestApp()
	require.NoError(t, app.Run([]string{"rexbench", "--color", "never", "build", "-d", dir}))
	require.Empty(t, stdout.String())
	want := "missing: no build steps, but version is missing\n" +
		"note: run `rexbench --verbose build -e '^missing$'` to see more details\n"
	require.Equal(t, want, stderr.String())
}

func TestBuildDependencyFailures(t *testing.T) {
	restoreColor(t)
	dir := t.TempDir()
	versionPath := writeVersionFile(t, dir, "1.0.0")
	dir = writeEnginesDir(t, fmt.Sprintf(`
[[engine]]
  name = "dep-fail"
  [engine.version]
    file = %q
  [engine.run]
    bin = "runner"
  [[engine.dependency]]
    bin = "sh"
    args = ["-c", "exit 1"]
  [[engine.build]]
    bin = "sh"
    args = ["-c", "true"]

[[engine]]
  name = "dep-nomatch"
  [engine.version]
    file = %q
  [engine.run]
    bin = "runner"
  [[engine.dependency]]
    regex = 'v[0-9]+'
    bin = "sh"
    args = ["-c", "echo nope"]
  [[engine.build]]
    bin = "sh"
    args = ["-c", "true"]

[[engine]]
  name = "ok"
  [engine.version]
    file = %q
  [engine.run]
    bin = "runner"
  [[engine.build]]
    bin = "sh"
    args = ["-c", "true"]
`, versionPath, versionPath, versionPath))

	app, stdout, stderr := newTestApp()
	require.NoError(t, app.Run([]string{"rexbench", "--color", "never", "build", "-d", dir}))

	// A failing dependency skips that engine but not the rest of the run.
	want := "ok: running: sh -c true\n" +
		"ok: build complete for version 1.0.0\n"
	require.Equal(t, want, stdout.String())

	errOut := stderr.String()
	require.Contains(t, errOut,
		"dep-fail: dependency command failed: command failed with exit status 1 but stderr is empty\n")
	require.Contains(t, errOut,
		"dep-nomatch: dependency command did not print expected output: "+
			"could not find match for \"v[0-9]+\" in output of sh -c 'echo nope'\n")
	// Each note prints at most once no matter how many engines fail.
	require.Equal(t, 2, strings.Count(errOut, "note: "))
	require.Contains(t, errOut,
		"note: a dependency that is required to build 'dep-fail' could not be found, "+
			"either because it isn't installed or because it didn't behave as expected\n")
	require.Contains(t, errOut,
		"note: run `rexbench --verbose build -e '^dep-fail$'` to see more details\n")
}

func TestBuildStepFailure(t *testing.T) {
	restoreColor(t)
	dir := t.TempDir()
	versionPath := writeVersionFile(t, dir, "1.0.0")
	dir = writeEnginesDir(t, fmt.Sprintf(`
[[engine]]
  name = "broken"
  [engine.version]
    file = %q
  [engine.run]
    bin = "runner"
  [[engine.build]]
    bin = "sh"
    args = ["-c", "echo boom >&2; exit 1"]

[[engine]]
  name = "after"
  [engine.version]
    file = %q
  [engine.run]
    bin = "runner"
  [[engine.build]]
    bin = "sh"
    args = ["-c", "true"]
`, versionPath, versionPath))

	app, stdout, stderr := newTestApp()
	require.NoError(t, app.Run([]string{"rexbench", "--color", "never", "build", "-d", dir}))
	want := "broken: running: sh -c 'echo boom >&2; exit 1'\n" +
		"after: running: sh -c true\n" +
		"after: build complete for version 1.0.0\n"
	require.Equal(t, want, stdout.String())
	wantErr := "broken: build failed: command failed, last line of stderr: \"boom\"\n" +
		"note: run `rexbench --verbose build -e '^broken$'` to see more details\n"
	require.Equal(t, wantErr, stderr.String())
}

func TestBuildVersionStillMissingAfterBuild(t *testing.T) {
	restoreColor(t)
	dir := writeEnginesDir(t, `
[[engine]]
  name = "phantom"
  [engine.version]
    file = "/definitely/not/a/real/version/file"
  [engine.run]
    bin = "runner"
  [[engine.build]]
    bin = "sh"
    args = ["-c", "true"]
`)

	app, _, _ := newTestApp()
	err := app.Run([]string{"rexbench", "--color", "never", "build", "-d", dir})
	require.ErrorContains(t, err, "failed to get version for engine 'phantom' after build")
}

func TestBuildEngineFilter(t *testing.T) {
	restoreColor(t)
	dir := t.TempDir()
	versionPath := writeVersionFile(t, dir, "1.0.0")
	dir = writeEnginesDir(t, fmt.Sprintf(`
[[engine]]
  name = "wanted"
  [engine.version]
    file = %q
  [engine.run]
    bin = "runner"

[[engine]]
  name = "unwanted"
  [engine.version]
    bin = "sh"
    args = ["-c", "exit 1"]
  [engine.run]
    bin = "runner"
`, versionPath))

	// The excluded engine is never loaded, so its failing version command
	// doesn't even run.
	app, stdout, stderr := newTestApp()
	require.NoError(t, app.Run([]string{
		"rexbench", "--color", "never", "build", "-d", dir, "-e", "^wanted$",
	}))
	require.Equal(t, "wanted: nothing to do\n", stdout.String())
	require.Empty(t, stderr.String())
}
