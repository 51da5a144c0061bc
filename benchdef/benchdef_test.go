package benchdef

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// writeBenchDir lays out a small but complete benchmark directory with two
// engines, one definitions file and file-backed regex and haystack inputs.
func writeBenchDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	versionPath := filepath.Join(dir, "version.txt")
	require.NoError(t, os.WriteFile(versionPath, []byte("9.9.9\n"), 0o644))
	enginesTOML := fmt.Sprintf(`
[[engine]]
  name = "go/regexp"
  [engine.version]
    file = %q
  [engine.run]
    bin = "rexbench-gorunner"

[[engine]]
  name = "rust/regex"
  [engine.version]
    file = %q
  [engine.run]
    bin = "rexbench-runner-rust"
`, versionPath, versionPath)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "engines.toml"), []byte(enginesTOML), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "definitions", "curated"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "haystacks"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "regexes"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "haystacks", "sherlock.txt"),
		[]byte("Sherlock Holmes\nDr Watson\n"),
		0o644,
	))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "regexes", "names.txt"),
		[]byte("Sherlock\nWatson\n"),
		0o644,
	))
	defsTOML := `
analysis = "Curated literal benchmarks."

[[bench]]
model = "count"
name = "sherlock"
regex = "Sherlock"
haystack = { path = "sherlock.txt" }
count = 1
engines = ["go/regexp", "rust/regex"]

[[bench]]
model = "count"
name = "names"
regex = { path = "names.txt", per-line = "alternate" }
haystack = { path = "sherlock.txt", repeat = 2 }
count = [{ engine = 'go/.*', count = 4 }]
engines = ["go/regexp"]
`
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "definitions", "curated", "01-literal.toml"),
		[]byte(defsTOML),
		0o644,
	))
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeBenchDir(t)
	b, err := Load(zerolog.Nop(), dir, &Filters{})
	require.NoError(t, err)
	require.Len(t, b.Defs, 2)

	sherlock := b.Defs[0]
	require.Equal(t, "count", sherlock.Model)
	require.Equal(t, "curated/01-literal/sherlock", sherlock.Name.Full)
	require.Equal(t, "curated/01-literal", sherlock.Name.Group)
	require.Equal(t, "sherlock", sherlock.Name.Local)
	require.Equal(t, []string{"Sherlock"}, sherlock.Regexes)
	require.Equal(t, "", sherlock.RegexPath)
	require.Equal(t, []byte("Sherlock Holmes\nDr Watson\n"), sherlock.Haystack)
	require.Equal(t, "sherlock.txt", sherlock.HaystackPath)
	require.Len(t, sherlock.Engines, 2)
	require.Equal(t, "go/regexp", sherlock.Engines[0].Name)
	require.Equal(t, "9.9.9", sherlock.Engines[0].Version)
	count, err := sherlock.Count("anything/at/all")
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)

	names := b.Defs[1]
	require.Equal(t, []string{"(?:Sherlock)|(?:Watson)"}, names.Regexes)
	require.Equal(t, "names.txt", names.RegexPath)
	require.Equal(
		t,
		[]byte("Sherlock Holmes\nDr Watson\nSherlock Holmes\nDr Watson\n"),
		names.Haystack,
	)
	count, err = names.Count("go/regexp")
	require.NoError(t, err)
	require.Equal(t, uint64(4), count)
	_, err = names.Count("rust/regex")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no count available for engine 'rust/regex'")

	require.Equal(t, map[string]string{
		"curated/01-literal": "Curated literal benchmarks.",
	}, b.Analysis)
	require.Len(t, b.Engines.List, 2)
}

func TestLoadOnlyReferencedEngines(t *testing.T) {
	dir := writeBenchDir(t)
	var filters Filters
	require.NoError(t, filters.Name.Add("names$"))
	b, err := Load(zerolog.Nop(), dir, &filters)
	require.NoError(t, err)
	require.Len(t, b.Defs, 1)
	// Only the engines referenced by surviving definitions are loaded, so
	// rust/regex never appears and its version is never resolved.
	require.Len(t, b.Engines.List, 1)
	require.Equal(t, "go/regexp", b.Engines.List[0].Name)
}

func TestLoadEngineFilter(t *testing.T) {
	dir := writeBenchDir(t)
	var filters Filters
	require.NoError(t, filters.Engine.Add("^rust/"))
	b, err := Load(zerolog.Nop(), dir, &filters)
	require.NoError(t, err)
	// The names benchmark only references go/regexp, so it is dropped
	// entirely. The sherlock benchmark survives with one engine.
	require.Len(t, b.Defs, 1)
	require.Equal(t, "curated/01-literal/sherlock", b.Defs[0].Name.Full)
	require.Len(t, b.Defs[0].Engines, 1)
	require.Equal(t, "rust/regex", b.Defs[0].Engines[0].Name)
}

func TestLoadModelFilter(t *testing.T) {
	dir := writeBenchDir(t)
	var filters Filters
	require.NoError(t, filters.Model.Add("!count"))
	b, err := Load(zerolog.Nop(), dir, &filters)
	require.NoError(t, err)
	require.Empty(t, b.Defs)
}

func TestLoadIgnoreMissingEngines(t *testing.T) {
	dir := writeBenchDir(t)
	// Point one engine's version file somewhere that doesn't exist. Loading
	// still succeeds but the engine's version becomes the error sentinel.
	enginesTOML := `
[[engine]]
  name = "go/regexp"
  [engine.version]
    file = "/this/path/does/not/exist"
  [engine.run]
    bin = "rexbench-gorunner"

[[engine]]
  name = "rust/regex"
  [engine.version]
    file = "/this/path/does/not/exist"
  [engine.run]
    bin = "rexbench-runner-rust"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "engines.toml"), []byte(enginesTOML), 0o644))

	b, err := Load(zerolog.Nop(), dir, &Filters{})
	require.NoError(t, err)
	require.Len(t, b.Defs[0].Engines, 2)
	require.True(t, b.Defs[0].Engines[0].IsMissingVersion())

	b, err = Load(zerolog.Nop(), dir, &Filters{IgnoreMissingEngines: true})
	require.NoError(t, err)
	require.Empty(t, b.Defs[0].Engines)
}

func TestLoadUnknownEngineReference(t *testing.T) {
	dir := writeBenchDir(t)
	defsTOML := `
[[bench]]
model = "count"
name = "bad"
regex = "a"
haystack = "aaa"
count = 3
engines = ["nope/engine"]
`
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "definitions", "oops.toml"), []byte(defsTOML), 0o644,
	))
	_, err := Load(zerolog.Nop(), dir, &Filters{})
	require.Error(t, err)
	require.Contains(
		t,
		err.Error(),
		"could not find regex engine 'nope/engine' for benchmark 'oops/bad'",
	)
}

func TestLoadDuplicateNames(t *testing.T) {
	dir := writeBenchDir(t)
	defsTOML := `
[[bench]]
model = "count"
name = "sherlock"
regex = "a"
haystack = "aaa"
count = 3
engines = []

[[bench]]
model = "count"
name = "sherlock"
regex = "b"
haystack = "bbb"
count = 3
engines = []
`
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "definitions", "dup.toml"), []byte(defsTOML), 0o644,
	))
	_, err := Load(zerolog.Nop(), dir, &Filters{})
	require.Error(t, err)
	require.Contains(
		t,
		err.Error(),
		"found at least two benchmarks with the same name 'dup/sherlock'",
	)
}

func TestLoadUnknownTopLevelKey(t *testing.T) {
	dir := writeBenchDir(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "definitions", "typo.toml"),
		[]byte("benchs = 3\n"),
		0o644,
	))
	_, err := Load(zerolog.Nop(), dir, &Filters{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field 'benchs'")
	require.Contains(t, err.Error(), "error decoding TOML for 'typo'")
}

func TestLoadMissingRequiredField(t *testing.T) {
	dir := writeBenchDir(t)
	defsTOML := `
[[bench]]
model = "count"
name = "nocount"
regex = "a"
haystack = "aaa"
engines = []
`
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "definitions", "partial.toml"), []byte(defsTOML), 0o644,
	))
	_, err := Load(zerolog.Nop(), dir, &Filters{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing field 'count'")
}

func TestLoadBadGroupName(t *testing.T) {
	dir := writeBenchDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "definitions", "bad_group"), 0o755))
	defsTOML := `
[[bench]]
model = "count"
name = "x"
regex = "a"
haystack = "aaa"
count = 0
engines = []
`
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "definitions", "bad_group", "x.toml"), []byte(defsTOML), 0o644,
	))
	_, err := Load(zerolog.Nop(), dir, &Filters{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "part 'bad_group' from group name 'bad_group/x'")
}

func TestLoadBothPatternsAndPath(t *testing.T) {
	dir := writeBenchDir(t)
	defsTOML := `
[[bench]]
model = "count"
name = "both"
regex = { patterns = "a", path = "names.txt" }
haystack = "aaa"
count = 0
engines = []
`
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "definitions", "both.toml"), []byte(defsTOML), 0o644,
	))
	_, err := Load(zerolog.Nop(), dir, &Filters{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "benchmark 'both/both' defines both 'patterns' and 'path'")
}

func TestLoadMissingHaystackFile(t *testing.T) {
	dir := writeBenchDir(t)
	defsTOML := `
[[bench]]
model = "count"
name = "lost"
regex = "a"
haystack = { path = "gone.txt" }
count = 0
engines = []
`
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "definitions", "lost.toml"), []byte(defsTOML), 0o644,
	))
	_, err := Load(zerolog.Nop(), dir, &Filters{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to add haystack from benchmark 'lost/lost'")
	require.Contains(t, err.Error(), "failed to read haystack at")
}

func TestFindOne(t *testing.T) {
	dir := writeBenchDir(t)
	def, err := FindOne(zerolog.Nop(), dir, "curated/01-literal/sherlock")
	require.NoError(t, err)
	require.Equal(t, "curated/01-literal/sherlock", def.Name.Full)

	_, err = FindOne(zerolog.Nop(), dir, "curated/01-literal/nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected to match 1 benchmark definition but matched 0")
}
