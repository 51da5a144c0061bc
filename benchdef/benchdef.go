// Package benchdef loads benchmark definitions and regex engine
// configurations from a benchmark directory.
//
// A benchmark directory contains an engines.toml file describing the regex
// engines under measurement, a definitions/ tree of TOML files each holding
// one or more benchmark definitions, and regexes/ and haystacks/ directories
// holding inputs too large to inline. Loading resolves everything down to
// flat Definition values: patterns read and transformed, haystacks
// materialized, counts compiled and engine references checked.
package benchdef

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/perfgo/rexbench/filter"
)

var reNamePiece = regexp.MustCompile(`^[-A-Za-z0-9]+$`)

// Filters selects which benchmark definitions and engines to load. The zero
// value selects everything.
type Filters struct {
	Name   filter.Filter
	Model  filter.Filter
	Engine filter.Filter
	// IgnoreMissingEngines drops engines whose version could not be
	// resolved instead of producing error measurements for them.
	IgnoreMissingEngines bool
}

// Benchmarks is a fully loaded benchmark directory.
type Benchmarks struct {
	Engines  *Engines
	Defs     []Definition
	Analysis map[string]string
}

// Name is the hierarchical name of a benchmark definition. The full name is
// the group joined with the local name by a slash, where the group comes
// from the path of the TOML file that defined the benchmark.
type Name struct {
	Full  string
	Group string
	Local string
}

func (n Name) String() string { return n.Full }

// CountEngine is a single expected count, applicable to every engine whose
// name matches Re.
type CountEngine struct {
	Re     *regexp.Regexp
	Engine string
	Count  uint64
}

// Definition is a single benchmark definition with every input resolved.
type Definition struct {
	Model           string
	Name            Name
	Regexes         []string
	RegexPath       string
	CaseInsensitive bool
	Unicode         bool
	Haystack        []byte
	HaystackPath    string
	Counts          []CountEngine
	Engines         []Engine
	Analysis        string
}

// Count returns the expected count for the given engine. The first count
// entry whose engine pattern matches wins.
func (d *Definition) Count(engine string) (uint64, error) {
	for _, ce := range d.Counts {
		if ce.Re.MatchString(engine) {
			return ce.Count, nil
		}
	}
	return 0, fmt.Errorf("no count available for engine '%s'", engine)
}

// Load reads every benchmark definition under dir that passes the given
// filters. Engine version commands only run for engines that are referenced
// by at least one selected definition.
func Load(logger zerolog.Logger, dir string, filters *Filters) (*Benchmarks, error) {
	wire := &wireDefinitions{analysis: map[string]string{}}
	if err := wire.loadDir(dir); err != nil {
		return nil, err
	}
	if err := wire.checkDuplicates(); err != nil {
		return nil, err
	}
	wire.retain(func(d *wireDefinition) bool { return filters.Name.Include(d.name) })
	wire.retain(func(d *wireDefinition) bool { return filters.Model.Include(d.Model) })
	wire.retain(func(d *wireDefinition) bool {
		// A definition without engines passes through so that the mistake
		// surfaces as an error later instead of being silently dropped.
		if len(d.Engines) == 0 {
			return true
		}
		for _, engine := range d.Engines {
			if filters.Engine.Include(engine) {
				return true
			}
		}
		return false
	})
	refs := wire.engineReferences(filters.Engine.Include)
	engines, err := LoadEngines(logger, dir, func(e *Engine) bool { return refs[e.Name] })
	if err != nil {
		return nil, err
	}
	res, err := newRegexCache(dir, wire)
	if err != nil {
		return nil, err
	}
	hays, err := newHaystackCache(dir, wire)
	if err != nil {
		return nil, err
	}
	defs := make([]Definition, 0, len(wire.defs))
	for i := range wire.defs {
		def, err := wire.defs[i].toDefinition(filters, engines, res, hays)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return &Benchmarks{Engines: engines, Defs: defs, Analysis: wire.analysis}, nil
}

// FindOne loads the single definition with exactly the given full name.
func FindOne(logger zerolog.Logger, dir, name string) (*Definition, error) {
	var filters Filters
	if err := filters.Name.Add("^(?:" + regexp.QuoteMeta(name) + ")$"); err != nil {
		return nil, err
	}
	b, err := Load(logger, dir, &filters)
	if err != nil {
		return nil, err
	}
	if len(b.Defs) != 1 {
		return nil, fmt.Errorf(
			"expected to match 1 benchmark definition but matched %d", len(b.Defs),
		)
	}
	return &b.Defs[0], nil
}

// loadDir walks dir/definitions and loads every TOML file found, in lexical
// order. The path of each file relative to the definitions directory, minus
// the extension, becomes the group name of its benchmarks.
func (w *wireDefinitions) loadDir(dir string) error {
	defsDir := filepath.Join(dir, "definitions")
	return filepath.WalkDir(defsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".toml" {
			return nil
		}
		return w.loadFile(defsDir, path)
	})
}

func (w *wireDefinitions) loadFile(dir, path string) error {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return fmt.Errorf(
			"failed to strip prefix from %s with base %s: %w", path, dir, err,
		)
	}
	group := filepath.ToSlash(rel[:len(rel)-len(".toml")])
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := w.loadSlice(group, data); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// loadSlice decodes one definitions file. Only 'bench' and 'analysis' are
// legal at the top level; unknown keys are a hard error since a typo there
// would otherwise silently drop benchmarks.
func (w *wireDefinitions) loadSlice(group string, data []byte) error {
	var top map[string]toml.Primitive
	md, err := toml.Decode(string(data), &top)
	if err != nil {
		return fmt.Errorf("error decoding TOML for '%s': %w", group, err)
	}
	for _, key := range sortedKeys(top) {
		switch key {
		case "bench", "analysis":
		default:
			return fmt.Errorf("error decoding TOML for '%s': unknown field '%s'", group, key)
		}
	}
	if prim, ok := top["analysis"]; ok {
		var analysis string
		if err := md.PrimitiveDecode(prim, &analysis); err != nil {
			return fmt.Errorf("error decoding TOML for '%s': %w", group, err)
		}
		w.analysis[group] = analysis
	}
	var defs []wireDefinition
	if prim, ok := top["bench"]; ok {
		if err := md.PrimitiveDecode(prim, &defs); err != nil {
			return fmt.Errorf("error decoding TOML for '%s': %w", group, err)
		}
	}
	for i := range defs {
		if err := defs[i].checkRequired(); err != nil {
			return fmt.Errorf("error decoding TOML for '%s': %w", group, err)
		}
		defs[i].group = group
		defs[i].name = group + "/" + defs[i].Local
		w.defs = append(w.defs, defs[i])
	}
	return nil
}

func sortedKeys(m map[string]toml.Primitive) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (w *wireDefinition) toDefinition(
	filters *Filters,
	engines *Engines,
	res *regexCache,
	hays *haystackCache,
) (Definition, error) {
	name, err := w.definitionName()
	if err != nil {
		return Definition{}, err
	}
	regexes, err := w.resolveRegexes(res)
	if err != nil {
		return Definition{}, err
	}
	haystack, err := w.resolveHaystack(hays)
	if err != nil {
		return Definition{}, err
	}
	counts, err := w.resolveCounts()
	if err != nil {
		return Definition{}, err
	}
	defEngines, err := w.resolveEngines(filters, engines)
	if err != nil {
		return Definition{}, err
	}
	return Definition{
		Model:           w.Model,
		Name:            name,
		Regexes:         regexes,
		RegexPath:       w.Regex.path,
		CaseInsensitive: w.CaseInsensitive,
		Unicode:         w.Unicode,
		Haystack:        haystack,
		HaystackPath:    w.Haystack.path,
		Counts:          counts,
		Engines:         defEngines,
		Analysis:        w.Analysis,
	}, nil
}

func (w *wireDefinition) definitionName() (Name, error) {
	for _, piece := range strings.Split(w.group, "/") {
		if !reNamePiece.MatchString(piece) {
			return Name{}, fmt.Errorf(
				"part '%s' from group name '%s' does not match format '%s' "+
					"(group name is usually derived from TOML file name)",
				piece, w.group, reNamePiece.String(),
			)
		}
	}
	if !reNamePiece.MatchString(w.Local) {
		return Name{}, fmt.Errorf(
			"benchmark name '%s' does not match format '%s'",
			w.name, reNamePiece.String(),
		)
	}
	return Name{Full: w.name, Group: w.group, Local: w.Local}, nil
}

func (w *wireDefinition) resolveRegexes(res *regexCache) ([]string, error) {
	r := &w.Regex
	if r.inline {
		return r.patterns, nil
	}
	if r.path != "" {
		if r.hasPatterns {
			return nil, fmt.Errorf(
				"benchmark '%s' defines both 'patterns' and 'path'", w.name,
			)
		}
		return r.opts.transformFromFile(res.get(r.path)), nil
	}
	if !r.hasPatterns {
		return nil, fmt.Errorf("missing regex patterns for benchmark '%s'", w.name)
	}
	return r.opts.transform(r.patterns), nil
}

func (w *wireDefinition) resolveHaystack(hays *haystackCache) ([]byte, error) {
	h := &w.Haystack
	if h.inline {
		return []byte(h.contents), nil
	}
	if h.path != "" {
		if h.hasContents {
			return nil, fmt.Errorf(
				"benchmark '%s' defines both 'contents' and 'path'", w.name,
			)
		}
		return h.opts.transform(hays.get(h.path)), nil
	}
	if !h.hasContents {
		return nil, fmt.Errorf("missing haystack for benchmark '%s'", w.name)
	}
	return h.opts.transform([]byte(h.contents)), nil
}

func (w *wireDefinition) resolveCounts() ([]CountEngine, error) {
	counts := make([]CountEngine, 0, len(w.Count.engines))
	for _, ce := range w.Count.engines {
		re, err := regexp.Compile("^(?:" + ce.engine + ")$")
		if err != nil {
			return nil, fmt.Errorf("failed to parse engine count name as regex: %w", err)
		}
		counts = append(counts, CountEngine{Re: re, Engine: ce.engine, Count: ce.count})
	}
	return counts, nil
}

func (w *wireDefinition) resolveEngines(filters *Filters, engines *Engines) ([]Engine, error) {
	var resolved []Engine
	for _, name := range w.Engines {
		if !filters.Engine.Include(name) {
			continue
		}
		e, ok := engines.ByName[name]
		if !ok {
			return nil, fmt.Errorf(
				"could not find regex engine '%s' for benchmark '%s'", name, w.name,
			)
		}
		if filters.IgnoreMissingEngines && e.IsMissingVersion() {
			continue
		}
		resolved = append(resolved, e)
	}
	return resolved, nil
}

// regexCache holds the raw contents of regex files, read once per distinct
// path. Transform options still apply per definition.
type regexCache struct {
	dir string
	raw map[string]string
}

func newRegexCache(dir string, wire *wireDefinitions) (*regexCache, error) {
	c := &regexCache{dir: filepath.Join(dir, "regexes"), raw: map[string]string{}}
	for i := range wire.defs {
		if err := c.add(&wire.defs[i]); err != nil {
			return nil, fmt.Errorf(
				"failed to add regex from benchmark '%s': %w", wire.defs[i].name, err,
			)
		}
	}
	return c, nil
}

func (c *regexCache) add(def *wireDefinition) error {
	path := def.Regex.path
	if def.Regex.inline || path == "" {
		return nil
	}
	if _, ok := c.raw[path]; ok {
		return nil
	}
	full := filepath.Join(c.dir, path)
	data, err := os.ReadFile(full)
	if err != nil {
		return fmt.Errorf("failed to read regex at %s: %w", full, err)
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("failed to read regex at %s: invalid UTF-8", full)
	}
	c.raw[path] = string(data)
	return nil
}

func (c *regexCache) get(path string) string { return c.raw[path] }

// haystackCache holds the raw contents of haystack files, read once per
// distinct path. Haystacks are opaque bytes and may be large, so sharing
// the raw data matters more here than for regexes.
type haystackCache struct {
	dir string
	raw map[string][]byte
}

func newHaystackCache(dir string, wire *wireDefinitions) (*haystackCache, error) {
	c := &haystackCache{dir: filepath.Join(dir, "haystacks"), raw: map[string][]byte{}}
	for i := range wire.defs {
		if err := c.add(&wire.defs[i]); err != nil {
			return nil, fmt.Errorf(
				"failed to add haystack from benchmark '%s': %w", wire.defs[i].name, err,
			)
		}
	}
	return c, nil
}

func (c *haystackCache) add(def *wireDefinition) error {
	path := def.Haystack.path
	if def.Haystack.inline || path == "" {
		return nil
	}
	if _, ok := c.raw[path]; ok {
		return nil
	}
	full := filepath.Join(c.dir, path)
	data, err := os.ReadFile(full)
	if err != nil {
		return fmt.Errorf("failed to read haystack at %s: %w", full, err)
	}
	c.raw[path] = data
	return nil
}

func (c *haystackCache) get(path string) []byte { return c.raw[path] }
