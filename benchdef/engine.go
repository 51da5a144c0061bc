package benchdef

// This file contains the regex engine configuration loaded from
// engines.toml. An engine describes how to run a benchmark runner program,
// how to discover its version, and optionally how to build and clean it.

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

var reEngineName = regexp.MustCompile(`^[-A-Za-z0-9]+(/[-A-Za-z0-9]+)*$`)

// Engines is the collection of regex engines declared in engines.toml, in
// declaration order and indexed by name.
type Engines struct {
	ByName map[string]Engine
	List   []Engine
}

// Engine is a single regex engine configuration. Loading an engine resolves
// its version eagerly, so callers can assume Version is populated. A version
// that could not be resolved is recorded as "ERROR".
type Engine struct {
	Name          string        `toml:"name"`
	Cwd           string        `toml:"cwd"`
	Run           Command       `toml:"run"`
	VersionConfig VersionConfig `toml:"version"`
	Version       string        `toml:"-"`
	Dependencies  []Dependency  `toml:"dependency"`
	Build         []Command     `toml:"build"`
	Clean         []Command     `toml:"clean"`
}

// IsMissingVersion reports whether version discovery failed for this engine.
// No real regex engine reports its version as "ERROR", so the sentinel keeps
// the type simple.
func (e *Engine) IsMissingVersion() bool {
	return e.Version == "ERROR"
}

// validate checks the engine name, anchors every command's working directory
// to the benchmark directory and resolves the engine version. Version
// resolution failures are not fatal so that one broken engine doesn't take
// down an entire benchmark run.
func (e *Engine) validate(logger zerolog.Logger, benchDir string) error {
	if !reEngineName.MatchString(e.Name) {
		return fmt.Errorf(
			"engine name '%s' does not match format '%s'",
			e.Name, reEngineName.String(),
		)
	}
	if e.Run.Bin == "" {
		return fmt.Errorf("missing 'bin' for run command")
	}
	if e.Cwd == "" {
		e.Cwd = benchDir
	} else {
		e.Cwd = filepath.Join(benchDir, e.Cwd)
	}
	e.Run.validate(e.Cwd)
	if e.VersionConfig.Bin != "" {
		e.VersionConfig.Command.validate(e.Cwd)
	}
	if e.VersionConfig.File != "" && !filepath.IsAbs(e.VersionConfig.File) {
		e.VersionConfig.File = filepath.Join(e.Cwd, e.VersionConfig.File)
	}
	for i := range e.Dependencies {
		d := &e.Dependencies[i]
		d.Command.validate(e.Cwd)
		if d.Regex != "" {
			re, err := regexp.Compile(d.Regex)
			if err != nil {
				return fmt.Errorf("failed to compile dependency regex %q: %w", d.Regex, err)
			}
			d.re = re
		}
	}
	for i := range e.Build {
		e.Build[i].validate(e.Cwd)
	}
	for i := range e.Clean {
		e.Clean[i].validate(e.Cwd)
	}
	version, err := e.VersionConfig.Get(logger)
	if err != nil {
		logger.Debug().Err(err).Str("engine", e.Name).Msg("Failed to extract version for engine")
		version = "ERROR"
	}
	e.Version = version
	return nil
}

// LoadEngines reads engines.toml from the given benchmark directory. The
// include predicate runs before validation, so engines nobody asked for
// never have their version command executed.
func LoadEngines(logger zerolog.Logger, dir string, include func(*Engine) bool) (*Engines, error) {
	path := filepath.Join(dir, "engines.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read engines from %s: %w", path, err)
	}
	var wire struct {
		Engine []Engine `toml:"engine"`
	}
	if err := toml.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("error decoding TOML for %s: %w", path, err)
	}
	engines := &Engines{ByName: map[string]Engine{}}
	for i := range wire.Engine {
		if !include(&wire.Engine[i]) {
			continue
		}
		e := wire.Engine[i]
		if err := e.validate(logger, dir); err != nil {
			return nil, fmt.Errorf("validation for engine '%s' failed: %w", e.Name, err)
		}
		if _, ok := engines.ByName[e.Name]; ok {
			return nil, fmt.Errorf("found duplicate regex engine '%s'", e.Name)
		}
		engines.ByName[e.Name] = e
		engines.List = append(engines.List, e)
	}
	return engines, nil
}

// VersionConfig describes how to discover the version of a regex engine,
// either by reading it from a file or by running a command. An optional
// regex with a 'version' capture group extracts the version from the
// output. Without a regex, the last line of output is used.
type VersionConfig struct {
	Regex string `toml:"regex"`
	File  string `toml:"file"`
	Command
}

// Get resolves the engine version. The build command calls this again after
// running build steps, since a successful build is expected to make the
// version discoverable.
func (v *VersionConfig) Get(logger zerolog.Logger) (string, error) {
	var out []byte
	switch {
	case v.File != "":
		data, err := os.ReadFile(v.File)
		if err != nil {
			return "", fmt.Errorf("failed to read version from %s: %w", v.File, err)
		}
		out = data
	case v.Bin != "":
		data, err := v.Command.Output(logger)
		if err != nil {
			return "", fmt.Errorf("failed to get version: %w", err)
		}
		out = data
	default:
		return "", fmt.Errorf("must set either 'file' or 'run' for version config")
	}
	logger.Debug().Str("output", string(out)).Msg("Version command output")
	if v.Regex == "" {
		last := lastLine(string(out))
		if last == "" {
			return "", fmt.Errorf("version stdout was empty")
		}
		return strings.TrimSpace(last), nil
	}
	re, err := regexp.Compile(v.Regex)
	if err != nil {
		return "", fmt.Errorf("failed to compile version regex %q: %w", v.Regex, err)
	}
	idx := re.SubexpIndex("version")
	if idx < 0 {
		return "", fmt.Errorf(
			"version regex %q does not contain a 'version' capture group", v.Regex,
		)
	}
	caps := re.FindSubmatch(out)
	if caps == nil {
		return "", fmt.Errorf("version regex %q did not match output", v.Regex)
	}
	if caps[idx] == nil {
		return "", fmt.Errorf(
			"version regex %q matched, but 'version' capture did not", v.Regex,
		)
	}
	version := string(caps[idx])
	if strings.Contains(version, "\n") {
		return "", fmt.Errorf("version regex %q matched a version with a \\n", v.Regex)
	}
	return version, nil
}

// Dependency describes a prerequisite check for building an engine. The
// command is run and, when a regex is present, its output must match for the
// dependency to be considered satisfied.
type Dependency struct {
	Regex string `toml:"regex"`
	Command
	re *regexp.Regexp
}

// IsSatisfiedBy reports whether the given command output satisfies this
// dependency. A dependency without a regex is satisfied by any output.
func (d *Dependency) IsSatisfiedBy(out []byte) bool {
	return d.re == nil || d.re.Match(out)
}
