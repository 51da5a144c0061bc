package benchdef

// This file contains the wire representation of benchmark definition TOML
// files. The wire types exist to cope with the flexible schema: a regex may
// be a string, a list of strings or a table with transform options, a
// haystack may be inline or loaded from a file, and a count may be a single
// integer or a list of per-engine tables. Everything is normalized into the
// Definition type before anything else sees it.

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

type wireDefinitions struct {
	defs     []wireDefinition
	analysis map[string]string
}

type wireDefinition struct {
	Model           string       `toml:"model"`
	Local           string       `toml:"name"`
	Regex           wireRegex    `toml:"regex"`
	CaseInsensitive bool         `toml:"case-insensitive"`
	Unicode         bool         `toml:"unicode"`
	Haystack        wireHaystack `toml:"haystack"`
	Count           wireCount    `toml:"count"`
	Engines         []string     `toml:"engines"`
	Analysis        string       `toml:"analysis"`

	// Filled in after decoding, from the path of the TOML file.
	group string
	name  string
}

// checkRequired reports the first required field this definition is
// missing. TOML decoding leaves absent fields at their zero value, so this
// runs right after decoding a file.
func (w *wireDefinition) checkRequired() error {
	switch {
	case w.Model == "":
		return fmt.Errorf("missing field 'model'")
	case w.Local == "":
		return fmt.Errorf("missing field 'name'")
	case !w.Regex.set:
		return fmt.Errorf("missing field 'regex'")
	case !w.Haystack.set:
		return fmt.Errorf("missing field 'haystack'")
	case !w.Count.set:
		return fmt.Errorf("missing field 'count'")
	case w.Engines == nil:
		return fmt.Errorf("missing field 'engines'")
	}
	return nil
}

func (w *wireDefinitions) checkDuplicates() error {
	seen := map[string]bool{}
	for i := range w.defs {
		if seen[w.defs[i].name] {
			return fmt.Errorf(
				"found at least two benchmarks with the same name '%s'",
				w.defs[i].name,
			)
		}
		seen[w.defs[i].name] = true
	}
	return nil
}

func (w *wireDefinitions) retain(keep func(*wireDefinition) bool) {
	defs := w.defs[:0]
	for i := range w.defs {
		if keep(&w.defs[i]) {
			defs = append(defs, w.defs[i])
		}
	}
	w.defs = defs
}

// engineReferences returns the set of engine names that pass the given
// filter and are referenced by at least one definition. Loading engines is
// restricted to this set so that version commands only run for engines a
// benchmark actually needs.
func (w *wireDefinitions) engineReferences(include func(string) bool) map[string]bool {
	refs := map[string]bool{}
	for i := range w.defs {
		for _, engine := range w.defs[i].Engines {
			if include(engine) {
				refs[engine] = true
			}
		}
	}
	return refs
}

// wireRegex is either an inline pattern (string or list of strings, used
// verbatim) or a table carrying patterns or a path plus transform options.
type wireRegex struct {
	set         bool
	patterns    []string
	hasPatterns bool
	inline      bool
	path        string
	opts        regexOptions
}

func (r *wireRegex) UnmarshalTOML(v interface{}) error {
	r.set = true
	switch val := v.(type) {
	case string:
		r.patterns, r.hasPatterns, r.inline = []string{val}, true, true
		return nil
	case []interface{}:
		pats, err := asPatterns(v)
		if err != nil {
			return err
		}
		r.patterns, r.hasPatterns, r.inline = pats, true, true
		return nil
	case map[string]interface{}:
		for key, elem := range val {
			var err error
			switch key {
			case "patterns":
				r.patterns, err = asPatterns(elem)
				r.hasPatterns = err == nil
			case "path":
				r.path, err = wantString(key, elem)
			case "literal":
				r.opts.literal, err = wantBool(key, elem)
			case "per-line":
				var mode string
				if mode, err = wantString(key, elem); err == nil {
					r.opts.perLine, err = parsePerLine(mode)
				}
			case "prepend":
				r.opts.prepend, err = wantString(key, elem)
			case "append":
				r.opts.append, err = wantString(key, elem)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("regex must be a string, a list of strings or a table")
}

type perLineMode int

const (
	perLineNone perLineMode = iota
	perLineAlternate
	perLinePattern
)

func parsePerLine(mode string) (perLineMode, error) {
	switch mode {
	case "none":
		return perLineNone, nil
	case "alternate":
		return perLineAlternate, nil
	case "pattern":
		return perLinePattern, nil
	}
	return 0, fmt.Errorf(
		"unrecognized per-line value '%s', must be one of none, alternate or pattern",
		mode,
	)
}

type regexOptions struct {
	literal bool
	perLine perLineMode
	prepend string
	append  string
}

// transformFromFile turns the raw contents of a regex file into patterns.
// The per-line mode decides whether the file is one big pattern, one
// alternation over its lines or one pattern per line.
func (o *regexOptions) transformFromFile(raw string) []string {
	switch o.perLine {
	case perLineAlternate:
		pats := o.transform(splitLines(raw))
		for i, p := range pats {
			pats[i] = "(?:" + p + ")"
		}
		return []string{strings.Join(pats, "|")}
	case perLinePattern:
		return o.transform(splitLines(raw))
	default:
		return o.transform([]string{strings.TrimSpace(raw)})
	}
}

func (o *regexOptions) transform(pats []string) []string {
	out := make([]string, len(pats))
	copy(out, pats)
	if o.literal {
		for i, p := range out {
			out[i] = regexp.QuoteMeta(p)
		}
	}
	if o.prepend != "" {
		for i, p := range out {
			out[i] = o.prepend + p
		}
	}
	if o.append != "" {
		for i := range out {
			out[i] += o.append
		}
	}
	return out
}

// wireHaystack is either an inline haystack string (used verbatim) or a
// table carrying contents or a path plus transform options.
type wireHaystack struct {
	set         bool
	contents    string
	hasContents bool
	inline      bool
	path        string
	opts        haystackOptions
}

func (h *wireHaystack) UnmarshalTOML(v interface{}) error {
	h.set = true
	switch val := v.(type) {
	case string:
		h.contents, h.hasContents, h.inline = val, true, true
		return nil
	case map[string]interface{}:
		for key, elem := range val {
			var err error
			switch key {
			case "contents":
				h.contents, err = wantString(key, elem)
				h.hasContents = err == nil
			case "path":
				h.path, err = wantString(key, elem)
			case "utf8-lossy":
				h.opts.utf8Lossy, err = wantBool(key, elem)
			case "trim":
				h.opts.trim, err = wantBool(key, elem)
			case "line-start":
				h.opts.lineStart, err = wantCount(key, elem)
			case "line-end":
				h.opts.lineEnd, err = wantCount(key, elem)
			case "repeat":
				h.opts.repeat, err = wantCount(key, elem)
			case "prepend":
				h.opts.prepend, err = wantString(key, elem)
			case "append":
				h.opts.append, err = wantString(key, elem)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("haystack must be a string or a table")
}

type haystackOptions struct {
	utf8Lossy bool
	trim      bool
	lineStart *int
	lineEnd   *int
	repeat    *int
	prepend   string
	append    string
}

// transform applies the haystack options to raw bytes, in a fixed order:
// UTF-8 lossy conversion, whitespace trimming, line windowing, repetition
// and finally prepend/append.
func (o *haystackOptions) transform(raw []byte) []byte {
	out := make([]byte, len(raw))
	copy(out, raw)
	if o.utf8Lossy {
		out = bytes.ToValidUTF8(out, []byte("�"))
	}
	if o.trim {
		out = bytes.TrimSpace(out)
	}
	if o.lineStart != nil || o.lineEnd != nil {
		lines := linesWithTerminator(out)
		if o.lineEnd != nil && *o.lineEnd < len(lines) {
			lines = lines[:*o.lineEnd]
		}
		if o.lineStart != nil {
			if *o.lineStart >= len(lines) {
				lines = nil
			} else {
				lines = lines[*o.lineStart:]
			}
		}
		out = bytes.Join(lines, nil)
	}
	if o.repeat != nil {
		out = bytes.Repeat(out, *o.repeat)
	}
	if o.prepend != "" {
		out = append([]byte(o.prepend), out...)
	}
	if o.append != "" {
		out = append(out, o.append...)
	}
	return out
}

// wireCount normalizes the count field into per-engine entries. A bare
// integer becomes a single entry whose engine pattern matches everything.
type wireCount struct {
	set     bool
	engines []wireCountEngine
}

type wireCountEngine struct {
	engine string
	count  uint64
}

func (c *wireCount) UnmarshalTOML(v interface{}) error {
	c.set = true
	switch val := v.(type) {
	case int64:
		if val < 0 {
			return fmt.Errorf("count must be a non-negative integer")
		}
		c.engines = []wireCountEngine{{engine: ".*", count: uint64(val)}}
		return nil
	case []interface{}:
		for _, elem := range val {
			tbl, ok := elem.(map[string]interface{})
			if !ok {
				return fmt.Errorf("count list must contain only tables")
			}
			var ce wireCountEngine
			engine, ok := tbl["engine"]
			if !ok {
				return fmt.Errorf("missing field 'engine' for count")
			}
			var err error
			if ce.engine, err = wantString("engine", engine); err != nil {
				return err
			}
			count, ok := tbl["count"]
			if !ok {
				return fmt.Errorf("missing field 'count' for count")
			}
			n, ok := count.(int64)
			if !ok || n < 0 {
				return fmt.Errorf("'count' must be a non-negative integer")
			}
			ce.count = uint64(n)
			c.engines = append(c.engines, ce)
		}
		return nil
	}
	return fmt.Errorf("count must be an integer or a list of tables")
}

func asPatterns(v interface{}) ([]string, error) {
	switch val := v.(type) {
	case string:
		return []string{val}, nil
	case []interface{}:
		pats := make([]string, 0, len(val))
		for _, elem := range val {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("regex patterns must contain only strings")
			}
			pats = append(pats, s)
		}
		return pats, nil
	}
	return nil, fmt.Errorf("regex patterns must be a string or a list of strings")
}

func wantString(key string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("'%s' must be a string", key)
	}
	return s, nil
}

func wantBool(key string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("'%s' must be a boolean", key)
	}
	return b, nil
}

func wantCount(key string, v interface{}) (*int, error) {
	n, ok := v.(int64)
	if !ok || n < 0 {
		return nil, fmt.Errorf("'%s' must be a non-negative integer", key)
	}
	count := int(n)
	return &count, nil
}

// splitLines splits raw into lines without their terminators. A trailing
// newline does not produce an empty final line. Carriage returns preceding
// a newline are stripped.
func splitLines(raw string) []string {
	if raw == "" {
		return nil
	}
	lines := strings.Split(raw, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// linesWithTerminator splits raw into lines, each keeping its trailing
// newline. The final line is included even without a terminator.
func linesWithTerminator(raw []byte) [][]byte {
	var lines [][]byte
	for len(raw) > 0 {
		i := bytes.IndexByte(raw, '\n')
		if i < 0 {
			lines = append(lines, raw)
			break
		}
		lines = append(lines, raw[:i+1])
		raw = raw[i+1:]
	}
	return lines
}
