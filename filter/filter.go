package filter

// This file contains the rule-based filter used to select benchmarks and
// engines by name on the command line.

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter is an ordered sequence of include and exclude rules matched against
// names such as "curated/01-literal/sherlock" or "go/regexp". The zero value
// has no rules and includes everything.
type Filter struct {
	rules []rule
}

type rule struct {
	re        *regexp.Regexp
	blacklist bool
}

// New compiles the given patterns into a filter. A pattern starting with '!'
// becomes an exclude rule for the remainder of the pattern.
func New(patterns ...string) (*Filter, error) {
	f := &Filter{}
	for _, pattern := range patterns {
		if err := f.Add(pattern); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Add appends one rule. A '!' prefix marks the rule as an exclude rule.
func (f *Filter) Add(pattern string) error {
	if rest, ok := strings.CutPrefix(pattern, "!"); ok {
		return f.AddExclude(rest)
	}
	return f.add(pattern, false)
}

// AddExclude appends an exclude rule. The pattern is used as-is, so a
// leading '!' has no special meaning here.
func (f *Filter) AddExclude(pattern string) error {
	return f.add(pattern, true)
}

func (f *Filter) add(pattern string, blacklist bool) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("failed to compile filter pattern '%s': %w", pattern, err)
	}
	f.rules = append(f.rules, rule{re: re, blacklist: blacklist})
	return nil
}

// Include reports whether name is selected by this filter.
//
// With no rules at all, everything is included. When every rule is an
// exclude rule, names are included by default and rules only remove them.
// Otherwise nothing is included by default and an include rule must match.
// When several rules match a name, the last one wins.
func (f *Filter) Include(name string) bool {
	if len(f.rules) == 0 {
		return true
	}
	include := true
	for _, r := range f.rules {
		if !r.blacklist {
			include = false
			break
		}
	}
	for _, r := range f.rules {
		if r.re.MatchString(name) {
			include = !r.blacklist
		}
	}
	return include
}
