// rexbench-gorunner is the bundled benchmark runner exposing Go's regexp
// package. It reads one benchmark description in KLV format on stdin and
// prints one "nanoseconds,count" line per timed iteration on stdout. Given
// the single argument "version" it prints the Go runtime version instead,
// which doubles as the engine version.
package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/perfgo/rexbench/klv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) == 2 && os.Args[1] == "version" {
		fmt.Println(runtime.Version())
		return nil
	}
	quiet := len(os.Args) == 2 && os.Args[1] == "--quiet"
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read KLV data from stdin: %w", err)
	}
	b, err := klv.ReadBenchmark(raw)
	if err != nil {
		return err
	}
	samples, err := runModel(b)
	if err != nil {
		return err
	}
	if quiet {
		return nil
	}
	out := bufio.NewWriter(os.Stdout)
	for _, s := range samples {
		fmt.Fprintf(out, "%d,%d\n", s.elapsed.Nanoseconds(), s.count)
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("failed to write samples to stdout: %w", err)
	}
	return nil
}

// sample is the timing and verification count of one benchmark iteration.
type sample struct {
	elapsed time.Duration
	count   int
}

func runModel(b *klv.Benchmark) ([]sample, error) {
	switch b.Model {
	case "compile":
		return modelCompile(b)
	case "count":
		return modelCount(b)
	case "count-spans":
		return modelCountSpans(b)
	case "count-captures":
		return modelCountCaptures(b)
	case "grep":
		return modelGrep(b)
	case "grep-captures":
		return modelGrepCaptures(b)
	case "regex-redux":
		return modelRegexRedux(b)
	}
	return nil, fmt.Errorf("unrecognized benchmark model '%s'", b.Model)
}

// pattern returns the benchmark's single pattern, wrapped for case
// insensitive matching when requested. Go's regexp has no separate Unicode
// mode: literals and classes are always Unicode-aware, while \w, \d and \s
// are always ASCII.
func pattern(b *klv.Benchmark) (string, error) {
	if len(b.Patterns) != 1 {
		return "", errors.New("number of patterns must be 1")
	}
	p := b.Patterns[0]
	if b.CaseInsensitive {
		p = "(?i:" + p + ")"
	}
	return p, nil
}

func compilePattern(b *klv.Benchmark) (*regexp.Regexp, error) {
	p, err := pattern(b)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to compile regexp: %w", err)
	}
	return re, nil
}

// modelCompile measures compilation time. The match count still has to be
// reported for verification, so the counting runs outside the timed region.
func modelCompile(b *klv.Benchmark) ([]sample, error) {
	p, err := pattern(b)
	if err != nil {
		return nil, err
	}
	bench := func() (*regexp.Regexp, error) {
		return regexp.Compile(p)
	}
	count := func(re *regexp.Regexp) (int, error) {
		return len(re.FindAllIndex(b.Haystack, -1)), nil
	}
	return collect(b, bench, count)
}

func modelCount(b *klv.Benchmark) ([]sample, error) {
	re, err := compilePattern(b)
	if err != nil {
		return nil, err
	}
	return collectCounts(b, func() (int, error) {
		return len(re.FindAllIndex(b.Haystack, -1)), nil
	})
}

func modelCountSpans(b *klv.Benchmark) ([]sample, error) {
	re, err := compilePattern(b)
	if err != nil {
		return nil, err
	}
	return collectCounts(b, func() (int, error) {
		sum := 0
		for _, m := range re.FindAllIndex(b.Haystack, -1) {
			sum += m[1] - m[0]
		}
		return sum, nil
	})
}

func modelCountCaptures(b *klv.Benchmark) ([]sample, error) {
	re, err := compilePattern(b)
	if err != nil {
		return nil, err
	}
	return collectCounts(b, func() (int, error) {
		return countCaptures(re.FindAllSubmatchIndex(b.Haystack, -1)), nil
	})
}

func modelGrep(b *klv.Benchmark) ([]sample, error) {
	re, err := compilePattern(b)
	if err != nil {
		return nil, err
	}
	return collectCounts(b, func() (int, error) {
		count := 0
		for _, line := range haystackLines(b.Haystack) {
			if re.Match(line) {
				count++
			}
		}
		return count, nil
	})
}

func modelGrepCaptures(b *klv.Benchmark) ([]sample, error) {
	re, err := compilePattern(b)
	if err != nil {
		return nil, err
	}
	return collectCounts(b, func() (int, error) {
		count := 0
		for _, line := range haystackLines(b.Haystack) {
			count += countCaptures(re.FindAllSubmatchIndex(line, -1))
		}
		return count, nil
	})
}

// haystackLines splits the haystack the way grep reads input: the empty
// slice after a trailing newline is dropped and a trailing '\r' is stripped
// from each line.
func haystackLines(haystack []byte) [][]byte {
	lines := bytes.Split(haystack, []byte{'\n'})
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		if len(line) > 0 && line[len(line)-1] == '\r' {
			lines[i] = line[:len(line)-1]
		}
	}
	return lines
}

// countCaptures counts the matching capture groups, including the implicit
// group for the overall match, across all matches.
func countCaptures(matches [][]int) int {
	count := 0
	for _, match := range matches {
		for i := 0; i < len(match); i += 2 {
			if match[i] > -1 {
				count++
			}
		}
	}
	return count
}

var reduxVariants = []string{
	`agggtaaa|tttaccct`,
	`[cgt]gggtaaa|tttaccc[acg]`,
	`a[act]ggtaaa|tttacc[agt]t`,
	`ag[act]gtaaa|tttac[agt]ct`,
	`agg[act]taaa|ttta[agt]cct`,
	`aggg[acg]aaa|ttt[cgt]ccct`,
	`agggt[cgt]aa|tt[acg]accct`,
	`agggta[cgt]a|t[acg]taccct`,
	`agggtaa[cgt]|[acg]ttaccct`,
}

var reduxSubsts = []struct {
	pattern string
	repl    string
}{
	{`tHa[Nt]`, "<4>"},
	{`aND|caN|Ha[DS]|WaS`, "<3>"},
	{`a[NSt]|BY`, "<2>"},
	{`<[^>]*>`, "|"},
	{`\|[^|][^|]*\|`, "-"},
}

// reduxExpected is the output for the standard regex-redux haystack. Each
// iteration checks against it so a sample can never come from a run that
// silently did the wrong work.
const reduxExpected = `agggtaaa|tttaccct 6
[cgt]gggtaaa|tttaccc[acg] 26
a[act]ggtaaa|tttacc[agt]t 86
ag[act]gtaaa|tttac[agt]ct 58
agg[act]taaa|ttta[agt]cct 113
aggg[acg]aaa|ttt[cgt]ccct 31
agggt[cgt]aa|tt[acg]accct 31
agggta[cgt]a|t[acg]taccct 32
agggtaa[cgt]|[acg]ttaccct 43

1016745
1000000
547899
`

func modelRegexRedux(b *klv.Benchmark) ([]sample, error) {
	compile := func(pattern string) *regexp.Regexp {
		if b.CaseInsensitive {
			pattern = "(?i:" + pattern + ")"
		}
		// The patterns of this model are fixed and known to be valid.
		return regexp.MustCompile(pattern)
	}
	return collectCounts(b, func() (int, error) {
		var out strings.Builder
		seq := string(b.Haystack)
		ilen := len(seq)
		seq = compile(`>[^\n]*\n|\n`).ReplaceAllString(seq, "")
		clen := len(seq)
		for _, variant := range reduxVariants {
			re := compile(variant)
			fmt.Fprintf(&out, "%s %d\n", variant, len(re.FindAllStringIndex(seq, -1)))
		}
		for _, s := range reduxSubsts {
			seq = compile(s.pattern).ReplaceAllString(seq, s.repl)
		}
		fmt.Fprintf(&out, "\n%d\n%d\n%d\n", ilen, clen, len(seq))
		if out.String() != reduxExpected {
			return 0, errors.New("output did not match what was expected")
		}
		return len(seq), nil
	})
}

// collect runs the benchmark function through the warmup loop and then the
// timed loop. The count function runs outside the timed region, so a model
// can verify its result without polluting the measurement.
func collect[T any](
	b *klv.Benchmark,
	bench func() (T, error),
	count func(T) (int, error),
) ([]sample, error) {
	warmupStart := time.Now()
	for i := uint64(0); i < b.MaxWarmupIters; i++ {
		v, err := bench()
		if err != nil {
			return nil, err
		}
		if _, err := count(v); err != nil {
			return nil, err
		}
		if time.Since(warmupStart) >= b.MaxWarmupTime {
			break
		}
	}
	var samples []sample
	runStart := time.Now()
	for i := uint64(0); i < b.MaxIters; i++ {
		benchStart := time.Now()
		v, err := bench()
		elapsed := time.Since(benchStart)
		if err != nil {
			return nil, err
		}
		n, err := count(v)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample{elapsed: elapsed, count: n})
		if time.Since(runStart) >= b.MaxTime {
			break
		}
	}
	return samples, nil
}

// collectCounts is collect for models whose benchmark function already
// produces its own count.
func collectCounts(b *klv.Benchmark, bench func() (int, error)) ([]sample, error) {
	return collect(b, bench, func(n int) (int, error) { return n, nil })
}
