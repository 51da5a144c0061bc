// Package klv implements the key-length-value wire format used to send a
// benchmark description to a runner process over its stdin.
//
// Each item is encoded as `key:length:value\n` where key is a UTF-8 string
// without ':', length is the decimal byte length of value and value is
// exactly that many raw bytes. Values are binary safe: they may contain
// ':', '\n' or arbitrary non-UTF-8 bytes.
package klv

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Benchmark is a single benchmark description. It carries everything a
// runner process needs to execute one benchmark: the regex(es), the
// haystack and the iteration/time budgets.
type Benchmark struct {
	// Name of the benchmark, e.g. "curated/literal-sherlock".
	Name string
	// Benchmark model, e.g. "count" or "grep".
	Model string
	// The regex patterns, in order. Most models require exactly one.
	Patterns []string
	// Whether patterns should match case insensitively.
	CaseInsensitive bool
	// Whether patterns should match in Unicode mode.
	Unicode bool
	// The haystack to search. Opaque bytes, possibly not UTF-8.
	Haystack []byte
	// Maximum number of timed iterations to run.
	MaxIters uint64
	// Maximum number of warmup iterations to run.
	MaxWarmupIters uint64
	// Soft cap on total timed execution.
	MaxTime time.Duration
	// Soft cap on total warmup execution.
	MaxWarmupTime time.Duration
}

// Write serializes the benchmark to w in the fixed wire order: scalar
// fields first, then one 'pattern' item per pattern, then the haystack
// last. The order is part of the wire contract; runners and humans
// inspecting a stream rely on the large haystack item coming last.
func (b *Benchmark) Write(w io.Writer) error {
	items := []struct {
		key   string
		value []byte
	}{
		{"name", []byte(b.Name)},
		{"model", []byte(b.Model)},
		{"case-insensitive", []byte(strconv.FormatBool(b.CaseInsensitive))},
		{"unicode", []byte(strconv.FormatBool(b.Unicode))},
		{"max-iters", []byte(strconv.FormatUint(b.MaxIters, 10))},
		{"max-warmup-iters", []byte(strconv.FormatUint(b.MaxWarmupIters, 10))},
		{"max-time", []byte(strconv.FormatInt(b.MaxTime.Nanoseconds(), 10))},
		{"max-warmup-time", []byte(strconv.FormatInt(b.MaxWarmupTime.Nanoseconds(), 10))},
	}
	for _, item := range items {
		if err := writeOne(w, item.key, item.value); err != nil {
			return err
		}
	}
	for _, pattern := range b.Patterns {
		if err := writeOne(w, "pattern", []byte(pattern)); err != nil {
			return err
		}
	}
	return writeOne(w, "haystack", b.Haystack)
}

// Bytes returns the full wire encoding of the benchmark.
func (b *Benchmark) Bytes() []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = b.Write(&buf)
	return buf.Bytes()
}

func writeOne(w io.Writer, key string, value []byte) error {
	if _, err := fmt.Fprintf(w, "%s:%d:", key, len(value)); err != nil {
		return fmt.Errorf("failed to write KLV item '%s': %w", key, err)
	}
	if _, err := w.Write(value); err != nil {
		return fmt.Errorf("failed to write KLV value for '%s': %w", key, err)
	}
	if _, err := w.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("failed to write KLV terminator for '%s': %w", key, err)
	}
	return nil
}

// ReadBenchmark decodes a full benchmark description from raw. Items with
// unrecognized keys are skipped so that older runners keep working when new
// items are added to the format.
func ReadBenchmark(raw []byte) (*Benchmark, error) {
	b := &Benchmark{}
	for len(raw) > 0 {
		key, value, nread, err := ReadOne(raw)
		if err != nil {
			return nil, err
		}
		raw = raw[nread:]
		switch key {
		case "name":
			b.Name = string(value)
		case "model":
			b.Model = string(value)
		case "pattern":
			b.Patterns = append(b.Patterns, string(value))
		case "case-insensitive":
			b.CaseInsensitive, err = parseBool(key, value)
		case "unicode":
			b.Unicode, err = parseBool(key, value)
		case "haystack":
			b.Haystack = append([]byte(nil), value...)
		case "max-iters":
			b.MaxIters, err = parseUint(key, value)
		case "max-warmup-iters":
			b.MaxWarmupIters, err = parseUint(key, value)
		case "max-time":
			b.MaxTime, err = parseDuration(key, value)
		case "max-warmup-time":
			b.MaxWarmupTime, err = parseDuration(key, value)
		default:
			// Unknown keys are ignored for forward compatibility.
		}
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

// ReadOne decodes a single key-length-value item from the beginning of raw.
// It returns the key, the raw value bytes (a sub-slice of raw) and the total
// number of bytes consumed, including the trailing '\n'.
func ReadOne(raw []byte) (key string, value []byte, nread int, err error) {
	keyEnd := bytes.IndexByte(raw, ':')
	if keyEnd < 0 {
		return "", nil, 0, fmt.Errorf("invalid KLV item: missing first ':'")
	}
	key = string(raw[:keyEnd])
	rest := raw[keyEnd+1:]
	lenEnd := bytes.IndexByte(rest, ':')
	if lenEnd < 0 {
		return "", nil, 0, fmt.Errorf("invalid KLV item for key '%s': missing second ':'", key)
	}
	valueLen, err := strconv.Atoi(string(rest[:lenEnd]))
	if err != nil {
		return "", nil, 0, fmt.Errorf(
			"invalid KLV item for key '%s': failed to parse value length: %w", key, err,
		)
	}
	if valueLen < 0 {
		return "", nil, 0, fmt.Errorf(
			"invalid KLV item for key '%s': negative value length %d", key, valueLen,
		)
	}
	rest = rest[lenEnd+1:]
	if len(rest) < valueLen {
		return "", nil, 0, fmt.Errorf(
			"invalid KLV item for key '%s': length %d exceeds %d remaining bytes",
			key, valueLen, len(rest),
		)
	}
	value = rest[:valueLen]
	if len(rest) == valueLen || rest[valueLen] != '\n' {
		return "", nil, 0, fmt.Errorf(
			"invalid KLV item for key '%s': missing '\\n' after value", key,
		)
	}
	nread = keyEnd + 1 + lenEnd + 1 + valueLen + 1
	return key, value, nread, nil
}

func parseBool(key string, value []byte) (bool, error) {
	switch string(value) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q for key '%s'", value, key)
}

func parseUint(key string, value []byte) (uint64, error) {
	n, err := strconv.ParseUint(string(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse '%s': %w", key, err)
	}
	return n, nil
}

func parseDuration(key string, value []byte) (time.Duration, error) {
	nanos, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse '%s': %w", key, err)
	}
	if nanos < 0 {
		return 0, fmt.Errorf("negative duration %d for key '%s'", nanos, key)
	}
	return time.Duration(nanos), nil
}
