package model

// This file contains the short human-readable duration and throughput
// formats used in measurement CSV data and in rendered tables. Both formats
// are required to round-trip exactly through parse and format.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

var (
	durationRe   = regexp.MustCompile(`^([0-9]+(?:\.[0-9]*)?|\.[0-9]+)(s|ms|us|ns)$`)
	throughputRe = regexp.MustCompile(`^([0-9]+(?:\.[0-9]*)?|\.[0-9]+)\s*(B|KB|MB|GB)/s$`)
)

// FormatDuration renders a duration in the short human format, e.g. "12.34ms"
// or "500.00ns". Durations are assumed to be short, so the largest unit
// handled is seconds.
func FormatDuration(d time.Duration) string {
	v := d.Seconds()
	switch {
	case v >= 0.950:
		return fmt.Sprintf("%.2fs", v)
	case v >= 0.000_950:
		return fmt.Sprintf("%.2fms", v*1_000)
	case v >= 0.000_000_950:
		return fmt.Sprintf("%.2fus", v*1_000_000)
	default:
		return fmt.Sprintf("%.2fns", v*1_000_000_000)
	}
}

// ParseDuration parses the short human duration format. A bare "0" is
// accepted as a zero duration regardless of units.
func ParseDuration(s string) (time.Duration, error) {
	if s == "0" {
		return 0, nil
	}
	caps := durationRe.FindStringSubmatch(s)
	if caps == nil {
		return 0, fmt.Errorf("duration '%s' not in '<decimal>(s|ms|us|ns)' format", s)
	}
	value, err := strconv.ParseFloat(caps[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration decimal '%s': %w", caps[1], err)
	}
	switch caps[2] {
	case "s":
	case "ms":
		value /= 1_000
	case "us":
		value /= 1_000_000
	case "ns":
		value /= 1_000_000_000
	}
	return time.Duration(math.Round(value * 1e9)), nil
}

// Throughput is a search throughput in bytes per second.
type Throughput float64

// NewThroughput computes the throughput of processing the given number of
// bytes in the given duration.
func NewThroughput(bytes uint64, d time.Duration) Throughput {
	return Throughput(float64(bytes) / d.Seconds())
}

// String renders the throughput using binary size units, picking the largest
// unit that keeps the value at or above 2.0.
func (t Throughput) String() string {
	const (
		kb = float64(1 << 10)
		mb = float64(1 << 20)
		gb = float64(1 << 30)
	)
	bps := float64(t)
	switch {
	case bps < 2.0*kb:
		return fmt.Sprintf("%d B/s", uint64(bps))
	case bps < 2.0*mb:
		return fmt.Sprintf("%.1f KB/s", bps/kb)
	case bps < 2.0*gb:
		return fmt.Sprintf("%.1f MB/s", bps/mb)
	default:
		return fmt.Sprintf("%.1f GB/s", bps/gb)
	}
}

// ParseThroughput parses the format produced by Throughput.String.
func ParseThroughput(s string) (Throughput, error) {
	caps := throughputRe.FindStringSubmatch(s)
	if caps == nil {
		return 0, fmt.Errorf("throughput '%s' not in '<decimal>(B|KB|MB|GB)/s' format", s)
	}
	bps, err := strconv.ParseFloat(caps[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid throughput decimal '%s': %w", caps[1], err)
	}
	switch caps[2] {
	case "B":
	case "KB":
		bps *= float64(1 << 10)
	case "MB":
		bps *= float64(1 << 20)
	case "GB":
		bps *= float64(1 << 30)
	}
	return Throughput(bps), nil
}
