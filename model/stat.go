package model

// This file contains the closed selector types used when comparing
// measurements: which aggregate statistic to read and which unit to render.

import "fmt"

// Stat identifies one of the aggregate statistics of a measurement.
type Stat uint8

const (
	StatMedian Stat = iota
	StatMad
	StatMean
	StatStddev
	StatMin
	StatMax
)

// ParseStat parses a statistic name as given on the command line.
func ParseStat(s string) (Stat, error) {
	switch s {
	case "median":
		return StatMedian, nil
	case "mad":
		return StatMad, nil
	case "mean":
		return StatMean, nil
	case "stddev":
		return StatStddev, nil
	case "min":
		return StatMin, nil
	case "max":
		return StatMax, nil
	}
	return 0, fmt.Errorf(
		"unknown statistic '%s' (must be one of: median, mad, mean, stddev, min, max)", s,
	)
}

func (s Stat) String() string {
	switch s {
	case StatMedian:
		return "median"
	case StatMad:
		return "mad"
	case StatMean:
		return "mean"
	case StatStddev:
		return "stddev"
	case StatMin:
		return "min"
	case StatMax:
		return "max"
	}
	return "unknown"
}

// Units selects whether comparisons are rendered as absolute times or as
// throughputs. Throughput is generally preferred since it normalizes for
// haystack size, but not every benchmark has one.
type Units uint8

const (
	UnitsThroughput Units = iota
	UnitsTime
)

// ParseUnits parses a unit name as given on the command line.
func ParseUnits(s string) (Units, error) {
	switch s {
	case "time":
		return UnitsTime, nil
	case "throughput":
		return UnitsThroughput, nil
	}
	return 0, fmt.Errorf("unknown units '%s' (must be one of: time, throughput)", s)
}

func (u Units) String() string {
	switch u {
	case UnitsTime:
		return "time"
	case UnitsThroughput:
		return "throughput"
	}
	return "unknown"
}
