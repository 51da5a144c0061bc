package model

// This file contains the durable result of one (benchmark, engine)
// execution. A measurement is created once by the measure command, written
// as a single CSV row and treated as an immutable value from then on.

import "time"

// Measurement is the aggregate result of executing one benchmark against
// one regex engine.
//
// When Err is non-empty, the execution failed and every other numeric field
// holds its zero value. Errors and data are never combined.
type Measurement struct {
	// Full benchmark name, e.g. "curated/literal-sherlock".
	Name string
	// The benchmark model, e.g. "count" or "grep".
	Model string
	// Name of the regex engine that was measured.
	Engine string
	// Version of the regex engine, as resolved from its engine definition.
	EngineVersion string
	// Error that prevented this measurement from being collected.
	Err string
	// Number of timed iterations actually executed.
	Iters uint64
	// Wall time from spawning the runner process to reaping it.
	Total time.Duration
	// The aggregate statistics over all collected samples.
	Aggregate Aggregate
}

// Aggregate holds the aggregate statistics computed from timing samples.
// Throughputs are present only when the benchmark has a non-zero haystack
// length; they are always derived from the times, never stored.
type Aggregate struct {
	Times AggregateTimes
	Tputs *AggregateThroughputs
}

// AggregateTimes are the absolute timing statistics.
type AggregateTimes struct {
	Median time.Duration
	Mad    time.Duration
	Mean   time.Duration
	Stddev time.Duration
	Min    time.Duration
	Max    time.Duration
}

// AggregateThroughputs are the timing statistics expressed as search
// throughput. Len is the haystack length and is always non-zero.
type AggregateThroughputs struct {
	Len    uint64
	Median Throughput
	Mad    Throughput
	Mean   Throughput
	Stddev Throughput
	Min    Throughput
	Max    Throughput
}

// NewAggregate builds an aggregate from timing statistics. When haystackLen
// is non-zero, throughputs are derived from each statistic; a zero length is
// treated the same as an unknown length and yields no throughputs.
func NewAggregate(times AggregateTimes, haystackLen uint64) Aggregate {
	agg := Aggregate{Times: times}
	if haystackLen == 0 {
		return agg
	}
	agg.Tputs = &AggregateThroughputs{
		Len:    haystackLen,
		Median: NewThroughput(haystackLen, times.Median),
		Mad:    NewThroughput(haystackLen, times.Mad),
		Mean:   NewThroughput(haystackLen, times.Mean),
		Stddev: NewThroughput(haystackLen, times.Stddev),
		Min:    NewThroughput(haystackLen, times.Min),
		Max:    NewThroughput(haystackLen, times.Max),
	}
	return agg
}

// Duration returns the requested timing statistic.
func (m *Measurement) Duration(stat Stat) time.Duration {
	times := m.Aggregate.Times
	switch stat {
	case StatMedian:
		return times.Median
	case StatMad:
		return times.Mad
	case StatMean:
		return times.Mean
	case StatStddev:
		return times.Stddev
	case StatMin:
		return times.Min
	case StatMax:
		return times.Max
	}
	return 0
}

// Throughput returns the requested throughput statistic. It reports false
// when the measurement has no throughputs, i.e. its haystack length was
// missing or zero, regardless of the statistic requested.
func (m *Measurement) Throughput(stat Stat) (Throughput, bool) {
	tputs := m.Aggregate.Tputs
	if tputs == nil {
		return 0, false
	}
	switch stat {
	case StatMedian:
		return tputs.Median, true
	case StatMad:
		return tputs.Mad, true
	case StatMean:
		return tputs.Mean, true
	case StatStddev:
		return tputs.Stddev, true
	case StatMin:
		return tputs.Min, true
	case StatMax:
		return tputs.Max, true
	}
	return 0, false
}
