package model

// This file contains the statistical reducer: the pure function that turns
// raw timing samples into aggregate statistics. All math is done in seconds
// as float64 and converted back to durations at the end.

import (
	"errors"
	"math"
	"sort"
	"time"
)

// ErrNoSamples is returned when asked to aggregate an empty sample set.
// Callers surface this as an error-bearing measurement; it must never be
// silently turned into a zero-valued aggregate.
var ErrNoSamples = errors.New("no samples or errors recorded")

// NewAggregateTimes reduces raw samples into the six timing statistics.
func NewAggregateTimes(samples []time.Duration) (AggregateTimes, error) {
	if len(samples) == 0 {
		return AggregateTimes{}, ErrNoSamples
	}
	xs := make([]float64, len(samples))
	for i, dur := range samples {
		xs[i] = dur.Seconds()
	}
	sort.Float64s(xs)
	return AggregateTimes{
		Median: secsToDuration(median(xs)),
		Mad:    secsToDuration(mad(xs)),
		Mean:   secsToDuration(mean(xs)),
		Stddev: secsToDuration(stddev(xs)),
		Min:    secsToDuration(xs[0]),
		Max:    secsToDuration(xs[len(xs)-1]),
	}, nil
}

func secsToDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs * 1e9))
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev computes the population standard deviation, i.e. it divides by N
// and not N-1.
func stddev(xs []float64) float64 {
	m := mean(xs)
	sumSquared := 0.0
	for _, x := range xs {
		sumSquared += (x - m) * (x - m)
	}
	return math.Sqrt(sumSquared / float64(len(xs)))
}

// median assumes xs is sorted in ascending order.
func median(xs []float64) float64 {
	if len(xs)%2 == 1 {
		return xs[len(xs)/2]
	}
	second := len(xs) / 2
	first := second - 1
	return (xs[first] + xs[second]) / 2
}

// mad computes the median absolute deviation: the median of the absolute
// deviations from the median. xs must be sorted in ascending order.
func mad(xs []float64) float64 {
	xmed := median(xs)
	devs := make([]float64, len(xs))
	for i, x := range xs {
		devs[i] = math.Abs(x - xmed)
	}
	sort.Float64s(devs)
	return median(devs)
}
