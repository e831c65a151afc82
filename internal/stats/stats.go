// Package stats provides the column statistics shared by the pipeline stages.
package stats

import (
	"math"
	"sort"
)

// Mean calculates the arithmetic mean. Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStddev calculates sample standard deviation (n-1 denominator).
// Returns NaN when fewer than 2 values are given; callers apply their own
// substitution policy.
func SampleStddev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// PopulationStddev calculates population standard deviation (n denominator).
func PopulationStddev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n))
}

// Percentile uses linear interpolation between closest ranks.
// sorted must be pre-sorted ASC. p is a fraction (0.01 = 1st percentile).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Sorted returns an ascending copy of values.
func Sorted(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// Median returns the 50th percentile of values.
func Median(values []float64) float64 {
	return Percentile(Sorted(values), 0.5)
}

// Max returns the largest value, or 0 for an empty slice.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Finite replaces NaN and ±Inf with 0.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Summary is a describe()-style distribution summary of one column.
type Summary struct {
	Count  int
	Mean   float64
	Stddev float64
	Min    float64
	P25    float64
	Median float64
	P75    float64
	Max    float64
}

// Describe summarizes values. Stddev is the sample deviation (0 for n < 2).
func Describe(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := Sorted(values)
	return Summary{
		Count:  len(values),
		Mean:   Mean(values),
		Stddev: Finite(SampleStddev(values)),
		Min:    sorted[0],
		P25:    Percentile(sorted, 0.25),
		Median: Percentile(sorted, 0.50),
		P75:    Percentile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
}
