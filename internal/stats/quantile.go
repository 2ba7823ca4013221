// Package stats provides the small set of order statistics the scoring
// and forecast engines need: interpolated quantiles and rank fractions.
package stats

import (
	"math"
	"sort"
)

// Quantile returns the q-th quantile (q in [0,1]) of values using linear
// interpolation between closest ranks. Returns 0 for an empty slice.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantileSorted(sorted, q)
}

// Quantiles computes multiple quantiles with a single sort.
func Quantiles(values []float64, qs ...float64) []float64 {
	results := make([]float64, len(qs))
	if len(values) == 0 {
		return results
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	for i, q := range qs {
		results[i] = quantileSorted(sorted, q)
	}
	return results
}

func quantileSorted(sorted []float64, q float64) float64 {
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	n := float64(len(sorted))
	index := q * (n - 1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	// Linear interpolation
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// RankFraction returns the fraction of values less than or equal to the
// given value, in [0,1]. Ties share the same fraction.
func RankFraction(values []float64, value float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v <= value {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

// Max returns the maximum of values, or 0 for an empty slice.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}
