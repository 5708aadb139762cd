// Package scoring buckets raw usage features into ordinal 1-5 scores using
// cut points derived from the live population.
package scoring

import (
	"math"
	"sort"
)

// CutPercentiles are the percentiles that delimit the five buckets
var CutPercentiles = [4]int{20, 40, 60, 80}

// Percentile returns the p-th percentile of sorted values using linear
// interpolation between closest ranks. sorted must be non-empty and
// ascending.
func Percentile(sorted []float64, p int) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := float64(p) * float64(n-1) / 100
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if hi >= n {
		hi = n - 1
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Thresholds are the four cut points of one feature over one population.
// They are computed once per stage invocation and passed to Bucket.
type Thresholds struct {
	Cuts [4]float64 `json:"cuts"`
}

// ComputeThresholds derives the cut points from the non-missing values.
// It reports false when there is no value at all.
func ComputeThresholds(values []float64) (Thresholds, bool) {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return Thresholds{}, false
	}
	sort.Float64s(clean)

	var th Thresholds
	for i, p := range CutPercentiles {
		th.Cuts[i] = Percentile(clean, p)
	}
	return th, true
}

// Bucket maps a value onto 1-5. Comparisons are strict so coincident cut
// points still yield a defined bucket; the top bucket is the catch-all.
func (th Thresholds) Bucket(v float64) int {
	for i, cut := range th.Cuts {
		if v < cut {
			return i + 1
		}
	}
	return 5
}

// roundHalfUp returns the integer mean of positive bucket scores
func roundHalfUp(sum, n int) int {
	return (2*sum + n) / (2 * n)
}
