// Package segmentation ranks subscribers into five risk tiers relative to
// the current population.
package segmentation

import (
	"sort"

	"microcredit/core/profile"
	"microcredit/core/scoring"
	"microcredit/core/types"
	"microcredit/internal/errors"
)

// Cutoffs are the weighted-score percentiles that separate the segments
type Cutoffs struct {
	P20 float64 `json:"p20"`
	P40 float64 `json:"p40"`
	P60 float64 `json:"p60"`
	P80 float64 `json:"p80"`
}

// ComputeCutoffs derives the cutoffs from a population of weighted scores.
// An empty population yields zero cutoffs.
func ComputeCutoffs(scores []int) Cutoffs {
	if len(scores) == 0 {
		return Cutoffs{}
	}
	sorted := make([]float64, len(scores))
	for i, s := range scores {
		sorted[i] = float64(s)
	}
	sort.Float64s(sorted)
	return Cutoffs{
		P20: scoring.Percentile(sorted, 20),
		P40: scoring.Percentile(sorted, 40),
		P60: scoring.Percentile(sorted, 60),
		P80: scoring.Percentile(sorted, 80),
	}
}

// Assign maps a weighted score onto a segment. Each cut is inclusive on
// the upper side.
func (c Cutoffs) Assign(ws int) types.Segment {
	v := float64(ws)
	switch {
	case v >= c.P80:
		return types.SegmentVeryHigh
	case v >= c.P60:
		return types.SegmentHigh
	case v >= c.P40:
		return types.SegmentMedium
	case v >= c.P20:
		return types.SegmentLow
	default:
		return types.SegmentVeryLow
	}
}

// Segmenter sets Weighted_Score and Segment
type Segmenter struct {
	Weights [profile.CodeLength]int
}

// New creates a segmenter with the default digit weights
func New() *Segmenter {
	return &Segmenter{Weights: profile.DefaultWeights}
}

// Segment parses every profile code, computes the cutoffs once over the
// table and assigns segments on a copy. It returns the cutoffs used.
func (s *Segmenter) Segment(t *types.Table) (*types.Table, Cutoffs, error) {
	if missing := t.MissingColumns(types.ColProfileCode); len(missing) > 0 {
		return nil, Cutoffs{}, errors.MissingColumns("segmenter", missing)
	}

	out := t.Clone()
	scores := make([]int, len(out.Rows))
	for i, row := range out.Rows {
		ws, err := profile.Weighted(row.ProfileCode, s.Weights)
		if err != nil {
			return nil, Cutoffs{}, errors.Wrapf(errors.TypeInput, err, "segmenter: %s", row.SIMNumber)
		}
		scores[i] = ws
	}

	cut := ComputeCutoffs(scores)
	for i, row := range out.Rows {
		row.WeightedScore = scores[i]
		row.Segment = cut.Assign(scores[i])
	}
	out.AddColumns(types.ColWeightedScore, types.ColSegment)
	return out, cut, nil
}
