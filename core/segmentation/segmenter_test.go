package segmentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microcredit/core/types"
	"microcredit/internal/errors"
)

func coded(codes ...string) *types.Table {
	rows := make([]*types.Subscriber, len(codes))
	for i, c := range codes {
		rows[i] = &types.Subscriber{SIMNumber: string(rune('a' + i)), ProfileCode: c}
	}
	return types.NewTable([]string{types.ColSIMNumber, types.ColProfileCode}, rows)
}

func TestSegmentParsesCodeDigits(t *testing.T) {
	out, cut, err := New().Segment(coded("11111", "22222", "33333", "44444", "55555", "54321"))
	require.NoError(t, err)

	assert.Equal(t, 15, out.Rows[0].WeightedScore)
	assert.Equal(t, 75, out.Rows[4].WeightedScore)
	assert.Equal(t, 55, out.Rows[5].WeightedScore)

	assert.Equal(t, types.SegmentVeryLow, out.Rows[0].Segment)
	assert.Equal(t, types.SegmentVeryHigh, out.Rows[4].Segment)
	assert.LessOrEqual(t, cut.P20, cut.P80)
	assert.True(t, out.HasColumn(types.ColSegment))
}

func TestAssignIsInclusiveOnUpperCut(t *testing.T) {
	c := Cutoffs{P20: 20, P40: 40, P60: 60, P80: 80}

	assert.Equal(t, types.SegmentVeryLow, c.Assign(19))
	assert.Equal(t, types.SegmentLow, c.Assign(20))
	assert.Equal(t, types.SegmentMedium, c.Assign(40))
	assert.Equal(t, types.SegmentHigh, c.Assign(79))
	assert.Equal(t, types.SegmentVeryHigh, c.Assign(80))
}

func TestAssignIsMonotonic(t *testing.T) {
	c := ComputeCutoffs([]int{15, 18, 22, 30, 31, 40, 44, 52, 60, 75})
	prev := 0
	for ws := 0; ws <= 80; ws++ {
		ord := c.Assign(ws).Ordinal()
		assert.GreaterOrEqual(t, ord, prev, "ws=%d", ws)
		prev = ord
	}
}

func TestConstantPopulationIsVeryHigh(t *testing.T) {
	out, _, err := New().Segment(coded("33333", "33333", "33333"))
	require.NoError(t, err)
	for _, r := range out.Rows {
		assert.Equal(t, types.SegmentVeryHigh, r.Segment)
	}
}

func TestSegmentRejectsInvalidCode(t *testing.T) {
	_, _, err := New().Segment(coded("12345", "12x45"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeInput))
	assert.Contains(t, err.Error(), "segmenter: b")

	_, _, err = New().Segment(types.NewTable(nil, nil))
	assert.True(t, errors.IsType(err, errors.TypeMissingColumn))
}
