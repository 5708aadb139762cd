package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microcredit/core/types"
	"microcredit/internal/errors"
)

func scored(scores ...int) *types.Subscriber {
	s := &types.Subscriber{SIMNumber: "S1"}
	for i, v := range scores {
		s.SetScore(types.ServiceOrder[i], v)
	}
	return s
}

func TestEncodeFollowsServiceOrder(t *testing.T) {
	code, err := Encode(scored(5, 4, 3, 2, 1), PolicyZeroFill)
	require.NoError(t, err)
	assert.Equal(t, "54321", code)
	assert.Len(t, code, CodeLength)
}

func TestEncodeMissingScorePolicies(t *testing.T) {
	row := scored(3, 3)

	code, err := Encode(row, PolicyZeroFill)
	require.NoError(t, err)
	assert.Equal(t, "33000", code)

	_, err = Encode(row, PolicyStrict)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeMissingValue))
}

func TestEncodeRejectsMultiDigitScore(t *testing.T) {
	_, err := Encode(scored(1, 1, 12, 1, 1), PolicyZeroFill)
	assert.True(t, errors.IsType(err, errors.TypeInput))
}

func TestEncodeTableRequiresScoreColumns(t *testing.T) {
	_, err := EncodeTable(types.NewTable(types.ScoreColumns()[:3], nil), PolicyZeroFill)
	require.Error(t, err)
	assert.Equal(t, types.ScoreColumns()[3:], errors.ColumnsOf(err))

	out, err := EncodeTable(types.NewTable(types.ScoreColumns(), []*types.Subscriber{scored(1, 2, 3, 4, 5)}), PolicyZeroFill)
	require.NoError(t, err)
	assert.Equal(t, "12345", out.Rows[0].ProfileCode)
	assert.True(t, out.HasColumn(types.ColProfileCode))
}

func TestWeighted(t *testing.T) {
	ws, err := Weighted("55555", DefaultWeights)
	require.NoError(t, err)
	assert.Equal(t, 75, ws)

	ws, err = Weighted("11111", DefaultWeights)
	require.NoError(t, err)
	assert.Equal(t, 15, ws)

	_, err = Weighted("5555", DefaultWeights)
	assert.Error(t, err)
	_, err = Weighted("55a55", DefaultWeights)
	assert.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyZeroFill, p)

	p, err = ParsePolicy("strict")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)

	_, err = ParsePolicy("lenient")
	assert.Error(t, err)
}
