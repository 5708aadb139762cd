package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingColumnsCarriesColumnList(t *testing.T) {
	err := MissingColumns("scoring", []string{"DATA_REVENUE", "IS_DATA_RGS90"})

	assert.Equal(t, TypeMissingColumn, err.Type)
	assert.Contains(t, err.Error(), "DATA_REVENUE, IS_DATA_RGS90")
	assert.Equal(t, []string{"DATA_REVENUE", "IS_DATA_RGS90"}, ColumnsOf(err))
}

func TestIsTypeWalksWrappedChain(t *testing.T) {
	inner := MissingColumns("segmentation", []string{"Profile_Code"})
	outer := Wrap(TypeInternal, "stage segmentation failed", inner)
	wrapped := fmt.Errorf("run aborted: %w", outer)

	assert.True(t, IsType(wrapped, TypeInternal))
	assert.True(t, IsType(wrapped, TypeMissingColumn))
	assert.False(t, IsType(wrapped, TypeConfig))
	require.Equal(t, []string{"Profile_Code"}, ColumnsOf(wrapped))
}

func TestMissingValueContext(t *testing.T) {
	err := MissingValue("C123", "Balance_First")

	assert.Equal(t, "C123", err.Context["sim_number"])
	assert.Equal(t, "Balance_First", err.Context["field"])
	assert.False(t, IsType(nil, TypeMissingValue))
}
