package rank

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		rank int64
		want float64
	}{
		{1, 1.0},
		{2, 0.5},
		{4, 0.25},
		{1000000, 0.000001},
	}

	for _, tt := range tests {
		got, err := Score(tt.rank)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-12)
	}
}

func TestScore_InvalidRank(t *testing.T) {
	for _, r := range []int64{0, -1, math.MinInt64} {
		got, err := Score(r)
		assert.ErrorIs(t, err, ErrInvalidRank)
		assert.ErrorIs(t, err, ErrInvalidRecord)
		assert.Zero(t, got)
	}
}

func TestScore_StrictlyDecreasing(t *testing.T) {
	prev, err := Score(1)
	require.NoError(t, err)
	for r := int64(2); r <= 1000; r++ {
		s, err := Score(r)
		require.NoError(t, err)
		assert.Less(t, s, prev)
		assert.Greater(t, s, 0.0)
		prev = s
	}
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "example.com", NormalizeDomain("  Example.COM\t"))
	assert.Equal(t, "", NormalizeDomain("   "))
}

func TestRecord_Valid(t *testing.T) {
	assert.True(t, NewRecord(1, "a.com").Valid())
	assert.False(t, NewRecord(0, "a.com").Valid())
	assert.False(t, NewRecord(-3, "a.com").Valid())
	assert.False(t, NewRecord(1, " ").Valid())
	assert.Equal(t, "a.com", NewRecord(1, " A.com ").Domain)
}
