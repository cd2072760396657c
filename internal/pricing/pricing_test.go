package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalTierBoundaries(t *testing.T) {
	e := Default()

	assert.Equal(t, int64(25), e.Total(1))
	assert.Equal(t, int64(225), e.Total(9))
	// The step down at the first tier boundary is part of the price table,
	// not a bug: ten tickets cost less than nine.
	assert.Equal(t, int64(220), e.Total(10))
	assert.Equal(t, int64(2178), e.Total(99))
	assert.Equal(t, int64(1999), e.Total(100))
	assert.Equal(t, int64(2020), e.Total(101))
}

func TestTotalInvalidQuantity(t *testing.T) {
	e := Default()
	assert.Equal(t, int64(0), e.Total(0))
	assert.Equal(t, int64(0), e.Total(-5))
}

func TestSplitSumsToTotal(t *testing.T) {
	cases := []struct {
		total    int64
		quantity int
	}{
		{220, 10},
		{1999, 100},
		{225, 9},
		{7, 3},
	}
	for _, tc := range cases {
		shares := Split(tc.total, tc.quantity)
		assert.Len(t, shares, tc.quantity)
		var sum int64
		for _, s := range shares {
			sum += s
		}
		assert.Equal(t, tc.total, sum)
	}
}

func TestSplitRemainderOnLastUnit(t *testing.T) {
	shares := Split(1999, 100)
	assert.Equal(t, int64(19), shares[0])
	assert.Equal(t, int64(19), shares[98])
	assert.Equal(t, int64(118), shares[99])
}

func TestSplitInvalidQuantity(t *testing.T) {
	assert.Nil(t, Split(100, 0))
}
