package decomposition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangesCoverGridExactlyOnce(t *testing.T) {
	d, err := NewDecomposition(8, 8, 1, 3)
	require.NoError(t, err)

	seen := make(map[Coordinate]int)
	total := 0
	for r := 0; r < d.NumRanks(); r++ {
		keys := d.KeysOf(r)
		total += len(keys)
		for _, k := range keys {
			seen[k.Coordinate()]++
			assert.Equal(t, r, d.RankOf(k))
		}
	}
	assert.Equal(t, 64, total)
	for coord, n := range seen {
		assert.Equal(t, 1, n, "coord %v owned %d times", coord, n)
	}
}

func TestRangesAreNearEqual(t *testing.T) {
	d, err := NewDecomposition(10, 1, 1, 4)
	require.NoError(t, err)

	min, max := 1<<30, 0
	for r := 0; r < 4; r++ {
		n := len(d.KeysOf(r))
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	assert.LessOrEqual(t, max-min, 1)
}

func TestKeysOfIsMortonSorted(t *testing.T) {
	d, err := NewDecomposition(4, 4, 4, 5)
	require.NoError(t, err)
	for r := 0; r < 5; r++ {
		keys := d.KeysOf(r)
		for i := 1; i < len(keys); i++ {
			assert.True(t, keys[i-1].Less(keys[i]))
		}
	}
}

func TestRankOfRefinedKeyFollowsBaseAncestor(t *testing.T) {
	d, err := NewDecomposition(4, 1, 1, 2)
	require.NoError(t, err)

	base := NewKey(Coordinate{3, 0, 0}, 0)
	child := base.Child(1).Child(0)
	assert.Equal(t, d.RankOf(base), d.RankOf(child))
}

func TestIsInside(t *testing.T) {
	d, err := NewDecomposition(4, 2, 1, 1)
	require.NoError(t, err)

	assert.True(t, d.IsInside(Coordinate{0, 0, 0}))
	assert.True(t, d.IsInside(Coordinate{3, 1, 0}))
	assert.False(t, d.IsInside(Coordinate{-1, 0, 0}))
	assert.False(t, d.IsInside(Coordinate{4, 0, 0}))
	assert.False(t, d.IsInside(Coordinate{0, 2, 0}))
	assert.False(t, d.IsInside(Coordinate{0, 0, 1}))
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewDecomposition(0, 1, 1, 1)
	assert.Error(t, err)
	_, err = NewDecomposition(2, 1, 1, 3)
	assert.Error(t, err)
}
