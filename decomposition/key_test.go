package decomposition

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildKeysAreDeterministic(t *testing.T) {
	parent := NewKey(Coordinate{3, 5, 1}, 2)
	for i := 0; i < 8; i++ {
		child := parent.Child(i)
		assert.Equal(t, uint8(3), child.Level())
		expected := Coordinate{
			6 + int64(i&1),
			10 + int64((i>>1)&1),
			2 + int64((i>>2)&1),
		}
		assert.Equal(t, expected, child.Coordinate(), "child %d", i)
		assert.Equal(t, i, child.ChildIndex())
		assert.True(t, parent.Equal(child.Parent()))
	}
}

func TestNeighborIsCoordinateAddition(t *testing.T) {
	k := NewKey(Coordinate{4, 4, 4}, 1)
	n := k.Neighbor(Coordinate{-1, 0, 1})
	assert.Equal(t, Coordinate{3, 4, 5}, n.Coordinate())
	assert.Equal(t, k.Level(), n.Level())
}

func TestMortonOrderInterleavesBits(t *testing.T) {
	// On a 2x2x2 block the curve visits children in child-index order.
	base := NewKey(Coordinate{0, 0, 0}, 1)
	var prev uint64
	for i := 0; i < 8; i++ {
		idx := base.Parent().Child(i).Index()
		if i > 0 {
			assert.Greater(t, idx, prev)
		}
		prev = idx
	}
}

func TestCrossLevelOrderingPutsParentFirst(t *testing.T) {
	parent := NewKey(Coordinate{2, 1, 0}, 1)
	child0 := parent.Child(0)
	child7 := parent.Child(7)

	assert.True(t, parent.Less(child0))
	assert.False(t, child0.Less(parent))
	assert.True(t, child0.Less(child7))

	// A parent's whole subtree sorts before the next same-level key.
	next := NewKey(Coordinate{3, 1, 0}, 1)
	assert.True(t, child7.Less(next))
}

func TestKeySortIsTotal(t *testing.T) {
	keys := []Key{
		NewKey(Coordinate{1, 0, 0}, 0).Child(1),
		NewKey(Coordinate{0, 0, 0}, 0),
		NewKey(Coordinate{1, 0, 0}, 0),
		NewKey(Coordinate{1, 0, 0}, 0).Child(0),
		NewKey(Coordinate{0, 1, 0}, 0),
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	require.True(t, keys[0].Equal(NewKey(Coordinate{0, 0, 0}, 0)))
	require.True(t, keys[1].Equal(NewKey(Coordinate{1, 0, 0}, 0)))
	require.True(t, keys[2].Equal(NewKey(Coordinate{1, 0, 0}, 0).Child(0)))
	require.True(t, keys[3].Equal(NewKey(Coordinate{1, 0, 0}, 0).Child(1)))
	require.True(t, keys[4].Equal(NewKey(Coordinate{0, 1, 0}, 0)))
}

func TestAncestorAt(t *testing.T) {
	k := NewKey(Coordinate{13, 6, 3}, 3)
	assert.Equal(t, Coordinate{6, 3, 1}, k.AncestorAt(2).Coordinate())
	assert.Equal(t, Coordinate{1, 0, 0}, k.AncestorAt(0).Coordinate())
}
