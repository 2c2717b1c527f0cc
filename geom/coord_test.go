package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordArithmetic(t *testing.T) {
	a := NewCoord(1, 2, 3)
	b := NewCoord(-1, 0.5, 2)

	assert.Equal(t, Coord{0, 2.5, 5}, a.Add(b))
	assert.Equal(t, Coord{2, 1.5, 1}, a.Sub(b))
	assert.Equal(t, Coord{2, 4, 6}, a.Scale(2))
	assert.Equal(t, 6.0, a.Dot(b))
	assert.InDelta(t, 3.7416573867739413, a.Norm(), 1e-14)
}

func TestCoordComponents(t *testing.T) {
	c := NewCoord(4, 5, 6)
	assert.Equal(t, 4.0, c.Component(0))
	assert.Equal(t, 5.0, c.Component(1))
	assert.Equal(t, 6.0, c.Component(2))
	assert.Equal(t, Coord{4, 9, 6}, c.SetComponent(1, 9))
}
