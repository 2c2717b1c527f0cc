package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comp-physics/ECOGEN-CIT/decomposition"
	"github.com/comp-physics/ECOGEN-CIT/geom"
)

func TestDirectionFromOffset(t *testing.T) {
	cases := []struct {
		offset decomposition.Coordinate
		want   Direction
	}{
		{decomposition.Coordinate{1, 0, 0}, DirLeft},
		{decomposition.Coordinate{-1, 0, 0}, DirRight},
		{decomposition.Coordinate{0, 1, 0}, DirBottom},
		{decomposition.Coordinate{0, -1, 0}, DirTop},
		{decomposition.Coordinate{0, 0, 1}, DirBack},
		{decomposition.Coordinate{0, 0, -1}, DirFront},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DirectionFromOffset(tc.offset))
	}
}

// The emitted child subsets are the wire contract: for a 2D cell with
// children 0..3 (0=LL, 1=LR, 2=UL, 3=UR), the sender emits the half
// of the subtree on the face turned toward the neighbor.
func TestDirectionalChildFilter2D(t *testing.T) {
	cases := []struct {
		dir  Direction
		want []int
	}{
		{DirRight, []int{0, 2}},
		{DirTop, []int{0, 1}},
		{DirLeft, []int{1, 3}},
		{DirBottom, []int{2, 3}},
	}
	for _, tc := range cases {
		var got []int
		for i := 0; i < 4; i++ {
			if tc.dir.SendsChild(i) {
				got = append(got, i)
			}
		}
		assert.Equal(t, tc.want, got, "direction %v", tc.dir)
	}
}

func TestDirectionalChildFilter3D(t *testing.T) {
	var back, front []int
	for i := 0; i < 8; i++ {
		if DirBack.SendsChild(i) {
			back = append(back, i)
		}
		if DirFront.SendsChild(i) {
			front = append(front, i)
		}
	}
	assert.Equal(t, []int{4, 5, 6, 7}, back)
	assert.Equal(t, []int{0, 1, 2, 3}, front)
}

func TestFillBufferXiAppliesDirectionFilter(t *testing.T) {
	m := newTestMesh(t, testConfig(4, 4, 1, 1))
	fillAll(m, fillUniform(1, 1))

	c := findCell(t, m, 1, 1, 0)
	c.Refine(2, nil, FirstOrder)
	for i, ch := range c.Children() {
		ch.SetXi(float64(i))
	}

	cases := []struct {
		dir  Direction
		want []float64
	}{
		{DirRight, []float64{0, 2}},
		{DirTop, []float64{0, 1}},
		{DirLeft, []float64{1, 3}},
		{DirBottom, []float64{2, 3}},
	}
	for _, tc := range cases {
		var buf []float64
		c.FillBufferXi(&buf, 1, tc.dir)
		assert.Equal(t, tc.want, buf, "direction %v", tc.dir)
		assert.Equal(t, len(tc.want), c.CountElementsToSend(1, tc.dir))
	}

	// At the cell's own level the filter does not apply.
	var buf []float64
	c.FillBufferXi(&buf, 0, DirLeft)
	assert.Equal(t, []float64{c.Xi()}, buf)
}

func TestPrimitiveBufferRoundTrip(t *testing.T) {
	m := newTestMesh(t, testConfig(4, 1, 1, 1))
	fillAll(m, fillUniform(1, 1))

	src := findCell(t, m, 1, 0, 0)
	dst := findCell(t, m, 2, 0, 0)

	s := src.State()
	s.Phases[0].Alpha = 1
	s.Phases[0].Density = 3.5
	s.Phases[0].Pressure = 7.25
	s.Mixture.Pressure = 7.25
	s.Mixture.Velocity = geom.Coord{X: 1, Y: -2, Z: 0.5}
	src.FulfillState()

	var buf []float64
	src.FillBufferPrimitives(&buf, 0, DirNone)
	require.Len(t, buf, src.Model().NumberTransmittedVariables(1, 0))

	pos := 0
	dst.GetBufferPrimitives(buf, &pos, 0)
	assert.Equal(t, len(buf), pos)

	assert.Equal(t, 3.5, dst.State().Phases[0].Density)
	assert.Equal(t, 7.25, dst.State().Mixture.Pressure)
	assert.Equal(t, geom.Coord{X: 1, Y: -2, Z: 0.5}, dst.State().Mixture.Velocity)
	// Derived mixture variables are rebuilt on unpack.
	assert.InDelta(t, 3.5, dst.State().Mixture.Density, 1e-12)
}

func TestSplitBufferMirrorsSubtree(t *testing.T) {
	m := newTestMesh(t, testConfig(4, 1, 1, 2))
	fillAll(m, fillUniform(1, 1))

	c1 := findCell(t, m, 1, 0, 0)
	c2 := findCell(t, m, 2, 0, 0)
	c1.Refine(1, nil, FirstOrder)
	c2.Refine(1, nil, FirstOrder)
	m.RebuildLevelArrays(1)
	c1.Children()[1].Refine(1, nil, FirstOrder)
	m.RebuildLevelArrays(2)

	var lvl0, lvl1 []bool
	c1.FillBufferSplit(&lvl0, 0, DirLeft)
	c1.FillBufferSplit(&lvl1, 1, DirLeft)

	assert.Equal(t, []bool{true}, lvl0)
	// Only the right-half child is emitted toward a +x neighbor; it
	// is the split one.
	assert.Equal(t, []bool{true}, lvl1)
}
