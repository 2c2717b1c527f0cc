package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comp-physics/ECOGEN-CIT/decomposition"
	"github.com/comp-physics/ECOGEN-CIT/mesh"
	"github.com/comp-physics/ECOGEN-CIT/model"
)

func testMesh(t *testing.T, nx, ny, lvlMax int) *mesh.MeshCartesianAMR {
	t.Helper()
	cfg := mesh.Config{
		LengthX: float64(nx), LengthY: float64(ny), LengthZ: 1,
		NumberCellsX: nx, NumberCellsY: ny, NumberCellsZ: 1,
		LvlMax:      lvlMax,
		CriteriaVar: 0.2,
		Var:         mesh.XiFlags{Rho: true},
		XiSplit:     0.5,
		XiJoin:      0.2,
		Order:       mesh.FirstOrder,
		Boundaries: mesh.BoundarySet{
			XM: mesh.Absorption, XP: mesh.Absorption,
			YM: mesh.Absorption, YP: mesh.Absorption,
			ZM: mesh.Absorption, ZP: mesh.Absorption,
		},
	}
	d, err := decomposition.NewDecomposition(nx, ny, 1, 1)
	require.NoError(t, err)
	m, err := mesh.NewMeshCartesianAMR(cfg, d, 0, model.NewHomogeneousEquilibrium(1.4),
		1, 0, nil, mesh.NoExchange{}, nil)
	require.NoError(t, err)
	return m
}

func fill(m *mesh.MeshCartesianAMR, rho float64) {
	f := func(c *mesh.Cell) {
		s := c.State()
		s.Phases[0] = model.Phase{Alpha: 1, Density: rho, Pressure: 1}
		s.Mixture.Pressure = 1
		c.FulfillState()
	}
	for _, c := range m.CellsLvl(0) {
		f(c)
	}
}

func TestWriteVTUEmitsLeavesOnly(t *testing.T) {
	m := testMesh(t, 4, 4, 1)
	fill(m, 1)

	c := m.CellsLvl(0)[5]
	c.Refine(2, nil, mesh.FirstOrder)
	m.RebuildLevelArrays(1)

	var buf bytes.Buffer
	require.NoError(t, WriteVTU(&buf, m, DefaultFields()))
	out := buf.String()

	leaves := len(m.Leaves())
	assert.Equal(t, 19, leaves)
	assert.Contains(t, out, `NumberOfCells="19"`)
	assert.Contains(t, out, `NumberOfPoints="76"`) // 4 points per 2D cell
	assert.Contains(t, out, `Name="density"`)
	assert.Contains(t, out, `Name="level"`)

	// Offsets are per-cell counters over the point stream.
	assert.Contains(t, out, "\n          4\n")
	assert.Contains(t, out, "\n          76\n")
	// 2D leaves are VTK quads.
	assert.Equal(t, leaves, strings.Count(out, "          9\n"))
}

func TestCheckpointRoundTrip(t *testing.T) {
	m := testMesh(t, 4, 1, 2)
	fill(m, 1)

	c1 := m.CellsLvl(0)[1]
	c2 := m.CellsLvl(0)[2]
	c1.Refine(1, nil, mesh.FirstOrder)
	c2.Refine(1, nil, mesh.FirstOrder)
	m.RebuildLevelArrays(1)
	c1.Children()[1].Refine(1, nil, mesh.FirstOrder)
	m.RebuildLevelArrays(2)

	// Distinct leaf values so the primitive reload is order checked.
	for i, leaf := range m.Leaves() {
		leaf.State().Phases[0].Density = float64(i + 1)
		leaf.FulfillState()
	}

	runID := uuid.New()
	var buf bytes.Buffer
	require.NoError(t, WriteCheckpoint(&buf, m, runID))

	restored := testMesh(t, 4, 1, 2)
	fill(restored, 0)
	gotID, err := Resume(bytes.NewReader(buf.Bytes()), restored)
	require.NoError(t, err)
	assert.Equal(t, runID, gotID)

	require.NoError(t, restored.VerifyTopology())
	require.Len(t, restored.Leaves(), len(m.Leaves()))
	for i, leaf := range restored.Leaves() {
		assert.True(t, leaf.Key().Equal(m.Leaves()[i].Key()))
		assert.InDelta(t, float64(i+1), leaf.State().Phases[0].Density, 1e-12)
	}
}

func TestResumeRejectsTruncatedStream(t *testing.T) {
	m := testMesh(t, 4, 1, 1)
	fill(m, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteCheckpoint(&buf, m, uuid.New()))
	truncated := buf.String()[:buf.Len()/2]

	restored := testMesh(t, 4, 1, 1)
	_, err := Resume(strings.NewReader(truncated), restored)
	assert.Error(t, err)
}
