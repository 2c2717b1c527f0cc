package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comp-physics/ECOGEN-CIT/mesh"
)

const sampleRun = `
name: bubble-collapse
mesh:
  lengthX: 1.0
  lengthY: 0.5
  lengthZ: 1.0
  numberCellsX: 64
  numberCellsY: 32
  numberCellsZ: 1
  stretchX:
    - {start: 0, end: 0.5, factor: 1, cells: 40}
    - {start: 0.5, end: 1.0, factor: 1.1, cells: 24}
amr:
  lvlMax: 3
  criteriaVar: 0.2
  varRho: true
  varP: true
  varAlpha: true
  xiSplit: 0.11
  xiJoin: 0.05
scheme:
  order: 2
boundaries:
  xm: wall
  xp: absorption
  ym: symmetry
  yp: absorption
  zm: absorption
  zp: absorption
model:
  gammas: [1.4, 6.12]
  transports: 1
output:
  directory: results
`

func writeRun(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndMapRun(t *testing.T) {
	r, err := Load(writeRun(t, sampleRun))
	require.NoError(t, err)
	assert.Equal(t, "bubble-collapse", r.Name)
	assert.Equal(t, []float64{1.4, 6.12}, r.Model.Gammas)

	cfg, err := r.MeshConfig()
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.NumberCellsX)
	assert.Equal(t, 3, cfg.LvlMax)
	assert.Equal(t, mesh.SecondOrder, cfg.Order)
	assert.Equal(t, mesh.Wall, cfg.Boundaries.XM)
	assert.Equal(t, mesh.Symmetry, cfg.Boundaries.YM)
	assert.True(t, cfg.Var.Rho)
	assert.True(t, cfg.Var.Alpha)
	assert.False(t, cfg.Var.U)
	require.Len(t, cfg.StretchX, 2)
	assert.Equal(t, 40, cfg.StretchX[0].NumberCells)
	require.NoError(t, cfg.Validate())
}

func TestUnknownBoundaryKind(t *testing.T) {
	r, err := Load(writeRun(t, "boundaries:\n  xm: periodic\n"))
	require.NoError(t, err)
	_, err = r.MeshConfig()
	assert.Error(t, err)
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
