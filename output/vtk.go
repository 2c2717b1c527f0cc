// Package output emits the mesh state: VTK-style unstructured files
// of the leaf cells, and the checkpoint stream topology+primitives
// used to resume a run.
package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/comp-physics/ECOGEN-CIT/mesh"
)

// vtkQuad and vtkHexahedron are the VTK cell type codes emitted for
// 2D and 3D leaves.
const (
	vtkQuad       = 9
	vtkHexahedron = 12
)

// ScalarField names one per-cell scalar emitted with the grid.
type ScalarField struct {
	Name   string
	Select func(c *mesh.Cell) float64
}

// DefaultFields emits mixture density, pressure, the refinement
// indicator and the level of each leaf.
func DefaultFields() []ScalarField {
	return []ScalarField{
		{Name: "density", Select: func(c *mesh.Cell) float64 { return c.State().Mixture.Density }},
		{Name: "pressure", Select: func(c *mesh.Cell) float64 { return c.State().Mixture.Pressure }},
		{Name: "xi", Select: func(c *mesh.Cell) float64 { return c.Xi() }},
		{Name: "level", Select: func(c *mesh.Cell) float64 { return float64(c.Level()) }},
	}
}

// WriteVTU writes the rank's leaves as an unstructured grid: 4 points
// per 2D cell, 8 per 3D, in per-level traversal order, with per-cell
// connectivity and offset counters over the emitted point stream.
func WriteVTU(w io.Writer, m *mesh.MeshCartesianAMR, fields []ScalarField) error {
	bw := bufio.NewWriter(w)
	leaves := m.Leaves()
	pointsPerCell := 4
	if m.Dimension() == 3 {
		pointsPerCell = 8
	}
	cellType := vtkQuad
	if m.Dimension() == 3 {
		cellType = vtkHexahedron
	}

	fmt.Fprintf(bw, "<?xml version=\"1.0\"?>\n")
	fmt.Fprintf(bw, "<VTKFile type=\"UnstructuredGrid\" version=\"0.1\" byte_order=\"LittleEndian\">\n")
	fmt.Fprintf(bw, "  <UnstructuredGrid>\n")
	fmt.Fprintf(bw, "    <Piece NumberOfPoints=\"%d\" NumberOfCells=\"%d\">\n",
		pointsPerCell*len(leaves), len(leaves))

	fmt.Fprintf(bw, "      <Points>\n")
	fmt.Fprintf(bw, "        <DataArray type=\"Float64\" NumberOfComponents=\"3\" format=\"ascii\">\n")
	for _, c := range leaves {
		writeCellPoints(bw, c, m.Dimension())
	}
	fmt.Fprintf(bw, "        </DataArray>\n      </Points>\n")

	fmt.Fprintf(bw, "      <Cells>\n")
	fmt.Fprintf(bw, "        <DataArray type=\"Int64\" Name=\"connectivity\" format=\"ascii\">\n")
	for i := range leaves {
		fmt.Fprintf(bw, "         ")
		for p := 0; p < pointsPerCell; p++ {
			fmt.Fprintf(bw, " %d", i*pointsPerCell+p)
		}
		fmt.Fprintf(bw, "\n")
	}
	fmt.Fprintf(bw, "        </DataArray>\n")
	fmt.Fprintf(bw, "        <DataArray type=\"Int64\" Name=\"offsets\" format=\"ascii\">\n")
	for i := range leaves {
		fmt.Fprintf(bw, "          %d\n", (i+1)*pointsPerCell)
	}
	fmt.Fprintf(bw, "        </DataArray>\n")
	fmt.Fprintf(bw, "        <DataArray type=\"UInt8\" Name=\"types\" format=\"ascii\">\n")
	for range leaves {
		fmt.Fprintf(bw, "          %d\n", cellType)
	}
	fmt.Fprintf(bw, "        </DataArray>\n      </Cells>\n")

	fmt.Fprintf(bw, "      <CellData>\n")
	for _, f := range fields {
		fmt.Fprintf(bw, "        <DataArray type=\"Float64\" Name=\"%s\" format=\"ascii\">\n", f.Name)
		for _, c := range leaves {
			fmt.Fprintf(bw, "          %.10g\n", f.Select(c))
		}
		fmt.Fprintf(bw, "        </DataArray>\n")
	}
	fmt.Fprintf(bw, "      </CellData>\n")

	fmt.Fprintf(bw, "    </Piece>\n  </UnstructuredGrid>\n</VTKFile>\n")
	return bw.Flush()
}

// writeCellPoints emits the corner points of one leaf, 4 in 2D and 8
// in 3D, in VTK quad/hexahedron winding.
func writeCellPoints(w io.Writer, c *mesh.Cell, dim int) {
	pos, size := c.Position(), c.Size()
	hx, hy := 0.5*size.X, 0.5*size.Y
	hz := 0.0
	if dim == 3 {
		hz = 0.5 * size.Z
	}

	corners := [][3]float64{
		{pos.X - hx, pos.Y - hy, pos.Z - hz},
		{pos.X + hx, pos.Y - hy, pos.Z - hz},
		{pos.X + hx, pos.Y + hy, pos.Z - hz},
		{pos.X - hx, pos.Y + hy, pos.Z - hz},
	}
	if dim == 3 {
		corners = append(corners,
			[3]float64{pos.X - hx, pos.Y - hy, pos.Z + hz},
			[3]float64{pos.X + hx, pos.Y - hy, pos.Z + hz},
			[3]float64{pos.X + hx, pos.Y + hy, pos.Z + hz},
			[3]float64{pos.X - hx, pos.Y + hy, pos.Z + hz},
		)
	}
	for _, p := range corners {
		fmt.Fprintf(w, "          %.10g %.10g %.10g\n", p[0], p[1], p[2])
	}
}
