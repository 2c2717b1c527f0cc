package mesh

import (
	"github.com/comp-physics/ECOGEN-CIT/decomposition"
	"github.com/comp-physics/ECOGEN-CIT/geom"
)

// Face holds the geometry of one cell interface: an orthonormal local
// basis, the face center, the in-plane extents and the surface area.
type Face struct {
	Normal   geom.Coord
	Tangent  geom.Coord
	Binormal geom.Coord
	Position geom.Coord
	Size     geom.Coord
	Surface  float64
}

// faceBasis returns the (normal, tangent, binormal) triad for a face
// whose normal points along the given unit offset. The tangent choice
// per axis is fixed so both sides of an exchange agree on it.
func faceBasis(offset decomposition.Coordinate) (normal, tangent, binormal geom.Coord) {
	normal = geom.Coord{X: float64(offset[0]), Y: float64(offset[1]), Z: float64(offset[2])}
	switch {
	case offset[0] == 1:
		tangent = geom.Coord{Y: 1}
		binormal = geom.Coord{Z: 1}
	case offset[0] == -1:
		tangent = geom.Coord{Y: -1}
		binormal = geom.Coord{Z: 1}
	case offset[1] == 1:
		tangent = geom.Coord{X: -1}
		binormal = geom.Coord{Z: 1}
	case offset[1] == -1:
		tangent = geom.Coord{X: 1}
		binormal = geom.Coord{Z: 1}
	case offset[2] == 1:
		tangent = geom.Coord{X: 1}
		binormal = geom.Coord{Y: 1}
	default:
		tangent = geom.Coord{X: -1}
		binormal = geom.Coord{Y: 1}
	}
	return normal, tangent, binormal
}
