package mesh

import (
	"github.com/comp-physics/ECOGEN-CIT/decomposition"
	"github.com/comp-physics/ECOGEN-CIT/geom"
)

// Element carries the geometric identity of a cell: its key on the
// space-filling curve, the cell center, extents, volume and the CFL
// length used by the time-step computation.
type Element struct {
	Key      decomposition.Key
	Position geom.Coord
	Size     geom.Coord
	Volume   float64
	LCFL     float64
}
