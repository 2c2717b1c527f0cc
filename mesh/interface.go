package mesh

import (
	"math"

	"github.com/comp-physics/ECOGEN-CIT/geom"
	"github.com/comp-physics/ECOGEN-CIT/model"
)

// BoundaryKind discriminates what sits on the right of an interface.
type BoundaryKind int

const (
	Internal BoundaryKind = iota
	Absorption
	Wall
	Symmetry
	Inflow
	Outflow
)

func (k BoundaryKind) String() string {
	switch k {
	case Internal:
		return "internal"
	case Absorption:
		return "absorption"
	case Wall:
		return "wall"
	case Symmetry:
		return "symmetry"
	case Inflow:
		return "inflow"
	default:
		return "outflow"
	}
}

// XiFlags selects which primitive variations drive the refinement
// indicator.
type XiFlags struct {
	Rho   bool
	P     bool
	U     bool
	Alpha bool
}

// CellInterface is a face between two cells, or between a cell and
// the domain boundary. It is owned by the coarser side; back
// references from cells are non-owning. When the coarse side refines,
// the interface splits into children mirroring the cell subdivision.
type CellInterface struct {
	left  *Cell
	right *Cell // nil for boundary interfaces
	face  Face
	lvl   int
	kind  BoundaryKind

	children []*CellInterface
	split    bool

	mdl             model.Model
	slopesAllocated bool
	slopePhases     []model.Phase
	slopeMixture    model.Mixture
	slopeTransports []model.Transport
}

// NewCellInterface creates an internal interface at the given level.
func NewCellInterface(lvl int) *CellInterface {
	return &CellInterface{lvl: lvl, kind: Internal}
}

// NewBoundaryInterface creates a boundary interface of the given
// kind.
func NewBoundaryInterface(kind BoundaryKind, lvl int) *CellInterface {
	return &CellInterface{lvl: lvl, kind: kind}
}

func (ci *CellInterface) Left() *Cell                { return ci.left }
func (ci *CellInterface) Right() *Cell               { return ci.right }
func (ci *CellInterface) Face() *Face                { return &ci.face }
func (ci *CellInterface) Level() int                 { return ci.lvl }
func (ci *CellInterface) Kind() BoundaryKind         { return ci.kind }
func (ci *CellInterface) Split() bool                { return ci.split }
func (ci *CellInterface) Children() []*CellInterface { return ci.children }
func (ci *CellInterface) NumberChildren() int        { return len(ci.children) }

// Initialize sets both sides.
func (ci *CellInterface) Initialize(left, right *Cell) {
	ci.left = left
	ci.right = right
}

func (ci *CellInterface) InitializeLeft(c *Cell)  { ci.left = c }
func (ci *CellInterface) InitializeRight(c *Cell) { ci.right = c }

// AssociateModel attaches the model used for Riemann flux evaluation.
func (ci *CellInterface) AssociateModel(m model.Model) { ci.mdl = m }

// AllocateSlopes allocates the slope buffers used by a second-order
// scheme. Allocation is gated on the scheme order uniformly, in every
// refinement path.
func (ci *CellInterface) AllocateSlopes(numberPhases, numberTransports int, order SchemeOrder) {
	if order != SecondOrder || ci.slopesAllocated {
		return
	}
	ci.slopePhases = make([]model.Phase, numberPhases)
	ci.slopeTransports = make([]model.Transport, numberTransports)
	ci.slopesAllocated = true
}

func (ci *CellInterface) SlopesAllocated() bool { return ci.slopesAllocated }

// other returns the cell across the interface from c, or nil for a
// boundary.
func (ci *CellInterface) other(c *Cell) *Cell {
	if ci.left == c {
		return ci.right
	}
	return ci.left
}

// ComputeXi marks both adjacent cells for refinement when any enabled
// variable varies across the face by more than criteria. Density and
// pressure variations are measured relative to the smaller side,
// velocity magnitude relative to the larger one, volume fraction
// absolutely.
func (ci *CellInterface) ComputeXi(criteria float64, flags XiFlags) {
	if ci.kind != Internal || ci.left == nil || ci.right == nil {
		return
	}
	l, r := ci.left.State(), ci.right.State()
	exceeded := false

	if flags.Rho {
		exceeded = exceeded || relativeVariation(l.Mixture.Density, r.Mixture.Density) > criteria
	}
	if flags.P {
		exceeded = exceeded || relativeVariation(l.Mixture.Pressure, r.Mixture.Pressure) > criteria
	}
	if flags.U {
		ul, ur := l.Mixture.Velocity.Norm(), r.Mixture.Velocity.Norm()
		ref := math.Max(ul, ur)
		if ref > 1e-12 && math.Abs(ul-ur)/ref > criteria {
			exceeded = true
		}
	}
	if flags.Alpha {
		for k := range l.Phases {
			if math.Abs(l.Phases[k].Alpha-r.Phases[k].Alpha) > criteria {
				exceeded = true
			}
		}
	}
	if exceeded {
		ci.left.SetXi(1)
		ci.right.SetXi(1)
	}
}

func relativeVariation(a, b float64) float64 {
	ref := math.Min(math.Abs(a), math.Abs(b))
	if ref < 1e-12 {
		ref = 1e-12
	}
	return math.Abs(a-b) / ref
}

// ComputeFluxXi distributes half of each side's indicator to the
// other so a smoothing sweep propagates the indicator one cell.
func (ci *CellInterface) ComputeFluxXi() {
	if ci.kind != Internal || ci.split || ci.left == nil || ci.right == nil {
		return
	}
	ci.left.consXi += 0.5 * ci.right.xi
	ci.right.consXi += 0.5 * ci.left.xi
}

// RefineExternal mirrors a cell refinement on one of its external
// interfaces. Three cases arise:
//   - boundary: the face splits into 2^(dim-1) boundary children, one
//     per adjacent child cell;
//   - unsplit internal face, neighbor at the same level: the face
//     splits into fine-on-one-side children connecting each adjacent
//     child of the refining cell to the still-coarse neighbor;
//   - finer face left by an earlier neighbor refinement (its level is
//     above the parent's): its coarse side moves from the refining
//     parent to the matching child cell.
//
// An already split face is left as it is.
func (ci *CellInterface) RefineExternal(parent *Cell, dim int, order SchemeOrder) {
	if ci.split {
		return
	}
	if ci.lvl > parent.Level() {
		// Fine-on-one-side face left by an earlier neighbor
		// refinement; it now connects two fine cells.
		ci.attachToChildOf(parent)
		return
	}

	nChildren := 1 << (dim - 1)
	for n := 0; n < nChildren; n++ {
		childFace := ci.childFace(n, dim)
		adjacent := parent.childAdjacentToFace(&childFace)
		if adjacent == nil {
			continue
		}

		var child *CellInterface
		if ci.kind != Internal {
			child = NewBoundaryInterface(ci.kind, ci.lvl+1)
			child.face = childFace
			child.Initialize(adjacent, nil)
			adjacent.AddCellInterface(child)
		} else {
			neighbor := ci.other(parent)
			child = NewCellInterface(ci.lvl + 1)
			child.face = childFace
			if ci.left == parent {
				child.Initialize(adjacent, neighbor)
			} else {
				child.Initialize(neighbor, adjacent)
			}
			adjacent.AddCellInterface(child)
			neighbor.AddCellInterface(child)
		}
		child.AssociateModel(ci.mdl)
		child.AllocateSlopes(parent.NumberPhases(), parent.NumberTransports(), order)
		ci.children = append(ci.children, child)
	}
	ci.split = true
}

// attachToChildOf swaps this face's coarse side from the refining
// parent to the geometrically matching new child cell.
func (ci *CellInterface) attachToChildOf(parent *Cell) {
	adjacent := parent.childAdjacentToFace(&ci.face)
	if adjacent == nil {
		return
	}
	if ci.left == parent {
		ci.left = adjacent
	} else if ci.right == parent {
		ci.right = adjacent
	} else {
		return
	}
	parent.DeleteCellInterface(ci)
	adjacent.AddCellInterface(ci)
}

// CoarsenExternal undoes RefineExternal when parent coarsens. A child
// whose far side is still refined survives as a fine-on-one-side face
// re-attached to the parent; otherwise the child is destroyed, and
// once no children remain the coarse face is whole again.
func (ci *CellInterface) CoarsenExternal(parent *Cell) {
	if !ci.split {
		return
	}
	kept := ci.children[:0]
	for _, child := range ci.children {
		mine, far := child.left, child.right
		if mine == nil || !isDescendantOf(mine, parent) {
			mine, far = child.right, child.left
		}
		if mine == nil || !isDescendantOf(mine, parent) {
			kept = append(kept, child)
			continue
		}

		if far != nil && far.Level() > parent.Level() {
			// Far side is a child of the neighbor: keep the face as
			// fine-on-one-side against the coarsened parent.
			if child.left == mine {
				child.left = parent
			} else {
				child.right = parent
			}
			parent.AddCellInterface(child)
			kept = append(kept, child)
			continue
		}
		if far != nil {
			far.DeleteCellInterface(child)
		}
	}
	ci.children = kept
	if len(ci.children) == 0 {
		ci.split = false
	}
}

func isDescendantOf(c, parent *Cell) bool {
	for _, ch := range parent.children {
		if ch == c {
			return true
		}
	}
	return false
}

// childFace computes the geometry of the n-th face child: centered on
// its quadrant, halved in each tangential direction, surface scaled
// by 0.5^(dim-1).
func (ci *CellInterface) childFace(n, dim int) Face {
	f := Face{
		Normal:   ci.face.Normal,
		Tangent:  ci.face.Tangent,
		Binormal: ci.face.Binormal,
		Surface:  math.Pow(0.5, float64(dim-1)) * ci.face.Surface,
	}
	f.Size = childFaceSize(&ci.face, dim)

	// Offsets along the two tangential axes of the face.
	f.Position = ci.face.Position
	if dim >= 2 {
		s1 := -0.25 + 0.5*float64(n&1)
		f.Position = f.Position.Add(tangentAxisExtent(ci.face.Tangent, ci.face.Size).Scale(s1))
	}
	if dim == 3 {
		s2 := -0.25 + 0.5*float64((n>>1)&1)
		f.Position = f.Position.Add(tangentAxisExtent(ci.face.Binormal, ci.face.Size).Scale(s2))
	}
	return f
}

// childFaceSize halves the face extents along the axes the
// subdivision actually splits: the tangent axis from 2D up, the
// binormal axis only in 3D.
func childFaceSize(f *Face, dim int) geom.Coord {
	size := f.Size
	if dim >= 2 {
		size = halveAlong(size, f.Tangent)
	}
	if dim == 3 {
		size = halveAlong(size, f.Binormal)
	}
	return size
}

func halveAlong(size, axis geom.Coord) geom.Coord {
	switch {
	case axis.X != 0:
		size.X *= 0.5
	case axis.Y != 0:
		size.Y *= 0.5
	default:
		size.Z *= 0.5
	}
	return size
}

// tangentAxisExtent projects the face extents on a tangential unit
// axis, returning a vector of the face width along that axis.
func tangentAxisExtent(axis, size geom.Coord) geom.Coord {
	return geom.Coord{
		X: math.Abs(axis.X) * size.X * sign(axis.X),
		Y: math.Abs(axis.Y) * size.Y * sign(axis.Y),
		Z: math.Abs(axis.Z) * size.Z * sign(axis.Z),
	}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// childAdjacentToFace finds the child cell whose footprint touches
// the given face, on the parent's side of it.
func (c *Cell) childAdjacentToFace(f *Face) *Cell {
	var best *Cell
	bestDist := math.MaxFloat64
	for _, ch := range c.children {
		// The child must sit on the parent's side of the face plane.
		toFace := f.Position.Sub(ch.Position())
		if toFace.Dot(f.Normal)*f.Position.Sub(c.Position()).Dot(f.Normal) < 0 {
			continue
		}
		d := toFace.Norm()
		if d < bestDist {
			bestDist = d
			best = ch
		}
	}
	return best
}

// BuildLvlInterfacesArray appends the unsplit-or-not children of this
// interface into the next level's interface array.
func (ci *CellInterface) BuildLvlInterfacesArray(interfacesLvl [][]*CellInterface) {
	for _, child := range ci.children {
		interfacesLvl[ci.lvl+1] = append(interfacesLvl[ci.lvl+1], child)
	}
}
