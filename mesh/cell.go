// Package mesh implements the block-structured AMR core: the
// hierarchical cell tree, cell interfaces across refinement levels,
// the refinement protocol under the 2:1 neighbor-level constraint,
// and the per-level mesh management that keeps cells, interfaces and
// ghost layers consistent.
package mesh

import (
	"math"

	"github.com/comp-physics/ECOGEN-CIT/decomposition"
	"github.com/comp-physics/ECOGEN-CIT/geom"
	"github.com/comp-physics/ECOGEN-CIT/model"
)

// AddPhys is the contract for additional-physics contributions
// (surface tension, viscosity, ...). The core stores and calls them
// opaquely.
type AddPhys interface {
	AddQuantity(c *Cell)
	ComputeQuantities(c *Cell)
	ComputeFlux(ci *CellInterface)
	AddNonCons(c *Cell)
	ReinitializationActivated() bool
	ReinitializeColorFunction(c *Cell)
	// CommunicateQuantities refreshes the ghost copies of whatever
	// this physics carries at one level; implementations ride the
	// exchange's vector path.
	CommunicateQuantities(lvl int) error
}

// SymmetryTerms injects geometric source terms (cylindrical or
// spherical corrections) during the cell update.
type SymmetryTerms interface {
	AddSymmetricTerms(c *Cell)
}

// Cell is one node of the AMR tree. Leaves are the live computational
// elements; a split cell is fully represented by its children.
type Cell struct {
	lvl     int
	element Element

	state          model.State
	cons           model.Flux
	consTransports []model.Transport
	mdl            model.Model

	interfaces              []*CellInterface
	children                []*Cell
	childInternalInterfaces []*CellInterface
	split                   bool

	xi     float64
	consXi float64

	ghost        bool
	neighborRank int
}

// NewCell creates an unallocated cell at the given level.
func NewCell(lvl int) *Cell {
	return &Cell{lvl: lvl, neighborRank: -1}
}

// NewGhostCell creates a cell mirroring a remote cell owned by
// neighborRank. Ghosts are writable only by the receive path.
func NewGhostCell(lvl, neighborRank int) *Cell {
	return &Cell{lvl: lvl, ghost: true, neighborRank: neighborRank}
}

// Allocate sizes the physical state of the cell for the model.
func (c *Cell) Allocate(numberPhases, numberTransports int, mdl model.Model, addPhys []AddPhys) {
	c.state.Phases = make([]model.Phase, numberPhases)
	c.state.Transports = make([]model.Transport, numberTransports)
	c.cons = mdl.AllocateFlux(numberPhases)
	c.consTransports = make([]model.Transport, numberTransports)
	c.mdl = mdl
	for _, ap := range addPhys {
		ap.AddQuantity(c)
	}
}

func (c *Cell) Level() int                      { return c.lvl }
func (c *Cell) Element() *Element               { return &c.element }
func (c *Cell) Key() decomposition.Key          { return c.element.Key }
func (c *Cell) Position() geom.Coord            { return c.element.Position }
func (c *Cell) Size() geom.Coord                { return c.element.Size }
func (c *Cell) Volume() float64                 { return c.element.Volume }
func (c *Cell) State() *model.State             { return &c.state }
func (c *Cell) Cons() model.Flux                { return c.cons }
func (c *Cell) Model() model.Model              { return c.mdl }
func (c *Cell) Split() bool                     { return c.split }
func (c *Cell) Xi() float64                     { return c.xi }
func (c *Cell) SetXi(v float64)                 { c.xi = v }
func (c *Cell) IsGhost() bool                   { return c.ghost }
func (c *Cell) NeighborRank() int               { return c.neighborRank }
func (c *Cell) Children() []*Cell               { return c.children }
func (c *Cell) NumberChildren() int             { return len(c.children) }
func (c *Cell) Interfaces() []*CellInterface    { return c.interfaces }
func (c *Cell) NumberPhases() int               { return len(c.state.Phases) }
func (c *Cell) NumberTransports() int           { return len(c.state.Transports) }
func (c *Cell) Transport(k int) model.Transport { return c.state.Transports[k] }

// IsLeaf reports whether the cell is a live computational element.
func (c *Cell) IsLeaf() bool { return !c.split }

func (c *Cell) SetTransport(v float64, k int)     { c.state.Transports[k].Value = v }
func (c *Cell) SetConsTransport(v float64, k int) { c.consTransports[k].Value = v }

// AddCellInterface registers a non-owning back-reference to an
// interface touching this cell.
func (c *Cell) AddCellInterface(ci *CellInterface) {
	c.interfaces = append(c.interfaces, ci)
}

// DeleteCellInterface removes a back-reference.
func (c *Cell) DeleteCellInterface(ci *CellInterface) {
	for i := 0; i < len(c.interfaces); i++ {
		if c.interfaces[i] == ci {
			c.interfaces = append(c.interfaces[:i], c.interfaces[i+1:]...)
			i--
		}
	}
}

// CopyStateFrom copies the primitive state of another cell of the
// same shape.
func (c *Cell) CopyStateFrom(o *Cell) {
	c.state.CopyFrom(&o.state)
}

// SetToZeroCons clears the conservative accumulators.
func (c *Cell) SetToZeroCons() {
	c.cons.SetToZero()
	for k := range c.consTransports {
		c.consTransports[k].Value = 0
	}
}

// SetToZeroConsGlobal clears the conservative accumulators of the
// whole subtree rooted here, leaves only.
func (c *Cell) SetToZeroConsGlobal() {
	if !c.split {
		c.SetToZeroCons()
		return
	}
	for _, ch := range c.children {
		ch.SetToZeroConsGlobal()
	}
}

// BuildPrim reconstructs primitives from the conservative state.
func (c *Cell) BuildPrim() { c.cons.BuildPrim(&c.state) }

// BuildCons fills the conservative buffer from the primitives.
func (c *Cell) BuildCons() { c.cons.BuildCons(&c.state) }

// FulfillState completes derived variables after primitives change.
func (c *Cell) FulfillState() { c.mdl.FulfillState(&c.state) }

// TimeEvolution advances the cell over dt: the accumulated face
// fluxes in cons are combined with the conservative image of the
// current primitives to produce U^{n+1} in cons.
func (c *Cell) TimeEvolution(dt float64, sym SymmetryTerms) {
	un := c.cons.Clone()
	un.BuildCons(&c.state)
	if sym != nil {
		sym.AddSymmetricTerms(c)
	}
	c.cons.Multiply(dt)
	c.cons.Add(un, 1)

	for k := range c.consTransports {
		c.state.Transports[k].Add(dt * c.consTransports[k].Value)
	}
}

// ReinitializeColorFunction resets a sharpened transport scalar to
// the volume fraction of the phase it tracks.
func (c *Cell) ReinitializeColorFunction(numTransport, numPhase int) {
	c.state.Transports[numTransport].Value = c.state.Phases[numPhase].Alpha
}

// CheckPrimitives records a NumericError for non-finite or
// non-physical primitives after a rebuild.
func (c *Cell) CheckPrimitives(errs *ErrorList) {
	mix := c.state.Mixture
	if math.IsNaN(mix.Pressure) || math.IsInf(mix.Pressure, 0) {
		errs.Record(Errorf(NumericError, "non-finite pressure at key %v level %d",
			c.element.Key.Coordinate(), c.lvl))
	}
	if mix.Density < 0 || math.IsNaN(mix.Density) {
		errs.Record(Errorf(NumericError, "negative or NaN density at key %v level %d",
			c.element.Key.Coordinate(), c.lvl))
	}
}
