package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/comp-physics/ECOGEN-CIT/decomposition"
	"github.com/comp-physics/ECOGEN-CIT/geom"
	"github.com/comp-physics/ECOGEN-CIT/model"
)

// SchemeOrder is the spatial order of the outer scheme; slope buffers
// exist only at second order.
type SchemeOrder int

const (
	FirstOrder SchemeOrder = iota + 1
	SecondOrder
)

// StretchZone describes one geometrically stretched span of an axis.
type StretchZone struct {
	Start       float64 `yaml:"start"`
	End         float64 `yaml:"end"`
	Factor      float64 `yaml:"factor"`
	NumberCells int     `yaml:"cells"`
}

// BoundarySet names the boundary condition on each domain face.
type BoundarySet struct {
	XM, XP, YM, YP, ZM, ZP BoundaryKind
}

// Config collects the mesh and AMR parameters.
type Config struct {
	LengthX, LengthY, LengthZ                float64
	NumberCellsX, NumberCellsY, NumberCellsZ int
	StretchX, StretchY, StretchZ             []StretchZone

	LvlMax      int
	CriteriaVar float64
	Var         XiFlags
	XiSplit     float64
	XiJoin      float64

	Order      SchemeOrder
	Boundaries BoundarySet
}

// Dimension derives the spatial dimension from the cell counts.
func (c *Config) Dimension() int {
	switch {
	case c.NumberCellsZ > 1:
		return 3
	case c.NumberCellsY > 1:
		return 2
	default:
		return 1
	}
}

// Validate rejects inconsistent configurations before any topology is
// built.
func (c *Config) Validate() error {
	if c.NumberCellsX < 1 || c.NumberCellsY < 1 || c.NumberCellsZ < 1 {
		return Errorf(ConfigError, "grid %dx%dx%d has empty axes",
			c.NumberCellsX, c.NumberCellsY, c.NumberCellsZ)
	}
	if c.LengthX <= 0 || c.LengthY <= 0 || c.LengthZ <= 0 {
		return Errorf(ConfigError, "non-positive domain extents %g %g %g",
			c.LengthX, c.LengthY, c.LengthZ)
	}
	if c.LvlMax < 0 {
		return Errorf(ConfigError, "negative level cap %d", c.LvlMax)
	}
	if c.Order != FirstOrder && c.Order != SecondOrder {
		return Errorf(ConfigError, "unknown scheme order %d", c.Order)
	}
	for _, k := range []BoundaryKind{c.Boundaries.XM, c.Boundaries.XP, c.Boundaries.YM,
		c.Boundaries.YP, c.Boundaries.ZM, c.Boundaries.ZP} {
		if k < Internal || k > Outflow {
			return Errorf(ConfigError, "unknown boundary kind %d", k)
		}
		if k == Internal {
			return Errorf(ConfigError, "domain face cannot be internal")
		}
	}
	return nil
}

// Exchanger is the mesh's view of the parallel ghost exchange. The
// serial implementation is NoExchange; the distributed one lives in
// the parallel package.
type Exchanger interface {
	// Active reports whether more than one rank participates.
	Active() bool

	// Topology registration.
	SetNeighbor(rank int)
	AddCellToSend(rank int, c *Cell, dir Direction)
	AddCellToReceive(rank int, c *Cell)
	FinishTopology() error

	// Collective operations; every call is a barrier.
	CommunicatePrimitives(lvl int) error
	CommunicateXi(lvl int) error
	CommunicateSplit(lvl int) error
	CommunicateTransports(lvl int) error
	CommunicateGhostCellCounts(lvl int) error
	GlobalDtMin(dt float64) (float64, error)
}

// NoExchange is the single-rank exchanger: every operation is a
// no-op.
type NoExchange struct{}

func (NoExchange) Active() bool                              { return false }
func (NoExchange) SetNeighbor(int)                           {}
func (NoExchange) AddCellToSend(int, *Cell, Direction)       {}
func (NoExchange) AddCellToReceive(int, *Cell)               {}
func (NoExchange) FinishTopology() error                     { return nil }
func (NoExchange) CommunicatePrimitives(int) error           { return nil }
func (NoExchange) CommunicateXi(int) error                   { return nil }
func (NoExchange) CommunicateSplit(int) error                { return nil }
func (NoExchange) CommunicateTransports(int) error           { return nil }
func (NoExchange) CommunicateGhostCellCounts(int) error      { return nil }
func (NoExchange) GlobalDtMin(dt float64) (float64, error)   { return dt, nil }

// MeshCartesianAMR owns a rank's portion of the adaptive Cartesian
// mesh: the per-level arrays of cells and interfaces, the ghost
// layer, and the per-level AMR procedure.
type MeshCartesianAMR struct {
	cfg  Config
	dim  int
	rank int

	decomp  *decomposition.Decomposition
	mdl     model.Model
	addPhys []AddPhys

	numberPhases     int
	numberTransports int

	// Global coordinate mapping, possibly stretched.
	posX, dX []float64
	posY, dY []float64
	posZ, dZ []float64

	cells             []*Cell // owned cells first, then ghosts
	interfaces        []*CellInterface
	numberCellsCalcul int

	cellsLvl      [][]*Cell
	interfacesLvl [][]*CellInterface
	cellsLvlGhost [][]*Cell

	ex   Exchanger
	errs *ErrorList

	totalCellsAMR int
}

// NewMeshCartesianAMR builds a rank's initial topology: base cells
// from the decomposition, interfaces for every face, boundary
// interfaces on the domain hull, and ghost cells with their exchange
// registration.
func NewMeshCartesianAMR(cfg Config, decomp *decomposition.Decomposition, rank int,
	mdl model.Model, numberPhases, numberTransports int, addPhys []AddPhys,
	ex Exchanger, errs *ErrorList) (*MeshCartesianAMR, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ex == nil {
		ex = NoExchange{}
	}
	if errs == nil {
		errs = &ErrorList{}
	}

	m := &MeshCartesianAMR{
		cfg:              cfg,
		dim:              cfg.Dimension(),
		rank:             rank,
		decomp:           decomp,
		mdl:              mdl,
		addPhys:          addPhys,
		numberPhases:     numberPhases,
		numberTransports: numberTransports,
		ex:               ex,
		errs:             errs,
	}

	var err error
	if m.posX, m.dX, err = stretchAxis(cfg.LengthX, cfg.NumberCellsX, cfg.StretchX); err != nil {
		return nil, err
	}
	if m.posY, m.dY, err = stretchAxis(cfg.LengthY, cfg.NumberCellsY, cfg.StretchY); err != nil {
		return nil, err
	}
	if m.posZ, m.dZ, err = stretchAxis(cfg.LengthZ, cfg.NumberCellsZ, cfg.StretchZ); err != nil {
		return nil, err
	}

	if err := m.createCellsAndGhosts(); err != nil {
		return nil, err
	}
	m.buildLevelZeroArrays()
	m.totalCellsAMR = m.numberCellsCalcul
	return m, nil
}

// stretchAxis lays out cell centers and sizes along one axis. With no
// zones the spacing is uniform; each zone spans [Start,End] with
// NumberCells sizes in geometric progression of ratio Factor.
func stretchAxis(length float64, n int, zones []StretchZone) (pos, d []float64, err error) {
	pos = make([]float64, n)
	d = make([]float64, n)
	if len(zones) == 0 {
		dx := length / float64(n)
		for i := 0; i < n; i++ {
			d[i] = dx
			pos[i] = (float64(i) + 0.5) * dx
		}
		return pos, d, nil
	}

	total := 0
	for _, z := range zones {
		total += z.NumberCells
	}
	if total != n {
		return nil, nil, Errorf(ConfigError, "stretch zones cover %d cells, axis has %d", total, n)
	}
	i := 0
	x := 0.0
	for _, z := range zones {
		span := z.End - z.Start
		if span <= 0 || z.NumberCells < 1 {
			return nil, nil, Errorf(ConfigError, "degenerate stretch zone [%g,%g]", z.Start, z.End)
		}
		d0 := span / float64(z.NumberCells)
		if z.Factor != 1 && z.Factor > 0 {
			d0 = span * (z.Factor - 1) / (pow(z.Factor, z.NumberCells) - 1)
		}
		dx := d0
		for k := 0; k < z.NumberCells; k++ {
			d[i] = dx
			pos[i] = x + 0.5*dx
			x += dx
			dx *= z.Factor
			i++
		}
	}
	return pos, d, nil
}

func pow(f float64, n int) float64 {
	out := 1.0
	for i := 0; i < n; i++ {
		out *= f
	}
	return out
}

// createCellsAndGhosts performs the initial topology walk: one cell
// per owned key, then for every owned cell and each of the six
// offsets either a boundary interface, a deduplicated internal
// interface, or a ghost-backed interface with exchange registration.
func (m *MeshCartesianAMR) createCellsAndGhosts() error {
	keys := m.decomp.KeysOf(m.rank)

	byKey := make(map[decomposition.Key]*Cell, len(keys))
	for _, key := range keys {
		c := NewCell(0)
		m.assignElementProperties(c, key)
		c.Allocate(m.numberPhases, m.numberTransports, m.mdl, m.addPhys)
		m.cells = append(m.cells, c)
		byKey[key] = c
	}
	m.numberCellsCalcul = len(m.cells)

	ghostByKey := make(map[decomposition.Key]*Cell)

	offsets := []decomposition.Coordinate{
		{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1},
	}

	for i := 0; i < m.numberCellsCalcul; i++ {
		cell := m.cells[i]
		key := cell.Key()
		coord := key.Coordinate()

		for _, offset := range offsets {
			neighborCoord := coord.Add(offset)

			if !m.decomp.IsInside(neighborCoord) {
				m.createBoundaryInterface(cell, offset)
				continue
			}

			nKey := key.Neighbor(offset)
			positive := offset[0] > 0 || offset[1] > 0 || offset[2] > 0

			if neighbor, ok := byKey[nKey]; ok {
				// Internal pair, created once on the positive pass.
				if positive {
					ci := m.newInternalInterface(cell, offset)
					ci.Initialize(cell, neighbor)
					cell.AddCellInterface(ci)
					neighbor.AddCellInterface(ci)
					m.interfaces = append(m.interfaces, ci)
				}
				continue
			}

			// Remote neighbor: locate or create the ghost cell.
			neighborRank := m.decomp.RankOf(nKey)
			ghost, exists := ghostByKey[nKey]
			if !exists {
				ghost = NewGhostCell(0, neighborRank)
				m.assignElementProperties(ghost, nKey)
				ghost.Allocate(m.numberPhases, m.numberTransports, m.mdl, m.addPhys)
				ghostByKey[nKey] = ghost
				m.cells = append(m.cells, ghost)
				m.ex.SetNeighbor(neighborRank)
				m.ex.AddCellToReceive(neighborRank, ghost)
			}
			m.ex.AddCellToSend(neighborRank, cell, DirectionFromOffset(offset))

			ci := m.newInternalInterface(cell, offset)
			if positive {
				ci.Initialize(cell, ghost)
			} else {
				ci.Initialize(ghost, cell)
			}
			cell.AddCellInterface(ci)
			ghost.AddCellInterface(ci)
			m.interfaces = append(m.interfaces, ci)
		}
	}

	return m.ex.FinishTopology()
}

// assignElementProperties fills an element from the global coordinate
// mapping.
func (m *MeshCartesianAMR) assignElementProperties(c *Cell, key decomposition.Key) {
	coord := key.Coordinate()
	ix, iy, iz := coord.X(), coord.Y(), coord.Z()
	c.element.Key = key
	c.element.Position = geom.Coord{X: m.posX[ix], Y: m.posY[iy], Z: m.posZ[iz]}
	c.element.Size = geom.Coord{X: m.dX[ix], Y: m.dY[iy], Z: m.dZ[iz]}
	c.element.Volume = m.dX[ix] * m.dY[iy] * m.dZ[iz]

	lCFL := 1e10
	if m.cfg.NumberCellsX != 1 && m.dX[ix] < lCFL {
		lCFL = m.dX[ix]
	}
	if m.cfg.NumberCellsY != 1 && m.dY[iy] < lCFL {
		lCFL = m.dY[iy]
	}
	if m.cfg.NumberCellsZ != 1 && m.dZ[iz] < lCFL {
		lCFL = m.dZ[iz]
	}
	if m.dim > 1 {
		lCFL *= 0.6
	}
	c.element.LCFL = lCFL
}

// newInternalInterface builds an internal face adjacent to cell in
// the offset direction. Interfaces created from a negative offset are
// normalized to a positive-axis normal, ghost on the left.
func (m *MeshCartesianAMR) newInternalInterface(cell *Cell, offset decomposition.Coordinate) *CellInterface {
	positiveOffset := offset
	if offset[0] < 0 || offset[1] < 0 || offset[2] < 0 {
		positiveOffset = decomposition.Coordinate{-offset[0], -offset[1], -offset[2]}
	}
	normal, tangent, binormal := faceBasis(positiveOffset)

	ci := NewCellInterface(0)
	ci.face = m.faceGeometry(cell, offset, normal, tangent, binormal)
	ci.AssociateModel(m.mdl)
	ci.AllocateSlopes(m.numberPhases, m.numberTransports, m.cfg.Order)
	return ci
}

// createBoundaryInterface builds a domain-hull face of the configured
// kind.
func (m *MeshCartesianAMR) createBoundaryInterface(cell *Cell, offset decomposition.Coordinate) {
	normal, tangent, binormal := faceBasis(offset)
	ci := NewBoundaryInterface(m.boundaryKindFor(offset), 0)
	ci.face = m.faceGeometry(cell, offset, normal, tangent, binormal)
	ci.Initialize(cell, nil)
	ci.AssociateModel(m.mdl)
	ci.AllocateSlopes(m.numberPhases, m.numberTransports, m.cfg.Order)
	cell.AddCellInterface(ci)
	m.interfaces = append(m.interfaces, ci)
}

func (m *MeshCartesianAMR) boundaryKindFor(offset decomposition.Coordinate) BoundaryKind {
	b := m.cfg.Boundaries
	switch {
	case offset[0] == -1:
		return b.XM
	case offset[0] == 1:
		return b.XP
	case offset[1] == -1:
		return b.YM
	case offset[1] == 1:
		return b.YP
	case offset[2] == -1:
		return b.ZM
	default:
		return b.ZP
	}
}

// faceGeometry positions and sizes a face on the given side of a
// cell.
func (m *MeshCartesianAMR) faceGeometry(cell *Cell, offset decomposition.Coordinate,
	normal, tangent, binormal geom.Coord) Face {

	size := cell.Size()
	pos := cell.Position().Add(geom.Coord{
		X: 0.5 * size.X * float64(offset[0]),
		Y: 0.5 * size.Y * float64(offset[1]),
		Z: 0.5 * size.Z * float64(offset[2]),
	})

	f := Face{Normal: normal, Tangent: tangent, Binormal: binormal, Position: pos}
	switch {
	case offset[0] != 0:
		f.Size = geom.Coord{Y: size.Y, Z: size.Z}
		f.Surface = size.Y * size.Z
	case offset[1] != 0:
		f.Size = geom.Coord{X: size.X, Z: size.Z}
		f.Surface = size.X * size.Z
	default:
		f.Size = geom.Coord{X: size.X, Y: size.Y}
		f.Surface = size.X * size.Y
	}
	return f
}

// buildLevelZeroArrays seeds the per-level arrays.
func (m *MeshCartesianAMR) buildLevelZeroArrays() {
	m.cellsLvl = make([][]*Cell, m.cfg.LvlMax+1)
	m.interfacesLvl = make([][]*CellInterface, m.cfg.LvlMax+1)
	m.cellsLvlGhost = make([][]*Cell, m.cfg.LvlMax+1)

	m.cellsLvl[0] = append(m.cellsLvl[0], m.cells[:m.numberCellsCalcul]...)
	m.interfacesLvl[0] = append(m.interfacesLvl[0], m.interfaces...)
	m.cellsLvlGhost[0] = append(m.cellsLvlGhost[0], m.cells[m.numberCellsCalcul:]...)
}

// Accessors.

func (m *MeshCartesianAMR) Config() Config                      { return m.cfg }
func (m *MeshCartesianAMR) Dimension() int                      { return m.dim }
func (m *MeshCartesianAMR) Rank() int                           { return m.rank }
func (m *MeshCartesianAMR) Model() model.Model                  { return m.mdl }
func (m *MeshCartesianAMR) LvlMax() int                         { return m.cfg.LvlMax }
func (m *MeshCartesianAMR) CellsLvl(lvl int) []*Cell            { return m.cellsLvl[lvl] }
func (m *MeshCartesianAMR) InterfacesLvl(lvl int) []*CellInterface {
	return m.interfacesLvl[lvl]
}
func (m *MeshCartesianAMR) GhostsLvl(lvl int) []*Cell { return m.cellsLvlGhost[lvl] }
func (m *MeshCartesianAMR) NumberCellsCalcul() int    { return m.numberCellsCalcul }
func (m *MeshCartesianAMR) TotalCellsAMR() int        { return m.totalCellsAMR }
func (m *MeshCartesianAMR) Errors() *ErrorList        { return m.errs }

// Leaves walks the unsplit cells in per-level traversal order.
func (m *MeshCartesianAMR) Leaves() []*Cell {
	var out []*Cell
	for lvl := 0; lvl <= m.cfg.LvlMax; lvl++ {
		for _, c := range m.cellsLvl[lvl] {
			if c.IsLeaf() {
				out = append(out, c)
			}
		}
	}
	return out
}

// SumLeafVolumes accumulates the volume tiled by this rank's leaves.
func (m *MeshCartesianAMR) SumLeafVolumes() float64 {
	var vols []float64
	for _, c := range m.Leaves() {
		vols = append(vols, c.Volume())
	}
	return floats.Sum(vols)
}

// AMRProcedure runs one adaptation sweep at the given level:
// indicator evaluation, two smoothing passes, refine/coarsen
// decisions, ghost reconciliation, and the rebuild of the next
// level's arrays.
func (m *MeshCartesianAMR) AMRProcedure(lvl int) error {
	// 1) Indicator at level lvl.
	for _, c := range m.cellsLvl[lvl] {
		c.SetToZeroXi()
	}
	for _, ci := range m.interfacesLvl[lvl] {
		ci.ComputeXi(m.cfg.CriteriaVar, m.cfg.Var)
	}
	if m.ex.Active() {
		if err := m.ex.CommunicateXi(lvl); err != nil {
			return err
		}
	}

	// 2) Two smoothing sweeps.
	for sweep := 0; sweep < 2; sweep++ {
		for _, c := range m.cellsLvl[lvl] {
			c.SetToZeroConsXi()
		}
		for _, ci := range m.interfacesLvl[lvl] {
			ci.ComputeFluxXi()
		}
		for _, c := range m.cellsLvl[lvl] {
			c.TimeEvolutionXi()
		}
		if m.ex.Active() {
			if err := m.ex.CommunicateXi(lvl); err != nil {
				return err
			}
		}
	}

	if lvl >= m.cfg.LvlMax {
		return nil
	}

	// 3) Refinement, then 4) coarsening.
	for _, c := range m.cellsLvl[lvl] {
		c.ChooseRefine(m.cfg.XiSplit, m.dim, m.addPhys, m.cfg.Order, &m.totalCellsAMR)
	}
	for _, c := range m.cellsLvl[lvl] {
		c.ChooseCoarsen(m.cfg.XiJoin, &m.totalCellsAMR)
	}

	if m.ex.Active() {
		// 5) Ghost reconciliation.
		if err := m.ex.CommunicateSplit(lvl); err != nil {
			return err
		}
		m.cellsLvlGhost[lvl+1] = m.cellsLvlGhost[lvl+1][:0]
		for _, g := range m.cellsLvlGhost[lvl] {
			g.ChooseRefineCoarsenGhost(m.dim, m.addPhys, m.cfg.Order, m.cellsLvlGhost)
		}
		if err := m.ex.CommunicatePrimitives(lvl); err != nil {
			return err
		}
		// 6) Resize the persistent buffers for level lvl+1.
		if err := m.ex.CommunicateGhostCellCounts(lvl + 1); err != nil {
			return err
		}
	}

	// 7) Rebuild the next level's arrays.
	m.RebuildLevelArrays(lvl + 1)
	return nil
}

// CommunicateAddPhys refreshes every additional physics' ghost
// quantities at one level.
func (m *MeshCartesianAMR) CommunicateAddPhys(lvl int) error {
	for _, ap := range m.addPhys {
		if err := ap.CommunicateQuantities(lvl); err != nil {
			return err
		}
	}
	return nil
}

// RebuildLevelArrays repopulates cellsLvl[lvl] and interfacesLvl[lvl]
// by walking the children of the level below.
func (m *MeshCartesianAMR) RebuildLevelArrays(lvl int) {
	m.cellsLvl[lvl] = m.cellsLvl[lvl][:0]
	m.interfacesLvl[lvl] = m.interfacesLvl[lvl][:0]
	for _, c := range m.cellsLvl[lvl-1] {
		c.BuildLvlArrays(m.cellsLvl, m.interfacesLvl)
	}
	for _, ci := range m.interfacesLvl[lvl-1] {
		ci.BuildLvlInterfacesArray(m.interfacesLvl)
	}
}

// InitialRefinement adapts the freshly built mesh to its initial
// condition: two passes over the levels, refilling the new leaves and
// re-averaging parents after each, then a final fulfill pass.
func (m *MeshCartesianAMR) InitialRefinement(fill func(*Cell)) error {
	for _, c := range m.cells {
		fill(c)
		c.FulfillState()
	}

	for iter := 0; iter < 2; iter++ {
		for lvl := 0; lvl < m.cfg.LvlMax; lvl++ {
			if m.ex.Active() {
				if err := m.ex.CommunicatePrimitives(lvl); err != nil {
					return err
				}
			}
			if err := m.AMRProcedure(lvl); err != nil {
				return err
			}
			for _, c := range m.cellsLvl[lvl+1] {
				fill(c)
			}
			for _, c := range m.cellsLvl[lvl+1] {
				c.FulfillState()
			}
			for _, c := range m.cellsLvl[lvl] {
				c.AverageChildrenInParent()
			}
		}
	}
	for lvl := 0; lvl <= m.cfg.LvlMax; lvl++ {
		if m.ex.Active() {
			if err := m.ex.CommunicatePrimitives(lvl); err != nil {
				return err
			}
		}
		for _, c := range m.cellsLvl[lvl] {
			if c.IsLeaf() {
				c.FulfillState()
			}
		}
	}
	return nil
}

// VerifyTopology checks the structural invariants after a mutation:
// children keyed and leveled under their parent, and 2:1 balance
// across every unsplit internal face.
func (m *MeshCartesianAMR) VerifyTopology() error {
	for lvl := 0; lvl <= m.cfg.LvlMax; lvl++ {
		for _, c := range m.cellsLvl[lvl] {
			if c.Split() != (c.NumberChildren() > 0) {
				return Errorf(TopologyError, "split flag inconsistent at key %v", c.Key().Coordinate())
			}
			for i, ch := range c.Children() {
				if !ch.Key().Equal(c.Key().Child(i)) {
					return Errorf(TopologyError, "child %d of %v carries key %v",
						i, c.Key().Coordinate(), ch.Key().Coordinate())
				}
				if ch.Level() != c.Level()+1 {
					return Errorf(TopologyError, "child level %d under parent level %d",
						ch.Level(), c.Level())
				}
			}
		}
		for _, ci := range m.interfacesLvl[lvl] {
			if ci.Split() || ci.Kind() != Internal {
				continue
			}
			l, r := ci.Left(), ci.Right()
			if l == nil || r == nil {
				return Errorf(TopologyError, "internal face with a missing side at level %d", lvl)
			}
			d := l.Level() - r.Level()
			if d < -1 || d > 1 {
				return Errorf(TopologyError, "2:1 violation between %v (lvl %d) and %v (lvl %d)",
					l.Key().Coordinate(), l.Level(), r.Key().Coordinate(), r.Level())
			}
		}
	}
	return nil
}

// String identifies the mesh type in logs and output headers.
func (m *MeshCartesianAMR) String() string {
	return fmt.Sprintf("CARTESIAN_AMR %dx%dx%d lvlMax=%d",
		m.cfg.NumberCellsX, m.cfg.NumberCellsY, m.cfg.NumberCellsZ, m.cfg.LvlMax)
}
