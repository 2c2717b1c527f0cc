package mesh

import (
	"github.com/comp-physics/ECOGEN-CIT/geom"
)

// ChooseRefine refines a leaf whose indicator reached the split
// threshold, unless a face neighbor is too coarse for the 2:1
// constraint to survive. Calling it again without recomputing xi is a
// no-op: the cell is no longer a leaf.
func (c *Cell) ChooseRefine(xiSplit float64, dim int, addPhys []AddPhys, order SchemeOrder, totalCells *int) {
	if c.split || c.xi < xiSplit || c.LvlNeighborTooLow() {
		return
	}
	c.Refine(dim, addPhys, order)
	*totalCells += len(c.children) - 1
}

// ChooseCoarsen coarsens an internal cell whose own indicator is below
// the join threshold and whose children are all leaves, unless a
// neighbor subtree is too fine. The children's indicators are not
// consulted.
func (c *Cell) ChooseCoarsen(xiJoin float64, totalCells *int) {
	if !c.split || c.xi >= xiJoin {
		return
	}
	for _, ch := range c.children {
		if ch.NumberChildren() > 0 {
			return
		}
	}
	if c.LvlNeighborTooHigh() {
		return
	}
	*totalCells -= len(c.children) - 1
	c.Coarsen()
}

// LvlNeighborTooLow reports whether any unsplit face neighbor sits
// below this cell's level, which forbids refining.
func (c *Cell) LvlNeighborTooLow() bool {
	for _, ci := range c.interfaces {
		if ci.Split() {
			continue
		}
		if ci.Kind() == Internal {
			if ci.Left().Level() < c.lvl || ci.Right().Level() < c.lvl {
				return true
			}
		} else if ci.Left().Level() < c.lvl {
			return true
		}
	}
	return false
}

// LvlNeighborTooHigh reports whether any neighbor subtree across a
// face reaches two levels above this cell, which forbids coarsening.
func (c *Cell) LvlNeighborTooHigh() bool {
	for _, ci := range c.interfaces {
		if ci.Level() == c.lvl {
			for _, child := range ci.Children() {
				if child.Split() {
					return true
				}
			}
		} else if ci.Split() {
			return true
		}
	}
	return false
}

// Refine splits the cell into 2^dim children, copies the parent
// primitives into them unchanged, builds the internal child
// interfaces wholly inside the parent footprint, and mirrors the
// subdivision on every external interface.
func (c *Cell) Refine(dim int, addPhys []AddPhys, order SchemeOrder) {
	c.split = true

	numberChildren := 1 << dim
	dimX, dimY, dimZ := 1.0, 0.0, 0.0
	if dim >= 2 {
		dimY = 1
	}
	if dim == 3 {
		dimZ = 1
	}

	// Reference interface the internal children inherit model and
	// slope allocation from.
	var refInterface *CellInterface
	for _, ci := range c.interfaces {
		if ci.Kind() == Internal {
			refInterface = ci
			break
		}
	}

	parentPos := c.element.Position
	parentSize := c.element.Size

	for i := 0; i < numberChildren; i++ {
		child := NewCell(c.lvl + 1)
		if c.ghost {
			child.ghost = true
			child.neighborRank = c.neighborRank
		}
		child.element.Key = c.element.Key.Child(i)
		child.element.Volume = c.element.Volume / float64(numberChildren)
		child.element.LCFL = 0.5 * c.element.LCFL
		child.element.Size = geom.Coord{
			X: (1 - 0.5*dimX) * parentSize.X,
			Y: (1 - 0.5*dimY) * parentSize.Y,
			Z: (1 - 0.5*dimZ) * parentSize.Z,
		}
		child.element.Position = geom.Coord{
			X: parentPos.X + dimX*parentSize.X*(-0.25+0.5*float64(i&1)),
			Y: parentPos.Y + dimY*parentSize.Y*(-0.25+0.5*float64((i>>1)&1)),
			Z: parentPos.Z + dimZ*parentSize.Z*(-0.25+0.5*float64((i>>2)&1)),
		}

		child.Allocate(c.NumberPhases(), c.NumberTransports(), c.mdl, addPhys)
		child.CopyStateFrom(c)
		child.cons.SetToZero()
		for k := 0; k < c.NumberTransports(); k++ {
			child.SetConsTransport(0, k)
		}
		child.xi = c.xi
		c.children = append(c.children, child)
	}

	c.createInternalChildInterfaces(dim, refInterface, order)

	// RefineExternal may move fine-on-one-side faces off this cell's
	// list; iterate over a snapshot.
	external := make([]*CellInterface, len(c.interfaces))
	copy(external, c.interfaces)
	for _, ci := range external {
		ci.RefineExternal(c, dim, order)
	}
}

// createInternalChildInterfaces builds the faces strictly inside the
// parent: 1 in 1D, 4 in 2D (2 per axis), 12 in 3D (4 per coordinate
// plane), each joining the two children it separates.
func (c *Cell) createInternalChildInterfaces(dim int, ref *CellInterface, order SchemeOrder) {
	pos := c.element.Position
	size := c.element.Size

	type spec struct {
		normal, tangent, binormal geom.Coord
		position                  geom.Coord
		size                      geom.Coord
		surface                   float64
		left, right               int
	}
	var specs []spec

	switch dim {
	case 1:
		specs = []spec{{
			normal: geom.Coord{X: 1}, tangent: geom.Coord{Y: 1}, binormal: geom.Coord{Z: 1},
			position: pos,
			size:     geom.Coord{Y: size.Y, Z: size.Z},
			surface:  size.Y * size.Z,
			left:     0, right: 1,
		}}
	case 2:
		for i := 0; i < 2; i++ {
			specs = append(specs, spec{
				normal: geom.Coord{X: 1}, tangent: geom.Coord{Y: 1}, binormal: geom.Coord{Z: 1},
				position: geom.Coord{X: pos.X, Y: pos.Y + size.Y*(-0.25+0.5*float64(i)), Z: pos.Z},
				size:     geom.Coord{Y: 0.5 * size.Y, Z: size.Z},
				surface:  0.5 * size.Y * size.Z,
				left:     2 * i, right: 1 + 2*i,
			})
		}
		for i := 0; i < 2; i++ {
			specs = append(specs, spec{
				normal: geom.Coord{Y: 1}, tangent: geom.Coord{X: -1}, binormal: geom.Coord{Z: 1},
				position: geom.Coord{X: pos.X + size.X*(-0.25+0.5*float64(i)), Y: pos.Y, Z: pos.Z},
				size:     geom.Coord{X: 0.5 * size.X, Z: size.Z},
				surface:  0.5 * size.X * size.Z,
				left:     i, right: 2 + i,
			})
		}
	case 3:
		// Four faces per coordinate plane; pairs taken from the child
		// numbering (bit 0 = +x, bit 1 = +y, bit 2 = +z).
		xPairs := [4][2]int{{4, 5}, {0, 1}, {6, 7}, {2, 3}}
		for i, p := range xPairs {
			dy := -0.25 + 0.5*float64(i>>1)
			dz := 0.25 - 0.5*float64(i&1)
			specs = append(specs, spec{
				normal: geom.Coord{X: 1}, tangent: geom.Coord{Y: 1}, binormal: geom.Coord{Z: 1},
				position: geom.Coord{X: pos.X, Y: pos.Y + dy*size.Y, Z: pos.Z + dz*size.Z},
				size:     geom.Coord{Y: 0.5 * size.Y, Z: 0.5 * size.Z},
				surface:  0.25 * size.Y * size.Z,
				left:     p[0], right: p[1],
			})
		}
		yPairs := [4][2]int{{5, 7}, {1, 3}, {4, 6}, {0, 2}}
		for i, p := range yPairs {
			dx := 0.25 - 0.5*float64(i>>1)
			dz := 0.25 - 0.5*float64(i&1)
			specs = append(specs, spec{
				normal: geom.Coord{Y: 1}, tangent: geom.Coord{X: -1}, binormal: geom.Coord{Z: 1},
				position: geom.Coord{X: pos.X + dx*size.X, Y: pos.Y, Z: pos.Z + dz*size.Z},
				size:     geom.Coord{X: 0.5 * size.X, Z: 0.5 * size.Z},
				surface:  0.25 * size.X * size.Z,
				left:     p[0], right: p[1],
			})
		}
		zPairs := [4][2]int{{0, 4}, {1, 5}, {2, 6}, {3, 7}}
		for i, p := range zPairs {
			dx := -0.25 + 0.5*float64(i&1)
			dy := -0.25 + 0.5*float64(i>>1)
			specs = append(specs, spec{
				normal: geom.Coord{Z: 1}, tangent: geom.Coord{X: 1}, binormal: geom.Coord{Y: 1},
				position: geom.Coord{X: pos.X + dx*size.X, Y: pos.Y + dy*size.Y, Z: pos.Z},
				size:     geom.Coord{X: 0.5 * size.X, Y: 0.5 * size.Y},
				surface:  0.25 * size.X * size.Y,
				left:     p[0], right: p[1],
			})
		}
	}

	for _, s := range specs {
		ci := NewCellInterface(c.lvl + 1)
		ci.face = Face{
			Normal: s.normal, Tangent: s.tangent, Binormal: s.binormal,
			Position: s.position, Size: s.size, Surface: s.surface,
		}
		ci.Initialize(c.children[s.left], c.children[s.right])
		c.children[s.left].AddCellInterface(ci)
		c.children[s.right].AddCellInterface(ci)
		if ref != nil {
			ci.AssociateModel(ref.mdl)
			ci.AllocateSlopes(c.NumberPhases(), c.NumberTransports(), order)
		} else {
			ci.AssociateModel(c.mdl)
			ci.AllocateSlopes(c.NumberPhases(), c.NumberTransports(), order)
		}
		c.childInternalInterfaces = append(c.childInternalInterfaces, ci)
	}
}

// Coarsen collapses the children back into the parent: their
// conservative average becomes the parent state, the internal child
// interfaces disappear, and every external interface is restored or
// re-attached.
func (c *Cell) Coarsen() {
	c.AverageChildrenInParent()

	c.childInternalInterfaces = nil

	for _, ci := range c.interfaces {
		ci.CoarsenExternal(c)
	}

	c.children = nil
	c.split = false
}

// AverageChildrenInParent rebuilds the parent primitives as the
// conservative average of its children, applies the model
// relaxations, and averages the transports arithmetically. The
// conservative buffers are left zeroed.
func (c *Cell) AverageChildrenInParent() {
	n := len(c.children)
	if n == 0 {
		return
	}
	c.cons.SetToZero()
	buf := c.cons.Clone()
	for _, ch := range c.children {
		buf.BuildCons(&ch.state)
		c.cons.Add(buf, 1)
	}
	c.cons.Multiply(1 / float64(n))
	c.cons.BuildPrim(&c.state)
	c.mdl.Relaxations(&c.state)

	for k := 0; k < c.NumberTransports(); k++ {
		sum := 0.0
		for _, ch := range c.children {
			sum += ch.state.Transports[k].Value
		}
		c.state.Transports[k].Value = sum / float64(n)
	}

	c.cons.SetToZero()
	for k := range c.consTransports {
		c.consTransports[k].Value = 0
	}
}

// BuildLvlArrays appends the children of this cell and its internal
// child interfaces to the next level's arrays.
func (c *Cell) BuildLvlArrays(cellsLvl [][]*Cell, interfacesLvl [][]*CellInterface) {
	for _, ch := range c.children {
		cellsLvl[c.lvl+1] = append(cellsLvl[c.lvl+1], ch)
	}
	for _, ci := range c.childInternalInterfaces {
		interfacesLvl[c.lvl+1] = append(interfacesLvl[c.lvl+1], ci)
	}
}

// xi smoothing.

func (c *Cell) SetToZeroXi()     { c.xi = 0 }
func (c *Cell) SetToZeroConsXi() { c.consXi = 0 }

// TimeEvolutionXi folds the smoothing fluxes into the indicator,
// clamped to its [0,1] range.
func (c *Cell) TimeEvolutionXi() {
	c.xi += c.consXi
	if c.xi > 1 {
		c.xi = 1
	}
	if c.xi < 0 {
		c.xi = 0
	}
}
