package mesh

import (
	"sort"

	"github.com/comp-physics/ECOGEN-CIT/decomposition"
	"github.com/comp-physics/ECOGEN-CIT/geom"
)

// ChooseRefineCoarsenGhost reconciles a ghost tree with its remote
// counterpart after the split flags were exchanged: a ghost marked
// split grows the children its local faces require, a ghost no longer
// split drops them. Surviving children are appended to the next
// level's ghost array.
func (c *Cell) ChooseRefineCoarsenGhost(dim int, addPhys []AddPhys, order SchemeOrder, cellsLvlGhost [][]*Cell) {
	if c.split {
		if len(c.children) == 0 {
			c.RefineGhost(dim, addPhys, order)
		}
	} else if len(c.children) > 0 {
		c.CoarsenGhost()
	}
	cellsLvlGhost[c.lvl+1] = append(cellsLvlGhost[c.lvl+1], c.children...)
}

// RefineGhost creates only the ghost children required by the local
// faces touching this ghost, walking each unsplit internal interface
// and materializing the 2^(dim-1) children on that face. Children are
// deduplicated across faces by key and kept in Morton order so the
// receive path matches the sender's emission order.
func (c *Cell) RefineGhost(dim int, addPhys []AddPhys, order SchemeOrder) {
	external := make([]*CellInterface, len(c.interfaces))
	copy(external, c.interfaces)

	for _, ci := range external {
		if ci.Kind() != Internal || ci.Split() {
			continue
		}
		if ci.Level() > c.lvl {
			// Fine-on-one-side face: exactly one child sits behind it.
			child := c.findOrCreateGhostChild(c.ghostChildKeyForFace(ci, dim), dim, addPhys)
			if ci.left == c {
				ci.left = child
			} else {
				ci.right = child
			}
			c.DeleteCellInterface(ci)
			child.AddCellInterface(ci)
			continue
		}

		neighbor := ci.other(c)
		for _, key := range c.ghostChildKeysOnFace(ci, dim) {
			child := c.findOrCreateGhostChild(key, dim, addPhys)

			// Same-level neighbor: the face splits into
			// fine-on-one-side children against it.
			cf := ghostChildFace(ci, child, dim)
			childIface := NewCellInterface(ci.lvl + 1)
			childIface.face = cf
			if ci.left == c {
				childIface.Initialize(child, neighbor)
			} else {
				childIface.Initialize(neighbor, child)
			}
			child.AddCellInterface(childIface)
			neighbor.AddCellInterface(childIface)
			childIface.AssociateModel(ci.mdl)
			childIface.AllocateSlopes(c.NumberPhases(), c.NumberTransports(), order)
			ci.children = append(ci.children, childIface)
		}
		ci.split = true
	}

	// Receive order contract: children walk in key order.
	sort.Slice(c.children, func(i, j int) bool {
		return c.children[i].Key().Less(c.children[j].Key())
	})
}

// CoarsenGhost drops the ghost children and restores the faces; ghost
// state is owned remotely so nothing is averaged back.
func (c *Cell) CoarsenGhost() {
	for _, ci := range c.interfaces {
		ci.CoarsenExternal(c)
	}
	c.children = nil
}

// ghostChildKeysOnFace lists the keys of the 2^(dim-1) children
// adjacent to a full-size face of this ghost.
func (c *Cell) ghostChildKeysOnFace(ci *CellInterface, dim int) []decomposition.Key {
	base := c.baseChildCoordForFace(ci)
	axis := normalAxis(&ci.face)

	ni, nj := 1, 1
	if dim >= 2 {
		ni = 2
	}
	if dim == 3 {
		nj = 2
	}
	keys := make([]decomposition.Key, 0, ni*nj)
	for i := 0; i < ni; i++ {
		for j := 0; j < nj; j++ {
			next := base
			next[(axis+1)%dim] += int64(i)
			next[(axis+2)%dim] += int64(j)
			keys = append(keys, decomposition.NewKey(next, uint8(c.lvl)+1))
		}
	}
	return keys
}

// ghostChildKeyForFace resolves the single child behind a quarter
// face, choosing the candidate whose footprint holds the face center.
func (c *Cell) ghostChildKeyForFace(ci *CellInterface, dim int) decomposition.Key {
	candidates := c.ghostChildKeysOnFace(ci, dim)
	best := candidates[0]
	bestDist := -1.0
	for _, key := range candidates {
		pos := c.childPositionFor(key, dim)
		d := pos.Sub(ci.face.Position).Norm()
		if bestDist < 0 || d < bestDist {
			bestDist = d
			best = key
		}
	}
	return best
}

// baseChildCoordForFace returns the coordinate of the first child
// touching the face: child 0 shifted by the face normal when the
// ghost sits on the left of it.
func (c *Cell) baseChildCoordForFace(ci *CellInterface) decomposition.Coordinate {
	base := c.element.Key.Child(0).Coordinate()
	if ci.left == c {
		base[0] += int64(ci.face.Normal.X)
		base[1] += int64(ci.face.Normal.Y)
		base[2] += int64(ci.face.Normal.Z)
	}
	return base
}

func normalAxis(f *Face) int {
	switch {
	case f.Normal.X != 0:
		return 0
	case f.Normal.Y != 0:
		return 1
	default:
		return 2
	}
}

// childPositionFor computes a child's center from its key parity.
func (c *Cell) childPositionFor(key decomposition.Key, dim int) geom.Coord {
	i := key.ChildIndex()
	dimX, dimY, dimZ := 1.0, 0.0, 0.0
	if dim >= 2 {
		dimY = 1
	}
	if dim == 3 {
		dimZ = 1
	}
	return geom.Coord{
		X: c.element.Position.X + dimX*c.element.Size.X*(-0.25+0.5*float64(i&1)),
		Y: c.element.Position.Y + dimY*c.element.Size.Y*(-0.25+0.5*float64((i>>1)&1)),
		Z: c.element.Position.Z + dimZ*c.element.Size.Z*(-0.25+0.5*float64((i>>2)&1)),
	}
}

// findOrCreateGhostChild returns the ghost child with the given key,
// materializing it on first use with the parent primitives.
func (c *Cell) findOrCreateGhostChild(key decomposition.Key, dim int, addPhys []AddPhys) *Cell {
	for _, ch := range c.children {
		if ch.Key().Equal(key) {
			return ch
		}
	}
	numberChildren := 1 << dim
	dimX, dimY, dimZ := 1.0, 0.0, 0.0
	if dim >= 2 {
		dimY = 1
	}
	if dim == 3 {
		dimZ = 1
	}

	child := NewGhostCell(c.lvl+1, c.neighborRank)
	child.element.Key = key
	child.element.Volume = c.element.Volume / float64(numberChildren)
	child.element.LCFL = 0.5 * c.element.LCFL
	child.element.Size = geom.Coord{
		X: (1 - 0.5*dimX) * c.element.Size.X,
		Y: (1 - 0.5*dimY) * c.element.Size.Y,
		Z: (1 - 0.5*dimZ) * c.element.Size.Z,
	}
	child.element.Position = c.childPositionFor(key, dim)

	child.Allocate(c.NumberPhases(), c.NumberTransports(), c.mdl, addPhys)
	child.CopyStateFrom(c)
	child.cons.SetToZero()
	for k := 0; k < c.NumberTransports(); k++ {
		child.SetConsTransport(0, k)
	}
	child.xi = c.xi
	c.children = append(c.children, child)
	return child
}

// ghostChildFace builds the quarter face between a ghost child and
// the still-coarse neighbor across ci.
func ghostChildFace(ci *CellInterface, child *Cell, dim int) Face {
	f := Face{
		Normal:   ci.face.Normal,
		Tangent:  ci.face.Tangent,
		Binormal: ci.face.Binormal,
	}
	scale := 1.0
	for d := 1; d < dim; d++ {
		scale *= 0.5
	}
	f.Surface = scale * ci.face.Surface
	f.Size = childFaceSize(&ci.face, dim)
	f.Position = geom.Coord{
		X: child.Position().X + ci.face.Normal.X*0.5*child.Size().X,
		Y: child.Position().Y + ci.face.Normal.Y*0.5*child.Size().Y,
		Z: child.Position().Z + ci.face.Normal.Z*0.5*child.Size().Z,
	}
	return f
}
