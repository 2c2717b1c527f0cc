package mesh

import (
	"github.com/comp-physics/ECOGEN-CIT/geom"
)

// Level-aware pack/unpack used by the ghost exchange. When the cell
// sits above the exchange level its subtree is traversed; the send
// side emits only the descendants on the face turned toward the
// neighbor (per the Direction filters), while the receive side walks
// every ghost descendant in key order.

// FillBufferPrimitives appends the primitive payload of the cells at
// the given level under this cell.
func (c *Cell) FillBufferPrimitives(buf *[]float64, lvl int, dir Direction) {
	if c.lvl == lvl {
		for k := range c.state.Phases {
			ph := &c.state.Phases[k]
			*buf = append(*buf, ph.Alpha, ph.Density, ph.Pressure)
		}
		mix := &c.state.Mixture
		*buf = append(*buf, mix.Pressure, mix.Velocity.X, mix.Velocity.Y, mix.Velocity.Z)
		for k := range c.state.Transports {
			*buf = append(*buf, c.state.Transports[k].Value)
		}
		return
	}
	for i, ch := range c.children {
		if dir.SendsChild(i) {
			ch.FillBufferPrimitives(buf, lvl, dir)
		}
	}
}

// GetBufferPrimitives consumes the primitive payload into the ghost
// cells at the given level under this cell.
func (c *Cell) GetBufferPrimitives(buf []float64, pos *int, lvl int) {
	if c.lvl == lvl {
		for k := range c.state.Phases {
			ph := &c.state.Phases[k]
			ph.Alpha = buf[*pos]
			ph.Density = buf[*pos+1]
			ph.Pressure = buf[*pos+2]
			*pos += 3
		}
		mix := &c.state.Mixture
		mix.Pressure = buf[*pos]
		mix.Velocity = geom.Coord{X: buf[*pos+1], Y: buf[*pos+2], Z: buf[*pos+3]}
		*pos += 4
		for k := range c.state.Transports {
			c.state.Transports[k].Value = buf[*pos]
			*pos++
		}
		c.FulfillState()
		return
	}
	for _, ch := range c.children {
		ch.GetBufferPrimitives(buf, pos, lvl)
	}
}

// FillBufferXi appends the refinement indicators at the given level.
func (c *Cell) FillBufferXi(buf *[]float64, lvl int, dir Direction) {
	if c.lvl == lvl {
		*buf = append(*buf, c.xi)
		return
	}
	for i, ch := range c.children {
		if dir.SendsChild(i) {
			ch.FillBufferXi(buf, lvl, dir)
		}
	}
}

// GetBufferXi consumes refinement indicators.
func (c *Cell) GetBufferXi(buf []float64, pos *int, lvl int) {
	if c.lvl == lvl {
		c.xi = buf[*pos]
		*pos++
		return
	}
	for _, ch := range c.children {
		ch.GetBufferXi(buf, pos, lvl)
	}
}

// FillBufferSplit appends the split flags at the given level.
func (c *Cell) FillBufferSplit(buf *[]bool, lvl int, dir Direction) {
	if c.lvl == lvl {
		*buf = append(*buf, c.split)
		return
	}
	for i, ch := range c.children {
		if dir.SendsChild(i) {
			ch.FillBufferSplit(buf, lvl, dir)
		}
	}
}

// GetBufferSplit consumes split flags into ghost cells; the ghost
// trees are reconciled afterwards by ChooseRefineCoarsenGhost.
func (c *Cell) GetBufferSplit(buf []bool, pos *int, lvl int) {
	if c.lvl == lvl {
		c.split = buf[*pos]
		*pos++
		return
	}
	for _, ch := range c.children {
		ch.GetBufferSplit(buf, pos, lvl)
	}
}

// FillBufferTransports appends the transported scalars at the given
// level.
func (c *Cell) FillBufferTransports(buf *[]float64, lvl int, dir Direction) {
	if c.lvl == lvl {
		for k := range c.state.Transports {
			*buf = append(*buf, c.state.Transports[k].Value)
		}
		return
	}
	for i, ch := range c.children {
		if dir.SendsChild(i) {
			ch.FillBufferTransports(buf, lvl, dir)
		}
	}
}

// GetBufferTransports consumes transported scalars.
func (c *Cell) GetBufferTransports(buf []float64, pos *int, lvl int) {
	if c.lvl == lvl {
		for k := range c.state.Transports {
			c.state.Transports[k].Value = buf[*pos]
			*pos++
		}
		return
	}
	for _, ch := range c.children {
		ch.GetBufferTransports(buf, pos, lvl)
	}
}

// FillBufferVector appends a vector quantity selected from each cell
// at the given level, dim components per cell.
func (c *Cell) FillBufferVector(buf *[]float64, lvl int, dir Direction, dim int, sel func(*Cell) geom.Coord) {
	if c.lvl == lvl {
		v := sel(c)
		*buf = append(*buf, v.X)
		if dim > 1 {
			*buf = append(*buf, v.Y)
		}
		if dim > 2 {
			*buf = append(*buf, v.Z)
		}
		return
	}
	for i, ch := range c.children {
		if dir.SendsChild(i) {
			ch.FillBufferVector(buf, lvl, dir, dim, sel)
		}
	}
}

// GetBufferVector consumes a vector quantity.
func (c *Cell) GetBufferVector(buf []float64, pos *int, lvl, dim int, set func(*Cell, geom.Coord)) {
	if c.lvl == lvl {
		var v geom.Coord
		v.X = buf[*pos]
		*pos++
		if dim > 1 {
			v.Y = buf[*pos]
			*pos++
		}
		if dim > 2 {
			v.Z = buf[*pos]
			*pos++
		}
		set(c, v)
		return
	}
	for _, ch := range c.children {
		ch.GetBufferVector(buf, pos, lvl, dim, set)
	}
}

// CountElementsToSend counts how many cells at the given level this
// cell contributes to the neighbor in the given direction.
func (c *Cell) CountElementsToSend(lvl int, dir Direction) int {
	if c.lvl == lvl {
		return 1
	}
	n := 0
	for i, ch := range c.children {
		if dir.SendsChild(i) {
			n += ch.CountElementsToSend(lvl, dir)
		}
	}
	return n
}

// CountElementsAtLevel counts the ghost descendants at the given
// level, the receive-side mirror of CountElementsToSend.
func (c *Cell) CountElementsAtLevel(lvl int) int {
	if c.lvl == lvl {
		return 1
	}
	n := 0
	for _, ch := range c.children {
		n += ch.CountElementsAtLevel(lvl)
	}
	return n
}
