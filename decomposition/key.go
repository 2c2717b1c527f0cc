package decomposition

// Coordinate is an integer grid coordinate at some refinement level.
// Level 0 spans the base grid; each level doubles the resolution.
type Coordinate [3]int64

func (c Coordinate) X() int64 { return c[0] }
func (c Coordinate) Y() int64 { return c[1] }
func (c Coordinate) Z() int64 { return c[2] }

func (c Coordinate) Add(o Coordinate) Coordinate {
	return Coordinate{c[0] + o[0], c[1] + o[1], c[2] + o[2]}
}

func (c Coordinate) Sub(o Coordinate) Coordinate {
	return Coordinate{c[0] - o[0], c[1] - o[1], c[2] - o[2]}
}

// Key identifies a cell on the space-filling curve: an integer
// coordinate plus the refinement level it lives on. Keys are unique
// within a level; across levels they are ordered after normalizing to
// the finer level, with the coarser key first on ties so a parent
// always precedes its first child.
type Key struct {
	coord Coordinate
	level uint8
}

func NewKey(coord Coordinate, level uint8) Key {
	return Key{coord: coord, level: level}
}

func (k Key) Coordinate() Coordinate { return k.coord }
func (k Key) Level() uint8           { return k.level }

// spread inserts two zero bits between each of the low 21 bits of v.
func spread(v uint64) uint64 {
	v &= 0x1fffff
	v = (v | v<<32) & 0x1f00000000ffff
	v = (v | v<<16) & 0x1f0000ff0000ff
	v = (v | v<<8) & 0x100f00f00f00f00f
	v = (v | v<<4) & 0x10c30c30c30c30c3
	v = (v | v<<2) & 0x1249249249249249
	return v
}

// Index returns the bit-interleaved Morton code of the key's
// coordinate at its own level.
func (k Key) Index() uint64 {
	return spread(uint64(k.coord[0])) |
		spread(uint64(k.coord[1]))<<1 |
		spread(uint64(k.coord[2]))<<2
}

// Child returns the i-th child key (i in 0..2^dim) at level+1. Bit 0
// of i selects the +x half, bit 1 the +y half, bit 2 the +z half.
func (k Key) Child(i int) Key {
	return Key{
		coord: Coordinate{
			2*k.coord[0] + int64(i&1),
			2*k.coord[1] + int64((i>>1)&1),
			2*k.coord[2] + int64((i>>2)&1),
		},
		level: k.level + 1,
	}
}

// Parent returns the key one level coarser.
func (k Key) Parent() Key {
	return Key{
		coord: Coordinate{k.coord[0] >> 1, k.coord[1] >> 1, k.coord[2] >> 1},
		level: k.level - 1,
	}
}

// Neighbor returns the same-level key offset by the given coordinate
// step. The result is undefined outside the domain; callers bounds
// check through Decomposition.IsInside.
func (k Key) Neighbor(offset Coordinate) Key {
	return Key{coord: k.coord.Add(offset), level: k.level}
}

// ChildIndex returns which child slot this key occupies under its
// parent (the bit pattern fed to Child).
func (k Key) ChildIndex() int {
	return int(k.coord[0]&1) | int(k.coord[1]&1)<<1 | int(k.coord[2]&1)<<2
}

func (k Key) Equal(o Key) bool {
	return k.level == o.level && k.coord == o.coord
}

// Less orders keys on the curve. Keys at different levels are
// normalized to the finer level before comparing Morton codes; on
// equal codes the coarser key comes first.
func (k Key) Less(o Key) bool {
	finer := k.level
	if o.level > finer {
		finer = o.level
	}
	ki := Key{coord: Coordinate{
		k.coord[0] << (finer - k.level),
		k.coord[1] << (finer - k.level),
		k.coord[2] << (finer - k.level),
	}}.Index()
	oi := Key{coord: Coordinate{
		o.coord[0] << (finer - o.level),
		o.coord[1] << (finer - o.level),
		o.coord[2] << (finer - o.level),
	}}.Index()
	if ki != oi {
		return ki < oi
	}
	return k.level < o.level
}

// AncestorAt returns the ancestor of k at the given coarser level.
func (k Key) AncestorAt(level uint8) Key {
	shift := k.level - level
	return Key{
		coord: Coordinate{k.coord[0] >> shift, k.coord[1] >> shift, k.coord[2] >> shift},
		level: level,
	}
}
