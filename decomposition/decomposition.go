package decomposition

import (
	"fmt"
	"sort"
)

// Decomposition partitions the base grid among ranks by contiguous
// ranges on the Morton curve. It is consulted only for base-level
// neighbors: refined cells inherit the rank of their base ancestor.
type Decomposition struct {
	nx, ny, nz int64
	numRanks   int

	keys   []Key // all base cells, Morton sorted
	starts []int // starts[r] is the offset of rank r's range; len numRanks+1
}

// NewDecomposition flattens the numberCellsX x numberCellsY x
// numberCellsZ base grid onto the Morton curve and splits it into
// numRanks contiguous ranges of near-equal length.
func NewDecomposition(numberCellsX, numberCellsY, numberCellsZ, numRanks int) (*Decomposition, error) {
	if numberCellsX < 1 || numberCellsY < 1 || numberCellsZ < 1 {
		return nil, fmt.Errorf("decomposition: invalid grid %dx%dx%d",
			numberCellsX, numberCellsY, numberCellsZ)
	}
	total := numberCellsX * numberCellsY * numberCellsZ
	if numRanks < 1 || numRanks > total {
		return nil, fmt.Errorf("decomposition: %d ranks for %d base cells", numRanks, total)
	}

	d := &Decomposition{
		nx:       int64(numberCellsX),
		ny:       int64(numberCellsY),
		nz:       int64(numberCellsZ),
		numRanks: numRanks,
		keys:     make([]Key, 0, total),
	}
	for z := int64(0); z < d.nz; z++ {
		for y := int64(0); y < d.ny; y++ {
			for x := int64(0); x < d.nx; x++ {
				d.keys = append(d.keys, NewKey(Coordinate{x, y, z}, 0))
			}
		}
	}
	sort.Slice(d.keys, func(i, j int) bool { return d.keys[i].Index() < d.keys[j].Index() })

	// Near-equal contiguous ranges: the first total%numRanks ranks get
	// one extra cell.
	d.starts = make([]int, numRanks+1)
	base, extra := total/numRanks, total%numRanks
	offset := 0
	for r := 0; r < numRanks; r++ {
		d.starts[r] = offset
		offset += base
		if r < extra {
			offset++
		}
	}
	d.starts[numRanks] = total
	return d, nil
}

// NumRanks returns the number of ranks the grid is split across.
func (d *Decomposition) NumRanks() int { return d.numRanks }

// KeysOf returns the Morton-sorted base-level keys owned by rank.
func (d *Decomposition) KeysOf(rank int) []Key {
	ks := d.keys[d.starts[rank]:d.starts[rank+1]]
	out := make([]Key, len(ks))
	copy(out, ks)
	return out
}

// RankOf locates the rank owning key. Keys above the base level are
// normalized to their base ancestor first.
func (d *Decomposition) RankOf(key Key) int {
	base := key
	if key.Level() > 0 {
		base = key.AncestorAt(0)
	}
	idx := base.Index()
	pos := sort.Search(len(d.keys), func(i int) bool { return d.keys[i].Index() >= idx })
	return sort.Search(d.numRanks, func(r int) bool { return d.starts[r+1] > pos })
}

// IsInside reports whether a base-level coordinate lies in the domain.
func (d *Decomposition) IsInside(coord Coordinate) bool {
	return coord[0] >= 0 && coord[0] < d.nx &&
		coord[1] >= 0 && coord[1] < d.ny &&
		coord[2] >= 0 && coord[2] < d.nz
}
