package parallel

import (
	"sort"

	"github.com/comp-physics/ECOGEN-CIT/geom"
	"github.com/comp-physics/ECOGEN-CIT/mesh"
	"github.com/comp-physics/ECOGEN-CIT/model"
)

// sendEntry pairs an owned cell with the direction label recorded
// when the cell was first registered against the neighbor. The label
// drives the child filter when the subtree is traversed above the
// exchange level.
type sendEntry struct {
	cell *mesh.Cell
	dir  mesh.Direction
}

// neighborList holds one neighbor's ordered send and receive
// sequences. Both are Morton sorted so send[i] on this rank pairs
// with recv[i] on the peer without any out-of-band tagging.
type neighborList struct {
	rank         int
	send         []sendEntry
	recv         []*mesh.Cell
	expectedRecv map[int]int // per-level ghost element counts
}

// Exchange implements the mesh Exchanger over a Communicator.
type Exchange struct {
	comm Communicator
	errs *mesh.ErrorList

	varsPerCell      int
	numberTransports int
	dim              int

	lists map[int]*neighborList
	ranks []int // sorted neighbor ranks
}

// NewExchange sizes the exchange for a model's primitive payload.
func NewExchange(comm Communicator, mdl model.Model, numberPhases, numberTransports, dim int,
	errs *mesh.ErrorList) *Exchange {
	if errs == nil {
		errs = &mesh.ErrorList{}
	}
	return &Exchange{
		comm:             comm,
		errs:             errs,
		varsPerCell:      mdl.NumberTransmittedVariables(numberPhases, numberTransports),
		numberTransports: numberTransports,
		dim:              dim,
		lists:            make(map[int]*neighborList),
	}
}

func (e *Exchange) Active() bool { return e.comm.Size() > 1 }

func (e *Exchange) list(rank int) *neighborList {
	l, ok := e.lists[rank]
	if !ok {
		l = &neighborList{rank: rank, expectedRecv: make(map[int]int)}
		e.lists[rank] = l
		e.ranks = append(e.ranks, rank)
		sort.Ints(e.ranks)
	}
	return l
}

func (e *Exchange) SetNeighbor(rank int) { e.list(rank) }

// AddCellToSend registers an owned cell against a neighbor once; the
// first face that discovered the neighbor fixes the direction label.
func (e *Exchange) AddCellToSend(rank int, c *mesh.Cell, dir mesh.Direction) {
	l := e.list(rank)
	for _, s := range l.send {
		if s.cell == c {
			return
		}
	}
	l.send = append(l.send, sendEntry{cell: c, dir: dir})
}

func (e *Exchange) AddCellToReceive(rank int, c *mesh.Cell) {
	l := e.list(rank)
	l.recv = append(l.recv, c)
}

// FinishTopology orders both sequences on the curve and verifies the
// base-level counts pairwise with every neighbor.
func (e *Exchange) FinishTopology() error {
	for _, l := range e.lists {
		sort.Slice(l.send, func(i, j int) bool {
			return l.send[i].cell.Key().Less(l.send[j].cell.Key())
		})
		sort.Slice(l.recv, func(i, j int) bool {
			return l.recv[i].Key().Less(l.recv[j].Key())
		})
		l.expectedRecv[0] = len(l.recv)
	}
	return e.verifyCounts(0)
}

// verifyCounts exchanges element counts at a level and fails the
// collective when a pair disagrees.
func (e *Exchange) verifyCounts(lvl int) error {
	for _, rank := range e.ranks {
		l := e.lists[rank]
		sendCount := 0
		for _, s := range l.send {
			sendCount += s.cell.CountElementsToSend(lvl, s.dir)
		}
		recvCount := 0
		for _, g := range l.recv {
			recvCount += g.CountElementsAtLevel(lvl)
		}
		peer, err := e.comm.SendRecvInt(rank, []int{sendCount})
		if err != nil {
			return mesh.Errorf(mesh.ExchangeError, "count exchange with rank %d: %v", rank, err)
		}
		if len(peer) != 1 {
			return mesh.Errorf(mesh.ExchangeError, "rank %d sent %d count values", rank, len(peer))
		}
		if peer[0] != recvCount {
			return mesh.Errorf(mesh.ExchangeError,
				"level %d: rank %d sends %d elements, local ghosts expect %d",
				lvl, rank, peer[0], recvCount)
		}
		l.expectedRecv[lvl] = recvCount
	}
	return nil
}

// CommunicateGhostCellCounts refreshes the per-neighbor element
// counts used to size the level's buffers.
func (e *Exchange) CommunicateGhostCellCounts(lvl int) error {
	return e.verifyCounts(lvl)
}

// exchangeFloat64 runs one packed float payload against every
// neighbor and hands the received buffer to unpack.
func (e *Exchange) exchangeFloat64(lvl int,
	pack func(c *mesh.Cell, dir mesh.Direction, buf *[]float64),
	unpack func(g *mesh.Cell, buf []float64, pos *int)) error {

	for _, rank := range e.ranks {
		l := e.lists[rank]
		var buf []float64
		for _, s := range l.send {
			pack(s.cell, s.dir, &buf)
		}
		recv, err := e.comm.SendRecvFloat64(rank, buf)
		if err != nil {
			return mesh.Errorf(mesh.ExchangeError, "exchange with rank %d: %v", rank, err)
		}
		pos := 0
		for _, g := range l.recv {
			unpack(g, recv, &pos)
		}
		if pos != len(recv) {
			return mesh.Errorf(mesh.ExchangeError,
				"level %d: consumed %d of %d values from rank %d", lvl, pos, len(recv), rank)
		}
	}
	return nil
}

// CommunicatePrimitives refreshes the ghost primitives at one level.
func (e *Exchange) CommunicatePrimitives(lvl int) error {
	return e.exchangeFloat64(lvl,
		func(c *mesh.Cell, dir mesh.Direction, buf *[]float64) {
			c.FillBufferPrimitives(buf, lvl, dir)
		},
		func(g *mesh.Cell, buf []float64, pos *int) {
			g.GetBufferPrimitives(buf, pos, lvl)
		})
}

// CommunicateXi refreshes the ghost refinement indicators.
func (e *Exchange) CommunicateXi(lvl int) error {
	return e.exchangeFloat64(lvl,
		func(c *mesh.Cell, dir mesh.Direction, buf *[]float64) {
			c.FillBufferXi(buf, lvl, dir)
		},
		func(g *mesh.Cell, buf []float64, pos *int) {
			g.GetBufferXi(buf, pos, lvl)
		})
}

// CommunicateTransports refreshes the ghost transported scalars.
func (e *Exchange) CommunicateTransports(lvl int) error {
	if e.numberTransports == 0 {
		return nil
	}
	return e.exchangeFloat64(lvl,
		func(c *mesh.Cell, dir mesh.Direction, buf *[]float64) {
			c.FillBufferTransports(buf, lvl, dir)
		},
		func(g *mesh.Cell, buf []float64, pos *int) {
			g.GetBufferTransports(buf, pos, lvl)
		})
}

// CommunicateVector refreshes one ghost vector quantity, dim
// components per cell; additional-physics gradients ride this path.
func (e *Exchange) CommunicateVector(lvl int,
	sel func(*mesh.Cell) geom.Coord, set func(*mesh.Cell, geom.Coord)) error {
	return e.exchangeFloat64(lvl,
		func(c *mesh.Cell, dir mesh.Direction, buf *[]float64) {
			c.FillBufferVector(buf, lvl, dir, e.dim, sel)
		},
		func(g *mesh.Cell, buf []float64, pos *int) {
			g.GetBufferVector(buf, pos, lvl, e.dim, set)
		})
}

// CommunicateSplit mirrors the owners' split decisions onto the ghost
// cells at one level.
func (e *Exchange) CommunicateSplit(lvl int) error {
	for _, rank := range e.ranks {
		l := e.lists[rank]
		var buf []bool
		for _, s := range l.send {
			s.cell.FillBufferSplit(&buf, lvl, s.dir)
		}
		recv, err := e.comm.SendRecvBool(rank, buf)
		if err != nil {
			return mesh.Errorf(mesh.ExchangeError, "split exchange with rank %d: %v", rank, err)
		}
		pos := 0
		for _, g := range l.recv {
			g.GetBufferSplit(recv, &pos, lvl)
		}
		if pos != len(recv) {
			return mesh.Errorf(mesh.ExchangeError,
				"level %d: consumed %d of %d split flags from rank %d", lvl, pos, len(recv), rank)
		}
	}
	return nil
}

// GlobalDtMin reduces the admissible time step across all ranks.
func (e *Exchange) GlobalDtMin(dt float64) (float64, error) {
	return e.comm.AllReduceMin(dt)
}

// VerifyErrorsCollectively aborts the collective when any rank
// recorded a fatal error since the last barrier.
func (e *Exchange) VerifyErrorsCollectively() error {
	worst, err := e.comm.AllReduceMaxInt(e.errs.Len())
	if err != nil {
		return mesh.Errorf(mesh.ExchangeError, "error verification: %v", err)
	}
	if worst > 0 {
		return mesh.Errorf(mesh.ExchangeError,
			"a rank reported %d error(s); aborting the collective", worst)
	}
	return nil
}

// SendLists exposes the per-neighbor send lengths, mainly for
// verification in tests and diagnostics.
func (e *Exchange) SendLists() map[int]int {
	out := make(map[int]int, len(e.lists))
	for rank, l := range e.lists {
		out[rank] = len(l.send)
	}
	return out
}

// RecvLists exposes the per-neighbor receive lengths.
func (e *Exchange) RecvLists() map[int]int {
	out := make(map[int]int, len(e.lists))
	for rank, l := range e.lists {
		out[rank] = len(l.recv)
	}
	return out
}
