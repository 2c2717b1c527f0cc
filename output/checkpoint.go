package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/comp-physics/ECOGEN-CIT/decomposition"
	"github.com/comp-physics/ECOGEN-CIT/mesh"
)

// Checkpoint format, one rank per stream:
//
//	ecogen-cit-checkpoint <run-uuid>
//	topology <count>
//	<x> <y> <z> <level> <split 0|1>        (depth-first key order)
//	primitives <count>
//	<alpha rho p>... <pmix u v w> <transports...>  (one leaf per line,
//	                                                same traversal)
//
// Resume replays the split map level by level through the refinement
// path, then loads the leaf primitives.

// WriteCheckpoint emits the rank's tree topology and leaf primitives.
func WriteCheckpoint(w io.Writer, m *mesh.MeshCartesianAMR, runID uuid.UUID) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ecogen-cit-checkpoint %s\n", runID)

	var nodes []*mesh.Cell
	var leaves []*mesh.Cell
	for _, c := range m.CellsLvl(0) {
		collectDepthFirst(c, &nodes, &leaves)
	}

	fmt.Fprintf(bw, "topology %d\n", len(nodes))
	for _, c := range nodes {
		split := 0
		if c.Split() {
			split = 1
		}
		coord := c.Key().Coordinate()
		fmt.Fprintf(bw, "%d %d %d %d %d\n", coord.X(), coord.Y(), coord.Z(), c.Level(), split)
	}

	fmt.Fprintf(bw, "primitives %d\n", len(leaves))
	for _, c := range leaves {
		s := c.State()
		for k := range s.Phases {
			fmt.Fprintf(bw, "%.17g %.17g %.17g ", s.Phases[k].Alpha, s.Phases[k].Density, s.Phases[k].Pressure)
		}
		fmt.Fprintf(bw, "%.17g %.17g %.17g %.17g", s.Mixture.Pressure,
			s.Mixture.Velocity.X, s.Mixture.Velocity.Y, s.Mixture.Velocity.Z)
		for k := range s.Transports {
			fmt.Fprintf(bw, " %.17g", s.Transports[k].Value)
		}
		fmt.Fprintf(bw, "\n")
	}
	return bw.Flush()
}

// collectDepthFirst walks a subtree parent-first, children in key
// order.
func collectDepthFirst(c *mesh.Cell, nodes, leaves *[]*mesh.Cell) {
	*nodes = append(*nodes, c)
	if c.IsLeaf() {
		*leaves = append(*leaves, c)
		return
	}
	for _, ch := range c.Children() {
		collectDepthFirst(ch, nodes, leaves)
	}
}

// Resume rebuilds the saved tree on a freshly constructed mesh by
// refining level by level until the split map is reached, then loads
// the leaf primitives. Returns the run id of the checkpoint.
func Resume(r io.Reader, m *mesh.MeshCartesianAMR) (uuid.UUID, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)

	runID, err := readHeader(sc)
	if err != nil {
		return uuid.Nil, err
	}

	splitMap, err := readTopology(sc)
	if err != nil {
		return uuid.Nil, err
	}

	// Replay the split map through the refinement path, one level at
	// a time so every refinement respects the 2:1 guards.
	for lvl := 0; lvl < m.LvlMax(); lvl++ {
		for _, c := range m.CellsLvl(lvl) {
			if !c.Split() && splitMap[c.Key()] {
				c.Refine(m.Dimension(), nil, m.Config().Order)
			}
		}
		m.RebuildLevelArrays(lvl + 1)
	}

	if err := loadPrimitives(sc, m); err != nil {
		return uuid.Nil, err
	}
	return runID, nil
}

func readHeader(sc *bufio.Scanner) (uuid.UUID, error) {
	if !sc.Scan() {
		return uuid.Nil, fmt.Errorf("checkpoint: empty stream")
	}
	var id string
	if _, err := fmt.Sscanf(sc.Text(), "ecogen-cit-checkpoint %s", &id); err != nil {
		return uuid.Nil, fmt.Errorf("checkpoint: bad header %q: %w", sc.Text(), err)
	}
	return uuid.Parse(id)
}

func readTopology(sc *bufio.Scanner) (map[decomposition.Key]bool, error) {
	if !sc.Scan() {
		return nil, fmt.Errorf("checkpoint: missing topology section")
	}
	var count int
	if _, err := fmt.Sscanf(sc.Text(), "topology %d", &count); err != nil {
		return nil, fmt.Errorf("checkpoint: bad topology header %q: %w", sc.Text(), err)
	}
	splitMap := make(map[decomposition.Key]bool, count)
	for i := 0; i < count; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("checkpoint: topology truncated at entry %d", i)
		}
		var x, y, z int64
		var lvl, split int
		if _, err := fmt.Sscanf(sc.Text(), "%d %d %d %d %d", &x, &y, &z, &lvl, &split); err != nil {
			return nil, fmt.Errorf("checkpoint: bad topology entry %q: %w", sc.Text(), err)
		}
		key := decomposition.NewKey(decomposition.Coordinate{x, y, z}, uint8(lvl))
		splitMap[key] = split == 1
	}
	return splitMap, nil
}

func loadPrimitives(sc *bufio.Scanner, m *mesh.MeshCartesianAMR) error {
	if !sc.Scan() {
		return fmt.Errorf("checkpoint: missing primitives section")
	}
	var count int
	if _, err := fmt.Sscanf(sc.Text(), "primitives %d", &count); err != nil {
		return fmt.Errorf("checkpoint: bad primitives header %q: %w", sc.Text(), err)
	}

	var leaves []*mesh.Cell
	var nodes []*mesh.Cell
	for _, c := range m.CellsLvl(0) {
		collectDepthFirst(c, &nodes, &leaves)
	}
	if len(leaves) != count {
		return fmt.Errorf("checkpoint: %d saved leaves, rebuilt tree has %d", count, len(leaves))
	}

	for _, c := range leaves {
		if !sc.Scan() {
			return fmt.Errorf("checkpoint: primitives truncated")
		}
		values := strings.Fields(sc.Text())
		s := c.State()
		want := 3*len(s.Phases) + 4 + len(s.Transports)
		if len(values) != want {
			return fmt.Errorf("checkpoint: leaf payload has %d values, want %d", len(values), want)
		}
		pos := 0
		next := func() float64 {
			var v float64
			fmt.Sscanf(values[pos], "%g", &v)
			pos++
			return v
		}
		for k := range s.Phases {
			s.Phases[k].Alpha = next()
			s.Phases[k].Density = next()
			s.Phases[k].Pressure = next()
		}
		s.Mixture.Pressure = next()
		s.Mixture.Velocity.X = next()
		s.Mixture.Velocity.Y = next()
		s.Mixture.Velocity.Z = next()
		for k := range s.Transports {
			s.Transports[k].Value = next()
		}
		c.FulfillState()
	}
	return nil
}
