package geom

import "math"

// Coord is a 3-component vector used for positions, sizes, normals and
// velocities throughout the mesh core.
type Coord struct {
	X, Y, Z float64
}

func NewCoord(x, y, z float64) Coord { return Coord{X: x, Y: y, Z: z} }

func (c Coord) Add(o Coord) Coord { return Coord{c.X + o.X, c.Y + o.Y, c.Z + o.Z} }

func (c Coord) Sub(o Coord) Coord { return Coord{c.X - o.X, c.Y - o.Y, c.Z - o.Z} }

func (c Coord) Scale(s float64) Coord { return Coord{s * c.X, s * c.Y, s * c.Z} }

func (c Coord) Dot(o Coord) float64 { return c.X*o.X + c.Y*o.Y + c.Z*o.Z }

func (c Coord) Norm() float64 { return math.Sqrt(c.Dot(c)) }

// Component returns the d-th component (0=X, 1=Y, 2=Z).
func (c Coord) Component(d int) float64 {
	switch d {
	case 0:
		return c.X
	case 1:
		return c.Y
	default:
		return c.Z
	}
}

// SetComponent returns a copy with the d-th component replaced.
func (c Coord) SetComponent(d int, v float64) Coord {
	switch d {
	case 0:
		c.X = v
	case 1:
		c.Y = v
	default:
		c.Z = v
	}
	return c
}
