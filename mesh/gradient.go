package mesh

import (
	"math"

	"github.com/comp-physics/ECOGEN-CIT/geom"
)

// GradientVar selects the cell-centered variable a gradient is taken
// of.
type GradientVar int

const (
	GradRho GradientVar = iota
	GradP
	GradU
	GradV
	GradW
	GradAlpha
	GradTransport
)

func (v GradientVar) isVelocity() bool {
	return v == GradU || v == GradV || v == GradW
}

// SelectScalar extracts a scalar from the cell state. num picks the
// phase (or transport index) for per-phase variables; mixture
// quantities are used when more than one phase is present.
func (c *Cell) SelectScalar(v GradientVar, num int) float64 {
	switch v {
	case GradRho:
		if c.NumberPhases() > 1 {
			return c.state.Mixture.Density
		}
		return c.state.Phases[num].Density
	case GradP:
		if c.NumberPhases() > 1 {
			return c.state.Mixture.Pressure
		}
		return c.state.Phases[num].Pressure
	case GradU:
		return c.state.Mixture.Velocity.X
	case GradV:
		return c.state.Mixture.Velocity.Y
	case GradW:
		return c.state.Mixture.Velocity.Z
	case GradAlpha:
		if c.NumberPhases() > 1 {
			return c.state.Phases[num].Alpha
		}
		return 1
	default:
		return c.state.Transports[num].Value
	}
}

// ComputeGradient evaluates the cell gradient of the selected
// variable from its unsplit face neighbors, normalized per axis by
// the accumulated neighbor distances. Absorption faces widen the
// denominator only; Wall and Symmetry faces contribute one-sided
// velocity gradients against a mirrored zero, with the Symmetry
// gradient additionally projected on the face normal so it vanishes
// tangentially.
func (c *Cell) ComputeGradient(v GradientVar, num int) geom.Coord {
	var grad geom.Coord
	sumDist := geom.Coord{}

	for _, ci := range c.interfaces {
		if ci.Split() {
			continue
		}
		switch ci.Kind() {
		case Internal:
			l, r := ci.Left(), ci.Right()
			d := l.Position().Sub(r.Position())
			dist := d.Norm()
			g := (r.SelectScalar(v, num) - l.SelectScalar(v, num)) / dist

			proj := ci.face.Normal.Scale(g)
			dAbs := geom.Coord{X: math.Abs(d.X), Y: math.Abs(d.Y), Z: math.Abs(d.Z)}
			grad = grad.Add(geom.Coord{X: proj.X * dAbs.X, Y: proj.Y * dAbs.Y, Z: proj.Z * dAbs.Z})
			sumDist = sumDist.Add(dAbs)

		case Absorption, Inflow, Outflow:
			d := c.distanceToFace(&ci.face).Scale(2)
			sumDist = sumDist.Add(d)

		case Wall, Symmetry:
			d := c.distanceToFace(&ci.face).Scale(2)
			if v.isVelocity() {
				// One-sided gradient against the mirrored value,
				// which is zero on the face.
				cg := ci.Left().SelectScalar(v, num)
				dist := ci.Left().Position().Sub(ci.face.Position).Norm()
				g := -cg / dist
				if ci.Kind() == Symmetry {
					// Tangential components are unconstrained at a
					// symmetry plane.
					switch v {
					case GradU:
						g *= ci.face.Normal.X
					case GradV:
						g *= ci.face.Normal.Y
					case GradW:
						g *= ci.face.Normal.Z
					}
				}
				proj := ci.face.Normal.Scale(g)
				grad = grad.Add(geom.Coord{X: proj.X * d.X, Y: proj.Y * d.Y, Z: proj.Z * d.Z})
			}
			sumDist = sumDist.Add(d)
		}
	}

	// Axes with no contributing neighbor are skipped by clamping the
	// denominator.
	if sumDist.X <= 1e-12 {
		sumDist.X = 1
	}
	if sumDist.Y <= 1e-12 {
		sumDist.Y = 1
	}
	if sumDist.Z <= 1e-12 {
		sumDist.Z = 1
	}
	return geom.Coord{X: grad.X / sumDist.X, Y: grad.Y / sumDist.Y, Z: grad.Z / sumDist.Z}
}

// distanceToFace returns the absolute per-axis distance from the cell
// center to a face center.
func (c *Cell) distanceToFace(f *Face) geom.Coord {
	d := c.Position().Sub(f.Position)
	return geom.Coord{X: math.Abs(d.X), Y: math.Abs(d.Y), Z: math.Abs(d.Z)}
}

// GradientNorm returns the density gradient magnitude, the default
// scalar emitted to output writers.
func (c *Cell) GradientNorm() float64 {
	return c.ComputeGradient(GradRho, 0).Norm()
}
