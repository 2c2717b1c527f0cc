package sim

import (
	"math"

	"github.com/comp-physics/ECOGEN-CIT/mesh"
)

// FluxComputer evaluates the face fluxes of one level into the
// adjacent cells' conservative buffers. The Riemann solver behind it
// is outside the core.
type FluxComputer interface {
	ComputeFluxes(lvl int, interfaces []*mesh.CellInterface)
}

// Driver sequences the per-level primitives of the mesh core for one
// rank: adaptation sweeps, ghost refreshes, and the recursive
// per-level advance with halved time steps per level.
type Driver struct {
	Ctx    *RuntimeContext
	Mesh   *mesh.MeshCartesianAMR
	Ex     mesh.Exchanger
	Fluxes FluxComputer
	Sym    mesh.SymmetryTerms
}

// ComputeDt returns the admissible time step from the leaf CFL
// lengths and a Courant number; the reduction across ranks belongs to
// the exchanger.
func (d *Driver) ComputeDt(courant, maxWaveSpeed float64) (float64, error) {
	dt := math.MaxFloat64
	for _, c := range d.Mesh.Leaves() {
		local := courant * c.Element().LCFL / maxWaveSpeed
		if local < dt {
			dt = local
		}
	}
	return d.Ex.GlobalDtMin(dt)
}

// IntegrationProcedure advances one level and, recursively, the finer
// ones with two half steps each, running the adaptation sweep for the
// level first. The adaptation at level l may refine into l+1 but
// never beyond; the recursion picks the new cells up.
func (d *Driver) IntegrationProcedure(dt float64, lvl int) error {
	if err := d.Mesh.AMRProcedure(lvl); err != nil {
		return err
	}
	if lvl < d.Mesh.LvlMax() {
		if err := d.IntegrationProcedure(0.5*dt, lvl+1); err != nil {
			return err
		}
		if err := d.IntegrationProcedure(0.5*dt, lvl+1); err != nil {
			return err
		}
	}
	return d.advance(dt, lvl)
}

// advance runs one hyperbolic step on the leaves of a level.
func (d *Driver) advance(dt float64, lvl int) error {
	cells := d.Mesh.CellsLvl(lvl)

	for _, c := range cells {
		if c.IsLeaf() {
			c.SetToZeroCons()
		}
	}
	if d.Fluxes != nil {
		d.Fluxes.ComputeFluxes(lvl, d.Mesh.InterfacesLvl(lvl))
	}
	for _, c := range cells {
		if !c.IsLeaf() {
			continue
		}
		c.TimeEvolution(dt, d.Sym)
		c.BuildPrim()
		c.FulfillState()
		c.CheckPrimitives(d.Ctx.Errors)
	}

	if d.Ex.Active() {
		if err := d.Ex.CommunicatePrimitives(lvl); err != nil {
			return err
		}
		if err := d.Ex.CommunicateTransports(lvl); err != nil {
			return err
		}
	}
	return nil
}
