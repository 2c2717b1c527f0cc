package model

import (
	"github.com/comp-physics/ECOGEN-CIT/geom"
)

// HomogeneousEquilibrium is a pressure- and velocity-equilibrium
// multiphase model with ideal-gas phases. It is the reference model
// used to drive the mesh core; richer models plug in through the same
// interfaces.
type HomogeneousEquilibrium struct {
	// Gamma holds the heat-capacity ratio per phase.
	Gamma []float64
}

func NewHomogeneousEquilibrium(gamma ...float64) *HomogeneousEquilibrium {
	return &HomogeneousEquilibrium{Gamma: gamma}
}

func (m *HomogeneousEquilibrium) AllocateFlux(numberPhases int) Flux {
	return &equilibriumFlux{
		model:  m,
		masses: make([]float64, numberPhases),
		alphas: make([]float64, numberPhases),
	}
}

// FulfillState recomputes the mixture aggregates from the phases.
func (m *HomogeneousEquilibrium) FulfillState(s *State) {
	rho := 0.0
	for k := range s.Phases {
		rho += s.Phases[k].Alpha * s.Phases[k].Density
	}
	s.Mixture.Density = rho
	u2 := s.Mixture.Velocity.Dot(s.Mixture.Velocity)
	s.Mixture.TotalEnergy = m.internalEnergy(s) + 0.5*u2
}

// Relaxations drives the phase pressures back to the common mixture
// pressure.
func (m *HomogeneousEquilibrium) Relaxations(s *State) {
	for k := range s.Phases {
		s.Phases[k].Pressure = s.Mixture.Pressure
	}
}

func (m *HomogeneousEquilibrium) Velocity(s *State) geom.Coord {
	return s.Mixture.Velocity
}

func (m *HomogeneousEquilibrium) NumberTransmittedVariables(numberPhases, numberTransports int) int {
	// Per phase: alpha, density, pressure. Mixture: pressure, velocity
	// components. Plus transports.
	return 3*numberPhases + 4 + numberTransports
}

// internalEnergy evaluates the mixture specific internal energy from
// the phase EOS set.
func (m *HomogeneousEquilibrium) internalEnergy(s *State) float64 {
	rho := s.Mixture.Density
	if rho <= 0 {
		return 0
	}
	e := 0.0
	for k := range s.Phases {
		ph := s.Phases[k]
		if ph.Alpha <= 0 {
			continue
		}
		e += ph.Alpha * ph.Pressure / (m.Gamma[k] - 1)
	}
	return e / rho
}

// eosDenominator is the alpha-weighted sum inverting the mixture
// internal energy back to a pressure: rho*e = p * sum(alpha/(gamma-1)).
func (m *HomogeneousEquilibrium) eosDenominator(alphas []float64) float64 {
	den := 0.0
	for k, a := range alphas {
		den += a / (m.Gamma[k] - 1)
	}
	return den
}

// equilibriumFlux is the conservative layout of the model: per-phase
// partial masses, per-phase advected volume fractions, mixture
// momentum and mixture total energy.
type equilibriumFlux struct {
	model    *HomogeneousEquilibrium
	masses   []float64
	alphas   []float64
	momentum geom.Coord
	energy   float64
}

func (f *equilibriumFlux) SetToZero() {
	for k := range f.masses {
		f.masses[k] = 0
		f.alphas[k] = 0
	}
	f.momentum = geom.Coord{}
	f.energy = 0
}

func (f *equilibriumFlux) BuildCons(s *State) {
	rho := 0.0
	for k := range s.Phases {
		f.masses[k] = s.Phases[k].Alpha * s.Phases[k].Density
		f.alphas[k] = s.Phases[k].Alpha
		rho += f.masses[k]
	}
	f.momentum = s.Mixture.Velocity.Scale(rho)
	f.energy = rho * s.Mixture.TotalEnergy
}

func (f *equilibriumFlux) BuildPrim(s *State) {
	rho := 0.0
	for _, mk := range f.masses {
		rho += mk
	}
	for k := range s.Phases {
		s.Phases[k].Alpha = f.alphas[k]
		if f.alphas[k] > 1e-12 {
			s.Phases[k].Density = f.masses[k] / f.alphas[k]
		} else {
			s.Phases[k].Density = 0
		}
	}
	s.Mixture.Density = rho
	if rho > 1e-12 {
		s.Mixture.Velocity = f.momentum.Scale(1 / rho)
		s.Mixture.TotalEnergy = f.energy / rho
	} else {
		s.Mixture.Velocity = geom.Coord{}
		s.Mixture.TotalEnergy = 0
	}
	// Pressure from the mixture EOS. Dividing by the same
	// denominator FulfillState multiplied with keeps the
	// refine/coarsen round trip of a uniform state exact.
	u2 := s.Mixture.Velocity.Dot(s.Mixture.Velocity)
	eint := s.Mixture.TotalEnergy - 0.5*u2
	den := f.model.eosDenominator(f.alphas)
	if den > 1e-12 {
		s.Mixture.Pressure = rho * eint / den
	} else {
		s.Mixture.Pressure = 0
	}
	for k := range s.Phases {
		s.Phases[k].Pressure = s.Mixture.Pressure
	}
}

func (f *equilibriumFlux) Add(o Flux, coef float64) {
	of := o.(*equilibriumFlux)
	for k := range f.masses {
		f.masses[k] += coef * of.masses[k]
		f.alphas[k] += coef * of.alphas[k]
	}
	f.momentum = f.momentum.Add(of.momentum.Scale(coef))
	f.energy += coef * of.energy
}

func (f *equilibriumFlux) Multiply(coef float64) {
	for k := range f.masses {
		f.masses[k] *= coef
		f.alphas[k] *= coef
	}
	f.momentum = f.momentum.Scale(coef)
	f.energy *= coef
}

func (f *equilibriumFlux) Clone() Flux {
	return f.model.AllocateFlux(len(f.masses))
}

func (f *equilibriumFlux) NumVars() int {
	return 2*len(f.masses) + 4
}
