// Package model carries the narrow physics contracts the mesh core
// consumes: primitive state containers, the conservative Flux
// accumulator, and the Model capability set. The core never looks
// inside these beyond the operations declared here.
package model

import "github.com/comp-physics/ECOGEN-CIT/geom"

// Phase holds the primitive variables of one fluid phase.
type Phase struct {
	Alpha    float64 // volume fraction
	Density  float64
	Pressure float64
}

// Mixture holds the mixture-level primitive variables shared by the
// phases of a homogeneous-equilibrium cell.
type Mixture struct {
	Density     float64
	Pressure    float64
	TotalEnergy float64
	Velocity    geom.Coord
}

// Transport is a passively advected scalar.
type Transport struct {
	Value float64
}

func (t *Transport) Add(v float64) { t.Value += v }

// State is the primitive state of one cell. Cells embed it; Model and
// Flux operations see only this view.
type State struct {
	Phases     []Phase
	Mixture    Mixture
	Transports []Transport
}

// CopyFrom copies primitives and transports from another state of the
// same shape.
func (s *State) CopyFrom(o *State) {
	copy(s.Phases, o.Phases)
	s.Mixture = o.Mixture
	copy(s.Transports, o.Transports)
}

// Flux is a model-specific conservative accumulator. A cell owns one
// as its update buffer; interfaces add Riemann fluxes into it and the
// cell applies it over a time step.
type Flux interface {
	// SetToZero clears every conservative slot.
	SetToZero()
	// BuildCons fills the flux with the conservative image of a
	// primitive state.
	BuildCons(s *State)
	// BuildPrim reconstructs primitives from the conservative slots.
	BuildPrim(s *State)
	// Add accumulates coef times another flux of the same layout.
	Add(o Flux, coef float64)
	// Multiply scales every slot.
	Multiply(coef float64)
	// Clone returns a zeroed flux of the same layout.
	Clone() Flux
	// NumVars returns the number of conservative slots.
	NumVars() int
}

// Model is the capability set the core requires of a physical model.
type Model interface {
	// AllocateFlux returns a zeroed conservative accumulator for the
	// given number of phases.
	AllocateFlux(numberPhases int) Flux
	// FulfillState completes derived thermodynamic variables after
	// primitives change (ghost unpack, coarsening, initialization).
	FulfillState(s *State)
	// Relaxations applies model relaxation procedures after a
	// primitive rebuild.
	Relaxations(s *State)
	// Velocity extracts the transporting velocity of a state.
	Velocity(s *State) geom.Coord
	// NumberTransmittedVariables is the flat payload size of one
	// state's primitives on the wire.
	NumberTransmittedVariables(numberPhases, numberTransports int) int
}
