package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comp-physics/ECOGEN-CIT/geom"
)

func uniformState(m *HomogeneousEquilibrium, rho, p float64) *State {
	n := len(m.Gamma)
	s := &State{Phases: make([]Phase, n)}
	for k := range s.Phases {
		s.Phases[k] = Phase{Alpha: 1 / float64(n), Density: rho, Pressure: p}
	}
	s.Mixture.Pressure = p
	m.FulfillState(s)
	return s
}

func TestConsPrimRoundTripSinglePhase(t *testing.T) {
	m := NewHomogeneousEquilibrium(1.4)
	s := uniformState(m, 1, 1)

	f := m.AllocateFlux(1)
	f.BuildCons(s)

	out := &State{Phases: make([]Phase, 1)}
	f.BuildPrim(out)

	assert.Equal(t, 1.0, out.Phases[0].Density)
	assert.Equal(t, 1.0, out.Phases[0].Alpha)
	assert.InDelta(t, 1.0, out.Mixture.Pressure, 1e-12)
	assert.Equal(t, geom.Coord{}, out.Mixture.Velocity)
}

func TestConsPrimRoundTripTwoPhase(t *testing.T) {
	m := NewHomogeneousEquilibrium(1.4, 2.1)
	s := &State{Phases: []Phase{
		{Alpha: 0.25, Density: 2, Pressure: 3},
		{Alpha: 0.75, Density: 8, Pressure: 3},
	}}
	s.Mixture.Pressure = 3
	s.Mixture.Velocity = geom.Coord{X: 0.5}
	m.FulfillState(s)

	f := m.AllocateFlux(2)
	f.BuildCons(s)
	out := &State{Phases: make([]Phase, 2)}
	f.BuildPrim(out)

	assert.InDelta(t, 0.25, out.Phases[0].Alpha, 1e-14)
	assert.InDelta(t, 2.0, out.Phases[0].Density, 1e-12)
	assert.InDelta(t, 8.0, out.Phases[1].Density, 1e-12)
	assert.InDelta(t, 3.0, out.Mixture.Pressure, 1e-10)
	assert.InDelta(t, 0.5, out.Mixture.Velocity.X, 1e-13)
}

func TestFluxAveragingOfIdenticalStatesIsExact(t *testing.T) {
	m := NewHomogeneousEquilibrium(1.4)
	s := uniformState(m, 1, 1)

	acc := m.AllocateFlux(1)
	buf := m.AllocateFlux(1)
	for i := 0; i < 4; i++ {
		buf.BuildCons(s)
		acc.Add(buf, 1)
	}
	acc.Multiply(1.0 / 4.0)

	out := &State{Phases: make([]Phase, 1)}
	acc.BuildPrim(out)
	assert.Equal(t, 1.0, out.Phases[0].Density)
	assert.InDelta(t, 1.0, out.Mixture.Pressure, 1e-14)
}

func TestRelaxationsEqualizePhasePressures(t *testing.T) {
	m := NewHomogeneousEquilibrium(1.4, 1.6)
	s := &State{Phases: []Phase{
		{Alpha: 0.5, Density: 1, Pressure: 2},
		{Alpha: 0.5, Density: 1, Pressure: 4},
	}}
	s.Mixture.Pressure = 3
	m.Relaxations(s)
	assert.Equal(t, 3.0, s.Phases[0].Pressure)
	assert.Equal(t, 3.0, s.Phases[1].Pressure)
}

func TestNumberTransmittedVariablesMatchesWireLayout(t *testing.T) {
	m := NewHomogeneousEquilibrium(1.4, 1.6)
	// 3 per phase + mixture pressure and velocity + transports.
	require.Equal(t, 3*2+4+3, m.NumberTransmittedVariables(2, 3))
}
