package transcription

import (
	"fmt"

	"github.com/san-kum/trajopt/internal/ocp"
)

func (dc *DirectCollocation) endpointGuesses() (x0, xf ocp.State, u0, uf ocp.Control) {
	b := dc.bounds
	x0, xf = make(ocp.State, dc.States), make(ocp.State, dc.States)
	for s := range x0 {
		x0[s] = b.InitialStates[s].Intersect(b.States[s]).Guess()
		xf[s] = b.FinalStates[s].Intersect(b.States[s]).Guess()
	}
	u0, uf = make(ocp.Control, dc.Controls), make(ocp.Control, dc.Controls)
	for c := range u0 {
		u0[c] = b.InitialControls[c].Intersect(b.Controls[c]).Guess()
		uf[c] = b.FinalControls[c].Intersect(b.Controls[c]).Guess()
	}
	return x0, xf, u0, uf
}

// GuessFromBounds builds a starting point from the bounds alone. Endpoints
// take the guess of their initial/final bound. Interior points take the
// guess of the path bound, or, when the path bound is free, the linear
// interpolation between the endpoint guesses.
func (dc *DirectCollocation) GuessFromBounds() []float64 {
	x0, xf, u0, uf := dc.endpointGuesses()
	b := dc.bounds
	last := dc.Points - 1
	x := make([]float64, dc.NumVariables())

	for i := 0; i <= last; i++ {
		frac := float64(i) / float64(last)
		for s := 0; s < dc.States; s++ {
			x[dc.StateIndex(i, s)] = pick(i, last, frac, x0[s], xf[s], b.States[s])
		}
		for c := 0; c < dc.Controls; c++ {
			x[dc.ControlIndex(i, c)] = pick(i, last, frac, u0[c], uf[c], b.Controls[c])
		}
	}
	return x
}

func pick(i, last int, frac, first, final float64, path ocp.Bound) float64 {
	switch {
	case i == 0:
		return first
	case i == last:
		return final
	case path.IsFree():
		return first + frac*(final-first)
	default:
		return path.Clamp(first + frac*(final-first))
	}
}

// GuessFromSimulation rolls the dynamics forward from the initial-state
// guess with integ, one step per mesh interval. The step from mesh point
// i-1 to i uses the control stored at point i, the control the backward
// Euler defect of that interval sees. Controls come from policy, evaluated
// at the start of each interval, or from the bound guesses when policy is
// nil; with a policy, point 0 repeats the first interval's control. Policy
// controls and simulated states are clamped to their path bounds.
func (dc *DirectCollocation) GuessFromSimulation(integ ocp.Integrator, policy ocp.Policy) ([]float64, error) {
	if integ == nil {
		return nil, fmt.Errorf("transcription: nil integrator")
	}
	fallback := dc.GuessFromBounds()
	control := func(i int, t float64, x ocp.State) (ocp.Control, error) {
		if policy == nil {
			return dc.controls(fallback, i).Clone(), nil
		}
		u := policy(t, x)
		if len(u) != dc.Controls {
			return nil, fmt.Errorf("%w: policy returned %d controls, want %d", ocp.ErrDimensionMismatch, len(u), dc.Controls)
		}
		u = u.Clone()
		for c := range u {
			u[c] = dc.bounds.Controls[c].Clamp(u[c])
		}
		return u, nil
	}

	state, _, _, _ := dc.endpointGuesses()
	dc.clampStates(state)
	x := make([]float64, dc.NumVariables())
	copy(x[dc.StateIndex(0, 0):], state)
	h := dc.mesh.Step()
	for i := 1; i < dc.Points; i++ {
		t := dc.mesh.Time(i - 1)
		u, err := control(i, t, state)
		if err != nil {
			return nil, err
		}
		copy(x[dc.ControlIndex(i, 0):], u)
		if i == 1 {
			first := u
			if policy == nil {
				first = dc.controls(fallback, 0)
			}
			copy(x[dc.ControlIndex(0, 0):], first)
		}
		if dc.States > 0 {
			state = integ.Step(dc.problem, state, u, t, h)
			if !state.IsValid() {
				return nil, fmt.Errorf("transcription: simulated guess diverged at t=%g", t+h)
			}
			dc.clampStates(state)
		}
		copy(x[dc.StateIndex(i, 0):], state)
	}
	return x, nil
}

func (dc *DirectCollocation) clampStates(x ocp.State) {
	for s := range x {
		x[s] = dc.bounds.States[s].Clamp(x[s])
	}
}
