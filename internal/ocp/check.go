package ocp

import (
	"fmt"
	"math"
)

// CheckProblem validates the bounds of p and samples the dynamics and cost
// once at the initial time with a guess built from the bounds.
func CheckProblem(p Problem) error {
	ns, nc := p.StateDim(), p.ControlDim()
	if ns < 0 || nc < 0 || ns+nc == 0 {
		return fmt.Errorf("%w: %d states, %d controls", ErrDimensionMismatch, ns, nc)
	}
	b := p.Bounds()
	if err := b.Validate(ns, nc); err != nil {
		return err
	}

	x := make(State, ns)
	for i := range x {
		x[i] = b.InitialStates[i].Intersect(b.States[i]).Guess()
	}
	u := make(Control, nc)
	for i := range u {
		u[i] = b.InitialControls[i].Intersect(b.Controls[i]).Guess()
	}

	dx := p.Derive(x, u, b.InitialTime)
	if len(dx) != ns {
		return fmt.Errorf("%w: derivative has %d entries, want %d", ErrDimensionMismatch, len(dx), ns)
	}
	if !dx.IsValid() {
		return fmt.Errorf("ocp: derivative not finite at initial guess: %v", dx)
	}
	if c := p.IntegralCost(x, u, b.InitialTime); math.IsNaN(c) || math.IsInf(c, 0) {
		return fmt.Errorf("ocp: integral cost not finite at initial guess: %g", c)
	}
	return nil
}
