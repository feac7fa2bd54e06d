package integrators

import "github.com/san-kum/trajopt/internal/ocp"

// Euler is the explicit first-order step x + dt*f(x, u, t).
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys ocp.System, x ocp.State, u ocp.Control, t float64, dt float64) ocp.State {
	dx := sys.Derive(x, u, t)
	next := make(ocp.State, len(x))
	for i := range x {
		next[i] = x[i] + dt*dx[i]
	}
	return next
}
