package integrators

import "github.com/san-kum/trajopt/internal/ocp"

// RK4 is the classical fourth-order Runge-Kutta step. The control is held
// constant over the step. Scratch space is reused between calls, so an RK4
// value must not be shared between goroutines.
type RK4 struct {
	k1, k2, k3, k4 ocp.State
	scratch        ocp.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(ocp.State, n)
		r.k2 = make(ocp.State, n)
		r.k3 = make(ocp.State, n)
		r.k4 = make(ocp.State, n)
		r.scratch = make(ocp.State, n)
	}
}

func (r *RK4) stage(sys ocp.System, x, k ocp.State, scale float64, u ocp.Control, t float64, dst ocp.State) {
	for i := range x {
		r.scratch[i] = x[i] + scale*k[i]
	}
	copy(dst, sys.Derive(r.scratch, u, t))
}

func (r *RK4) Step(sys ocp.System, x ocp.State, u ocp.Control, t, dt float64) ocp.State {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k1, sys.Derive(x, u, t))
	r.stage(sys, x, r.k1, 0.5*dt, u, t+0.5*dt, r.k2)
	r.stage(sys, x, r.k2, 0.5*dt, u, t+0.5*dt, r.k3)
	r.stage(sys, x, r.k3, dt, u, t+dt, r.k4)

	next := make(ocp.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		next[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return next
}
