// Package transcription turns a continuous optimal control problem into a
// finite-dimensional nonlinear program by direct collocation on a uniform
// mesh.
//
// Variables are laid out mesh point by mesh point, states before controls:
//
//	x = [x_0 u_0 | x_1 u_1 | ... | x_{N-1} u_{N-1}]
//
// Constraints are the initial states, final states, initial controls and
// final controls, followed by one backward-Euler defect per interval and
// state:
//
//	d_{i,s} = x_i[s] - (x_{i-1}[s] + h*f(t_i, x_i, u_i)[s]),  i = 1..N-1
//
// Each defect row touches the variables of mesh points i-1 and i only.
//
// The running cost defaults to the right-rectangle rule
// J = h*sum_{i=1}^{N-1} L(t_i, x_i, u_i). It is neither the left-biased sum
// L_0 + h*sum_{i>=1} L_i nor the trapezoid; both remain available through
// WithQuadrature. The right rectangle samples each interval at the same
// point as its defect, so an interval's cost and dynamics see the same
// control. u_0 then carries no cost and no dynamics, and it is pinned only
// by its bounds. With it a unit slider moved in unit time has the exact
// optimum J = 1. The trapezoid gives 0.95 because it halves the cost of the
// last sample, and the left-biased sum adds an unscaled L_0.
package transcription
