// Package ocp defines continuous-time optimal control problems.
//
// A problem couples a controlled dynamical system (dX/dt = f(X, u, t)) with
// an integral cost and a set of bounds:
//
//   - [System]: the controlled ODE
//   - [Problem]: System plus running cost and [Bounds]
//   - [Bound]: closed interval, possibly infinite on either side
//
// Problems are read-only descriptions. The transcription package turns them
// into finite-dimensional programs; this package never evaluates a mesh.
//
// # Example
//
//	p := problems.NewSlider()
//	if err := ocp.CheckProblem(p); err != nil {
//		return err
//	}
package ocp
