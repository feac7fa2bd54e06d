// Package problems provides built-in optimal control problems.
//
// Each problem implements [ocp.Problem] and [ocp.Configurable]:
//
//   - [Slider]: unit mass point moved a given distance, xdot = u
//   - [Linear]: scalar linear system xdot = a*x + b*u
//   - [SlidingMass]: damped mass on a spring, position and velocity states
//   - [Pendulum]: torque-limited pendulum swing-up
//   - [CartPole]: force-limited cart-pole swing-up
//
// All problems minimize the integral of the squared control. Use
// [NewRegistry] to look problems up by name:
//
//	r := problems.NewRegistry()
//	p, err := r.Get("pendulum")
package problems
