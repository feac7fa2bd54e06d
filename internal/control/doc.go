// Package control provides feedback controllers used to roll dynamics
// forward when building simulated initial guesses.
//
// Controllers compute a control from the current state and time:
//
//   - [PID]: Proportional-Integral-Derivative controller on one state
//   - [LQR]: linear state feedback around a target state
//   - [Zero]: zero control
//
// # Usage
//
//	pid := control.NewPID(10, 0, 2, 1, 1) // Kp, Ki, Kd, target, control dim
//	x, err := dc.GuessFromSimulation(integ, control.Policy(pid))
//
// [New] builds a controller by name for a problem, with targets taken from
// the problem's final-state bounds.
package control
