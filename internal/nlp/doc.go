// Package nlp connects a transcribed program to a nonlinear programming
// backend.
//
// The [Adapter] implements [Callbacks], the call contract a backend drives:
//
//	Uninitialized -> BoundsQueried -> StartingPointSet -> Iterating -> Finalized
//
// Bounds are queried once, the starting point is handed over verbatim, and
// evaluation callbacks may then arrive in any order until the backend calls
// Finalize exactly once. Derivative callbacks have a structure mode (values
// is nil, index lists are filled) and a value mode.
//
// Derivatives come from a [Provider] that keeps three tapes: the objective,
// the constraints, and the Lagrangian. The first two are reused while the
// point does not move. The Lagrangian tape bakes in the objective factor and
// the multipliers, which change on every iteration, so it is traced afresh
// for every Hessian request.
//
// An Adapter serves exactly one solve and is not safe for concurrent use.
package nlp
