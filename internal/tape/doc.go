// Package tape defines the derivative service used by the NLP adapter.
//
// A [Tape] records one function at one point. The [Service] evaluates the
// function and its first and second derivatives from a tape and reports the
// structural sparsity of those derivatives. Tapes are only valid near the
// point they were traced at; callers retrace when the point moves.
//
// [FiniteDifference] is the bundled service. It treats the traced function
// as a black box and builds derivatives with gonum's diff/fd formulas,
// compressing Jacobian columns by coloring and differencing Hessians only
// on their structural nonzeros.
package tape
