package nlp

import (
	"fmt"
	"time"
)

// Program is a nonlinear program in the form
//
//	minimize f(x)  subject to  xl <= x <= xu,  gl <= g(x) <= gu.
type Program interface {
	NumVariables() int
	NumConstraints() int
	VariableBounds() (lower, upper []float64)
	ConstraintBounds() (lower, upper []float64)
	Objective(x []float64) float64
	Constraints(x, g []float64)
}

// Callbacks is what a backend may call during one solve. newX tells that x
// differs from the point of the previous call. Derivative callbacks return
// structure when values is nil and fill values otherwise.
type Callbacks interface {
	NumVariables() int
	NumConstraints() int
	NumJacobianNonzeros() (int, error)
	NumHessianNonzeros() (int, error)

	Bounds(xl, xu, gl, gu []float64) error
	StartingPoint(initX, initZ, initLambda bool, x []float64) error

	Objective(x []float64, newX bool) (float64, error)
	ObjectiveGradient(x []float64, newX bool, grad []float64) error
	Constraints(x []float64, newX bool, g []float64) error
	Jacobian(x []float64, newX bool, rows, cols []int, values []float64) error
	Hessian(x []float64, newX bool, objFactor float64, lambda []float64, newLambda bool, rows, cols []int, values []float64) error

	Intermediate(it Iteration)
	Finalize(result Solution) error
}

type Phase int

const (
	Uninitialized Phase = iota
	BoundsQueried
	StartingPointSet
	Iterating
	Finalized
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case BoundsQueried:
		return "bounds-queried"
	case StartingPointSet:
		return "starting-point-set"
	case Iterating:
		return "iterating"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Status is the backend's stop reason.
type Status int

const (
	Unknown Status = iota
	Solved
	IterationLimit
	Infeasible
	SearchFailed
	EvaluationError
	Canceled
	Failed
)

func (s Status) String() string {
	switch s {
	case Solved:
		return "solved"
	case IterationLimit:
		return "iteration-limit"
	case Infeasible:
		return "infeasible"
	case SearchFailed:
		return "search-failed"
	case EvaluationError:
		return "evaluation-error"
	case Canceled:
		return "canceled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Status) Converged() bool {
	return s == Solved
}

// Iteration is one progress report from the backend.
type Iteration struct {
	Index         int
	Objective     float64
	Infeasibility float64
	Optimality    float64
	Penalty       float64
}

type Observer func(Iteration)

// Solution is the record a backend hands to Finalize. Multiplier slices may
// be nil when the backend does not produce them.
type Solution struct {
	X                     []float64
	Objective             float64
	LowerBoundMultipliers []float64
	UpperBoundMultipliers []float64
	ConstraintMultipliers []float64
	Status                Status
	Iterations            int
	Message               string
	Elapsed               time.Duration
}

func (s Solution) clone() Solution {
	out := s
	out.X = cloneOrNil(s.X)
	out.LowerBoundMultipliers = cloneOrNil(s.LowerBoundMultipliers)
	out.UpperBoundMultipliers = cloneOrNil(s.UpperBoundMultipliers)
	out.ConstraintMultipliers = cloneOrNil(s.ConstraintMultipliers)
	return out
}

func cloneOrNil(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// Stats counts callbacks and tape traces during one solve.
type Stats struct {
	Objective   int
	Gradient    int
	Constraints int
	Jacobian    int
	Hessian     int
	Traces      map[string]int
}
