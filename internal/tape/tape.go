package tape

import (
	"github.com/san-kum/trajopt/internal/sparsity"
)

// Tag identifies a tape within one adapter.
type Tag int

// Counter hands out tags. Each adapter owns its own counter so that
// independent transcriptions never share tags.
type Counter struct {
	next Tag
}

func (c *Counter) Next() Tag {
	c.next++
	return c.next
}

// Func writes f(x) into y. It must not modify x.
type Func func(y, x []float64)

// Tape is an opaque record of one traced function.
type Tape interface {
	Tag() Tag
	Inputs() int
	Outputs() int
	// Point returns a copy of the point the tape was traced at.
	Point() []float64
	// Value returns a copy of f at the traced point.
	Value() []float64
}

// Service traces functions and differentiates them.
type Service interface {
	Trace(tag Tag, f Func, outputs int, x []float64) (Tape, error)
	Value(t Tape, x, y []float64) error
	Gradient(t Tape, x, grad []float64) error
	JacobianPattern(t Tape) (*sparsity.Pattern, error)
	SparseJacobian(t Tape, x []float64, p *sparsity.Pattern, values []float64) error
	// HessianPattern returns the lower triangle of the Hessian structure.
	HessianPattern(t Tape) (*sparsity.Pattern, error)
	SparseHessian(t Tape, x []float64, p *sparsity.Pattern, values []float64) error
}
