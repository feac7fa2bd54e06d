package metrics

import (
	"math"

	"github.com/san-kum/trajopt/internal/ocp"
)

// BoundViolation is the largest distance of any state or control sample
// outside its path bound.
type BoundViolation struct {
	name   string
	bounds ocp.Bounds
	worst  float64
}

func NewBoundViolation(bounds ocp.Bounds) *BoundViolation {
	return &BoundViolation{
		name:   "bound_violation",
		bounds: bounds,
	}
}

func (b *BoundViolation) Name() string { return b.name }

func (b *BoundViolation) Observe(x ocp.State, u ocp.Control, t float64) {
	for i, v := range x {
		if i < len(b.bounds.States) {
			b.worst = math.Max(b.worst, outside(b.bounds.States[i], v))
		}
	}
	for i, v := range u {
		if i < len(b.bounds.Controls) {
			b.worst = math.Max(b.worst, outside(b.bounds.Controls[i], v))
		}
	}
}

func outside(bound ocp.Bound, v float64) float64 {
	return math.Abs(v - bound.Clamp(v))
}

func (b *BoundViolation) Value() float64 { return b.worst }

func (b *BoundViolation) Reset() { b.worst = 0 }
