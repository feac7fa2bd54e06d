package metrics

import (
	"github.com/san-kum/trajopt/internal/ocp"
	"gonum.org/v1/gonum/floats"
)

// ControlEffort integrates the squared control norm over the mesh with the
// same quadrature weights as the objective. Samples must arrive in mesh
// order; samples past the last weight are ignored.
type ControlEffort struct {
	name    string
	weights []float64
	energy  float64
	next    int
}

func NewControlEffort(weights []float64) *ControlEffort {
	return &ControlEffort{
		name:    "control_effort",
		weights: weights,
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(x ocp.State, u ocp.Control, t float64) {
	if c.next >= len(c.weights) {
		return
	}
	c.energy += c.weights[c.next] * floats.Dot(u, u)
	c.next++
}

func (c *ControlEffort) Value() float64 {
	return c.energy
}

func (c *ControlEffort) Reset() {
	c.energy = 0
	c.next = 0
}
