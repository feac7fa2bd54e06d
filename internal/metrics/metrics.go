// Package metrics scores an optimized trajectory.
package metrics

import (
	"math"

	"github.com/san-kum/trajopt/internal/integrators"
	"github.com/san-kum/trajopt/internal/ocp"
	"github.com/san-kum/trajopt/internal/transcription"
	"gonum.org/v1/gonum/floats"
)

// Metric accumulates a scalar over trajectory samples.
type Metric interface {
	Name() string
	Observe(x ocp.State, u ocp.Control, t float64)
	Value() float64
	Reset()
}

const (
	MaxDefect     = "max_defect"
	RK4FinalError = "rk4_final_error"
	Objective     = "objective"
)

// Evaluate scores x for dc. Besides the sample metrics it reports the
// largest collocation defect, the transcribed objective, and how far an
// RK4 re-simulation of the controls ends from the optimized final state.
func Evaluate(dc *transcription.DirectCollocation, x []float64) (map[string]float64, error) {
	tr, err := dc.Unpack(x)
	if err != nil {
		return nil, err
	}
	problem := dc.Problem()

	sampled := []Metric{
		NewControlEffort(dc.Weights()),
		NewBoundViolation(problem.Bounds()),
	}
	for i := 0; i < tr.Len(); i++ {
		for _, m := range sampled {
			m.Observe(tr.States[i], tr.Controls[i], tr.Times[i])
		}
	}

	out := make(map[string]float64, len(sampled)+3)
	for _, m := range sampled {
		out[m.Name()] = m.Value()
	}
	out[MaxDefect], err = dc.MaxDefect(x)
	if err != nil {
		return nil, err
	}
	out[Objective] = dc.Objective(x)

	resim, err := integrators.Rollout(integrators.NewRK4(), problem, tr.States[0], tr.Times, tr.Controls)
	if err != nil {
		return nil, err
	}
	last := tr.Len() - 1
	diff := make([]float64, len(tr.States[last]))
	floats.SubTo(diff, resim[last], tr.States[last])
	out[RK4FinalError] = 0
	if len(diff) > 0 {
		out[RK4FinalError] = floats.Norm(diff, math.Inf(1))
	}
	return out, nil
}
