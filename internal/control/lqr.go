package control

import (
	"math"

	"github.com/san-kum/trajopt/internal/ocp"
)

// LQR is the state feedback u = -K (x - Target).
type LQR struct {
	K      [][]float64
	Target ocp.State
}

func NewLQR(k [][]float64, target ocp.State) *LQR {
	return &LQR{K: k, Target: target}
}

func (l *LQR) Compute(x ocp.State, t float64) ocp.Control {
	u := make(ocp.Control, len(l.K))
	for i := range u {
		for j := range x {
			target := 0.0
			if j < len(l.Target) {
				target = l.Target[j]
			}
			if j < len(l.K[i]) {
				u[i] -= l.K[i][j] * (x[j] - target)
			}
		}
	}
	return u
}

// Gains linearized about the upright or resting final state of each
// built-in problem, in that problem's state order.
var gains = map[string][][]float64{
	"pendulum":     {{31.62, 10.0}},
	"cartpole":     {{-1.0, -1.73, 35.36, 8.94}},
	"sliding-mass": {{10.0, 6.32}},
	"slider":       {{math.Sqrt(10)}},
}
