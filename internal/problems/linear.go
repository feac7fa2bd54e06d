package problems

import (
	"fmt"

	"github.com/san-kum/trajopt/internal/ocp"
)

// Linear is the scalar system xdot = A*x + B*u driven from Start to Target.
type Linear struct {
	A        float64
	B        float64
	Start    float64
	Target   float64
	Duration float64
}

func NewLinear() *Linear {
	return &Linear{A: -1.0, B: 1.0, Start: 0.0, Target: 1.0, Duration: 1.0}
}

func (l *Linear) StateDim() int   { return 1 }
func (l *Linear) ControlDim() int { return 1 }

func (l *Linear) Derive(x ocp.State, u ocp.Control, t float64) ocp.State {
	return ocp.State{l.A*x[0] + l.B*u[0]}
}

func (l *Linear) IntegralCost(x ocp.State, u ocp.Control, t float64) float64 {
	return u[0] * u[0]
}

func (l *Linear) Bounds() ocp.Bounds {
	b := ocp.FreeBounds(1, 1, 0, l.Duration)
	b.InitialStates[0] = ocp.Fixed(l.Start)
	b.FinalStates[0] = ocp.Fixed(l.Target)
	return b
}

func (l *Linear) GetParams() map[string]float64 {
	return map[string]float64{
		"a":        l.A,
		"b":        l.B,
		"x0":       l.Start,
		"xf":       l.Target,
		"duration": l.Duration,
	}
}

func (l *Linear) SetParam(name string, value float64) error {
	switch name {
	case "a":
		l.A = value
	case "b":
		if value == 0 {
			return fmt.Errorf("%w: b must be nonzero", ocp.ErrParameterBounds)
		}
		l.B = value
	case "x0":
		l.Start = value
	case "xf":
		l.Target = value
	case "duration":
		if value <= 0 {
			return fmt.Errorf("%w: duration must be positive, got %g", ocp.ErrParameterBounds, value)
		}
		l.Duration = value
	default:
		return fmt.Errorf("%w: %s", ocp.ErrUnknownParameter, name)
	}
	return nil
}
