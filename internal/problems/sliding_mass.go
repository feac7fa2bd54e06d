package problems

import (
	"fmt"

	"github.com/san-kum/trajopt/internal/ocp"
)

const (
	DefaultMass     = 1.0
	DefaultMaxForce = 10.0
)

// SlidingMass is a single damped mass on a spring. The state is
// (position, velocity) and the control is the applied force. The mass
// starts and ends at rest.
type SlidingMass struct {
	Mass      float64
	Stiffness float64
	Damping   float64
	Distance  float64
	MaxForce  float64
	Duration  float64
}

func NewSlidingMass() *SlidingMass {
	return &SlidingMass{
		Mass:     DefaultMass,
		Distance: 1.0,
		MaxForce: DefaultMaxForce,
		Duration: 2.0,
	}
}

func (s *SlidingMass) StateDim() int   { return 2 }
func (s *SlidingMass) ControlDim() int { return 1 }

func (s *SlidingMass) Derive(x ocp.State, u ocp.Control, t float64) ocp.State {
	pos, vel := x[0], x[1]
	force := u[0] - s.Stiffness*pos - s.Damping*vel
	return ocp.State{vel, force / s.Mass}
}

func (s *SlidingMass) IntegralCost(x ocp.State, u ocp.Control, t float64) float64 {
	return u[0] * u[0]
}

func (s *SlidingMass) Bounds() ocp.Bounds {
	b := ocp.FreeBounds(2, 1, 0, s.Duration)
	b.InitialStates = []ocp.Bound{ocp.Fixed(0), ocp.Fixed(0)}
	b.FinalStates = []ocp.Bound{ocp.Fixed(s.Distance), ocp.Fixed(0)}
	b.Controls[0] = ocp.Range(-s.MaxForce, s.MaxForce)
	return b
}

func (s *SlidingMass) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":      s.Mass,
		"stiffness": s.Stiffness,
		"damping":   s.Damping,
		"distance":  s.Distance,
		"max_force": s.MaxForce,
		"duration":  s.Duration,
	}
}

func (s *SlidingMass) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if value <= 0 {
			return fmt.Errorf("%w: mass must be positive, got %g", ocp.ErrParameterBounds, value)
		}
		s.Mass = value
	case "stiffness":
		s.Stiffness = value
	case "damping":
		s.Damping = value
	case "distance":
		s.Distance = value
	case "max_force":
		if value <= 0 {
			return fmt.Errorf("%w: max_force must be positive, got %g", ocp.ErrParameterBounds, value)
		}
		s.MaxForce = value
	case "duration":
		if value <= 0 {
			return fmt.Errorf("%w: duration must be positive, got %g", ocp.ErrParameterBounds, value)
		}
		s.Duration = value
	default:
		return fmt.Errorf("%w: %s", ocp.ErrUnknownParameter, name)
	}
	return nil
}
