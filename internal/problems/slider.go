package problems

import (
	"fmt"

	"github.com/san-kum/trajopt/internal/ocp"
)

// Slider moves a point from rest at 0 to Distance in Duration seconds with
// xdot = u. The optimum is constant velocity.
type Slider struct {
	Distance float64
	Duration float64
}

func NewSlider() *Slider {
	return &Slider{Distance: 1.0, Duration: 1.0}
}

func (s *Slider) StateDim() int   { return 1 }
func (s *Slider) ControlDim() int { return 1 }

func (s *Slider) Derive(x ocp.State, u ocp.Control, t float64) ocp.State {
	return ocp.State{u[0]}
}

func (s *Slider) IntegralCost(x ocp.State, u ocp.Control, t float64) float64 {
	return u[0] * u[0]
}

func (s *Slider) Bounds() ocp.Bounds {
	b := ocp.FreeBounds(1, 1, 0, s.Duration)
	b.InitialStates[0] = ocp.Fixed(0)
	b.FinalStates[0] = ocp.Fixed(s.Distance)
	return b
}

func (s *Slider) GetParams() map[string]float64 {
	return map[string]float64{
		"distance": s.Distance,
		"duration": s.Duration,
	}
}

func (s *Slider) SetParam(name string, value float64) error {
	switch name {
	case "distance":
		s.Distance = value
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
