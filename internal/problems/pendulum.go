package problems

import (
	"fmt"
	"math"

	"github.com/san-kum/trajopt/internal/ocp"
)

// Pendulum swings a damped pendulum from hanging (theta = 0) to upright
// (theta = pi) with a bounded torque. The state is (theta, omega).
type Pendulum struct {
	Mass      float64
	Length    float64
	Damping   float64
	Gravity   float64
	MaxTorque float64
	Duration  float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:      1.0,
		Length:    1.0,
		Damping:   0.1,
		Gravity:   9.81,
		MaxTorque: 5.0,
		Duration:  3.0,
	}
}

func (p *Pendulum) StateDim() int   { return 2 }
func (p *Pendulum) ControlDim() int { return 1 }

func (p *Pendulum) Derive(x ocp.State, u ocp.Control, t float64) ocp.State {
	theta, omega := x[0], x[1]
	inertia := p.Mass * p.Length * p.Length
	alpha := (u[0] - p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta)) / inertia
	return ocp.State{omega, alpha}
}

func (p *Pendulum) IntegralCost(x ocp.State, u ocp.Control, t float64) float64 {
	return u[0] * u[0]
}

func (p *Pendulum) Bounds() ocp.Bounds {
	b := ocp.FreeBounds(2, 1, 0, p.Duration)
	b.States[0] = ocp.Range(-2*math.Pi, 2*math.Pi)
	b.States[1] = ocp.Range(-20, 20)
	b.InitialStates = []ocp.Bound{ocp.Fixed(0), ocp.Fixed(0)}
	b.FinalStates = []ocp.Bound{ocp.Fixed(math.Pi), ocp.Fixed(0)}
	b.Controls[0] = ocp.Range(-p.MaxTorque, p.MaxTorque)
	return b
}

// Energy is kinetic plus potential energy, zero when hanging at rest.
func (p *Pendulum) Energy(x ocp.State) float64 {
	v := p.Length * x[1]
	ke := 0.5 * p.Mass * v * v
	pe := p.Mass * p.Gravity * p.Length * (1.0 - math.Cos(x[0]))
	return ke + pe
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":       p.Mass,
		"length":     p.Length,
		"damping":    p.Damping,
		"gravity":    p.Gravity,
		"max_torque": p.MaxTorque,
		"duration":   p.Duration,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "mass", "length", "max_torque", "duration":
		if value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", ocp.ErrParameterBounds, name, value)
		}
	}
	switch name {
	case "mass":
		p.Mass = value
	case "length":
		p.Length = value
	case "damping":
		p.Damping = value
	case "gravity":
		p.Gravity = value
	case "max_torque":
		p.MaxTorque = value
	case "duration":
		p.Duration = value
	default:
		return fmt.Errorf("%w: %s", ocp.ErrUnknownParameter, name)
	}
	return nil
}
