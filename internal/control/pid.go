package control

import (
	"fmt"
	"math"

	"github.com/san-kum/trajopt/internal/ocp"
)

const (
	DefaultKp = 10.0
	DefaultKi = 0.0
	DefaultKd = 2.0
)

// PID drives x[State] to Target through the first control. Remaining
// controls are zero. The integral and derivative terms are built from
// successive Compute calls, so a PID must be reset or rebuilt before it
// drives a new rollout.
type PID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64
	State  int

	dim      int
	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd, target float64, dim int) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		dim:    dim,
		first:  true,
	}
}

func (p *PID) Compute(x ocp.State, t float64) ocp.Control {
	u := make(ocp.Control, p.dim)
	if p.dim == 0 || p.State >= len(x) {
		return u
	}

	err := p.Target - x[p.State]

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		u[0] = p.Kp * err
		return u
	}

	dt := t - p.prevT
	if dt > 0 {
		p.integral += err * dt
		derivative := (err - p.prevErr) / dt
		u[0] = p.Kp*err + p.Ki*p.integral + p.Kd*derivative

		p.prevErr = err
		p.prevT = t
		return u
	}
	u[0] = p.Kp * err
	return u
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"kp":     p.Kp,
		"ki":     p.Ki,
		"kd":     p.Kd,
		"target": p.Target,
		"state":  float64(p.State),
	}
}

func (p *PID) SetParam(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s must be finite, got %g", ocp.ErrParameterBounds, name, value)
	}
	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	case "target":
		p.Target = value
	case "state":
		if value < 0 || value != math.Trunc(value) {
			return fmt.Errorf("%w: state must be a non-negative index, got %g", ocp.ErrParameterBounds, value)
		}
		p.State = int(value)
	default:
		return fmt.Errorf("%w: pid %q", ocp.ErrUnknownParameter, name)
	}
	return nil
}
