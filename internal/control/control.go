package control

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/san-kum/trajopt/internal/ocp"
)

const (
	NameZero = "zero"
	NamePID  = "pid"
	NameLQR  = "lqr"
)

var (
	// ErrUnknownController indicates a controller name that is not registered.
	ErrUnknownController = errors.New("control: unknown controller")

	// ErrNoGains indicates an LQR requested for a problem without stored gains.
	ErrNoGains = errors.New("control: no LQR gains for problem")
)

type Controller interface {
	Compute(x ocp.State, t float64) ocp.Control
}

// Policy adapts c to the policy signature used by guess rollouts.
func Policy(c Controller) ocp.Policy {
	return func(t float64, x ocp.State) ocp.Control {
		return c.Compute(x, t)
	}
}

func Names() []string {
	return []string{NameLQR, NamePID, NameZero}
}

// New builds the named controller for p. The PID tracks the final-state
// guess of the state it watches and the LQR regulates around the full
// final-state guess. params go to SetParam and are only accepted by the
// PID.
func New(name, problem string, p ocp.Problem, params map[string]float64) (Controller, error) {
	var c Controller
	switch name {
	case NameZero:
		c = NewZero(p.ControlDim())
	case NamePID:
		if p.StateDim() == 0 {
			return nil, fmt.Errorf("%w: pid needs at least one state", ocp.ErrDimensionMismatch)
		}
		pid := NewPID(DefaultKp, DefaultKi, DefaultKd, 0, p.ControlDim())
		for _, k := range slices.Sorted(maps.Keys(params)) {
			if err := pid.SetParam(k, params[k]); err != nil {
				return nil, err
			}
		}
		if pid.State >= p.StateDim() {
			return nil, fmt.Errorf("%w: pid state %d, problem has %d", ocp.ErrDimensionMismatch, pid.State, p.StateDim())
		}
		if _, ok := params["target"]; !ok {
			pid.Target = finalGuess(p)[pid.State]
		}
		c = pid
	case NameLQR:
		k, ok := gains[problem]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNoGains, problem)
		}
		if len(k) != p.ControlDim() || len(k[0]) != p.StateDim() {
			return nil, fmt.Errorf("%w: gains %dx%d for %d controls, %d states",
				ocp.ErrDimensionMismatch, len(k), len(k[0]), p.ControlDim(), p.StateDim())
		}
		if len(params) > 0 {
			return nil, fmt.Errorf("%w: lqr takes no parameters", ocp.ErrUnknownParameter)
		}
		c = NewLQR(k, finalGuess(p))
	default:
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownController, name, Names())
	}
	return c, nil
}

func finalGuess(p ocp.Problem) ocp.State {
	b := p.Bounds()
	x := make(ocp.State, p.StateDim())
	for s := range x {
		x[s] = b.FinalStates[s].Intersect(b.States[s]).Guess()
	}
	return x
}
