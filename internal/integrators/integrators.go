// Package integrators steps controlled systems forward in time. They are
// used to roll out initial guesses and to re-simulate optimized controls.
package integrators

import (
	"errors"
	"fmt"
	"slices"

	"github.com/san-kum/trajopt/internal/ocp"
)

var ErrUnknownIntegrator = errors.New("integrators: unknown integrator")

var registry = map[string]func() ocp.Integrator{
	"euler": func() ocp.Integrator { return NewEuler() },
	"rk4":   func() ocp.Integrator { return NewRK4() },
}

func New(name string) (ocp.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIntegrator, name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Rollout integrates sys over times starting at x0. Interval k uses
// controls[k+1], which matches the control the collocation defects
// attach to the end of each interval. It returns one state per time.
func Rollout(integ ocp.Integrator, sys ocp.System, x0 ocp.State, times []float64, controls []ocp.Control) ([]ocp.State, error) {
	if len(controls) != len(times) {
		return nil, fmt.Errorf("%w: %d controls for %d times", ocp.ErrDimensionMismatch, len(controls), len(times))
	}
	if len(x0) != sys.StateDim() {
		return nil, fmt.Errorf("%w: initial state has %d entries, want %d", ocp.ErrDimensionMismatch, len(x0), sys.StateDim())
	}
	if len(times) == 0 {
		return nil, nil
	}
	states := make([]ocp.State, len(times))
	states[0] = x0.Clone()
	for k := 1; k < len(times); k++ {
		t, dt := times[k-1], times[k]-times[k-1]
		states[k] = integ.Step(sys, states[k-1], controls[k], t, dt)
	}
	return states, nil
}
