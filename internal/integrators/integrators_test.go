package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/trajopt/internal/ocp"
)

type oscillator struct{}

func (oscillator) Derive(x ocp.State, u ocp.Control, t float64) ocp.State {
	return ocp.State{x[1], -x[0]}
}
func (oscillator) StateDim() int   { return 2 }
func (oscillator) ControlDim() int { return 0 }

type pushed struct{}

func (pushed) Derive(x ocp.State, u ocp.Control, t float64) ocp.State { return ocp.State{u[0]} }
func (pushed) StateDim() int                                          { return 1 }
func (pushed) ControlDim() int                                        { return 1 }

func TestRK4Accuracy(t *testing.T) {
	integ := NewRK4()
	x := ocp.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(oscillator{}, x, nil, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)
	if math.Abs(x[0]-expectedX) > 1e-8 {
		t.Errorf("position error too large: got %.10f, expected %.10f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-8 {
		t.Errorf("velocity error too large: got %.10f, expected %.10f", x[1], expectedV)
	}
}

func TestEulerFirstOrder(t *testing.T) {
	x := NewEuler().Step(oscillator{}, ocp.State{1, 0}, nil, 0, 0.1)
	if x[0] != 1 || x[1] != -0.1 {
		t.Errorf("expected [1 -0.1], got %v", x)
	}
}

func TestStepDoesNotModifyInput(t *testing.T) {
	x := ocp.State{1, 0}
	for _, name := range Names() {
		integ, err := New(name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		integ.Step(oscillator{}, x, nil, 0, 0.1)
		if x[0] != 1 || x[1] != 0 {
			t.Errorf("%s modified its input: %v", name, x)
		}
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("verlet"); !errors.Is(err, ErrUnknownIntegrator) {
		t.Errorf("expected ErrUnknownIntegrator, got %v", err)
	}
}

func TestRolloutUsesEndOfIntervalControl(t *testing.T) {
	times := []float64{0, 0.5, 1}
	controls := []ocp.Control{{100}, {1}, {3}}
	states, err := Rollout(NewEuler(), pushed{}, ocp.State{0}, times, controls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []float64{0, 0.5, 2}
	for i, s := range states {
		if math.Abs(s[0]-expected[i]) > 1e-12 {
			t.Errorf("state %d: expected %g, got %g", i, expected[i], s[0])
		}
	}

	if _, err := Rollout(NewEuler(), pushed{}, ocp.State{0}, times, controls[:2]); !errors.Is(err, ocp.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func BenchmarkRK4(b *testing.B) {
	integ := NewRK4()
	x := ocp.State{1.0, 0.0}
	for i := 0; i < b.N; i++ {
		x = integ.Step(oscillator{}, x, nil, 0, 0.01)
	}
}
