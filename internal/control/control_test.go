package control

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/trajopt/internal/integrators"
	"github.com/san-kum/trajopt/internal/ocp"
	"github.com/san-kum/trajopt/internal/problems"
	"github.com/san-kum/trajopt/internal/transcription"
)

func TestZero(t *testing.T) {
	ctrl := NewZero(2)
	u := ctrl.Compute(ocp.State{1.0, 2.0}, 0.0)

	if len(u) != 2 {
		t.Errorf("expected 2 controls, got %d", len(u))
	}
	for i, v := range u {
		if v != 0 {
			t.Errorf("control[%d] should be 0, got %f", i, v)
		}
	}
}

func TestPID(t *testing.T) {
	ctrl := NewPID(10.0, 0.1, 5.0, 0.0, 1)
	u := ctrl.Compute(ocp.State{1.0, 0.0}, 0.0)
	if len(u) != 1 {
		t.Fatalf("expected 1 control, got %d", len(u))
	}
	if u[0] >= 0 {
		t.Error("PID should output negative control for positive error")
	}

	u = ctrl.Compute(ocp.State{0.5, 0.0}, 0.1)
	expected := 10*-0.5 + 0.1*(-0.5*0.1) + 5*(-0.5+1)/0.1
	if math.Abs(u[0]-expected) > 1e-12 {
		t.Errorf("expected %f, got %f", expected, u[0])
	}

	ctrl.Reset()
	if u := ctrl.Compute(ocp.State{1.0, 0.0}, 0.2); u[0] != -10 {
		t.Errorf("expected proportional-only output after reset, got %f", u[0])
	}
}

func TestPIDParams(t *testing.T) {
	ctrl := NewPID(1, 0, 0, 0, 1)
	if err := ctrl.SetParam("state", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u := ctrl.Compute(ocp.State{0, 2}, 0); u[0] != -2 {
		t.Errorf("expected PID on state 1 to output -2, got %f", u[0])
	}
	if err := ctrl.SetParam("gain", 1); !errors.Is(err, ocp.ErrUnknownParameter) {
		t.Errorf("expected ErrUnknownParameter, got %v", err)
	}
	if err := ctrl.SetParam("state", 0.5); !errors.Is(err, ocp.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
	if ctrl.GetParams()["state"] != 1 {
		t.Errorf("expected state 1 in params, got %v", ctrl.GetParams())
	}
}

func TestLQR(t *testing.T) {
	k := [][]float64{{1.0, 2.0}}
	target := ocp.State{0.0, 0.0}
	ctrl := NewLQR(k, target)

	u := ctrl.Compute(ocp.State{0.0, 0.0}, 0.0)
	if u[0] != 0 {
		t.Errorf("expected zero control at target, got %f", u[0])
	}

	u = ctrl.Compute(ocp.State{1.0, 0.0}, 0.0)
	if u[0] != -1 {
		t.Errorf("expected -1 away from target, got %f", u[0])
	}
}

func TestNew(t *testing.T) {
	registry := problems.NewRegistry()
	pendulum, err := registry.Configure("pendulum", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, err := New(NameLQR, "pendulum", pendulum, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u := c.Compute(ocp.State{math.Pi, 0}, 0); u[0] != 0 {
		t.Errorf("expected zero torque upright, got %f", u[0])
	}

	c, err = New(NamePID, "pendulum", pendulum, map[string]float64{"kd": 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pid := c.(*PID)
	if pid.Target != math.Pi || pid.Kd != 0 {
		t.Errorf("expected target pi and kd 0, got %f and %f", pid.Target, pid.Kd)
	}

	linear, _ := registry.Configure("linear", nil)
	if _, err := New(NameLQR, "linear", linear, nil); !errors.Is(err, ErrNoGains) {
		t.Errorf("expected ErrNoGains, got %v", err)
	}
	if _, err := New(NamePID, "pendulum", pendulum, map[string]float64{"state": 2}); !errors.Is(err, ocp.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := New("mpc", "pendulum", pendulum, nil); !errors.Is(err, ErrUnknownController) {
		t.Errorf("expected ErrUnknownController, got %v", err)
	}
}

func TestPIDDrivesSimulatedGuess(t *testing.T) {
	registry := problems.NewRegistry()
	p, err := registry.Configure("sliding-mass", map[string]float64{"duration": 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dc, err := transcription.New(p, 201)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := New(NamePID, "sliding-mass", p, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	x, err := dc.GuessFromSimulation(integrators.NewRK4(), Policy(c))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target := p.Bounds().FinalStates[0].Guess()
	final := x[dc.StateIndex(dc.Points-1, 0)]
	if math.Abs(final-target) > 0.05*math.Max(1, math.Abs(target)) {
		t.Errorf("expected PID rollout to settle near %f, got %f", target, final)
	}
	maxForce := p.Bounds().Controls[0].Upper
	for i := 0; i < dc.Points; i++ {
		if u := x[dc.ControlIndex(i, 0)]; math.Abs(u) > maxForce+1e-12 {
			t.Fatalf("mesh %d: control %f exceeds bound %f", i, u, maxForce)
		}
	}
}
