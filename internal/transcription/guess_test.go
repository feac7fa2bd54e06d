package transcription

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/trajopt/internal/ocp"
)

type eulerStep struct{}

func (eulerStep) Step(sys ocp.System, x ocp.State, u ocp.Control, t, dt float64) ocp.State {
	return x.Add(sys.Derive(x, u, t).Scale(dt))
}

func TestGuessFromBoundsInterpolates(t *testing.T) {
	dc, err := New(newLinear(0, 1), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	x := dc.GuessFromBounds()
	for i := 0; i < dc.Points; i++ {
		expected := float64(i) / 4
		if got := x[dc.StateIndex(i, 0)]; math.Abs(got-expected) > 1e-15 {
			t.Errorf("mesh %d: expected state %g, got %g", i, expected, got)
		}
		if got := x[dc.ControlIndex(i, 0)]; got != 0 {
			t.Errorf("mesh %d: expected free control guess 0, got %g", i, got)
		}
	}
}

func TestGuessFromBoundsUsesPathMidpoint(t *testing.T) {
	p := newLinear(0, 1)
	p.bounds.Controls[0] = ocp.Range(2, 4)
	p.bounds.InitialControls[0] = ocp.Range(2, 4)
	p.bounds.FinalControls[0] = ocp.Range(2, 4)
	dc, err := New(p, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	x := dc.GuessFromBounds()
	for i := 0; i < dc.Points; i++ {
		if got := x[dc.ControlIndex(i, 0)]; got != 3 {
			t.Errorf("mesh %d: expected control 3, got %g", i, got)
		}
	}
}

func TestGuessFromSimulation(t *testing.T) {
	dc, err := New(newLinear(0, 1), 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	policy := func(t float64, x ocp.State) ocp.Control { return ocp.Control{2} }
	x, err := dc.GuessFromSimulation(eulerStep{}, policy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := x[dc.StateIndex(dc.Points-1, 0)]
	if math.Abs(last-2) > 1e-12 {
		t.Errorf("expected final state 2, got %g", last)
	}

	bad := func(t float64, x ocp.State) ocp.Control { return ocp.Control{1, 2} }
	if _, err := dc.GuessFromSimulation(eulerStep{}, bad); !errors.Is(err, ocp.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestGuessFromSimulationMatchesDefects(t *testing.T) {
	dc, err := New(newLinear(0, 1), 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ramp := func(t float64, x ocp.State) ocp.Control { return ocp.Control{1 + 3*t} }
	x, err := dc.GuessFromSimulation(eulerStep{}, ramp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	worst, err := dc.MaxDefect(x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if worst > 1e-12 {
		t.Errorf("expected zero defects for an Euler rollout, got %g", worst)
	}
	for i := 1; i < dc.Points; i++ {
		expected := 1 + 3*dc.Mesh().Time(i-1)
		if got := x[dc.ControlIndex(i, 0)]; math.Abs(got-expected) > 1e-12 {
			t.Errorf("mesh %d: expected control %g from t=%g, got %g", i, expected, dc.Mesh().Time(i-1), got)
		}
	}
	if got := x[dc.ControlIndex(0, 0)]; got != x[dc.ControlIndex(1, 0)] {
		t.Errorf("expected point 0 to repeat the first control, got %g", got)
	}
}

func TestPackUnpack(t *testing.T) {
	dc, err := New(&multi{}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	x := make([]float64, dc.NumVariables())
	for i := range x {
		x[i] = float64(i)
	}
	tr, err := dc.Unpack(x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Len() != 4 || tr.Times[3] != 2 {
		t.Errorf("expected 4 points ending at t=2, got %d ending at %g", tr.Len(), tr.Times[tr.Len()-1])
	}
	if tr.Controls[1][0] != x[dc.ControlIndex(1, 0)] {
		t.Errorf("control mismatch after unpack")
	}
	back, err := dc.Pack(tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range x {
		if back[i] != x[i] {
			t.Fatalf("entry %d: expected %g, got %g", i, x[i], back[i])
		}
	}

	if _, err := dc.Unpack(x[1:]); !errors.Is(err, ErrGuessLength) {
		t.Errorf("expected ErrGuessLength, got %v", err)
	}
}
