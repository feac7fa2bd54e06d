package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/trajopt/internal/nlp"
	"github.com/san-kum/trajopt/internal/ocp"
	"github.com/san-kum/trajopt/internal/transcription"
)

type slider struct {
	control ocp.Bound
}

func (slider) Derive(x ocp.State, u ocp.Control, t float64) ocp.State { return ocp.State{u[0]} }
func (slider) StateDim() int                                          { return 1 }
func (slider) ControlDim() int                                        { return 1 }
func (slider) IntegralCost(x ocp.State, u ocp.Control, t float64) float64 {
	return u[0] * u[0]
}
func (s slider) Bounds() ocp.Bounds {
	b := ocp.FreeBounds(1, 1, 0, 1)
	b.InitialStates[0] = ocp.Fixed(0)
	b.FinalStates[0] = ocp.Fixed(1)
	b.Controls[0] = s.control
	return b
}

func newSlider(t *testing.T, control ocp.Bound) *transcription.DirectCollocation {
	t.Helper()
	dc, err := transcription.New(slider{control: control}, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return dc
}

type recordingBackend struct {
	calls int
}

func (*recordingBackend) Name() string                     { return "recording" }
func (*recordingBackend) Options() OptionSet               { return OptionSet{} }
func (*recordingBackend) HessianApproximations() []string { return []string{HessianExact} }
func (b *recordingBackend) Solve(ctx context.Context, cb nlp.Callbacks, opts Options) error {
	b.calls++
	return nil
}

type emptyProgram struct{}

func (emptyProgram) NumVariables() int                       { return 0 }
func (emptyProgram) NumConstraints() int                     { return 0 }
func (emptyProgram) VariableBounds() (lower, upper []float64) { return nil, nil }
func (emptyProgram) ConstraintBounds() (lower, upper []float64) {
	return nil, nil
}
func (emptyProgram) Objective(x []float64) float64 { return 0 }
func (emptyProgram) Constraints(x, g []float64)    {}

func TestOptimizeRejectsShortGuess(t *testing.T) {
	dc := newSlider(t, ocp.Free())
	backend := &recordingBackend{}
	s := New(backend)

	guess := dc.GuessFromBounds()
	_, err := s.Optimize(context.Background(), dc, guess[:len(guess)-1])
	if !errors.Is(err, ErrGuessLength) {
		t.Fatalf("expected ErrGuessLength, got %v", err)
	}
	if backend.calls != 0 {
		t.Errorf("expected no backend calls, got %d", backend.calls)
	}
}

func TestOptimizeRejectsEmptyProgram(t *testing.T) {
	backend := &recordingBackend{}
	_, err := New(backend).Optimize(context.Background(), emptyProgram{}, nil)
	if !errors.Is(err, ErrEmptyProblem) {
		t.Fatalf("expected ErrEmptyProblem, got %v", err)
	}
	if backend.calls != 0 {
		t.Errorf("expected no backend calls, got %d", backend.calls)
	}
}

func TestOptimizeRequiresFinalize(t *testing.T) {
	dc := newSlider(t, ocp.Free())
	_, err := New(&recordingBackend{}).OptimizeFromBounds(context.Background(), dc)
	if !errors.Is(err, ErrNotFinalized) {
		t.Fatalf("expected ErrNotFinalized, got %v", err)
	}
}

func TestSQPRejectsVariableBounds(t *testing.T) {
	dc := newSlider(t, ocp.Range(-2, 2))
	sol, err := New(NewSQP()).OptimizeFromBounds(context.Background(), dc)
	if !errors.Is(err, ErrUnsupportedProblem) {
		t.Fatalf("expected ErrUnsupportedProblem, got %v", err)
	}
	if sol == nil || sol.Status != nlp.Failed {
		t.Errorf("expected failed solution, got %+v", sol)
	}
}

func TestSQPSolvesSlider(t *testing.T) {
	dc := newSlider(t, ocp.Free())
	sol, err := New(NewSQP()).OptimizeFromBounds(context.Background(), dc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != nlp.Solved {
		t.Fatalf("expected solved, got %v (%s)", sol.Status, sol.Message)
	}
	if math.Abs(sol.Objective-1) > 1e-4 {
		t.Errorf("expected objective 1, got %g", sol.Objective)
	}
	for i := 1; i < 11; i++ {
		if u := sol.X[dc.ControlIndex(i, 0)]; math.Abs(u-1) > 1e-3 {
			t.Errorf("expected u_%d = 1, got %g", i, u)
		}
	}
}

func TestAugLagWithInactiveControlBounds(t *testing.T) {
	dc := newSlider(t, ocp.Range(-2, 2))
	sol, err := New(NewAugLag()).OptimizeFromBounds(context.Background(), dc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != nlp.Solved {
		t.Fatalf("expected solved, got %v (%s)", sol.Status, sol.Message)
	}
	for i := 1; i < 11; i++ {
		if u := sol.X[dc.ControlIndex(i, 0)]; math.Abs(u-1) > 1e-3 {
			t.Errorf("expected u_%d = 1, got %g", i, u)
		}
	}
	for j, z := range sol.UpperBoundMultipliers {
		if z != 0 {
			t.Errorf("expected zero upper multiplier at %d, got %g", j, z)
		}
	}
}

var errObjective = errors.New("objective failed")

type failingObjective struct {
	nlp.Callbacks
}

func (failingObjective) Objective(x []float64, newX bool) (float64, error) {
	return math.NaN(), errObjective
}

func TestFinalObjectiveFailureIsEvaluationError(t *testing.T) {
	s := &session{cb: failingObjective{}, n: 1}
	sol := nlp.Solution{X: []float64{1}, Status: nlp.Solved}
	s.finalObjective(&sol)

	if sol.Status != nlp.EvaluationError {
		t.Errorf("expected status %s, got %s", nlp.EvaluationError, sol.Status)
	}
	if !math.IsNaN(sol.Objective) {
		t.Errorf("expected NaN objective, got %g", sol.Objective)
	}
	if !errors.Is(s.err, errObjective) {
		t.Errorf("expected the objective error to be kept, got %v", s.err)
	}
}
