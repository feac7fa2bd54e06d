package nlp

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/trajopt/internal/ocp"
	"github.com/san-kum/trajopt/internal/tape"
	"github.com/san-kum/trajopt/internal/transcription"
)

type slider struct{}

func (slider) Derive(x ocp.State, u ocp.Control, t float64) ocp.State { return ocp.State{u[0]} }
func (slider) StateDim() int                                          { return 1 }
func (slider) ControlDim() int                                        { return 1 }
func (slider) IntegralCost(x ocp.State, u ocp.Control, t float64) float64 {
	return u[0] * u[0]
}
func (slider) Bounds() ocp.Bounds {
	b := ocp.FreeBounds(1, 1, 0, 1)
	b.InitialStates[0] = ocp.Fixed(0)
	b.FinalStates[0] = ocp.Fixed(1)
	return b
}

func newSlider(t *testing.T, points int) *transcription.DirectCollocation {
	t.Helper()
	dc, err := transcription.New(slider{}, points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return dc
}

func ready(t *testing.T, a *Adapter) []float64 {
	t.Helper()
	n, m := a.NumVariables(), a.NumConstraints()
	if err := a.Bounds(make([]float64, n), make([]float64, n), make([]float64, m), make([]float64, m)); err != nil {
		t.Fatalf("bounds: %v", err)
	}
	x := make([]float64, n)
	if err := a.StartingPoint(true, false, false, x); err != nil {
		t.Fatalf("starting point: %v", err)
	}
	return x
}

func TestAdapterPhases(t *testing.T) {
	dc := newSlider(t, 5)
	guess := dc.GuessFromBounds()
	a, err := NewAdapter(dc, guess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, m := a.NumVariables(), a.NumConstraints()

	if _, err := a.Objective(guess, true); !errors.Is(err, ErrPhase) {
		t.Errorf("expected ErrPhase before bounds, got %v", err)
	}
	if err := a.StartingPoint(true, false, false, make([]float64, n)); !errors.Is(err, ErrPhase) {
		t.Errorf("expected ErrPhase for starting point before bounds, got %v", err)
	}

	xl, xu, gl, gu := make([]float64, n), make([]float64, n), make([]float64, m), make([]float64, m)
	if err := a.Bounds(xl, xu, gl, gu); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Phase() != BoundsQueried {
		t.Errorf("expected %s, got %s", BoundsQueried, a.Phase())
	}
	if gl[1] != 1 || gu[1] != 1 {
		t.Errorf("expected final state row fixed at 1, got [%g, %g]", gl[1], gu[1])
	}
	if err := a.Bounds(xl, xu, gl, gu); !errors.Is(err, ErrPhase) {
		t.Errorf("expected ErrPhase on second bounds query, got %v", err)
	}

	x := make([]float64, n)
	if err := a.StartingPoint(true, true, false, x); !errors.Is(err, ErrMultiplierInit) {
		t.Errorf("expected ErrMultiplierInit, got %v", err)
	}
	if err := a.StartingPoint(true, false, false, x); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range x {
		if x[i] != guess[i] {
			t.Fatalf("starting point differs from guess at %d: %g vs %g", i, x[i], guess[i])
		}
	}

	if _, err := a.Objective(x, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Phase() != Iterating {
		t.Errorf("expected %s, got %s", Iterating, a.Phase())
	}

	if err := a.Finalize(Solution{X: x, Objective: 1, Status: Solved}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	x[0] = 42
	if sol := a.Solution(); sol == nil || sol.X[0] == 42 {
		t.Error("solution should hold its own copy of x")
	}
	if err := a.Finalize(Solution{X: x}); !errors.Is(err, ErrFinalized) {
		t.Errorf("expected ErrFinalized on second finalize, got %v", err)
	}
	if _, err := a.Objective(x, true); !errors.Is(err, ErrFinalized) {
		t.Errorf("expected ErrFinalized after finalize, got %v", err)
	}
}

func TestAdapterRejectsGuessLength(t *testing.T) {
	dc := newSlider(t, 5)
	if _, err := NewAdapter(dc, make([]float64, dc.NumVariables()-1)); !errors.Is(err, ErrSize) {
		t.Errorf("expected ErrSize, got %v", err)
	}
}

func TestJacobianStructureAndValues(t *testing.T) {
	dc := newSlider(t, 11)
	a, err := NewAdapter(dc, dc.GuessFromBounds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nnz, err := a.NumJacobianNonzeros()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// four boundary rows with one entry, ten defect rows with three
	if nnz != 4+10*3 {
		t.Fatalf("expected 34 nonzeros, got %d", nnz)
	}
	rows, cols := make([]int, nnz), make([]int, nnz)
	if err := a.Jacobian(nil, false, rows, cols, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	x := ready(t, a)
	for i := range x {
		x[i] = math.Sin(float64(i))
	}
	values := make([]float64, nnz)
	if err := a.Jacobian(x, true, nil, nil, values); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := dc.Mesh().Step()
	for k := range values {
		r, c := rows[k], cols[k]
		expected := 1.0
		if r >= dc.DefectOffset() {
			interval := r - dc.DefectOffset()
			switch c {
			case dc.StateIndex(interval, 0):
				expected = -1
			case dc.StateIndex(interval+1, 0):
				expected = 1
			case dc.ControlIndex(interval+1, 0):
				expected = -h
			default:
				t.Errorf("unexpected defect entry (%d, %d)", r, c)
			}
		}
		if math.Abs(values[k]-expected) > 1e-8 {
			t.Errorf("entry (%d, %d): expected %g, got %g", r, c, expected, values[k])
		}
	}
}

func TestSparsityIsStableAcrossPoints(t *testing.T) {
	dc := newSlider(t, 6)
	var jac, hess [][2][]int
	for _, shift := range []float64{0, 3.5, -20} {
		guess := dc.GuessFromBounds()
		for i := range guess {
			guess[i] += shift * float64(i%3)
		}
		a, err := NewAdapter(dc, guess)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for range 2 {
			nj, err := a.NumJacobianNonzeros()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			r, c := make([]int, nj), make([]int, nj)
			if err := a.Jacobian(nil, false, r, c, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			jac = append(jac, [2][]int{r, c})

			nh, err := a.NumHessianNonzeros()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			r, c = make([]int, nh), make([]int, nh)
			if err := a.Hessian(nil, false, 1, nil, false, r, c, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			hess = append(hess, [2][]int{r, c})
		}
	}
	assertSame(t, "jacobian", jac)
	assertSame(t, "hessian", hess)
}

func assertSame(t *testing.T, name string, patterns [][2][]int) {
	t.Helper()
	first := patterns[0]
	for k, p := range patterns[1:] {
		if len(p[0]) != len(first[0]) {
			t.Fatalf("%s query %d: %d entries, expected %d", name, k+1, len(p[0]), len(first[0]))
		}
		for i := range p[0] {
			if p[0][i] != first[0][i] || p[1][i] != first[1][i] {
				t.Fatalf("%s query %d: entry %d differs", name, k+1, i)
			}
		}
	}
}

func TestHessianRetracedEveryRequest(t *testing.T) {
	dc := newSlider(t, 5)
	a, err := NewAdapter(dc, dc.GuessFromBounds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	x := ready(t, a)
	nh, err := a.NumHessianNonzeros()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nj, _ := a.NumJacobianNonzeros()

	lambda := make([]float64, a.NumConstraints())
	values := make([]float64, nh)
	jac := make([]float64, nj)
	for k := range 3 {
		newX := k == 0
		if err := a.Hessian(x, newX, 1, lambda, newX, nil, nil, values); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := a.Jacobian(x, newX, nil, nil, jac); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	traces := a.Stats().Traces
	// one structure trace plus one per request
	if traces["lagrangian"] != 4 {
		t.Errorf("expected 4 lagrangian traces, got %d", traces["lagrangian"])
	}
	// one structure trace plus the single new point
	if traces["constraints"] != 2 {
		t.Errorf("expected 2 constraint traces, got %d", traces["constraints"])
	}
}

func TestHessianValues(t *testing.T) {
	dc := newSlider(t, 5)
	a, err := NewAdapter(dc, dc.GuessFromBounds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	x := ready(t, a)
	nh, _ := a.NumHessianNonzeros()
	rows, cols := make([]int, nh), make([]int, nh)
	if err := a.Hessian(nil, false, 1, nil, false, rows, cols, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lambda := make([]float64, a.NumConstraints())
	for i := range lambda {
		lambda[i] = float64(i) - 3
	}
	values := make([]float64, nh)
	if err := a.Hessian(x, true, 2, lambda, true, nil, nil, values); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h := dc.Mesh().Step()
	for k := range values {
		expected := 0.0
		slot, _ := dc.Locate(cols[k])
		if rows[k] == cols[k] && slot.Kind == transcription.ControlSlot && slot.Mesh > 0 {
			expected = 2 * 2 * h
		}
		if math.Abs(values[k]-expected) > 1e-5 {
			t.Errorf("entry (%d, %d): expected %g, got %g", rows[k], cols[k], expected, values[k])
		}
	}
}

type badBounds struct {
	*transcription.DirectCollocation
}

func (b badBounds) ConstraintBounds() (lower, upper []float64) {
	return []float64{1}, []float64{2}
}

func TestConstraintBoundsFallback(t *testing.T) {
	dc := newSlider(t, 4)
	a, err := NewAdapter(badBounds{dc}, dc.GuessFromBounds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, m := a.NumVariables(), a.NumConstraints()
	gl, gu := make([]float64, m), make([]float64, m)
	for i := range gl {
		gl[i], gu[i] = 7, 7
	}
	if err := a.Bounds(make([]float64, n), make([]float64, n), gl, gu); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range gl {
		if gl[i] != 0 || gu[i] != 0 {
			t.Fatalf("row %d: expected zero fallback, got [%g, %g]", i, gl[i], gu[i])
		}
	}
}

type panicky struct {
	*transcription.DirectCollocation
	armed *bool
}

func (p panicky) Constraints(x, g []float64) {
	if *p.armed {
		panic("dynamics blew up")
	}
	p.DirectCollocation.Constraints(x, g)
}

func TestDerivativeFailureIsFatal(t *testing.T) {
	dc := newSlider(t, 4)
	armed := false
	a, err := NewAdapter(panicky{dc, &armed}, dc.GuessFromBounds(), WithTapeService(tape.NewFiniteDifference()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	x := ready(t, a)
	nj, err := a.NumJacobianNonzeros()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	armed = true
	err = a.Jacobian(x, true, nil, nil, make([]float64, nj))
	if !errors.Is(err, ErrDerivative) {
		t.Fatalf("expected ErrDerivative, got %v", err)
	}
	if !errors.Is(err, tape.ErrTrace) {
		t.Errorf("expected the trace failure to be wrapped, got %v", err)
	}
	var de *DerivativeError
	if !errors.As(err, &de) || de.Kind != "constraints" {
		t.Errorf("expected DerivativeError for constraints, got %v", err)
	}
}

func TestIntermediateNotifiesObserver(t *testing.T) {
	dc := newSlider(t, 4)
	var seen []Iteration
	a, err := NewAdapter(dc, dc.GuessFromBounds(), WithObserver(func(it Iteration) {
		seen = append(seen, it)
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Intermediate(Iteration{Index: 3, Objective: 1.5})
	if len(seen) != 1 || seen[0].Index != 3 {
		t.Errorf("expected one observed iteration, got %v", seen)
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		Solved:         "solved",
		IterationLimit: "iteration-limit",
		Infeasible:     "infeasible",
		Canceled:       "canceled",
		Unknown:        "unknown",
	}
	for s, expected := range tests {
		if s.String() != expected {
			t.Errorf("expected %q, got %q", expected, s.String())
		}
	}
	if !Solved.Converged() || IterationLimit.Converged() {
		t.Error("only Solved counts as converged")
	}
}
