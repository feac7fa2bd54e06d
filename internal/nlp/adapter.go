package nlp

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/san-kum/trajopt/internal/logs"
	"github.com/san-kum/trajopt/internal/tape"
)

type AdapterOption func(*Adapter)

func WithTapeService(s tape.Service) AdapterOption {
	return func(a *Adapter) { a.service = s }
}

func WithObserver(o Observer) AdapterOption {
	return func(a *Adapter) { a.observer = o }
}

func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

// Adapter serves the callbacks of one solve of a Program, starting from a
// fixed guess.
type Adapter struct {
	program  Program
	guess    []float64
	n, m     int
	service  tape.Service
	deriv    *Provider
	observer Observer
	logger   *slog.Logger

	phase    Phase
	solution *Solution
	stats    Stats

	xl, xu, gl, gu []float64
}

func NewAdapter(program Program, guess []float64, opts ...AdapterOption) (*Adapter, error) {
	n, m := program.NumVariables(), program.NumConstraints()
	if n == 0 {
		return nil, fmt.Errorf("%w: program has no variables", ErrSize)
	}
	if len(guess) != n {
		return nil, fmt.Errorf("%w: guess has %d entries, want %d", ErrSize, len(guess), n)
	}

	a := &Adapter{
		program: program,
		guess:   slices.Clone(guess),
		n:       n,
		m:       m,
		logger:  logs.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.service == nil {
		a.service = tape.NewFiniteDifference(tape.WithLogger(a.logger))
	}

	a.xl, a.xu = program.VariableBounds()
	if len(a.xl) != n || len(a.xu) != n {
		return nil, fmt.Errorf("%w: variable bounds %d/%d, want %d", ErrSize, len(a.xl), len(a.xu), n)
	}
	a.gl, a.gu = program.ConstraintBounds()
	if len(a.gl) != m || len(a.gu) != m {
		a.logger.Warn("constraint bounds have the wrong size, using zero equality bounds",
			"lower", len(a.gl), "upper", len(a.gu), "constraints", m)
		a.gl, a.gu = make([]float64, m), make([]float64, m)
	}

	a.deriv = NewProvider(program, a.service, a.guess, a.logger)
	return a, nil
}

func (a *Adapter) NumVariables() int   { return a.n }
func (a *Adapter) NumConstraints() int { return a.m }
func (a *Adapter) Phase() Phase        { return a.phase }

func (a *Adapter) NumJacobianNonzeros() (int, error) {
	if err := a.checkStructure(); err != nil {
		return 0, err
	}
	p, err := a.deriv.JacobianStructure()
	if err != nil {
		return 0, err
	}
	return p.NNZ(), nil
}

func (a *Adapter) NumHessianNonzeros() (int, error) {
	if err := a.checkStructure(); err != nil {
		return 0, err
	}
	p, err := a.deriv.HessianStructure()
	if err != nil {
		return 0, err
	}
	return p.NNZ(), nil
}

func (a *Adapter) Bounds(xl, xu, gl, gu []float64) error {
	if a.phase == Finalized {
		return ErrFinalized
	}
	if a.phase != Uninitialized {
		return fmt.Errorf("%w: bounds requested in phase %s", ErrPhase, a.phase)
	}
	if len(xl) != a.n || len(xu) != a.n || len(gl) != a.m || len(gu) != a.m {
		return fmt.Errorf("%w: bound buffers %d/%d/%d/%d", ErrSize, len(xl), len(xu), len(gl), len(gu))
	}
	copy(xl, a.xl)
	copy(xu, a.xu)
	copy(gl, a.gl)
	copy(gu, a.gu)
	a.phase = BoundsQueried
	return nil
}

// StartingPoint copies the guess into x. Only the primal point is
// provided; requests for bound or constraint multipliers are rejected.
func (a *Adapter) StartingPoint(initX, initZ, initLambda bool, x []float64) error {
	if a.phase == Finalized {
		return ErrFinalized
	}
	if a.phase != BoundsQueried {
		return fmt.Errorf("%w: starting point requested in phase %s", ErrPhase, a.phase)
	}
	if initZ || initLambda {
		return ErrMultiplierInit
	}
	if !initX {
		return errors.New("nlp: starting point requested without primal values")
	}
	if len(x) != a.n {
		return fmt.Errorf("%w: starting point buffer %d, want %d", ErrSize, len(x), a.n)
	}
	copy(x, a.guess)
	a.phase = StartingPointSet
	return nil
}

func (a *Adapter) checkStructure() error {
	if a.phase == Finalized {
		return ErrFinalized
	}
	return nil
}

func (a *Adapter) enter(x []float64) error {
	switch {
	case a.phase == Finalized:
		return ErrFinalized
	case a.phase < StartingPointSet:
		return fmt.Errorf("%w: evaluation in phase %s", ErrPhase, a.phase)
	case len(x) != a.n:
		return fmt.Errorf("%w: point has %d entries, want %d", ErrSize, len(x), a.n)
	}
	a.phase = Iterating
	return nil
}

func (a *Adapter) Objective(x []float64, newX bool) (float64, error) {
	if err := a.enter(x); err != nil {
		return 0, err
	}
	a.stats.Objective++
	return a.deriv.Objective(x, newX)
}

func (a *Adapter) ObjectiveGradient(x []float64, newX bool, grad []float64) error {
	if err := a.enter(x); err != nil {
		return err
	}
	if len(grad) != a.n {
		return fmt.Errorf("%w: gradient buffer %d, want %d", ErrSize, len(grad), a.n)
	}
	a.stats.Gradient++
	return a.deriv.ObjectiveGradient(x, newX, grad)
}

func (a *Adapter) Constraints(x []float64, newX bool, g []float64) error {
	if err := a.enter(x); err != nil {
		return err
	}
	if len(g) != a.m {
		return fmt.Errorf("%w: constraint buffer %d, want %d", ErrSize, len(g), a.m)
	}
	a.stats.Constraints++
	return a.deriv.Constraints(x, newX, g)
}

func (a *Adapter) Jacobian(x []float64, newX bool, rows, cols []int, values []float64) error {
	if values == nil {
		if err := a.checkStructure(); err != nil {
			return err
		}
		p, err := a.deriv.JacobianStructure()
		if err != nil {
			return err
		}
		return fillStructure(p.Indices, rows, cols)
	}
	if err := a.enter(x); err != nil {
		return err
	}
	a.stats.Jacobian++
	p, err := a.deriv.JacobianStructure()
	if err != nil {
		return err
	}
	if len(values) != p.NNZ() {
		return fmt.Errorf("%w: jacobian values %d, want %d", ErrSize, len(values), p.NNZ())
	}
	return a.deriv.JacobianValues(x, newX, values)
}

func (a *Adapter) Hessian(x []float64, newX bool, objFactor float64, lambda []float64, newLambda bool, rows, cols []int, values []float64) error {
	if values == nil {
		if err := a.checkStructure(); err != nil {
			return err
		}
		p, err := a.deriv.HessianStructure()
		if err != nil {
			return err
		}
		return fillStructure(p.Indices, rows, cols)
	}
	if err := a.enter(x); err != nil {
		return err
	}
	a.stats.Hessian++
	p, err := a.deriv.HessianStructure()
	if err != nil {
		return err
	}
	if len(values) != p.NNZ() {
		return fmt.Errorf("%w: hessian values %d, want %d", ErrSize, len(values), p.NNZ())
	}
	return a.deriv.HessianValues(x, objFactor, lambda, values)
}

func fillStructure(indices func() ([]int, []int), rows, cols []int) error {
	r, c := indices()
	if len(rows) != len(r) || len(cols) != len(c) {
		return fmt.Errorf("%w: structure buffers %d/%d, want %d", ErrSize, len(rows), len(cols), len(r))
	}
	copy(rows, r)
	copy(cols, c)
	return nil
}

func (a *Adapter) Intermediate(it Iteration) {
	a.logger.Debug("iteration",
		"iter", it.Index,
		"objective", it.Objective,
		"infeasibility", it.Infeasibility,
		"optimality", it.Optimality,
	)
	if a.observer != nil {
		a.observer(it)
	}
}

// Finalize stores the backend's final point. It succeeds once per adapter.
func (a *Adapter) Finalize(result Solution) error {
	if a.phase == Finalized {
		return ErrFinalized
	}
	if a.phase == Uninitialized {
		return fmt.Errorf("%w: finalize before bounds were queried", ErrPhase)
	}
	if len(result.X) != a.n {
		return fmt.Errorf("%w: final point has %d entries, want %d", ErrSize, len(result.X), a.n)
	}
	sol := result.clone()
	a.solution = &sol
	a.phase = Finalized
	a.logger.Debug("solve finalized",
		"status", sol.Status.String(),
		"objective", sol.Objective,
		"iterations", sol.Iterations,
	)
	return nil
}

// Solution returns a copy of the finalized record, or nil before Finalize.
func (a *Adapter) Solution() *Solution {
	if a.solution == nil {
		return nil
	}
	sol := a.solution.clone()
	return &sol
}

func (a *Adapter) Stats() Stats {
	s := a.stats
	s.Traces = a.deriv.Traces()
	return s
}
