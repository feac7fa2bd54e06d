package solver

import (
	"fmt"
	"maps"
	"math"

	"github.com/san-kum/trajopt/internal/tape"
)

const (
	HessianExact         = "exact"
	HessianLimitedMemory = "limited-memory"
)

const (
	DefaultMaxIterations        = 200
	DefaultConvergenceTolerance = 1e-6
	DefaultConstraintTolerance  = 1e-6
)

// Options are the resolved settings handed to a backend.
type Options struct {
	MaxIterations        int
	ConvergenceTolerance float64
	ConstraintTolerance  float64
	HessianApproximation string

	Strings map[string]string
	Ints    map[string]int
	Reals   map[string]float64
}

func (o Options) String(name, def string) string {
	if v, ok := o.Strings[name]; ok {
		return v
	}
	return def
}

func (o Options) Int(name string, def int) int {
	if v, ok := o.Ints[name]; ok {
		return v
	}
	return def
}

func (o Options) Real(name string, def float64) float64 {
	if v, ok := o.Reals[name]; ok {
		return v
	}
	return def
}

func positive(name string, v float64) error {
	if math.IsNaN(v) || v <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidOption, name, v)
	}
	return nil
}

func (s *Solver) SetMaxIterations(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: max_iterations must be positive, got %d", ErrInvalidOption, n)
	}
	s.maxIterations = &n
	return nil
}

func (s *Solver) SetConvergenceTolerance(tol float64) error {
	if err := positive("convergence_tolerance", tol); err != nil {
		return err
	}
	s.convergenceTolerance = &tol
	return nil
}

func (s *Solver) SetConstraintTolerance(tol float64) error {
	if err := positive("constraint_tolerance", tol); err != nil {
		return err
	}
	s.constraintTolerance = &tol
	return nil
}

func (s *Solver) SetHessianApproximation(v string) error {
	if v != HessianExact && v != HessianLimitedMemory {
		return fmt.Errorf("%w: hessian_approximation must be %q or %q, got %q",
			ErrInvalidOption, HessianExact, HessianLimitedMemory, v)
	}
	s.hessianApproximation = &v
	return nil
}

func (s *Solver) SetFiniteDifferenceMode(v string) error {
	m, err := tape.ParseMode(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	s.fdMode = &m
	return nil
}

func (s *Solver) SetFiniteDifferenceStep(h float64) error {
	if err := positive("finite_difference_step", h); err != nil {
		return err
	}
	s.fdStep = &h
	return nil
}

// SetStringOption, SetIntOption and SetRealOption store backend-specific
// options. Names the backend does not know are kept and reported by
// PrintOptions.
func (s *Solver) SetStringOption(name, value string) error {
	if name == "" {
		return fmt.Errorf("%w: empty option name", ErrInvalidOption)
	}
	s.strings[name] = value
	return nil
}

func (s *Solver) SetIntOption(name string, value int) error {
	if name == "" {
		return fmt.Errorf("%w: empty option name", ErrInvalidOption)
	}
	s.ints[name] = value
	return nil
}

func (s *Solver) SetRealOption(name string, value float64) error {
	if name == "" {
		return fmt.Errorf("%w: empty option name", ErrInvalidOption)
	}
	if math.IsNaN(value) {
		return fmt.Errorf("%w: %s is NaN", ErrInvalidOption, name)
	}
	s.reals[name] = value
	return nil
}

func (s *Solver) MaxIterations() (int, bool) {
	if s.maxIterations == nil {
		return DefaultMaxIterations, false
	}
	return *s.maxIterations, true
}

func (s *Solver) ConvergenceTolerance() (float64, bool) {
	if s.convergenceTolerance == nil {
		return DefaultConvergenceTolerance, false
	}
	return *s.convergenceTolerance, true
}

func (s *Solver) ConstraintTolerance() (float64, bool) {
	if s.constraintTolerance == nil {
		return DefaultConstraintTolerance, false
	}
	return *s.constraintTolerance, true
}

func (s *Solver) HessianApproximation() (string, bool) {
	if s.hessianApproximation == nil {
		return HessianExact, false
	}
	return *s.hessianApproximation, true
}

func (s *Solver) FiniteDifferenceMode() (tape.Mode, bool) {
	if s.fdMode == nil {
		return tape.Central, false
	}
	return *s.fdMode, true
}

// FiniteDifferenceStep returns zero when unset, which selects the formula
// default.
func (s *Solver) FiniteDifferenceStep() (float64, bool) {
	if s.fdStep == nil {
		return 0, false
	}
	return *s.fdStep, true
}

func (s *Solver) resolve() Options {
	maxIter, _ := s.MaxIterations()
	tol, _ := s.ConvergenceTolerance()
	ctol, _ := s.ConstraintTolerance()
	hess, _ := s.HessianApproximation()
	o := Options{
		MaxIterations:        maxIter,
		ConvergenceTolerance: tol,
		ConstraintTolerance:  ctol,
		HessianApproximation: hess,
		Strings:              maps.Clone(s.strings),
		Ints:                 maps.Clone(s.ints),
		Reals:                maps.Clone(s.reals),
	}
	return o
}
