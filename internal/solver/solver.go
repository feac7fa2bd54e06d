// Package solver drives one optimization of a transcribed program through a
// pluggable backend.
package solver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/san-kum/trajopt/internal/logs"
	"github.com/san-kum/trajopt/internal/nlp"
	"github.com/san-kum/trajopt/internal/tape"
	"github.com/san-kum/trajopt/internal/transcription"
)

type Option func(*Solver)

func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) { s.logger = l }
}

func WithObserver(o nlp.Observer) Option {
	return func(s *Solver) { s.observer = o }
}

// WithTapeService replaces the finite-difference service built from the
// finite_difference_* options.
func WithTapeService(svc tape.Service) Option {
	return func(s *Solver) { s.service = svc }
}

// Solver holds options and runs Optimize. Unset options fall back to
// defaults when a solve starts.
type Solver struct {
	backend  Backend
	logger   *slog.Logger
	observer nlp.Observer
	service  tape.Service

	maxIterations        *int
	convergenceTolerance *float64
	constraintTolerance  *float64
	hessianApproximation *string
	fdMode               *tape.Mode
	fdStep               *float64

	strings map[string]string
	ints    map[string]int
	reals   map[string]float64
}

func New(backend Backend, opts ...Option) *Solver {
	s := &Solver{
		backend: backend,
		logger:  logs.Discard(),
		strings: make(map[string]string),
		ints:    make(map[string]int),
		reals:   make(map[string]float64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Solver) Backend() Backend { return s.backend }

// SetObserver replaces the per-iteration observer.
func (s *Solver) SetObserver(o nlp.Observer) {
	s.observer = o
}

func (s *Solver) validate(program nlp.Program, guess []float64) error {
	n := program.NumVariables()
	if n == 0 {
		return ErrEmptyProblem
	}
	xl, xu := program.VariableBounds()
	if len(xl) != n || len(xu) != n {
		return fmt.Errorf("%w: got %d/%d, want %d", ErrBoundsLength, len(xl), len(xu), n)
	}
	if len(guess) != n {
		return fmt.Errorf("%w: got %d, want %d", ErrGuessLength, len(guess), n)
	}
	return nil
}

func (s *Solver) tapeService() tape.Service {
	if s.service != nil {
		return s.service
	}
	mode, _ := s.FiniteDifferenceMode()
	step, _ := s.FiniteDifferenceStep()
	return tape.NewFiniteDifference(
		tape.WithMode(mode),
		tape.WithStep(step),
		tape.WithLogger(s.logger),
	)
}

// Optimize solves program from guess. A backend stop reason such as the
// iteration limit is reported in the solution status, not as an error. A
// derivative failure aborts the solve; the error is returned together with
// the last point, whose status is nlp.EvaluationError.
func (s *Solver) Optimize(ctx context.Context, program nlp.Program, guess []float64) (*nlp.Solution, error) {
	if err := s.validate(program, guess); err != nil {
		return nil, err
	}
	opts := s.resolve()
	s.warnUnsupported(opts)

	adapter, err := nlp.NewAdapter(program, guess,
		nlp.WithTapeService(s.tapeService()),
		nlp.WithObserver(s.observer),
		nlp.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("optimize",
		"backend", s.backend.Name(),
		"variables", program.NumVariables(),
		"constraints", program.NumConstraints(),
		"max_iterations", opts.MaxIterations,
		"hessian", opts.HessianApproximation,
	)
	start := time.Now()
	solveErr := s.backend.Solve(ctx, adapter, opts)
	sol := adapter.Solution()
	if sol == nil {
		if solveErr != nil {
			return nil, fmt.Errorf("solver: %s: %w", s.backend.Name(), solveErr)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFinalized, s.backend.Name())
	}
	sol.Elapsed = time.Since(start)

	stats := adapter.Stats()
	s.logger.Info("optimize finished",
		"status", sol.Status.String(),
		"objective", sol.Objective,
		"iterations", sol.Iterations,
		"elapsed", sol.Elapsed,
		"hessian_evals", stats.Hessian,
		"jacobian_evals", stats.Jacobian,
	)
	if solveErr != nil {
		return sol, fmt.Errorf("solver: %s: %w", s.backend.Name(), solveErr)
	}
	return sol, nil
}

// OptimizeFromBounds solves dc starting from its bound-derived guess.
func (s *Solver) OptimizeFromBounds(ctx context.Context, dc *transcription.DirectCollocation) (*nlp.Solution, error) {
	return s.Optimize(ctx, dc, dc.GuessFromBounds())
}

func (s *Solver) warnUnsupported(opts Options) {
	if !slices.Contains(s.backend.HessianApproximations(), opts.HessianApproximation) {
		s.logger.Warn("hessian approximation not supported by backend, using exact",
			"backend", s.backend.Name(), "hessian_approximation", opts.HessianApproximation)
	}
	for _, o := range s.Describe() {
		if o.Advanced && !o.Recognized {
			s.logger.Warn("option not recognized by backend", "backend", s.backend.Name(), "option", o.Name)
		}
	}
}

// OptionValue is one row of the option listing.
type OptionValue struct {
	Name       string
	Value      string
	Set        bool
	Advanced   bool
	Recognized bool
}

// Describe lists every option with its effective value. Advanced options
// carry whether the backend recognizes them.
func (s *Solver) Describe() []OptionValue {
	maxIter, maxSet := s.MaxIterations()
	tol, tolSet := s.ConvergenceTolerance()
	ctol, ctolSet := s.ConstraintTolerance()
	hess, hessSet := s.HessianApproximation()
	mode, modeSet := s.FiniteDifferenceMode()
	step, stepSet := s.FiniteDifferenceStep()
	stepText := "auto"
	if stepSet {
		stepText = formatReal(step)
	}

	out := []OptionValue{
		{Name: "max_iterations", Value: fmt.Sprint(maxIter), Set: maxSet, Recognized: true},
		{Name: "convergence_tolerance", Value: formatReal(tol), Set: tolSet, Recognized: true},
		{Name: "constraint_tolerance", Value: formatReal(ctol), Set: ctolSet, Recognized: true},
		{Name: "hessian_approximation", Value: hess, Set: hessSet,
			Recognized: slices.Contains(s.backend.HessianApproximations(), hess)},
		{Name: "finite_difference_mode", Value: mode.String(), Set: modeSet, Recognized: true},
		{Name: "finite_difference_step", Value: stepText, Set: stepSet, Recognized: true},
	}

	known := s.backend.Options()
	for _, name := range sortedKeys(s.strings) {
		out = append(out, OptionValue{Name: name, Value: s.strings[name], Set: true, Advanced: true,
			Recognized: slices.Contains(known.Strings, name)})
	}
	for _, name := range sortedKeys(s.ints) {
		out = append(out, OptionValue{Name: name, Value: fmt.Sprint(s.ints[name]), Set: true, Advanced: true,
			Recognized: slices.Contains(known.Ints, name)})
	}
	for _, name := range sortedKeys(s.reals) {
		out = append(out, OptionValue{Name: name, Value: formatReal(s.reals[name]), Set: true, Advanced: true,
			Recognized: slices.Contains(known.Reals, name)})
	}
	return out
}

// PrintOptions writes one line per option. Options the backend does not
// recognize are marked "(unrecognized)".
func (s *Solver) PrintOptions(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "backend: %s\n", s.backend.Name()); err != nil {
		return err
	}
	for _, o := range s.Describe() {
		line := fmt.Sprintf("%s: %s", o.Name, o.Value)
		if !o.Set {
			line += " (default)"
		}
		if !o.Recognized {
			line += " (unrecognized)"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatReal(v float64) string {
	if math.Abs(v) < 1e-3 || math.Abs(v) >= 1e6 {
		return fmt.Sprintf("%.3g", v)
	}
	return fmt.Sprintf("%g", v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
