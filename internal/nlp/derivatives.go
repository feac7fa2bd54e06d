package nlp

import (
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/san-kum/trajopt/internal/sparsity"
	"github.com/san-kum/trajopt/internal/tape"
	"gonum.org/v1/gonum/floats"
)

const (
	traceObjective   = "objective"
	traceConstraints = "constraints"
	traceLagrangian  = "lagrangian"
)

// Provider computes derivatives of a Program through a tape.Service.
//
// The objective and constraint tapes are retraced only when the backend
// reports a new point. The Lagrangian L = sigma*f + lambda^T g is retraced
// on every Hessian request because sigma and lambda are part of the trace.
// Sparsity patterns are traced once at the guess and kept for the solve.
type Provider struct {
	program Program
	service tape.Service
	guess   []float64
	n, m    int
	logger  *slog.Logger

	tags struct {
		objective, constraints, lagrangian tape.Tag
	}
	objective   tape.Tape
	constraints tape.Tape
	cache       *sparsity.Cache
	weights     []float64
	traces      map[string]int
}

func NewProvider(program Program, service tape.Service, guess []float64, logger *slog.Logger) *Provider {
	p := &Provider{
		program: program,
		service: service,
		guess:   slices.Clone(guess),
		n:       program.NumVariables(),
		m:       program.NumConstraints(),
		logger:  logger,
		traces:  make(map[string]int),
	}
	var counter tape.Counter
	p.tags.objective = counter.Next()
	p.tags.constraints = counter.Next()
	p.tags.lagrangian = counter.Next()
	p.cache = sparsity.NewCache(p.n, p.m)

	// multipliers for the structure trace of the Lagrangian; kept away from
	// zero so no constraint term can vanish from the pattern
	rng := rand.New(rand.NewPCG(uint64(p.n), uint64(p.m)))
	p.weights = make([]float64, p.m)
	for i := range p.weights {
		p.weights[i] = 0.5 + rng.Float64()
	}
	return p
}

func (p *Provider) objectiveFunc(y, x []float64) {
	y[0] = p.program.Objective(x)
}

func (p *Provider) constraintFunc(y, x []float64) {
	p.program.Constraints(x, y)
}

func (p *Provider) lagrangianFunc(sigma float64, lambda []float64) tape.Func {
	lam := slices.Clone(lambda)
	g := make([]float64, p.m)
	return func(y, x []float64) {
		v := 0.0
		if sigma != 0 {
			v = sigma * p.program.Objective(x)
		}
		if p.m > 0 {
			p.program.Constraints(x, g)
			v += floats.Dot(lam, g)
		}
		y[0] = v
	}
}

func (p *Provider) trace(kind string, tag tape.Tag, f tape.Func, outputs int, x []float64) (tape.Tape, error) {
	t, err := p.service.Trace(tag, f, outputs, x)
	if err != nil {
		return nil, &DerivativeError{Kind: kind, Err: err}
	}
	p.traces[kind]++
	return t, nil
}

func (p *Provider) objectiveTape(x []float64, newX bool) (tape.Tape, bool, error) {
	if !newX && p.objective != nil {
		return p.objective, false, nil
	}
	t, err := p.trace(traceObjective, p.tags.objective, p.objectiveFunc, 1, x)
	if err != nil {
		return nil, false, err
	}
	p.objective = t
	return t, true, nil
}

func (p *Provider) constraintTape(x []float64, newX bool) (tape.Tape, bool, error) {
	if !newX && p.constraints != nil {
		return p.constraints, false, nil
	}
	t, err := p.trace(traceConstraints, p.tags.constraints, p.constraintFunc, p.m, x)
	if err != nil {
		return nil, false, err
	}
	p.constraints = t
	return t, true, nil
}

func (p *Provider) Objective(x []float64, newX bool) (float64, error) {
	t, fresh, err := p.objectiveTape(x, newX)
	if err != nil {
		return 0, err
	}
	if fresh {
		return t.Value()[0], nil
	}
	y := make([]float64, 1)
	if err := p.service.Value(t, x, y); err != nil {
		return 0, &DerivativeError{Kind: traceObjective, Err: err}
	}
	return y[0], nil
}

func (p *Provider) ObjectiveGradient(x []float64, newX bool, grad []float64) error {
	t, _, err := p.objectiveTape(x, newX)
	if err != nil {
		return err
	}
	if err := p.service.Gradient(t, x, grad); err != nil {
		return &DerivativeError{Kind: "objective gradient", Err: err}
	}
	return nil
}

func (p *Provider) Constraints(x []float64, newX bool, g []float64) error {
	t, fresh, err := p.constraintTape(x, newX)
	if err != nil {
		return err
	}
	if fresh {
		copy(g, t.Value())
		return nil
	}
	if err := p.service.Value(t, x, g); err != nil {
		return &DerivativeError{Kind: traceConstraints, Err: err}
	}
	return nil
}

// JacobianStructure returns the cached constraint Jacobian pattern, tracing
// the constraints at the guess the first time.
func (p *Provider) JacobianStructure() (*sparsity.Pattern, error) {
	if pat, ok := p.cache.Get(sparsity.Jacobian); ok {
		return pat, nil
	}
	t, err := p.trace(traceConstraints, p.tags.constraints, p.constraintFunc, p.m, p.guess)
	if err != nil {
		return nil, err
	}
	pat, err := p.service.JacobianPattern(t)
	if err != nil {
		return nil, &DerivativeError{Kind: "jacobian structure", Err: err}
	}
	if err := p.cache.Put(sparsity.Jacobian, pat); err != nil {
		return nil, &DerivativeError{Kind: "jacobian structure", Err: err}
	}
	p.logger.Debug("jacobian structure cached", "nnz", pat.NNZ())
	return pat, nil
}

func (p *Provider) JacobianValues(x []float64, newX bool, values []float64) error {
	pat, err := p.JacobianStructure()
	if err != nil {
		return err
	}
	t, _, err := p.constraintTape(x, newX)
	if err != nil {
		return err
	}
	if err := p.service.SparseJacobian(t, x, pat, values); err != nil {
		return &DerivativeError{Kind: "jacobian", Err: err}
	}
	return nil
}

// HessianStructure traces the Lagrangian at the guess with unit objective
// factor and the random multipliers.
func (p *Provider) HessianStructure() (*sparsity.Pattern, error) {
	if pat, ok := p.cache.Get(sparsity.Hessian); ok {
		return pat, nil
	}
	t, err := p.trace(traceLagrangian, p.tags.lagrangian, p.lagrangianFunc(1, p.weights), 1, p.guess)
	if err != nil {
		return nil, err
	}
	pat, err := p.service.HessianPattern(t)
	if err != nil {
		return nil, &DerivativeError{Kind: "hessian structure", Err: err}
	}
	if err := p.cache.Put(sparsity.Hessian, pat); err != nil {
		return nil, &DerivativeError{Kind: "hessian structure", Err: err}
	}
	p.logger.Debug("hessian structure cached", "nnz", pat.NNZ())
	return pat, nil
}

// HessianValues always retraces the Lagrangian at x with the given objective
// factor and multipliers.
func (p *Provider) HessianValues(x []float64, objFactor float64, lambda, values []float64) error {
	pat, err := p.HessianStructure()
	if err != nil {
		return err
	}
	if len(lambda) != p.m {
		return fmt.Errorf("%w: %d multipliers for %d constraints", ErrSize, len(lambda), p.m)
	}
	t, err := p.trace(traceLagrangian, p.tags.lagrangian, p.lagrangianFunc(objFactor, lambda), 1, x)
	if err != nil {
		return err
	}
	if err := p.service.SparseHessian(t, x, pat, values); err != nil {
		return &DerivativeError{Kind: "hessian", Err: err}
	}
	return nil
}

// Traces returns how many times each tape was traced.
func (p *Provider) Traces() map[string]int {
	return maps.Clone(p.traces)
}
