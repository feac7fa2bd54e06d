package solver

import (
	"context"
	"errors"
	"math"

	"github.com/san-kum/trajopt/internal/nlp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

const (
	optInnerIterations = "inner_iterations"
	optLBFGSStore      = "lbfgs_store"
	optPenaltyInitial  = "penalty_initial"
	optPenaltyIncrease = "penalty_increase"
	optPenaltyMax      = "penalty_max"
)

// AugLag is a Powell-Hestenes-Rockafellar augmented Lagrangian method.
// Each outer iteration minimizes
//
//	f(x) + sum_eq (lambda_i c_i + rho/2 c_i^2) + sum_ineq psi(c_i, mu_i)
//
// with gonum's Newton (exact Hessian) or LBFGS (limited memory), then
// updates the multipliers. Variable bounds are treated as inequalities.
type AugLag struct{}

func NewAugLag() *AugLag {
	return &AugLag{}
}

func (*AugLag) Name() string { return "auglag" }

func (*AugLag) Options() OptionSet {
	return OptionSet{
		Ints:  []string{optInnerIterations, optLBFGSStore},
		Reals: []string{optPenaltyInitial, optPenaltyIncrease, optPenaltyMax},
	}
}

func (*AugLag) HessianApproximations() []string {
	return []string{HessianExact, HessianLimitedMemory}
}

// inequality is one side of a two-sided bound, written as c >= 0.
type inequality struct {
	index int
	bound float64
	upper bool
}

func (q inequality) value(v float64) float64 {
	if q.upper {
		return q.bound - v
	}
	return v - q.bound
}

// sign is dc/dv.
func (q inequality) sign() float64 {
	if q.upper {
		return -1
	}
	return 1
}

type augState struct {
	s   *session
	rho float64

	equalities []int
	rows       []inequality
	bounds     []inequality

	lambda  []float64 // equality rows
	muRows  []float64
	muBound []float64

	rowEntries [][]int
}

func newAugState(s *session, rho float64) *augState {
	a := &augState{s: s, rho: rho, rowEntries: s.byRow()}
	a.lambda = make([]float64, s.m)
	for i := 0; i < s.m; i++ {
		lo, hi := s.gl[i], s.gu[i]
		switch {
		case lo == hi:
			a.equalities = append(a.equalities, i)
		default:
			if finite(lo) {
				a.rows = append(a.rows, inequality{index: i, bound: lo})
			}
			if finite(hi) {
				a.rows = append(a.rows, inequality{index: i, bound: hi, upper: true})
			}
		}
	}
	for j := 0; j < s.n; j++ {
		if finite(s.xl[j]) {
			a.bounds = append(a.bounds, inequality{index: j, bound: s.xl[j]})
		}
		if finite(s.xu[j]) {
			a.bounds = append(a.bounds, inequality{index: j, bound: s.xu[j], upper: true})
		}
	}
	a.muRows = make([]float64, len(a.rows))
	a.muBound = make([]float64, len(a.bounds))
	return a
}

// psi is the PHR term for c >= 0 with multiplier mu.
func (a *augState) psi(c, mu float64) float64 {
	if mu-a.rho*c > 0 {
		return -mu*c + 0.5*a.rho*c*c
	}
	return -mu * mu / (2 * a.rho)
}

// weight is -max(0, mu - rho*c), the derivative of psi in c.
func (a *augState) weight(c, mu float64) float64 {
	return -math.Max(0, mu-a.rho*c)
}

// rowWeights returns the effective constraint multipliers at g and marks
// the rows whose penalty is active.
func (a *augState) rowWeights(g []float64) (w []float64, active []bool) {
	w = make([]float64, a.s.m)
	active = make([]bool, a.s.m)
	for _, i := range a.equalities {
		w[i] = a.lambda[i] + a.rho*(g[i]-a.s.gl[i])
		active[i] = true
	}
	for k, q := range a.rows {
		c := q.value(g[q.index])
		dw := a.weight(c, a.muRows[k]) * q.sign()
		w[q.index] += dw
		if a.muRows[k]-a.rho*c > 0 {
			active[q.index] = true
		}
	}
	return w, active
}

func (a *augState) merit(x []float64) float64 {
	f, err := a.s.objective(x)
	if err != nil {
		return math.NaN()
	}
	g, err := a.s.constraints(x)
	if err != nil {
		return math.NaN()
	}
	v := f
	for _, i := range a.equalities {
		c := g[i] - a.s.gl[i]
		v += a.lambda[i]*c + 0.5*a.rho*c*c
	}
	for k, q := range a.rows {
		v += a.psi(q.value(g[q.index]), a.muRows[k])
	}
	for k, q := range a.bounds {
		v += a.psi(q.value(x[q.index]), a.muBound[k])
	}
	return v
}

func (a *augState) gradient(dst, x []float64) {
	grad, err := a.s.gradient(x)
	if err != nil {
		fillNaN(dst)
		return
	}
	g, err := a.s.constraints(x)
	if err != nil {
		fillNaN(dst)
		return
	}
	jac, err := a.s.jacobian(x)
	if err != nil {
		fillNaN(dst)
		return
	}
	w, _ := a.rowWeights(g)
	a.s.jacobianTransposeTimes(jac, w, dst)
	floats.Add(dst, grad)
	for k, q := range a.bounds {
		dst[q.index] += a.weight(q.value(x[q.index]), a.muBound[k]) * q.sign()
	}
}

func (a *augState) hessian(dst *mat.SymDense, x []float64) {
	dst.Zero()
	g, err := a.s.constraints(x)
	if err != nil {
		return
	}
	jac, err := a.s.jacobian(x)
	if err != nil {
		return
	}
	w, active := a.rowWeights(g)
	if err := a.s.hessian(x, 1, w, dst); err != nil {
		return
	}
	for i, entries := range a.rowEntries {
		if !active[i] {
			continue
		}
		for _, ka := range entries {
			for _, kb := range entries {
				ca, cb := a.s.jcols[ka], a.s.jcols[kb]
				if ca < cb {
					continue
				}
				dst.SetSym(ca, cb, dst.At(ca, cb)+a.rho*jac[ka]*jac[kb])
			}
		}
	}
	for k, q := range a.bounds {
		if a.muBound[k]-a.rho*q.value(x[q.index]) > 0 {
			j := q.index
			dst.SetSym(j, j, dst.At(j, j)+a.rho)
		}
	}
}

// update moves the multipliers to their first-order estimates and returns
// the constraint violation at x.
func (a *augState) update(x, g []float64) float64 {
	viol := 0.0
	for _, i := range a.equalities {
		c := g[i] - a.s.gl[i]
		a.lambda[i] += a.rho * c
		viol = math.Max(viol, math.Abs(c))
	}
	for k, q := range a.rows {
		c := q.value(g[q.index])
		a.muRows[k] = math.Max(0, a.muRows[k]-a.rho*c)
		viol = math.Max(viol, -c)
	}
	for k, q := range a.bounds {
		c := q.value(x[q.index])
		a.muBound[k] = math.Max(0, a.muBound[k]-a.rho*c)
		viol = math.Max(viol, -c)
	}
	return viol
}

// multipliers reports constraint and bound multipliers with the sign
// convention grad f + J^T lambda - zL + zU = 0.
func (a *augState) multipliers() (lambda, zl, zu []float64) {
	lambda = make([]float64, a.s.m)
	for _, i := range a.equalities {
		lambda[i] = a.lambda[i]
	}
	for k, q := range a.rows {
		lambda[q.index] -= a.muRows[k] * q.sign()
	}
	zl, zu = make([]float64, a.s.n), make([]float64, a.s.n)
	for k, q := range a.bounds {
		if q.upper {
			zu[q.index] = a.muBound[k]
		} else {
			zl[q.index] = a.muBound[k]
		}
	}
	return lambda, zl, zu
}

func fillNaN(v []float64) {
	for i := range v {
		v[i] = math.NaN()
	}
}

func (b *AugLag) Solve(ctx context.Context, cb nlp.Callbacks, opts Options) error {
	exact := opts.HessianApproximation != HessianLimitedMemory
	s, x, err := open(cb, exact)
	if err != nil {
		return err
	}

	rho := opts.Real(optPenaltyInitial, 10)
	increase := opts.Real(optPenaltyIncrease, 10)
	rhoMax := opts.Real(optPenaltyMax, 1e10)
	inner := opts.Int(optInnerIterations, 500)
	a := newAugState(s, rho)

	problem := optimize.Problem{
		Func: a.merit,
		Grad: a.gradient,
		Status: func() (optimize.Status, error) {
			if s.err != nil {
				return optimize.Failure, s.err
			}
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	var method optimize.Method = &optimize.LBFGS{Store: opts.Int(optLBFGSStore, 15)}
	if exact {
		problem.Hess = a.hessian
		method = &optimize.Newton{}
	}

	status := nlp.IterationLimit
	message := ""
	prevViol := math.Inf(1)
	iter := 0
	for ; iter < opts.MaxIterations; iter++ {
		settings := &optimize.Settings{
			GradientThreshold: opts.ConvergenceTolerance,
			MajorIterations:   inner,
			Converger:         &optimize.FunctionConverge{Absolute: 1e-14, Relative: 1e-14, Iterations: 20},
		}
		result, ierr := optimize.Minimize(problem, x, settings, method)
		if s.err != nil {
			status, message = nlp.EvaluationError, s.err.Error()
			break
		}
		if ctx.Err() != nil {
			status, message = nlp.Canceled, ctx.Err().Error()
			break
		}
		if result == nil {
			status, message = nlp.Failed, errString(ierr)
			break
		}
		copy(x, result.X)

		g, err := s.constraints(x)
		if err != nil {
			status, message = nlp.EvaluationError, err.Error()
			break
		}
		f, err := s.objective(x)
		if err != nil {
			status, message = nlp.EvaluationError, err.Error()
			break
		}
		viol := a.update(x, g)
		opt := math.Inf(1)
		if result.Gradient != nil {
			opt = floats.Norm(result.Gradient, math.Inf(1))
		}
		cb.Intermediate(nlp.Iteration{
			Index:         iter,
			Objective:     f,
			Infeasibility: viol,
			Optimality:    opt,
			Penalty:       a.rho,
		})

		if viol <= opts.ConstraintTolerance && opt <= opts.ConvergenceTolerance {
			status = nlp.Solved
			iter++
			break
		}
		if ierr != nil && !errors.Is(ierr, context.Canceled) {
			message = ierr.Error()
		}
		if viol > 0.25*prevViol {
			a.rho *= increase
		}
		prevViol = viol
		if a.rho > rhoMax {
			status = nlp.Infeasible
			message = "penalty parameter exceeded its maximum"
			iter++
			break
		}
	}

	sol := nlp.Solution{
		X:          x,
		Status:     status,
		Iterations: iter,
		Message:    message,
	}
	s.finalObjective(&sol)
	sol.ConstraintMultipliers, sol.LowerBoundMultipliers, sol.UpperBoundMultipliers = a.multipliers()
	if err := s.finalize(sol); err != nil {
		return err
	}
	if sol.Status == nlp.EvaluationError {
		return s.err
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
