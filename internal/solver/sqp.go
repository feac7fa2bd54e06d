package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/trajopt/internal/nlp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	optRegularization = "hessian_regularization"
	optArmijo         = "armijo"
	optMinStep        = "min_step"
)

// SQP is a Lagrange-Newton method for equality-constrained programs. Each
// iteration solves the dense KKT system
//
//	[H + dI  J^T] [dx     ]   [-grad f]
//	[J       0  ] [lambda+] = [-c     ]
//
// and backtracks on the l1 merit function f + nu*|c|_1. Rows with both
// bounds infinite are ignored. Finite variable bounds and inequality rows
// are not supported.
type SQP struct{}

func NewSQP() *SQP {
	return &SQP{}
}

func (*SQP) Name() string { return "sqp" }

func (*SQP) Options() OptionSet {
	return OptionSet{
		Reals: []string{optRegularization, optArmijo, optMinStep},
	}
}

func (*SQP) HessianApproximations() []string {
	return []string{HessianExact}
}

func (b *SQP) Solve(ctx context.Context, cb nlp.Callbacks, opts Options) error {
	s, x, err := open(cb, true)
	if err != nil {
		return err
	}

	for j := 0; j < s.n; j++ {
		if finite(s.xl[j]) || finite(s.xu[j]) {
			return b.reject(s, x, fmt.Errorf("%w: sqp: variable %d has a finite bound", ErrUnsupportedProblem, j))
		}
	}
	var rows []int
	for i := 0; i < s.m; i++ {
		switch {
		case s.gl[i] == s.gu[i]:
			rows = append(rows, i)
		case finite(s.gl[i]) || finite(s.gu[i]):
			return b.reject(s, x, fmt.Errorf("%w: sqp: constraint %d is an inequality", ErrUnsupportedProblem, i))
		}
	}
	position := make(map[int]int, len(rows))
	for k, i := range rows {
		position[i] = k
	}

	delta := opts.Real(optRegularization, 1e-8)
	armijo := opts.Real(optArmijo, 1e-4)
	minStep := opts.Real(optMinStep, 1e-10)

	n, me := s.n, len(rows)
	lambda := make([]float64, s.m)
	nu := 1.0
	status := nlp.IterationLimit
	message := ""
	iter := 0

	residual := func(g []float64) []float64 {
		c := make([]float64, me)
		for k, i := range rows {
			c[k] = g[i] - s.gl[i]
		}
		return c
	}
	merit := func(x []float64) (float64, error) {
		f, err := s.objective(x)
		if err != nil {
			return 0, err
		}
		g, err := s.constraints(x)
		if err != nil {
			return 0, err
		}
		return f + nu*floats.Norm(residual(g), 1), nil
	}

	for ; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			status, message = nlp.Canceled, err.Error()
			break
		}
		f, err := s.objective(x)
		if err != nil {
			break
		}
		grad, err := s.gradient(x)
		if err != nil {
			break
		}
		g, err := s.constraints(x)
		if err != nil {
			break
		}
		jac, err := s.jacobian(x)
		if err != nil {
			break
		}
		c := residual(g)

		stationarity := make([]float64, n)
		s.jacobianTransposeTimes(jac, lambda, stationarity)
		floats.Add(stationarity, grad)
		opt := floats.Norm(stationarity, math.Inf(1))
		viol := 0.0
		if me > 0 {
			viol = floats.Norm(c, math.Inf(1))
		}
		cb.Intermediate(nlp.Iteration{Index: iter, Objective: f, Infeasibility: viol, Optimality: opt, Penalty: nu})
		if opt <= opts.ConvergenceTolerance && viol <= opts.ConstraintTolerance {
			status = nlp.Solved
			break
		}

		hess := mat.NewSymDense(n, nil)
		if err := s.hessian(x, 1, lambda, hess); err != nil {
			break
		}
		kkt := mat.NewDense(n+me, n+me, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				kkt.Set(i, j, hess.At(i, j))
			}
			kkt.Set(i, i, kkt.At(i, i)+delta)
		}
		for k, v := range jac {
			r, ok := position[s.jrows[k]]
			if !ok {
				continue
			}
			kkt.Set(n+r, s.jcols[k], v)
			kkt.Set(s.jcols[k], n+r, v)
		}
		rhs := mat.NewVecDense(n+me, nil)
		for j := 0; j < n; j++ {
			rhs.SetVec(j, -grad[j])
		}
		for k := range c {
			rhs.SetVec(n+k, -c[k])
		}

		var step mat.VecDense
		if err := step.SolveVec(kkt, rhs); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
				status, message = nlp.SearchFailed, fmt.Sprintf("KKT system: %v", err)
				break
			}
		}
		dx := make([]float64, n)
		for j := range dx {
			dx[j] = step.AtVec(j)
		}
		next := make([]float64, s.m)
		for k, i := range rows {
			next[i] = step.AtVec(n + k)
		}
		nu = math.Max(nu, floats.Norm(next, math.Inf(1))+1)

		phi0, err := merit(x)
		if err != nil {
			break
		}
		slope := floats.Dot(grad, dx) - nu*floats.Norm(c, 1)
		alpha := 1.0
		trial := make([]float64, n)
		accepted := false
		for alpha >= minStep {
			copy(trial, x)
			floats.AddScaled(trial, alpha, dx)
			phi, err := merit(trial)
			if err != nil {
				break
			}
			if phi <= phi0+armijo*alpha*slope {
				accepted = true
				break
			}
			alpha *= 0.5
		}
		if s.err != nil {
			break
		}
		if !accepted {
			status, message = nlp.SearchFailed, "line search could not reduce the merit function"
			break
		}
		copy(x, trial)
		for i := range lambda {
			lambda[i] += alpha * (next[i] - lambda[i])
		}
	}
	if s.err != nil {
		status, message = nlp.EvaluationError, s.err.Error()
	}

	sol := nlp.Solution{
		X:                     x,
		Objective:             math.NaN(),
		Status:                status,
		Iterations:            iter,
		Message:               message,
		ConstraintMultipliers: lambda,
		LowerBoundMultipliers: make([]float64, s.n),
		UpperBoundMultipliers: make([]float64, s.n),
	}
	s.finalObjective(&sol)
	if err := s.finalize(sol); err != nil {
		return err
	}
	if sol.Status == nlp.EvaluationError {
		return s.err
	}
	return nil
}

// reject finalizes at the starting point and returns why the problem is
// out of scope.
func (b *SQP) reject(s *session, x []float64, err error) error {
	_ = s.finalize(nlp.Solution{X: x, Objective: math.NaN(), Status: nlp.Failed, Message: err.Error()})
	return err
}
