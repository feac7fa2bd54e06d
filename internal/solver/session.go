package solver

import (
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/trajopt/internal/nlp"
	"gonum.org/v1/gonum/mat"
)

// session wraps the callbacks of one solve. It tracks the last point to
// derive the newX flag, caches values at the current point, and remembers
// the first fatal callback error.
type session struct {
	cb   nlp.Callbacks
	n, m int

	xl, xu, gl, gu []float64
	jrows, jcols   []int
	hrows, hcols   []int

	last  []float64
	f     float64
	hasF  bool
	g     []float64
	hasG  bool
	jac   []float64
	hasJ  bool
	grad  []float64
	hasDF bool

	err error
}

// open walks the callbacks through bounds, starting point and structure
// queries, and returns the starting point.
func open(cb nlp.Callbacks, wantHessian bool) (*session, []float64, error) {
	n, m := cb.NumVariables(), cb.NumConstraints()
	s := &session{
		cb: cb,
		n:  n,
		m:  m,
		xl: make([]float64, n),
		xu: make([]float64, n),
		gl: make([]float64, m),
		gu: make([]float64, m),
	}
	if err := cb.Bounds(s.xl, s.xu, s.gl, s.gu); err != nil {
		return nil, nil, err
	}
	x := make([]float64, n)
	if err := cb.StartingPoint(true, false, false, x); err != nil {
		return nil, nil, err
	}

	nj, err := cb.NumJacobianNonzeros()
	if err != nil {
		return nil, nil, err
	}
	s.jrows, s.jcols = make([]int, nj), make([]int, nj)
	if err := cb.Jacobian(nil, false, s.jrows, s.jcols, nil); err != nil {
		return nil, nil, err
	}
	s.g = make([]float64, m)
	s.jac = make([]float64, nj)
	s.grad = make([]float64, n)

	if wantHessian {
		nh, err := cb.NumHessianNonzeros()
		if err != nil {
			return nil, nil, err
		}
		s.hrows, s.hcols = make([]int, nh), make([]int, nh)
		if err := cb.Hessian(nil, false, 0, nil, false, s.hrows, s.hcols, nil); err != nil {
			return nil, nil, err
		}
	}
	return s, x, nil
}

// move reports whether x differs from the last point and, if so, makes it
// the current point and drops cached values.
func (s *session) move(x []float64) bool {
	if s.last != nil && slices.Equal(s.last, x) {
		return false
	}
	s.last = slices.Clone(x)
	s.hasF, s.hasG, s.hasJ, s.hasDF = false, false, false, false
	return true
}

func (s *session) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *session) objective(x []float64) (float64, error) {
	newX := s.move(x)
	if s.hasF {
		return s.f, nil
	}
	f, err := s.cb.Objective(x, newX)
	if err != nil {
		s.fail(err)
		return math.NaN(), err
	}
	s.f, s.hasF = f, true
	return f, nil
}

// gradient returns the cached objective gradient at x. The slice is owned
// by the session.
func (s *session) gradient(x []float64) ([]float64, error) {
	newX := s.move(x)
	if s.hasDF {
		return s.grad, nil
	}
	if err := s.cb.ObjectiveGradient(x, newX, s.grad); err != nil {
		s.fail(err)
		return nil, err
	}
	s.hasDF = true
	return s.grad, nil
}

func (s *session) constraints(x []float64) ([]float64, error) {
	newX := s.move(x)
	if s.hasG || s.m == 0 {
		return s.g, nil
	}
	if err := s.cb.Constraints(x, newX, s.g); err != nil {
		s.fail(err)
		return nil, err
	}
	s.hasG = true
	return s.g, nil
}

func (s *session) jacobian(x []float64) ([]float64, error) {
	newX := s.move(x)
	if s.hasJ || len(s.jac) == 0 {
		return s.jac, nil
	}
	if err := s.cb.Jacobian(x, newX, nil, nil, s.jac); err != nil {
		s.fail(err)
		return nil, err
	}
	s.hasJ = true
	return s.jac, nil
}

// hessian adds the Hessian of sigma*f + lambda^T g at x into dst.
func (s *session) hessian(x []float64, sigma float64, lambda []float64, dst *mat.SymDense) error {
	newX := s.move(x)
	values := make([]float64, len(s.hrows))
	if err := s.cb.Hessian(x, newX, sigma, lambda, true, nil, nil, values); err != nil {
		s.fail(err)
		return err
	}
	for k, v := range values {
		i, j := s.hrows[k], s.hcols[k]
		dst.SetSym(i, j, dst.At(i, j)+v)
	}
	return nil
}

// jacobianTransposeTimes writes J^T w into dst.
func (s *session) jacobianTransposeTimes(jac, w, dst []float64) {
	clear(dst)
	for k, v := range jac {
		dst[s.jcols[k]] += v * w[s.jrows[k]]
	}
}

// byRow groups Jacobian entry positions by row.
func (s *session) byRow() [][]int {
	rows := make([][]int, s.m)
	for k, r := range s.jrows {
		rows[r] = append(rows[r], k)
	}
	return rows
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// finalObjective fills in the objective at sol.X. A failed evaluation turns
// the solution into an evaluation error with a NaN objective.
func (s *session) finalObjective(sol *nlp.Solution) {
	if sol.Status == nlp.EvaluationError {
		sol.Objective = math.NaN()
		return
	}
	f, err := s.objective(sol.X)
	if err != nil {
		sol.Status, sol.Message, sol.Objective = nlp.EvaluationError, err.Error(), math.NaN()
		return
	}
	sol.Objective = f
}

func (s *session) finalize(sol nlp.Solution) error {
	if err := s.cb.Finalize(sol); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	return nil
}
