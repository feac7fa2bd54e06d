package tape

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/san-kum/trajopt/internal/logs"
	"github.com/san-kum/trajopt/internal/sparsity"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Mode selects the first-derivative formula.
type Mode int

const (
	Central Mode = iota
	Forward
)

func (m Mode) String() string {
	switch m {
	case Central:
		return "central"
	case Forward:
		return "forward"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "central":
		return Central, nil
	case "forward":
		return Forward, nil
	default:
		return 0, fmt.Errorf("tape: unknown finite difference mode %q", s)
	}
}

func (m Mode) formula() fd.Formula {
	if m == Forward {
		return fd.Forward
	}
	return fd.Central
}

const (
	// structureStep is the scaled step used when searching for nonzeros.
	structureStep = 1e-3
	// sampleSpread is the relative radius of the random structure samples.
	sampleSpread = 0.1
	// hessianStructureStep is the scaled step of the mixed second
	// differences used when searching for Hessian nonzeros. A separable pair
	// differences to exactly zero at any step, so a wide step only shrinks
	// the rounding noise, which grows as eps*|f|/h^2.
	hessianStructureStep = 1e-2
	// hessianNoise multiplies the eps*|f|/h^2 rounding estimate to give the
	// cutoff below which a mixed difference is treated as noise.
	hessianNoise = 1e3

	defaultHessianStep = 1e-4
	defaultSamples     = 3
)

// epsilon is the float64 machine epsilon.
var epsilon = math.Nextafter(1, 2) - 1

type FDOption func(*FiniteDifference)

func WithMode(m Mode) FDOption {
	return func(s *FiniteDifference) { s.mode = m }
}

// WithStep sets the relative first-derivative step. Zero keeps the formula
// default.
func WithStep(h float64) FDOption {
	return func(s *FiniteDifference) { s.step = h }
}

func WithHessianStep(h float64) FDOption {
	return func(s *FiniteDifference) { s.hessianStep = h }
}

// WithSamples sets how many points are sampled when detecting sparsity. The
// traced point is always one of them.
func WithSamples(n int) FDOption {
	return func(s *FiniteDifference) { s.samples = n }
}

func WithSeed(seed uint64) FDOption {
	return func(s *FiniteDifference) { s.seed = seed }
}

func WithLogger(l *slog.Logger) FDOption {
	return func(s *FiniteDifference) { s.logger = l }
}

// FiniteDifference is a Service that differentiates traced functions
// numerically. Steps are scaled per variable by max(1, |x_j|).
type FiniteDifference struct {
	mode        Mode
	step        float64
	hessianStep float64
	samples     int
	seed        uint64
	logger      *slog.Logger

	colorings map[*sparsity.Pattern]sparsity.Coloring
}

func NewFiniteDifference(opts ...FDOption) *FiniteDifference {
	s := &FiniteDifference{
		mode:        Central,
		hessianStep: defaultHessianStep,
		samples:     defaultSamples,
		seed:        1,
		logger:      logs.Discard(),
		colorings:   make(map[*sparsity.Pattern]sparsity.Coloring),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.samples < 1 {
		s.samples = 1
	}
	if s.hessianStep <= 0 {
		s.hessianStep = defaultHessianStep
	}
	return s
}

type fdTape struct {
	tag   Tag
	f     Func
	n, m  int
	point []float64
	value []float64
}

func (t *fdTape) Tag() Tag         { return t.tag }
func (t *fdTape) Inputs() int      { return t.n }
func (t *fdTape) Outputs() int     { return t.m }
func (t *fdTape) Point() []float64 { return slices.Clone(t.point) }
func (t *fdTape) Value() []float64 { return slices.Clone(t.value) }

func (s *FiniteDifference) own(t Tape) (*fdTape, error) {
	ft, ok := t.(*fdTape)
	if !ok || ft == nil {
		return nil, ErrForeignTape
	}
	return ft, nil
}

func (s *FiniteDifference) Trace(tag Tag, f Func, outputs int, x []float64) (Tape, error) {
	if len(x) == 0 {
		return nil, &TraceError{Tag: tag, Op: "trace", Err: errors.New("empty point")}
	}
	if outputs < 0 {
		return nil, &TraceError{Tag: tag, Op: "trace", Err: fmt.Errorf("negative output count %d", outputs)}
	}
	t := &fdTape{
		tag:   tag,
		f:     f,
		n:     len(x),
		m:     outputs,
		point: slices.Clone(x),
		value: make([]float64, outputs),
	}
	if err := guard(tag, "trace", func() { f(t.value, t.point) }); err != nil {
		return nil, err
	}
	s.logger.Debug("tape traced", "tag", tag, "inputs", t.n, "outputs", t.m)
	return t, nil
}

func (s *FiniteDifference) Value(t Tape, x, y []float64) error {
	ft, err := s.own(t)
	if err != nil {
		return err
	}
	if len(x) != ft.n || len(y) != ft.m {
		return fmt.Errorf("%w: value buffers %d/%d, tape %d/%d", ErrPatternSize, len(x), len(y), ft.n, ft.m)
	}
	return guard(ft.tag, "value", func() { ft.f(y, x) })
}

func scales(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = math.Max(1, math.Abs(v))
	}
	return out
}

// scaled returns g(s) = f(x + scale .* s), so that differencing g at zero
// with an absolute step is a relative step in x.
func scaled(f Func, x, scale []float64) Func {
	xs := make([]float64, len(x))
	return func(y, s []float64) {
		for j := range xs {
			xs[j] = x[j] + s[j]*scale[j]
		}
		f(y, xs)
	}
}

func (s *FiniteDifference) Gradient(t Tape, x, grad []float64) error {
	ft, err := s.own(t)
	if err != nil {
		return err
	}
	if ft.m != 1 {
		return fmt.Errorf("%w: gradient of %d outputs", ErrNotScalar, ft.m)
	}
	if len(x) != ft.n || len(grad) != ft.n {
		return fmt.Errorf("%w: gradient buffers %d/%d, tape %d", ErrPatternSize, len(x), len(grad), ft.n)
	}

	scale := scales(x)
	g := scaled(ft.f, x, scale)
	y := make([]float64, 1)
	psi := func(seed []float64) float64 {
		g(y, seed)
		return y[0]
	}
	settings := &fd.Settings{Formula: s.mode.formula(), Step: s.step}
	if s.mode == Forward && slices.Equal(x, ft.point) {
		settings.OriginKnown = true
		settings.OriginValue = ft.value[0]
	}

	err = guard(ft.tag, "gradient", func() {
		fd.Gradient(grad, psi, make([]float64, ft.n), settings)
	})
	if err != nil {
		return err
	}
	for j := range grad {
		grad[j] /= scale[j]
	}
	return nil
}

// samplePoints returns the traced point followed by seeded random
// perturbations of it.
func (s *FiniteDifference) samplePoints(t *fdTape) [][]float64 {
	rng := rand.New(rand.NewPCG(s.seed, uint64(t.tag)))
	points := [][]float64{t.point}
	for k := 1; k < s.samples; k++ {
		xp := slices.Clone(t.point)
		for j := range xp {
			xp[j] += sampleSpread * math.Max(1, math.Abs(xp[j])) * (2*rng.Float64() - 1)
		}
		points = append(points, xp)
	}
	return points
}

func (s *FiniteDifference) JacobianPattern(t Tape) (*sparsity.Pattern, error) {
	ft, err := s.own(t)
	if err != nil {
		return nil, err
	}
	if ft.m == 0 {
		return sparsity.FromDense(0, ft.n, nil), nil
	}

	var union *sparsity.Pattern
	for _, xp := range s.samplePoints(ft) {
		dst := mat.NewDense(ft.m, ft.n, nil)
		err := guard(ft.tag, "jacobian pattern", func() {
			fd.Jacobian(dst, scaled(ft.f, xp, scales(xp)), make([]float64, ft.n), &fd.JacobianSettings{
				Formula: fd.Forward,
				Step:    structureStep,
			})
		})
		if err != nil {
			return nil, err
		}
		p := sparsity.FromDense(ft.m, ft.n, func(i, j int) bool {
			v := dst.At(i, j)
			return v != 0 || math.IsNaN(v)
		})
		if union, err = merge(union, p); err != nil {
			return nil, err
		}
	}
	s.logger.Debug("jacobian sparsity", "tag", ft.tag, "nnz", union.NNZ())
	return union, nil
}

func (s *FiniteDifference) HessianPattern(t Tape) (*sparsity.Pattern, error) {
	ft, err := s.own(t)
	if err != nil {
		return nil, err
	}
	if ft.m != 1 {
		return nil, fmt.Errorf("%w: hessian of %d outputs", ErrNotScalar, ft.m)
	}

	var union *sparsity.Pattern
	y := make([]float64, 1)
	for _, xp := range s.samplePoints(ft) {
		g := scaled(ft.f, xp, scales(xp))
		psi := func(seed []float64) float64 {
			g(y, seed)
			return y[0]
		}
		dst := mat.NewSymDense(ft.n, nil)
		var origin float64
		err := guard(ft.tag, "hessian pattern", func() {
			origin = psi(make([]float64, ft.n))
			fd.Hessian(dst, psi, make([]float64, ft.n), &fd.Settings{
				Formula:     fd.Forward,
				Step:        hessianStructureStep,
				OriginKnown: true,
				OriginValue: origin,
			})
		})
		if err != nil {
			return nil, err
		}
		tol := hessianNoise * epsilon * (1 + math.Abs(origin)) / (hessianStructureStep * hessianStructureStep)
		p := sparsity.FromDense(ft.n, ft.n, func(i, j int) bool {
			if j > i {
				return false
			}
			if i == j {
				return true
			}
			v := dst.At(i, j)
			return math.Abs(v) > tol || math.IsNaN(v)
		})
		if union, err = merge(union, p); err != nil {
			return nil, err
		}
	}
	s.logger.Debug("hessian sparsity", "tag", ft.tag, "nnz", union.NNZ())
	return union, nil
}

func merge(acc, p *sparsity.Pattern) (*sparsity.Pattern, error) {
	if acc == nil {
		return p, nil
	}
	return acc.Union(p)
}

func (s *FiniteDifference) coloring(p *sparsity.Pattern) sparsity.Coloring {
	if c, ok := s.colorings[p]; ok {
		return c
	}
	c := p.ColorColumns()
	s.colorings[p] = c
	return c
}

// SparseJacobian differences one compressed column per color group and
// scatters the result onto the entries of p.
func (s *FiniteDifference) SparseJacobian(t Tape, x []float64, p *sparsity.Pattern, values []float64) error {
	ft, err := s.own(t)
	if err != nil {
		return err
	}
	if rows, cols := p.Dims(); rows != ft.m || cols != ft.n {
		return fmt.Errorf("%w: jacobian pattern %dx%d, tape %dx%d", ErrPatternSize, rows, cols, ft.m, ft.n)
	}
	if len(values) != p.NNZ() || len(x) != ft.n {
		return fmt.Errorf("%w: %d values for %d entries", ErrPatternSize, len(values), p.NNZ())
	}
	if p.NNZ() == 0 {
		return nil
	}

	col := s.coloring(p)
	scale := scales(x)
	xs := make([]float64, ft.n)
	compressed := func(y, seed []float64) {
		for j := range xs {
			xs[j] = x[j] + seed[col.Colors[j]]*scale[j]
		}
		ft.f(y, xs)
	}
	settings := &fd.JacobianSettings{Formula: s.mode.formula(), Step: s.step}
	if s.mode == Forward && slices.Equal(x, ft.point) {
		settings.OriginValue = slices.Clone(ft.value)
	}

	dst := mat.NewDense(ft.m, col.Groups, nil)
	err = guard(ft.tag, "sparse jacobian", func() {
		fd.Jacobian(dst, compressed, make([]float64, col.Groups), settings)
	})
	if err != nil {
		return err
	}
	for k := range values {
		e := p.Entry(k)
		values[k] = dst.At(e.Row, col.Colors[e.Col]) / scale[e.Col]
	}
	return nil
}

// SparseHessian evaluates the lower-triangular entries of p with the
// product of two central first-difference stencils, the scheme of
// fd.Hessian restricted to structural nonzeros.
func (s *FiniteDifference) SparseHessian(t Tape, x []float64, p *sparsity.Pattern, values []float64) error {
	ft, err := s.own(t)
	if err != nil {
		return err
	}
	if ft.m != 1 {
		return fmt.Errorf("%w: hessian of %d outputs", ErrNotScalar, ft.m)
	}
	if rows, cols := p.Dims(); rows != ft.n || cols != ft.n || !p.IsLower() {
		return fmt.Errorf("%w: hessian pattern %dx%d must be lower triangular %dx%d", ErrPatternSize, rows, cols, ft.n, ft.n)
	}
	if len(values) != p.NNZ() || len(x) != ft.n {
		return fmt.Errorf("%w: %d values for %d entries", ErrPatternSize, len(values), p.NNZ())
	}

	stencil := fd.Central.Stencil
	scale := scales(x)
	xs := make([]float64, ft.n)
	y := make([]float64, 1)
	eval := func() float64 {
		ft.f(y, xs)
		return y[0]
	}

	return guard(ft.tag, "sparse hessian", func() {
		copy(xs, x)
		origin := eval()
		for k := range values {
			e := p.Entry(k)
			hi, hj := s.hessianStep*scale[e.Row], s.hessianStep*scale[e.Col]
			var sum float64
			for _, pi := range stencil {
				for _, pj := range stencil {
					var v float64
					if e.Row == e.Col && pi.Loc+pj.Loc == 0 {
						v = origin
					} else {
						copy(xs, x)
						xs[e.Row] += pi.Loc * hi
						xs[e.Col] += pj.Loc * hj
						v = eval()
					}
					sum += pi.Coeff * pj.Coeff * v
				}
			}
			values[k] = sum / (hi * hj)
		}
	})
}
