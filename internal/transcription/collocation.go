package transcription

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/trajopt/internal/logs"
	"github.com/san-kum/trajopt/internal/ocp"
	"gonum.org/v1/gonum/floats"
)

type Option func(*DirectCollocation)

func WithQuadrature(q Quadrature) Option {
	return func(dc *DirectCollocation) { dc.quadrature = q }
}

func WithLogger(l *slog.Logger) Option {
	return func(dc *DirectCollocation) { dc.logger = l }
}

// DirectCollocation is the transcription of one problem on one mesh. The
// layout and bound vectors are fixed at construction; Objective and
// Constraints are pure functions of the variable vector.
type DirectCollocation struct {
	Layout

	problem    ocp.Problem
	bounds     ocp.Bounds
	mesh       Mesh
	quadrature Quadrature
	logger     *slog.Logger

	variableLower   []float64
	variableUpper   []float64
	constraintLower []float64
	constraintUpper []float64
}

func New(p ocp.Problem, meshPoints int, opts ...Option) (*DirectCollocation, error) {
	ns, nc := p.StateDim(), p.ControlDim()
	if ns == 0 && nc > 0 {
		b := p.Bounds()
		if d := p.Derive(ocp.State{}, make(ocp.Control, nc), b.InitialTime); len(d) != 0 {
			return nil, fmt.Errorf("%w: derivative has %d entries", ErrNoDynamics, len(d))
		}
	}
	if err := ocp.CheckProblem(p); err != nil {
		return nil, err
	}
	b := p.Bounds()
	mesh, err := NewMesh(meshPoints, b.InitialTime, b.FinalTime)
	if err != nil {
		return nil, err
	}

	dc := &DirectCollocation{
		Layout:  Layout{Points: meshPoints, States: ns, Controls: nc},
		problem: p,
		bounds:  b,
		mesh:    mesh,
		logger:  logs.Discard(),
	}
	for _, opt := range opts {
		opt(dc)
	}
	dc.assembleBounds()

	dc.logger.Debug("transcription ready",
		"points", meshPoints,
		"states", ns,
		"controls", nc,
		"variables", dc.NumVariables(),
		"constraints", dc.NumConstraints(),
		"quadrature", dc.quadrature.String(),
	)
	return dc, nil
}

func (dc *DirectCollocation) assembleBounds() {
	n := dc.NumVariables()
	dc.variableLower = make([]float64, n)
	dc.variableUpper = make([]float64, n)
	for i := 0; i < dc.Points; i++ {
		for s, bd := range dc.bounds.States {
			k := dc.StateIndex(i, s)
			dc.variableLower[k], dc.variableUpper[k] = bd.Lower, bd.Upper
		}
		for c, bd := range dc.bounds.Controls {
			k := dc.ControlIndex(i, c)
			dc.variableLower[k], dc.variableUpper[k] = bd.Lower, bd.Upper
		}
	}

	m := dc.NumConstraints()
	dc.constraintLower = make([]float64, m)
	dc.constraintUpper = make([]float64, m)
	sections := []struct {
		section Section
		list    []ocp.Bound
	}{
		{InitialStates, dc.bounds.InitialStates},
		{FinalStates, dc.bounds.FinalStates},
		{InitialControls, dc.bounds.InitialControls},
		{FinalControls, dc.bounds.FinalControls},
	}
	for _, sec := range sections {
		for i, bd := range sec.list {
			k := dc.BoundaryIndex(sec.section, i)
			dc.constraintLower[k], dc.constraintUpper[k] = bd.Lower, bd.Upper
		}
	}
	// defect rows stay [0, 0]
}

func (dc *DirectCollocation) Problem() ocp.Problem { return dc.problem }
func (dc *DirectCollocation) Mesh() Mesh           { return dc.mesh }
func (dc *DirectCollocation) Quadrature() Quadrature {
	return dc.quadrature
}

// Weights returns the quadrature factor of every mesh point, in mesh order.
func (dc *DirectCollocation) Weights() []float64 {
	h := dc.mesh.Step()
	w := make([]float64, dc.Points)
	for i := range w {
		w[i] = dc.quadrature.weight(i, dc.Points, h)
	}
	return w
}

// VariableBounds returns copies of the per-variable bounds.
func (dc *DirectCollocation) VariableBounds() (lower, upper []float64) {
	return clone(dc.variableLower), clone(dc.variableUpper)
}

// ConstraintBounds returns copies of the per-row constraint bounds.
func (dc *DirectCollocation) ConstraintBounds() (lower, upper []float64) {
	return clone(dc.constraintLower), clone(dc.constraintUpper)
}

func (dc *DirectCollocation) states(x []float64, i int) ocp.State {
	lo := dc.StateIndex(i, 0)
	return ocp.State(x[lo : lo+dc.States : lo+dc.States])
}

func (dc *DirectCollocation) controls(x []float64, i int) ocp.Control {
	lo := dc.ControlIndex(i, 0)
	return ocp.Control(x[lo : lo+dc.Controls : lo+dc.Controls])
}

// Objective integrates the running cost with the configured quadrature.
func (dc *DirectCollocation) Objective(x []float64) float64 {
	h := dc.mesh.Step()
	total := 0.0
	for i := 0; i < dc.Points; i++ {
		w := dc.quadrature.weight(i, dc.Points, h)
		if w == 0 {
			continue
		}
		total += w * dc.problem.IntegralCost(dc.states(x, i), dc.controls(x, i), dc.mesh.Time(i))
	}
	return total
}

// Constraints writes the boundary copies and the defects into g, which must
// have NumConstraints entries.
func (dc *DirectCollocation) Constraints(x, g []float64) {
	last := dc.Points - 1
	for s := 0; s < dc.States; s++ {
		g[dc.BoundaryIndex(InitialStates, s)] = x[dc.StateIndex(0, s)]
		g[dc.BoundaryIndex(FinalStates, s)] = x[dc.StateIndex(last, s)]
	}
	for c := 0; c < dc.Controls; c++ {
		g[dc.BoundaryIndex(InitialControls, c)] = x[dc.ControlIndex(0, c)]
		g[dc.BoundaryIndex(FinalControls, c)] = x[dc.ControlIndex(last, c)]
	}
	if dc.States == 0 {
		return
	}

	h := dc.mesh.Step()
	for i := 1; i < dc.Points; i++ {
		xi := dc.states(x, i)
		prev := dc.states(x, i-1)
		dx := dc.problem.Derive(xi, dc.controls(x, i), dc.mesh.Time(i))
		for s := 0; s < dc.States; s++ {
			g[dc.DefectIndex(i-1, s)] = xi[s] - (prev[s] + h*dx[s])
		}
	}
}

// Defects returns the defect block of the constraint vector at x.
func (dc *DirectCollocation) Defects(x []float64) ([]float64, error) {
	if len(x) != dc.NumVariables() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrGuessLength, len(x), dc.NumVariables())
	}
	g := make([]float64, dc.NumConstraints())
	dc.Constraints(x, g)
	return g[dc.DefectOffset():], nil
}

// MaxDefect is the largest absolute defect at x.
func (dc *DirectCollocation) MaxDefect(x []float64) (float64, error) {
	d, err := dc.Defects(x)
	if err != nil {
		return 0, err
	}
	if len(d) == 0 {
		return 0, nil
	}
	return floats.Norm(d, math.Inf(1)), nil
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
