package problems

import (
	"errors"
	"fmt"
	"slices"

	"github.com/san-kum/trajopt/internal/ocp"
)

var ErrUnknownProblem = errors.New("problems: unknown problem")

// Problem is what the registry hands out.
type Problem interface {
	ocp.Problem
	ocp.Configurable
}

type Registry struct {
	problems map[string]func() Problem
}

func NewRegistry() *Registry {
	r := &Registry{problems: make(map[string]func() Problem)}

	r.problems["slider"] = func() Problem { return NewSlider() }
	r.problems["linear"] = func() Problem { return NewLinear() }
	r.problems["sliding-mass"] = func() Problem { return NewSlidingMass() }
	r.problems["pendulum"] = func() Problem { return NewPendulum() }
	r.problems["cartpole"] = func() Problem { return NewCartPole() }

	return r
}

// Get returns a fresh instance with default parameters.
func (r *Registry) Get(name string) (Problem, error) {
	fn, ok := r.problems[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProblem, name)
	}
	return fn(), nil
}

// Configure returns a fresh instance with params applied.
func (r *Registry) Configure(name string, params map[string]float64) (Problem, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := p.SetParam(k, params[k]); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := ocp.CheckProblem(p); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.problems))
	for name := range r.problems {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
