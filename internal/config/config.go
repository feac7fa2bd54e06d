// Package config loads and validates YAML run configurations.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/san-kum/trajopt/internal/control"
	"github.com/san-kum/trajopt/internal/integrators"
	"github.com/san-kum/trajopt/internal/ocp"
	"github.com/san-kum/trajopt/internal/logs"
	"github.com/san-kum/trajopt/internal/solver"
	"github.com/san-kum/trajopt/internal/transcription"
	"gopkg.in/yaml.v3"
)

const (
	DefaultProblem    = "slider"
	DefaultMeshPoints = 21
	DefaultBackend    = "auglag"
	DefaultIntegrator = "rk4"
	DefaultDataDir    = "data"
	DefaultLogLevel   = "info"

	GuessBounds     = "bounds"
	GuessSimulation = "simulation"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Problem    string             `yaml:"problem"`
	Params     map[string]float64 `yaml:"params,omitempty"`
	MeshPoints int                `yaml:"mesh_points"`
	Quadrature string             `yaml:"quadrature"`
	Guess      string             `yaml:"guess"`
	Integrator string             `yaml:"integrator"`

	// GuessPolicy names the controller that drives a simulated guess.
	// Empty uses the bound-derived controls.
	GuessPolicy  string             `yaml:"guess_policy,omitempty"`
	PolicyParams map[string]float64 `yaml:"policy_params,omitempty"`

	Solver   SolverConfig `yaml:"solver"`
	DataDir  string       `yaml:"data_dir"`
	LogLevel string       `yaml:"log_level"`
}

// SolverConfig mirrors the solver options. Nil fields leave the solver
// default in place; a present field is always handed to the solver setter,
// so max_iterations: 0 is rejected rather than ignored.
type SolverConfig struct {
	Backend              string                 `yaml:"backend"`
	MaxIterations        *int                   `yaml:"max_iterations,omitempty"`
	ConvergenceTolerance *float64               `yaml:"convergence_tolerance,omitempty"`
	ConstraintTolerance  *float64               `yaml:"constraint_tolerance,omitempty"`
	HessianApproximation string                 `yaml:"hessian_approximation,omitempty"`
	FiniteDifference     FiniteDifferenceConfig `yaml:"finite_difference,omitempty"`
	Strings              map[string]string      `yaml:"strings,omitempty"`
	Ints                 map[string]int         `yaml:"ints,omitempty"`
	Reals                map[string]float64     `yaml:"reals,omitempty"`
}

type FiniteDifferenceConfig struct {
	Mode string   `yaml:"mode,omitempty"`
	Step *float64 `yaml:"step,omitempty"`
}

// Ptr returns a pointer to v, for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return Ptr(*p)
}

func DefaultConfig() *Config {
	return &Config{
		Problem:    DefaultProblem,
		MeshPoints: DefaultMeshPoints,
		Quadrature: transcription.RightRectangle.String(),
		Guess:      GuessBounds,
		Integrator: DefaultIntegrator,
		Solver: SolverConfig{
			Backend: DefaultBackend,
		},
		DataDir:  DefaultDataDir,
		LogLevel: DefaultLogLevel,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the fields that can be checked without building the
// problem. Problem names and params are checked by the problem registry.
func (c *Config) Validate() error {
	if c.Problem == "" {
		return fmt.Errorf("%w: problem is empty", ErrInvalidConfig)
	}
	if c.MeshPoints < 2 {
		return fmt.Errorf("%w: mesh_points must be at least 2, got %d", ErrInvalidConfig, c.MeshPoints)
	}
	if _, err := transcription.ParseQuadrature(c.Quadrature); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Guess {
	case GuessBounds:
		if c.GuessPolicy != "" {
			return fmt.Errorf("%w: guess_policy %q needs guess %q", ErrInvalidConfig, c.GuessPolicy, GuessSimulation)
		}
	case GuessSimulation:
		if _, err := integrators.New(c.Integrator); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if c.GuessPolicy != "" && !slices.Contains(control.Names(), c.GuessPolicy) {
			return fmt.Errorf("%w: guess_policy must be one of %v, got %q", ErrInvalidConfig, control.Names(), c.GuessPolicy)
		}
	default:
		return fmt.Errorf("%w: guess must be %q or %q, got %q", ErrInvalidConfig, GuessBounds, GuessSimulation, c.Guess)
	}
	backend, err := solver.NewBackend(c.Solver.Backend)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.ApplySolver(solver.New(backend)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := logs.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// QuadratureRule returns the parsed quadrature.
func (c *Config) QuadratureRule() (transcription.Quadrature, error) {
	return transcription.ParseQuadrature(c.Quadrature)
}

// ApplySolver copies every set option onto s. The first rejected value
// is returned.
func (c *Config) ApplySolver(s *solver.Solver) error {
	sc := c.Solver
	var errs []error
	if sc.MaxIterations != nil {
		errs = append(errs, s.SetMaxIterations(*sc.MaxIterations))
	}
	if sc.ConvergenceTolerance != nil {
		errs = append(errs, s.SetConvergenceTolerance(*sc.ConvergenceTolerance))
	}
	if sc.ConstraintTolerance != nil {
		errs = append(errs, s.SetConstraintTolerance(*sc.ConstraintTolerance))
	}
	if sc.HessianApproximation != "" {
		errs = append(errs, s.SetHessianApproximation(sc.HessianApproximation))
	}
	if sc.FiniteDifference.Mode != "" {
		errs = append(errs, s.SetFiniteDifferenceMode(sc.FiniteDifference.Mode))
	}
	if sc.FiniteDifference.Step != nil {
		errs = append(errs, s.SetFiniteDifferenceStep(*sc.FiniteDifference.Step))
	}
	for k, v := range sc.Strings {
		errs = append(errs, s.SetStringOption(k, v))
	}
	for k, v := range sc.Ints {
		errs = append(errs, s.SetIntOption(k, v))
	}
	for k, v := range sc.Reals {
		errs = append(errs, s.SetRealOption(k, v))
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// BuildGuess returns the starting point selected by Guess. A simulated
// guess is driven by the GuessPolicy controller built for p.
func (c *Config) BuildGuess(dc *transcription.DirectCollocation) ([]float64, error) {
	if c.Guess != GuessSimulation {
		return dc.GuessFromBounds(), nil
	}
	integ, err := integrators.New(c.Integrator)
	if err != nil {
		return nil, err
	}
	var policy ocp.Policy
	if c.GuessPolicy != "" {
		ctrl, err := control.New(c.GuessPolicy, c.Problem, dc.Problem(), c.PolicyParams)
		if err != nil {
			return nil, fmt.Errorf("guess policy: %w", err)
		}
		policy = control.Policy(ctrl)
	}
	return dc.GuessFromSimulation(integ, policy)
}

// NewSolver builds the configured backend and applies the options.
func (c *Config) NewSolver(opts ...solver.Option) (*solver.Solver, error) {
	backend, err := solver.NewBackend(c.Solver.Backend)
	if err != nil {
		return nil, err
	}
	s := solver.New(backend, opts...)
	if err := c.ApplySolver(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Params = maps.Clone(c.Params)
	out.PolicyParams = maps.Clone(c.PolicyParams)
	out.Solver.Strings = maps.Clone(c.Solver.Strings)
	out.Solver.Ints = maps.Clone(c.Solver.Ints)
	out.Solver.Reals = maps.Clone(c.Solver.Reals)
	out.Solver.MaxIterations = clonePtr(c.Solver.MaxIterations)
	out.Solver.ConvergenceTolerance = clonePtr(c.Solver.ConvergenceTolerance)
	out.Solver.ConstraintTolerance = clonePtr(c.Solver.ConstraintTolerance)
	out.Solver.FiniteDifference.Step = clonePtr(c.Solver.FiniteDifference.Step)
	return &out
}
