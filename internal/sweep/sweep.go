// Package sweep solves families of configurations: a parameter swept over
// a range, or a scripted list of runs loaded from YAML.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/san-kum/trajopt/internal/config"
	"github.com/san-kum/trajopt/internal/logs"
	"github.com/san-kum/trajopt/internal/metrics"
	"github.com/san-kum/trajopt/internal/nlp"
	"github.com/san-kum/trajopt/internal/problems"
	"github.com/san-kum/trajopt/internal/solver"
	"github.com/san-kum/trajopt/internal/transcription"
)

// MeshPoints sweeps the mesh size instead of a problem parameter.
const MeshPoints = "mesh_points"

var ErrInvalidSweep = errors.New("sweep: invalid sweep")

// ParameterSweep solves Base once per value of Param, evenly spaced over
// [Min, Max].
type ParameterSweep struct {
	Base  *config.Config
	Param string
	Min   float64
	Max   float64
	Steps int
}

type Result struct {
	Value    float64
	Config   *config.Config
	Solution *nlp.Solution
	Metrics  map[string]float64
	Err      error
}

func (s *ParameterSweep) Validate() error {
	if s.Base == nil {
		return fmt.Errorf("%w: no base config", ErrInvalidSweep)
	}
	if s.Param == "" {
		return fmt.Errorf("%w: no parameter", ErrInvalidSweep)
	}
	if s.Steps < 1 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidSweep, s.Steps)
	}
	if s.Steps > 1 && s.Max < s.Min {
		return fmt.Errorf("%w: max %g below min %g", ErrInvalidSweep, s.Max, s.Min)
	}
	return nil
}

// Values returns the swept values. A single step uses Min.
func (s *ParameterSweep) Values() []float64 {
	values := make([]float64, s.Steps)
	if s.Steps == 1 {
		values[0] = s.Min
		return values
	}
	step := (s.Max - s.Min) / float64(s.Steps-1)
	for i := range values {
		values[i] = s.Min + float64(i)*step
	}
	return values
}

func (s *ParameterSweep) configs() []*config.Config {
	values := s.Values()
	cfgs := make([]*config.Config, len(values))
	for i, v := range values {
		cfg := s.Base.Clone()
		if s.Param == MeshPoints {
			cfg.MeshPoints = int(v + 0.5)
		} else {
			if cfg.Params == nil {
				cfg.Params = make(map[string]float64)
			}
			cfg.Params[s.Param] = v
		}
		cfgs[i] = cfg
	}
	return cfgs
}

// Runner solves configurations with a bounded number of workers.
type Runner struct {
	workers  int
	logger   *slog.Logger
	registry *problems.Registry
}

type Option func(*Runner)

func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		workers:  runtime.GOMAXPROCS(0),
		logger:   logs.Discard(),
		registry: problems.NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = 1
	}
	return r
}

// Sweep runs every value of s. Failures are reported per result; the
// returned error is only set when the sweep itself is invalid.
func (r *Runner) Sweep(ctx context.Context, s *ParameterSweep) ([]Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	results := r.RunAll(ctx, s.configs())
	for i, v := range s.Values() {
		results[i].Value = v
	}
	return results, nil
}

// RunAll solves cfgs concurrently and returns results in input order.
func (r *Runner) RunAll(ctx context.Context, cfgs []*config.Config) []Result {
	results := make([]Result, len(cfgs))
	sem := make(chan struct{}, r.workers)

	var wg sync.WaitGroup
	for i, cfg := range cfgs {
		wg.Add(1)
		go func(idx int, cfg *config.Config) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = r.run(ctx, cfg)
			r.logger.Info("sweep run finished", "index", idx, "problem", cfg.Problem, "error", results[idx].Err)
		}(i, cfg)
	}
	wg.Wait()
	return results
}

func (r *Runner) run(ctx context.Context, cfg *config.Config) Result {
	res := Result{Config: cfg}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	if err := cfg.Validate(); err != nil {
		res.Err = err
		return res
	}
	problem, err := r.registry.Configure(cfg.Problem, cfg.Params)
	if err != nil {
		res.Err = err
		return res
	}
	q, err := cfg.QuadratureRule()
	if err != nil {
		res.Err = err
		return res
	}
	dc, err := transcription.New(problem, cfg.MeshPoints, transcription.WithQuadrature(q))
	if err != nil {
		res.Err = err
		return res
	}
	guess, err := cfg.BuildGuess(dc)
	if err != nil {
		res.Err = err
		return res
	}
	s, err := cfg.NewSolver(solver.WithLogger(r.logger))
	if err != nil {
		res.Err = err
		return res
	}

	res.Solution, res.Err = s.Optimize(ctx, dc, guess)
	if res.Solution != nil {
		res.Metrics, err = metrics.Evaluate(dc, res.Solution.X)
		if err != nil && res.Err == nil {
			res.Err = err
		}
	}
	return res
}
