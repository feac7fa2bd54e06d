package config

import (
	"slices"

	"github.com/san-kum/trajopt/internal/control"
	"github.com/san-kum/trajopt/internal/solver"
)

var Presets = map[string]map[string]*Config{
	"slider": {
		"coarse": {
			Problem: "slider", MeshPoints: 11, Guess: GuessBounds,
			Solver: SolverConfig{Backend: "sqp"},
		},
		"fine": {
			Problem: "slider", MeshPoints: 101, Guess: GuessBounds,
			Solver: SolverConfig{Backend: "auglag", HessianApproximation: solver.HessianLimitedMemory},
		},
	},
	"linear": {
		"stable": {
			Problem: "linear", MeshPoints: 41, Guess: GuessBounds,
			Params: map[string]float64{"a": -1, "b": 1, "x0": 0, "xf": 1},
			Solver: SolverConfig{Backend: "sqp"},
		},
		"unstable": {
			Problem: "linear", MeshPoints: 41, Guess: GuessBounds,
			Params: map[string]float64{"a": 2, "b": 1, "x0": 1, "xf": 0},
			Solver: SolverConfig{Backend: "sqp"},
		},
	},
	"sliding-mass": {
		"free": {
			Problem: "sliding-mass", MeshPoints: 31, Guess: GuessBounds,
			Solver: SolverConfig{Backend: "auglag"},
		},
		"spring": {
			Problem: "sliding-mass", MeshPoints: 41, Guess: GuessSimulation, GuessPolicy: control.NameLQR,
			Params: map[string]float64{"stiffness": 10, "damping": 0.5},
			Solver: SolverConfig{Backend: "auglag"},
		},
	},
	"pendulum": {
		"swing-up": {
			Problem: "pendulum", MeshPoints: 51, Guess: GuessBounds,
			Solver: SolverConfig{Backend: "auglag", MaxIterations: Ptr(100)},
		},
		"weak": {
			Problem: "pendulum", MeshPoints: 61, Guess: GuessSimulation, Integrator: "rk4", GuessPolicy: control.NamePID,
			Params: map[string]float64{"max_torque": 2.5, "duration": 5},
			Solver: SolverConfig{Backend: "auglag", MaxIterations: Ptr(150)},
		},
	},
	"cartpole": {
		"swing-up": {
			Problem: "cartpole", MeshPoints: 41, Guess: GuessBounds,
			Solver: SolverConfig{
				Backend:       "auglag",
				MaxIterations: Ptr(150),
				Reals:         map[string]float64{"penalty_initial": 100},
			},
		},
	},
}

// GetPreset returns a copy of the named preset with defaults filled in,
// or nil if there is none.
func GetPreset(problem, preset string) *Config {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	p, ok := problemPresets[preset]
	if !ok {
		return nil
	}
	cfg := p.Clone()
	def := DefaultConfig()
	if cfg.Quadrature == "" {
		cfg.Quadrature = def.Quadrature
	}
	if cfg.Integrator == "" {
		cfg.Integrator = def.Integrator
	}
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	return cfg
}

func ListPresets(problem string) []string {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(problemPresets))
	for name := range problemPresets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
