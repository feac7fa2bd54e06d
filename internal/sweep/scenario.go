package sweep

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/trajopt/internal/config"
)

// Scenario is a scripted list of runs.
type Scenario struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Runs        []*config.Config `yaml:"runs"`
}

// LoadScenario reads a scenario. Every run starts from the default
// configuration before its YAML fields are applied.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Name        string      `yaml:"name"`
		Description string      `yaml:"description"`
		Runs        []yaml.Node `yaml:"runs"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	sc := &Scenario{Name: raw.Name, Description: raw.Description}
	for i := range raw.Runs {
		cfg := config.DefaultConfig()
		if err := raw.Runs[i].Decode(cfg); err != nil {
			return nil, fmt.Errorf("%s: run %d: %w", path, i+1, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s: run %d: %w", path, i+1, err)
		}
		sc.Runs = append(sc.Runs, cfg)
	}
	if len(sc.Runs) == 0 {
		return nil, fmt.Errorf("%w: %s has no runs", ErrInvalidSweep, path)
	}
	return sc, nil
}

// RunScenario solves every run of sc.
func (r *Runner) RunScenario(ctx context.Context, sc *Scenario) []Result {
	return r.RunAll(ctx, sc.Runs)
}
