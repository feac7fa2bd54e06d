package solver

import (
	"context"
	"fmt"
	"slices"

	"github.com/san-kum/trajopt/internal/nlp"
)

// OptionSet lists the advanced option names a backend understands.
type OptionSet struct {
	Strings []string
	Ints    []string
	Reals   []string
}

// Backend runs one solve by driving the callbacks. It must call Finalize
// once before returning, also when it stops early.
type Backend interface {
	Name() string
	Options() OptionSet
	HessianApproximations() []string
	Solve(ctx context.Context, cb nlp.Callbacks, opts Options) error
}

var backends = map[string]func() Backend{
	"auglag": func() Backend { return NewAugLag() },
	"sqp":    func() Backend { return NewSQP() },
}

// NewBackend returns a fresh backend by name.
func NewBackend(name string) (Backend, error) {
	f, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, Backends())
	}
	return f(), nil
}

func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
