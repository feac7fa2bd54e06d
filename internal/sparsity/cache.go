package sparsity

import (
	"errors"
	"fmt"
)

// ErrPatternSize indicates a pattern whose dimensions do not match the cache.
var ErrPatternSize = errors.New("sparsity: pattern dimensions do not match problem size")

// Kind names the derivative matrix a pattern describes.
type Kind int

const (
	Jacobian Kind = iota
	Hessian
)

func (k Kind) String() string {
	switch k {
	case Jacobian:
		return "jacobian"
	case Hessian:
		return "hessian"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Cache keeps one pattern per derivative kind for a given problem size.
// Patterns survive new evaluation points; only a size change drops them.
type Cache struct {
	variables   int
	constraints int
	patterns    map[Kind]*Pattern
}

func NewCache(variables, constraints int) *Cache {
	return &Cache{
		variables:   variables,
		constraints: constraints,
		patterns:    make(map[Kind]*Pattern),
	}
}

// Size returns the problem size the cached patterns belong to.
func (c *Cache) Size() (variables, constraints int) {
	return c.variables, c.constraints
}

func (c *Cache) expected(k Kind) (rows, cols int) {
	if k == Jacobian {
		return c.constraints, c.variables
	}
	return c.variables, c.variables
}

func (c *Cache) Get(k Kind) (*Pattern, bool) {
	p, ok := c.patterns[k]
	return p, ok
}

func (c *Cache) Put(k Kind, p *Pattern) error {
	rows, cols := c.expected(k)
	if pr, pc := p.Dims(); pr != rows || pc != cols {
		return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrPatternSize, k, pr, pc, rows, cols)
	}
	c.patterns[k] = p
	return nil
}

// resize records a new problem size. Cached patterns are dropped only when
// the size actually changes; the return value tells whether that happened.
func (c *Cache) resize(variables, constraints int) bool {
	if variables == c.variables && constraints == c.constraints {
		return false
	}
	c.variables, c.constraints = variables, constraints
	clear(c.patterns)
	return true
}
