// Package sparsity holds the structural nonzero patterns of derivative
// matrices and caches them for the lifetime of a solve.
package sparsity

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// ErrOutOfRange indicates an entry outside the matrix dimensions.
var ErrOutOfRange = errors.New("sparsity: entry out of range")

// Entry is one structurally nonzero (row, col) position.
type Entry struct {
	Row, Col int
}

// Pattern is an immutable, row-major sorted set of entries of a rows x cols
// matrix.
type Pattern struct {
	rows, cols int
	entries    []Entry
}

// New sorts and deduplicates entries.
func New(rows, cols int, entries []Entry) (*Pattern, error) {
	out := slices.Clone(entries)
	for _, e := range out {
		if e.Row < 0 || e.Row >= rows || e.Col < 0 || e.Col >= cols {
			return nil, fmt.Errorf("%w: (%d, %d) in %dx%d", ErrOutOfRange, e.Row, e.Col, rows, cols)
		}
	}
	slices.SortFunc(out, compare)
	out = slices.Compact(out)
	return &Pattern{rows: rows, cols: cols, entries: out}, nil
}

// FromDense collects every (i, j) for which nonzero reports true.
func FromDense(rows, cols int, nonzero func(i, j int) bool) *Pattern {
	var entries []Entry
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if nonzero(i, j) {
				entries = append(entries, Entry{Row: i, Col: j})
			}
		}
	}
	return &Pattern{rows: rows, cols: cols, entries: entries}
}

func compare(a, b Entry) int {
	if c := cmp.Compare(a.Row, b.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.Col, b.Col)
}

func (p *Pattern) Dims() (rows, cols int) { return p.rows, p.cols }
func (p *Pattern) NNZ() int              { return len(p.entries) }
func (p *Pattern) Entry(k int) Entry     { return p.entries[k] }

func (p *Pattern) Entries() []Entry {
	return slices.Clone(p.entries)
}

// Indices returns the row and column index lists in entry order.
func (p *Pattern) Indices() (rows, cols []int) {
	rows = make([]int, len(p.entries))
	cols = make([]int, len(p.entries))
	for k, e := range p.entries {
		rows[k], cols[k] = e.Row, e.Col
	}
	return rows, cols
}

func (p *Pattern) Contains(row, col int) bool {
	_, ok := slices.BinarySearchFunc(p.entries, Entry{Row: row, Col: col}, compare)
	return ok
}

func (p *Pattern) Equal(q *Pattern) bool {
	return p.rows == q.rows && p.cols == q.cols && slices.Equal(p.entries, q.entries)
}

// Union merges two patterns of the same dimensions.
func (p *Pattern) Union(q *Pattern) (*Pattern, error) {
	if p.rows != q.rows || p.cols != q.cols {
		return nil, fmt.Errorf("sparsity: union of %dx%d and %dx%d", p.rows, p.cols, q.rows, q.cols)
	}
	return New(p.rows, p.cols, append(slices.Clone(p.entries), q.entries...))
}

// IsLower reports whether every entry lies on or below the diagonal.
func (p *Pattern) IsLower() bool {
	for _, e := range p.entries {
		if e.Col > e.Row {
			return false
		}
	}
	return true
}

// columns groups entry rows by column: the result maps column j to the
// rows that are nonzero in it.
func (p *Pattern) columns() [][]int {
	cols := make([][]int, p.cols)
	for _, e := range p.entries {
		cols[e.Col] = append(cols[e.Col], e.Row)
	}
	return cols
}

func (p *Pattern) String() string {
	return fmt.Sprintf("pattern(%dx%d, nnz=%d)", p.rows, p.cols, len(p.entries))
}
