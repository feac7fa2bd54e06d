package sparsity

import (
	"errors"
	"testing"
)

func TestNewSortsAndDedupes(t *testing.T) {
	p, err := New(3, 3, []Entry{{2, 1}, {0, 0}, {2, 1}, {1, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.NNZ() != 3 {
		t.Fatalf("expected 3 entries, got %d", p.NNZ())
	}
	rows, cols := p.Indices()
	expectedRows, expectedCols := []int{0, 1, 2}, []int{0, 2, 1}
	for k := range rows {
		if rows[k] != expectedRows[k] || cols[k] != expectedCols[k] {
			t.Errorf("entry %d: expected (%d,%d), got (%d,%d)", k, expectedRows[k], expectedCols[k], rows[k], cols[k])
		}
	}
	if !p.Contains(1, 2) || p.Contains(2, 2) {
		t.Error("contains gave wrong answer")
	}
}

func TestNewRejectsOutOfRange(t *testing.T) {
	if _, err := New(2, 2, []Entry{{2, 0}}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestUnionAndEqual(t *testing.T) {
	a, _ := New(2, 2, []Entry{{0, 0}})
	b, _ := New(2, 2, []Entry{{1, 1}, {0, 0}})
	u, err := a.Union(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.Equal(b) {
		t.Errorf("expected union to equal %v, got %v", b.Entries(), u.Entries())
	}
	c, _ := New(3, 2, nil)
	if _, err := a.Union(c); err == nil {
		t.Error("expected error for mismatched dimensions")
	}
}

func TestIsLower(t *testing.T) {
	lower := FromDense(3, 3, func(i, j int) bool { return j <= i })
	if !lower.IsLower() {
		t.Error("expected lower-triangular pattern")
	}
	full := FromDense(3, 3, func(i, j int) bool { return true })
	if full.IsLower() {
		t.Error("dense pattern is not lower-triangular")
	}
}

func TestColorColumnsBanded(t *testing.T) {
	// tridiagonal 6x6 needs exactly three colors
	p := FromDense(6, 6, func(i, j int) bool { return j >= i-1 && j <= i+1 })
	col := p.ColorColumns()
	if col.Groups != 3 {
		t.Errorf("expected 3 groups, got %d", col.Groups)
	}
	assertValidColoring(t, p, col)
}

func TestColorColumnsDiagonal(t *testing.T) {
	p := FromDense(5, 5, func(i, j int) bool { return i == j })
	col := p.ColorColumns()
	if col.Groups != 1 {
		t.Errorf("expected 1 group for a diagonal, got %d", col.Groups)
	}
}

func assertValidColoring(t *testing.T, p *Pattern, col Coloring) {
	t.Helper()
	rows, _ := p.Dims()
	for r := 0; r < rows; r++ {
		seen := make(map[int]int)
		for _, e := range p.Entries() {
			if e.Row != r {
				continue
			}
			if other, ok := seen[col.Colors[e.Col]]; ok {
				t.Errorf("row %d: columns %d and %d share color %d", r, other, e.Col, col.Colors[e.Col])
			}
			seen[col.Colors[e.Col]] = e.Col
		}
	}
}
