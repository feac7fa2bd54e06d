package sparsity

// Coloring assigns each column a group such that no two columns in the same
// group share a nonzero row. Columns of one group can be perturbed together
// when differencing a Jacobian.
type Coloring struct {
	Colors []int
	Groups int
}

// ColorColumns runs a greedy first-fit coloring over the columns in index
// order.
func (p *Pattern) ColorColumns() Coloring {
	byRow := make([][]int, p.rows)
	for _, e := range p.entries {
		byRow[e.Row] = append(byRow[e.Row], e.Col)
	}

	colors := make([]int, p.cols)
	groups := 0
	forbidden := make([]int, p.cols+1)
	for i := range forbidden {
		forbidden[i] = -1
	}

	for j, rows := range p.columns() {
		for _, r := range rows {
			for _, other := range byRow[r] {
				if other < j {
					forbidden[colors[other]] = j
				}
			}
		}
		c := 0
		for forbidden[c] == j {
			c++
		}
		colors[j] = c
		if c+1 > groups {
			groups = c + 1
		}
	}
	return Coloring{Colors: colors, Groups: groups}
}
