package control

import "github.com/san-kum/trajopt/internal/ocp"

type Zero struct {
	dim int
}

func NewZero(dim int) *Zero {
	return &Zero{
		dim: dim,
	}
}

func (z *Zero) Compute(x ocp.State, t float64) ocp.Control {
	return make(ocp.Control, z.dim)
}
