package transcription

import "fmt"

// Quadrature selects how the running cost is summed over the mesh.
type Quadrature int

const (
	// RightRectangle weights every point after the first by h:
	// J = h * sum_{i=1}^{N-1} L_i. It pairs with the backward-Euler defects,
	// which also sample the interval at its right end.
	RightRectangle Quadrature = iota

	// Trapezoidal is the symmetric rule:
	// J = h * (L_0/2 + sum_{i=1}^{N-2} L_i + L_{N-1}/2).
	Trapezoidal

	// LeftBiased adds the first sample unscaled and every later one times h:
	// J = L_0 + h * sum_{i=1}^{N-1} L_i.
	LeftBiased
)

func (q Quadrature) String() string {
	switch q {
	case RightRectangle:
		return "right-rectangle"
	case Trapezoidal:
		return "trapezoidal"
	case LeftBiased:
		return "left-biased"
	default:
		return fmt.Sprintf("quadrature(%d)", int(q))
	}
}

func ParseQuadrature(s string) (Quadrature, error) {
	switch s {
	case "", "right-rectangle":
		return RightRectangle, nil
	case "trapezoidal":
		return Trapezoidal, nil
	case "left-biased":
		return LeftBiased, nil
	default:
		return 0, fmt.Errorf("transcription: unknown quadrature %q", s)
	}
}

// weight returns the factor applied to the cost sampled at mesh point i.
func (q Quadrature) weight(i, points int, h float64) float64 {
	switch q {
	case Trapezoidal:
		if i == 0 || i == points-1 {
			return 0.5 * h
		}
		return h
	case LeftBiased:
		if i == 0 {
			return 1
		}
		return h
	default:
		if i == 0 {
			return 0
		}
		return h
	}
}
