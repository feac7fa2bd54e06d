package transcription

import (
	"fmt"

	"github.com/san-kum/trajopt/internal/ocp"
)

// Mesh is a uniform grid of time points over [initial, final].
type Mesh struct {
	points  int
	initial float64
	final   float64
}

func NewMesh(points int, initial, final float64) (Mesh, error) {
	if points < 2 {
		return Mesh{}, fmt.Errorf("%w: got %d", ErrTooFewMeshPoints, points)
	}
	if !(final > initial) {
		return Mesh{}, fmt.Errorf("%w: [%g, %g]", ocp.ErrInvalidTimeRange, initial, final)
	}
	return Mesh{points: points, initial: initial, final: final}, nil
}

func (m Mesh) Points() int    { return m.points }
func (m Mesh) Intervals() int { return m.points - 1 }

func (m Mesh) Step() float64 {
	return (m.final - m.initial) / float64(m.points-1)
}

// Time returns t_i. The last point is pinned to the final time exactly.
func (m Mesh) Time(i int) float64 {
	if i == m.points-1 {
		return m.final
	}
	return m.initial + float64(i)*m.Step()
}

func (m Mesh) Times() []float64 {
	times := make([]float64, m.points)
	for i := range times {
		times[i] = m.Time(i)
	}
	return times
}
