package transcription

import (
	"fmt"

	"github.com/san-kum/trajopt/internal/ocp"
)

// Trajectory is the per-mesh-point view of a variable vector.
type Trajectory struct {
	Times    []float64
	States   []ocp.State
	Controls []ocp.Control
}

func (tr *Trajectory) Len() int {
	return len(tr.Times)
}

// Unpack copies x into a Trajectory.
func (dc *DirectCollocation) Unpack(x []float64) (*Trajectory, error) {
	if len(x) != dc.NumVariables() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrGuessLength, len(x), dc.NumVariables())
	}
	tr := &Trajectory{
		Times:    dc.mesh.Times(),
		States:   make([]ocp.State, dc.Points),
		Controls: make([]ocp.Control, dc.Points),
	}
	for i := 0; i < dc.Points; i++ {
		tr.States[i] = dc.states(x, i).Clone()
		tr.Controls[i] = dc.controls(x, i).Clone()
	}
	return tr, nil
}

// Pack flattens a Trajectory into a variable vector. The trajectory must
// have one entry per mesh point with the problem's dimensions.
func (dc *DirectCollocation) Pack(tr *Trajectory) ([]float64, error) {
	if len(tr.States) != dc.Points || len(tr.Controls) != dc.Points {
		return nil, fmt.Errorf("%w: trajectory has %d states and %d controls, want %d points",
			ocp.ErrDimensionMismatch, len(tr.States), len(tr.Controls), dc.Points)
	}
	x := make([]float64, dc.NumVariables())
	for i := 0; i < dc.Points; i++ {
		if len(tr.States[i]) != dc.States || len(tr.Controls[i]) != dc.Controls {
			return nil, fmt.Errorf("%w: mesh point %d", ocp.ErrDimensionMismatch, i)
		}
		copy(x[dc.StateIndex(i, 0):], tr.States[i])
		copy(x[dc.ControlIndex(i, 0):], tr.Controls[i])
	}
	return x, nil
}
