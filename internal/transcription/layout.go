package transcription

import "fmt"

// Section names one of the boundary blocks at the head of the constraint vector.
type Section int

const (
	InitialStates Section = iota
	FinalStates
	InitialControls
	FinalControls
)

func (s Section) String() string {
	switch s {
	case InitialStates:
		return "initial_states"
	case FinalStates:
		return "final_states"
	case InitialControls:
		return "initial_controls"
	case FinalControls:
		return "final_controls"
	default:
		return fmt.Sprintf("section(%d)", int(s))
	}
}

// Kind tells whether a variable slot holds a state or a control.
type Kind int

const (
	StateSlot Kind = iota
	ControlSlot
)

// Slot identifies a variable by mesh point and component.
type Slot struct {
	Mesh  int
	Kind  Kind
	Index int
}

// Layout is the index arithmetic of the transcription. It is valid for any
// number of points and for zero states or zero controls.
type Layout struct {
	Points   int
	States   int
	Controls int
}

func (l Layout) stride() int { return l.States + l.Controls }

func (l Layout) NumVariables() int {
	return l.Points * l.stride()
}

// NumConstraints is 2S + 2C boundary rows plus (N-1)S defect rows.
func (l Layout) NumConstraints() int {
	return 2*l.States + 2*l.Controls + (l.Points-1)*l.States
}

func (l Layout) NumDefects() int {
	return (l.Points - 1) * l.States
}

func (l Layout) StateIndex(mesh, state int) int {
	return mesh*l.stride() + state
}

func (l Layout) ControlIndex(mesh, control int) int {
	return mesh*l.stride() + l.States + control
}

// Locate maps a variable index back to its slot. It is the inverse of
// StateIndex and ControlIndex.
func (l Layout) Locate(index int) (Slot, error) {
	if index < 0 || index >= l.NumVariables() {
		return Slot{}, fmt.Errorf("transcription: variable index %d out of range [0, %d)", index, l.NumVariables())
	}
	mesh, offset := index/l.stride(), index%l.stride()
	if offset < l.States {
		return Slot{Mesh: mesh, Kind: StateSlot, Index: offset}, nil
	}
	return Slot{Mesh: mesh, Kind: ControlSlot, Index: offset - l.States}, nil
}

// BoundaryIndex returns the constraint row of entry i of a boundary section.
func (l Layout) BoundaryIndex(section Section, i int) int {
	switch section {
	case InitialStates:
		return i
	case FinalStates:
		return l.States + i
	case InitialControls:
		return 2*l.States + i
	default:
		return 2*l.States + l.Controls + i
	}
}

// DefectOffset is the first defect row.
func (l Layout) DefectOffset() int {
	return 2*l.States + 2*l.Controls
}

// DefectIndex returns the row of the defect for the given state across the
// interval [t_interval, t_interval+1].
func (l Layout) DefectIndex(interval, state int) int {
	return l.DefectOffset() + interval*l.States + state
}
