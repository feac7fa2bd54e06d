package transcription

import "testing"

func TestLayoutBijection(t *testing.T) {
	for points := 2; points <= 6; points++ {
		for states := 0; states <= 3; states++ {
			for controls := 0; controls <= 3; controls++ {
				l := Layout{Points: points, States: states, Controls: controls}
				seen := make(map[int]bool)

				for i := 0; i < points; i++ {
					for s := 0; s < states; s++ {
						k := l.StateIndex(i, s)
						if seen[k] {
							t.Fatalf("%+v: slot %d used twice", l, k)
						}
						seen[k] = true
						slot, err := l.Locate(k)
						if err != nil {
							t.Fatalf("%+v: locate %d: %v", l, k, err)
						}
						if slot != (Slot{Mesh: i, Kind: StateSlot, Index: s}) {
							t.Errorf("%+v: expected state (%d,%d), got %+v", l, i, s, slot)
						}
					}
					for c := 0; c < controls; c++ {
						k := l.ControlIndex(i, c)
						if seen[k] {
							t.Fatalf("%+v: slot %d used twice", l, k)
						}
						seen[k] = true
						slot, err := l.Locate(k)
						if err != nil {
							t.Fatalf("%+v: locate %d: %v", l, k, err)
						}
						if slot != (Slot{Mesh: i, Kind: ControlSlot, Index: c}) {
							t.Errorf("%+v: expected control (%d,%d), got %+v", l, i, c, slot)
						}
					}
				}

				if len(seen) != l.NumVariables() {
					t.Errorf("%+v: expected %d slots, got %d", l, l.NumVariables(), len(seen))
				}
				for k := 0; k < l.NumVariables(); k++ {
					if !seen[k] {
						t.Errorf("%+v: slot %d never produced", l, k)
					}
				}
			}
		}
	}
}

func TestLayoutLocateOutOfRange(t *testing.T) {
	l := Layout{Points: 3, States: 1, Controls: 1}
	if _, err := l.Locate(-1); err == nil {
		t.Error("expected error for negative index")
	}
	if _, err := l.Locate(l.NumVariables()); err == nil {
		t.Error("expected error for index past the end")
	}
}

func TestLayoutConstraintCount(t *testing.T) {
	for points := 2; points <= 12; points++ {
		for states := 0; states <= 4; states++ {
			for controls := 0; controls <= 4; controls++ {
				l := Layout{Points: points, States: states, Controls: controls}
				expected := 2*states + 2*controls + (points-1)*states
				if got := l.NumConstraints(); got != expected {
					t.Errorf("%+v: expected %d constraints, got %d", l, expected, got)
				}
				if states > 0 {
					lastDefect := l.DefectIndex(points-2, states-1)
					if lastDefect != expected-1 {
						t.Errorf("%+v: last defect row %d, expected %d", l, lastDefect, expected-1)
					}
				}
			}
		}
	}
}

func TestLayoutBoundaryRows(t *testing.T) {
	l := Layout{Points: 4, States: 2, Controls: 3}
	tests := []struct {
		section  Section
		i        int
		expected int
	}{
		{InitialStates, 0, 0},
		{InitialStates, 1, 1},
		{FinalStates, 0, 2},
		{InitialControls, 0, 4},
		{InitialControls, 2, 6},
		{FinalControls, 0, 7},
		{FinalControls, 2, 9},
	}
	for _, tt := range tests {
		if got := l.BoundaryIndex(tt.section, tt.i); got != tt.expected {
			t.Errorf("%s[%d]: expected row %d, got %d", tt.section, tt.i, tt.expected, got)
		}
	}
	if got := l.DefectIndex(0, 0); got != 10 {
		t.Errorf("expected first defect at row 10, got %d", got)
	}
}
