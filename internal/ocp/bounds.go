package ocp

import (
	"fmt"
	"math"
)

// Bound is a closed interval. Either side may be infinite.
type Bound struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

func Free() Bound {
	return Bound{Lower: math.Inf(-1), Upper: math.Inf(1)}
}

func Fixed(v float64) Bound {
	return Bound{Lower: v, Upper: v}
}

func Range(lower, upper float64) Bound {
	return Bound{Lower: lower, Upper: upper}
}

// Repeat returns n copies of b.
func Repeat(b Bound, n int) []Bound {
	out := make([]Bound, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func (b Bound) IsFree() bool {
	return math.IsInf(b.Lower, -1) && math.IsInf(b.Upper, 1)
}

func (b Bound) IsFixed() bool {
	return b.Lower == b.Upper
}

func (b Bound) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

func (b Bound) Validate() error {
	if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) {
		return fmt.Errorf("%w: NaN endpoint", ErrInvalidBounds)
	}
	if b.Lower > b.Upper {
		return fmt.Errorf("%w: lower %g > upper %g", ErrInvalidBounds, b.Lower, b.Upper)
	}
	return nil
}

// Guess picks a representative value inside the bound: the midpoint when both
// sides are finite, the finite side when only one is, and zero when free.
func (b Bound) Guess() float64 {
	lo := !math.IsInf(b.Lower, -1)
	hi := !math.IsInf(b.Upper, 1)
	switch {
	case lo && hi:
		return 0.5 * (b.Lower + b.Upper)
	case lo:
		return b.Lower
	case hi:
		return b.Upper
	default:
		return 0
	}
}

// Clamp projects v onto the interval.
func (b Bound) Clamp(v float64) float64 {
	return math.Max(b.Lower, math.Min(b.Upper, v))
}

// Intersect returns the tightest bound contained in both b and other.
func (b Bound) Intersect(other Bound) Bound {
	return Bound{Lower: math.Max(b.Lower, other.Lower), Upper: math.Min(b.Upper, other.Upper)}
}

func (b Bound) String() string {
	return fmt.Sprintf("[%g, %g]", b.Lower, b.Upper)
}

// Bounds collects every bound of a problem. States and Controls apply on the
// whole horizon; the Initial*/Final* groups apply at the endpoints only and
// are enforced as constraints.
type Bounds struct {
	InitialTime float64 `json:"initial_time" yaml:"initial_time"`
	FinalTime   float64 `json:"final_time" yaml:"final_time"`

	States        []Bound `json:"states" yaml:"states"`
	InitialStates []Bound `json:"initial_states" yaml:"initial_states"`
	FinalStates   []Bound `json:"final_states" yaml:"final_states"`

	Controls        []Bound `json:"controls" yaml:"controls"`
	InitialControls []Bound `json:"initial_controls" yaml:"initial_controls"`
	FinalControls   []Bound `json:"final_controls" yaml:"final_controls"`
}

// FreeBounds returns bounds over [t0, tf] with every group unconstrained.
func FreeBounds(numStates, numControls int, t0, tf float64) Bounds {
	return Bounds{
		InitialTime:     t0,
		FinalTime:       tf,
		States:          Repeat(Free(), numStates),
		InitialStates:   Repeat(Free(), numStates),
		FinalStates:     Repeat(Free(), numStates),
		Controls:        Repeat(Free(), numControls),
		InitialControls: Repeat(Free(), numControls),
		FinalControls:   Repeat(Free(), numControls),
	}
}

// Validate checks that every group has exactly the expected length, that each
// interval is well formed, and that the time range is increasing.
func (b Bounds) Validate(numStates, numControls int) error {
	if math.IsNaN(b.InitialTime) || math.IsNaN(b.FinalTime) || !(b.FinalTime > b.InitialTime) {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidTimeRange, b.InitialTime, b.FinalTime)
	}
	groups := []struct {
		name string
		list []Bound
		want int
	}{
		{"states", b.States, numStates},
		{"initial_states", b.InitialStates, numStates},
		{"final_states", b.FinalStates, numStates},
		{"controls", b.Controls, numControls},
		{"initial_controls", b.InitialControls, numControls},
		{"final_controls", b.FinalControls, numControls},
	}
	for _, g := range groups {
		if len(g.list) != g.want {
			return &BoundsError{
				Field:   g.name,
				Index:   -1,
				Wrapped: fmt.Errorf("%w: got %d entries, want %d", ErrDimensionMismatch, len(g.list), g.want),
			}
		}
		for i, bd := range g.list {
			if err := bd.Validate(); err != nil {
				return &BoundsError{Field: g.name, Index: i, Wrapped: err}
			}
		}
	}
	return nil
}

func (b Bounds) Duration() float64 {
	return b.FinalTime - b.InitialTime
}
