package ocp

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch indicates a vector whose length does not match the system.
	ErrDimensionMismatch = errors.New("ocp: dimension mismatch between vector and system")

	// ErrInvalidBounds indicates a bound whose lower value exceeds its upper value, or a NaN.
	ErrInvalidBounds = errors.New("ocp: invalid bounds")

	// ErrInvalidTimeRange indicates a final time not strictly after the initial time.
	ErrInvalidTimeRange = errors.New("ocp: final time must exceed initial time")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("ocp: parameter out of valid bounds")

	// ErrUnknownParameter indicates SetParam was called with a name the problem does not have.
	ErrUnknownParameter = errors.New("ocp: unknown parameter")
)

// BoundsError names the bound group and entry that failed validation.
type BoundsError struct {
	Field   string
	Index   int
	Wrapped error
}

func (e *BoundsError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v", e.Field, e.Wrapped)
	}
	return fmt.Sprintf("%s[%d]: %v", e.Field, e.Index, e.Wrapped)
}

func (e *BoundsError) Unwrap() error {
	return e.Wrapped
}
