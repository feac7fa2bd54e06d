package nlp

import (
	"errors"
	"fmt"
)

var (
	// ErrPhase indicates a callback arriving out of order.
	ErrPhase = errors.New("nlp: callback not allowed in current phase")

	// ErrMultiplierInit indicates the backend asked for initial multipliers.
	ErrMultiplierInit = errors.New("nlp: initial multipliers are not provided")

	// ErrDerivative indicates that derivative computation failed. It is fatal for the solve.
	ErrDerivative = errors.New("nlp: derivative computation failed")

	// ErrFinalized indicates a second Finalize or a callback after it.
	ErrFinalized = errors.New("nlp: solve already finalized")

	// ErrSize indicates a buffer whose length does not match the program.
	ErrSize = errors.New("nlp: buffer length mismatch")
)

// DerivativeError reports which derivative failed.
type DerivativeError struct {
	Kind string
	Err  error
}

func (e *DerivativeError) Error() string {
	return fmt.Sprintf("nlp: %s: %v", e.Kind, e.Err)
}

func (e *DerivativeError) Unwrap() error {
	return e.Err
}

func (e *DerivativeError) Is(target error) bool {
	return target == ErrDerivative
}
