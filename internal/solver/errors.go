package solver

import "errors"

var (
	// ErrInvalidOption indicates an option value rejected at set time.
	ErrInvalidOption = errors.New("solver: invalid option value")

	// ErrGuessLength indicates a guess whose length differs from the variable count.
	ErrGuessLength = errors.New("solver: guess length does not match variable count")

	// ErrEmptyProblem indicates a program without variables.
	ErrEmptyProblem = errors.New("solver: program has no variables")

	// ErrBoundsLength indicates variable bounds whose length differs from the variable count.
	ErrBoundsLength = errors.New("solver: variable bounds length mismatch")

	// ErrUnknownBackend indicates a backend name that is not registered.
	ErrUnknownBackend = errors.New("solver: unknown backend")

	// ErrUnsupportedProblem indicates a program the backend cannot handle.
	ErrUnsupportedProblem = errors.New("solver: problem not supported by backend")

	// ErrNotFinalized indicates a backend that returned without finalizing the solve.
	ErrNotFinalized = errors.New("solver: backend returned without a final point")
)
