package tape

import (
	"errors"
	"fmt"
)

var (
	// ErrTrace indicates that tracing or evaluating a function failed.
	ErrTrace = errors.New("tape: trace failed")

	// ErrNotScalar indicates a scalar-only operation on a vector tape.
	ErrNotScalar = errors.New("tape: operation needs a scalar function")

	// ErrPatternSize indicates a pattern or value buffer that does not fit the tape.
	ErrPatternSize = errors.New("tape: pattern does not match tape dimensions")

	// ErrForeignTape indicates a tape produced by a different service.
	ErrForeignTape = errors.New("tape: tape was not produced by this service")
)

// TraceError wraps a failure inside a traced function with the tape tag and
// the operation that triggered it.
type TraceError struct {
	Tag Tag
	Op  string
	Err error
}

func (e *TraceError) Error() string {
	return fmt.Sprintf("tape %d: %s: %v", e.Tag, e.Op, e.Err)
}

func (e *TraceError) Unwrap() error {
	return e.Err
}

func (e *TraceError) Is(target error) bool {
	return target == ErrTrace
}

// guard runs f and converts a panic into a *TraceError.
func guard(tag Tag, op string, f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = &TraceError{Tag: tag, Op: op, Err: e}
				return
			}
			err = &TraceError{Tag: tag, Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	f()
	return nil
}
