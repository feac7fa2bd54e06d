package transcription

import "errors"

var (
	// ErrTooFewMeshPoints indicates a mesh with fewer than two points.
	ErrTooFewMeshPoints = errors.New("transcription: mesh needs at least two points")

	// ErrGuessLength indicates a variable vector whose length does not match the layout.
	ErrGuessLength = errors.New("transcription: variable vector length mismatch")

	// ErrNoDynamics indicates a problem without states whose dynamics still return values.
	ErrNoDynamics = errors.New("transcription: stateless problem must not define dynamics")
)
