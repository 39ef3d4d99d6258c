package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict signals a state transition that the current status disallows.
	ErrConflict = errors.New("conflict")
)

// StageError tags a pipeline failure with the stage it escaped from. Only
// errors that escalate past a stage boundary are wrapped; absorbed per-item
// failures never become StageErrors.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Stage
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func Stage(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage tag carried by err, or fallback when err carries
// none.
func StageOf(err error, fallback string) string {
	var se *StageError
	if errors.As(err, &se) && se.Stage != "" {
		return se.Stage
	}
	return fallback
}
