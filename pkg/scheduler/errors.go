package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is the sentinel matched by errors.Is when a root
	// already has an active generation task
	ErrAlreadyRunning = errors.New("generation already running for root")
)

// AlreadyRunningError reports which root was rejected.
type AlreadyRunningError struct {
	Root int64
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("generation already running for root %d", e.Root)
}

// Is reports true for ErrAlreadyRunning.
func (e *AlreadyRunningError) Is(target error) bool {
	return target == ErrAlreadyRunning
}

// GenerationError wraps any failure while driving an exchange. By the time
// the caller sees one, an error-role row has already been persisted at the
// linking turn.
type GenerationError struct {
	Root int64
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation for root %d failed: %v", e.Root, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
