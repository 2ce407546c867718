package termination

import (
	"errors"
	"fmt"
)

var (
	// ErrMinTurns is returned when the minimum turn count is below 1
	ErrMinTurns = errors.New("min turns must be at least 1")

	// ErrMaxBelowMin is returned when the turn cap is below the minimum
	ErrMaxBelowMin = errors.New("max turns must be greater than or equal to min turns")

	// ErrUnsupportedResponse is returned when the judge model answers with a
	// tool invocation instead of text
	ErrUnsupportedResponse = errors.New("reflection judge: tool call responses are not supported")
)

// JudgeError wraps a transport-level failure of the reflection judge's model
// call. Parse failures are not judge errors; they degrade to a non-terminal
// verdict.
type JudgeError struct {
	Err error
}

func (e *JudgeError) Error() string {
	return fmt.Sprintf("reflection judge call failed: %v", e.Err)
}

func (e *JudgeError) Unwrap() error {
	return e.Err
}
