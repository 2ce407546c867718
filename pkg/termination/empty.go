package termination

import (
	"context"
	"fmt"

	"kaiwa/pkg/thread"
)

// ConsecutiveEmpty terminates when the most recent Window user-role messages
// all have empty content. A user proxy that has run out of code to execute
// produces exactly this shape.
type ConsecutiveEmpty struct {
	Window int
}

// NewConsecutiveEmpty creates the rule with the given window size.
func NewConsecutiveEmpty(window int) *ConsecutiveEmpty {
	if window < 1 {
		window = 1
	}
	return &ConsecutiveEmpty{Window: window}
}

// Check walks the transcript backward over user-role messages. Fewer than
// Window qualifying messages is not a terminal condition.
func (r *ConsecutiveEmpty) Check(_ context.Context, history []thread.Message) (Result, error) {
	seen := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != "user" {
			continue
		}
		if history[i].Content != "" {
			return Continue(""), nil
		}
		seen++
		if seen == r.Window {
			return Stop(ReasonConsecutiveEmptyInput,
				fmt.Sprintf("Last %d user messages were empty.", r.Window)), nil
		}
	}
	return Continue(""), nil
}
