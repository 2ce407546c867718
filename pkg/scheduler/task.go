package scheduler

import (
	"context"
)

// Task is one active background generation run, bound to a single exchange
// root. At most one task exists per root at any time.
type Task struct {
	id     string
	root   int64
	cancel context.CancelFunc
	done   chan struct{}
	err    error // written once before done closes
}

// ID returns the task's run identifier.
func (t *Task) ID() string {
	return t.id
}

// Root returns the exchange root this task owns.
func (t *Task) Root() int64 {
	return t.root
}

// Done is closed when the task has finished, successfully or not.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the task's terminal error. It is only meaningful after Done
// is closed; nil means the run completed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Cancel requests cancellation. The run observes it at its next suspension
// point; already-persisted turns stay intact.
func (t *Task) Cancel() {
	t.cancel()
}
