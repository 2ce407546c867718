package thread

import (
	"errors"
	"fmt"
)

// ErrStorage is the sentinel matched by errors.Is for all store I/O failures.
var ErrStorage = errors.New("thread storage failure")

// StorageError wraps a driver-level failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("thread storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports true for ErrStorage so callers can match the whole class.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
