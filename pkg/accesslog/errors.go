package accesslog

import (
	"errors"
	"fmt"
)

var (
	// ErrRecorderClosed is returned by Record after Close.
	ErrRecorderClosed = errors.New("access log recorder closed")

	// ErrQueueFull is returned by Record when the write queue is full.
	ErrQueueFull = errors.New("access log queue full")
)

// StorageError wraps a failure of a storage backend.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("access log storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
