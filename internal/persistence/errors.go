package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkerBusy is returned when a serialize or deserialize is already
	// outstanding on the worker.
	ErrWorkerBusy = errors.New("persistence: worker busy")
	// ErrWorkerFailure wraps every error the worker reports.
	ErrWorkerFailure = errors.New("persistence: worker failure")
	// ErrWorkerClosed is returned once the worker has been shut down.
	ErrWorkerClosed = errors.New("persistence: worker closed")
	// ErrUnsupportedDocument marks input that is not a project document.
	ErrUnsupportedDocument = errors.New("persistence: unsupported document")
)

// WorkerError is an error response from the worker.
type WorkerError struct {
	ID      string
	Message string
	Stack   string
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("persistence: worker request %s: %s", e.ID, e.Message)
}

func (e *WorkerError) Unwrap() error { return ErrWorkerFailure }
