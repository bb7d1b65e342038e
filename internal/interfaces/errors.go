package interfaces

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a create violates the slug uniqueness constraint
	ErrConflict = errors.New("slug already exists")

	// ErrInvalidState is returned when an operation is not valid for the job's
	// current lifecycle state (e.g. cancelling a job that is not processing)
	ErrInvalidState = errors.New("invalid job state for operation")
)
