package task

import "errors"

var (
	// ErrTaskNotFound is returned when no task has the requested id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrValidation is returned when a task field is missing or malformed.
	ErrValidation = errors.New("task validation failed")
)
