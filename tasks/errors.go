package tasks

import "errors"

var (
	// ErrTaskNotFound is returned when no task exists for an ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrSchedulerClosed is returned when submitting to a closed scheduler.
	ErrSchedulerClosed = errors.New("scheduler closed")
)
