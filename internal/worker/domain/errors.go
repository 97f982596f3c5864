package domain

import "errors"

var (
	// ErrVoiceNoteNotFound is returned when a voice note cannot be found in the database
	ErrVoiceNoteNotFound = errors.New("voice note not found")

	// ErrNoteAlreadyClaimed is returned when attempting to claim a note that is
	// no longer queued
	ErrNoteAlreadyClaimed = errors.New("voice note already claimed or not in queued status")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
