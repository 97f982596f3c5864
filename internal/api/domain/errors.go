package domain

import "errors"

var (
	// ErrVoiceNoteNotFound is returned when a voice note cannot be found
	ErrVoiceNoteNotFound = errors.New("voice note not found")

	// ErrInvalidTransition is returned when a requested status change is not
	// reachable from the note's current status
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStatusConflict is returned when the note's status changed between the
	// legality check and the update
	ErrStatusConflict = errors.New("voice note status changed concurrently")

	// ErrDuplicateEvent is returned when a webhook event has already been
	// ingested under the same deduplication key
	ErrDuplicateEvent = errors.New("event already ingested")
)
