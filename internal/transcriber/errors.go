package transcriber

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned at construction time when no provider API
	// key is configured
	ErrMissingAPIKey = errors.New("transcriber: provider API key is required")

	// ErrPollTimeout is returned when the polling deadline elapses before the
	// provider reports a terminal status. The remote job may still complete
	// afterward; callers must treat this as "result unknown", not as a
	// definite failure.
	ErrPollTimeout = errors.New("transcriber: polling deadline exceeded")
)

// UploadError is returned when the provider rejects an audio upload.
type UploadError struct {
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("transcriber: upload rejected with status %d: %s", e.StatusCode, e.Body)
}

// JobCreationError is returned when the provider rejects a transcription
// job request.
type JobCreationError struct {
	StatusCode int
	Body       string
}

func (e *JobCreationError) Error() string {
	return fmt.Sprintf("transcriber: job creation rejected with status %d: %s", e.StatusCode, e.Body)
}

// TranscriptionError is returned when the provider reports a terminal error
// for a transcription job.
type TranscriptionError struct {
	JobID  string
	Detail string
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcriber: job %s failed: %s", e.JobID, e.Detail)
}
