package domain

// Voice note status constants
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Voice note source constants
const (
	SourceManualUpload = "manual_upload"
	SourceWebhook      = "webhook"
)

// IsValidStatus reports whether s is a known voice note status.
func IsValidStatus(s string) bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminalStatus reports whether s is a terminal status. Terminal notes
// never move again without an explicit reviewer reopen.
func IsTerminalStatus(s string) bool {
	return s == StatusCompleted || s == StatusFailed
}

// ValidateTransition checks whether a voice note may move from current to
// next. The rules:
//
//	queued     -> processing, completed, failed
//	processing -> completed, failed
//	completed  -> queued (reopen only)
//	failed     -> queued (reopen only)
//
// Terminal-to-terminal moves are rejected; a reviewer must reopen the note
// first. A no-op transition (current == next) is always allowed.
func ValidateTransition(current, next string) error {
	if !IsValidStatus(next) {
		return ErrInvalidTransition
	}

	if current == next {
		return nil
	}

	switch current {
	case StatusQueued:
		// Any forward move is legal from the initial state.
		return nil
	case StatusProcessing:
		if next == StatusCompleted || next == StatusFailed {
			return nil
		}
	case StatusCompleted, StatusFailed:
		if next == StatusQueued {
			return nil
		}
	}

	return ErrInvalidTransition
}
