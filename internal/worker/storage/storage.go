package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/voicedesk/voicenote-be/internal/worker/domain"
)

// Statuses as stored; the worker only ever drives queued notes forward.
const (
	statusQueued     = "queued"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimVoiceNote moves a queued note to processing using optimistic locking.
// Returns the note on success, ErrNoteAlreadyClaimed if another worker won
// the claim or the note is past queued (a requeued delivery after the work
// already finished lands here too).
func (s *Storage) ClaimVoiceNote(ctx context.Context, voiceNoteID, workerID string) (*domain.VoiceNote, error) {
	query := `
		UPDATE voice_notes
		SET status = $1,
		    updated_at = NOW()
		WHERE voice_note_id = $2
		  AND status = $3
		RETURNING voice_note_id, audio_reference
	`

	var note domain.VoiceNote
	err := s.db.QueryRowContext(ctx, query, statusProcessing, voiceNoteID, statusQueued).Scan(
		&note.VoiceNoteID,
		&note.AudioReference,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to claim voice note - already claimed or not found",
				slog.String("voice_note_id", voiceNoteID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrNoteAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim voice note: %w", err)
	}

	note.Status = statusProcessing

	s.logger.Info("Voice note claimed",
		slog.String("voice_note_id", voiceNoteID),
		slog.String("worker_id", workerID),
	)

	return &note, nil
}

// MarkTranscribed records a successful transcription and completes the note.
// processed_at is stamped on entry to the terminal status; processed_by stays
// null because no reviewer was involved.
func (s *Storage) MarkTranscribed(ctx context.Context, voiceNoteID, transcription string) error {
	query := `
		UPDATE voice_notes
		SET status = $1,
		    transcription = $2,
		    error_detail = NULL,
		    processed_at = NOW(),
		    updated_at = NOW()
		WHERE voice_note_id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, statusCompleted, transcription, voiceNoteID, statusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark voice note transcribed: %w", err)
	}

	return s.requireOneRow(result, voiceNoteID, statusCompleted)
}

// MarkFailed records a failed transcription attempt with the failure detail.
func (s *Storage) MarkFailed(ctx context.Context, voiceNoteID, errorDetail string) error {
	query := `
		UPDATE voice_notes
		SET status = $1,
		    error_detail = $2,
		    processed_at = NOW(),
		    updated_at = NOW()
		WHERE voice_note_id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, statusFailed, errorDetail, voiceNoteID, statusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark voice note failed: %w", err)
	}

	return s.requireOneRow(result, voiceNoteID, statusFailed)
}

func (s *Storage) requireOneRow(result sql.Result, voiceNoteID, status string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("voice note %s not in processing status, cannot move to %s", voiceNoteID, status)
	}

	s.logger.Info("Voice note status updated",
		slog.String("voice_note_id", voiceNoteID),
		slog.String("status", status),
	)

	return nil
}
