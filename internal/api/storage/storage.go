package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/voicedesk/voicenote-be/internal/api/domain"
	"github.com/voicedesk/voicenote-be/internal/api/model"
	"github.com/voicedesk/voicenote-be/shared/postgresql"
)

const voiceNoteColumns = `
	voice_note_id, source, dedup_key, audio_reference, transcription,
	status, error_detail, processed_by, processed_at, created_at, updated_at
`

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// Create inserts a new voice note. Notes carrying a dedup key (the webhook
// path) insert with ON CONFLICT DO NOTHING on the dedup_key unique index;
// a conflicting insert returns domain.ErrDuplicateEvent so the caller can
// fetch the previously ingested note instead.
func (s *Storage) Create(ctx context.Context, note *model.VoiceNote) error {
	query := `
		INSERT INTO voice_notes (
			voice_note_id, source, dedup_key, audio_reference, transcription,
			status, error_detail, processed_by, processed_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11
		)
	`

	if note.DedupKey.Valid {
		query += ` ON CONFLICT (dedup_key) DO NOTHING`
	}

	result, err := s.db.ExecContext(
		ctx,
		query,
		note.VoiceNoteID,
		note.Source,
		note.DedupKey,
		note.AudioReference,
		note.Transcription,
		note.Status,
		note.ErrorDetail,
		note.ProcessedBy,
		note.ProcessedAt,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create voice note: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrDuplicateEvent
	}

	return nil
}

func (s *Storage) GetByID(ctx context.Context, voiceNoteID string) (*model.VoiceNote, error) {
	var note model.VoiceNote
	query := `SELECT ` + voiceNoteColumns + ` FROM voice_notes WHERE voice_note_id = $1`

	err := s.db.GetContext(ctx, &note, query, voiceNoteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVoiceNoteNotFound
		}
		return nil, fmt.Errorf("failed to get voice note: %w", err)
	}

	return &note, nil
}

// GetByDedupKey looks up a voice note by its deduplication key. Used by the
// webhook path to short-circuit redeliveries before any provider call.
func (s *Storage) GetByDedupKey(ctx context.Context, dedupKey string) (*model.VoiceNote, error) {
	var note model.VoiceNote
	query := `SELECT ` + voiceNoteColumns + ` FROM voice_notes WHERE dedup_key = $1`

	err := s.db.GetContext(ctx, &note, query, dedupKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVoiceNoteNotFound
		}
		return nil, fmt.Errorf("failed to get voice note by dedup key: %w", err)
	}

	return &note, nil
}

type VoiceNoteFilter struct {
	Source   string
	Status   string
	PageSize int
	Cursor   *VoiceNoteCursor
}

type VoiceNoteCursor struct {
	CreatedAt   time.Time
	VoiceNoteID string
}

func (s *Storage) List(ctx context.Context, filter VoiceNoteFilter) ([]model.VoiceNote, error) {
	query := `SELECT ` + voiceNoteColumns + ` FROM voice_notes WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Source != "" {
		query += fmt.Sprintf(" AND source = $%d", argIdx)
		args = append(args, filter.Source)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, voice_note_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.VoiceNoteID)
		argIdx += 2
	}

	// Order by created_at DESC, voice_note_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, voice_note_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var notes []model.VoiceNote
	err := s.db.SelectContext(ctx, &notes, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list voice notes: %w", err)
	}

	return notes, nil
}

// UpdateFields is the partial field set a reviewer may change. Nil pointers
// leave the column untouched; audio_reference is immutable and never part of
// an update.
type UpdateFields struct {
	Transcription *string
	Status        *string
	ProcessedBy   *string
}

// Update applies a partial update after validating any requested status
// change against the note's current status. Entering a terminal status stamps
// processed_at; reopening to queued clears it. The UPDATE is guarded with
// WHERE status = <status just read> so a concurrent transition surfaces as
// domain.ErrStatusConflict instead of silently violating the state machine.
func (s *Storage) Update(ctx context.Context, voiceNoteID string, fields UpdateFields) (*model.VoiceNote, error) {
	current, err := s.GetByID(ctx, voiceNoteID)
	if err != nil {
		return nil, err
	}

	query := `UPDATE voice_notes SET updated_at = NOW()`
	args := []interface{}{}
	argIdx := 1

	if fields.Transcription != nil {
		query += fmt.Sprintf(", transcription = $%d", argIdx)
		args = append(args, *fields.Transcription)
		argIdx++
	}

	if fields.ProcessedBy != nil {
		query += fmt.Sprintf(", processed_by = $%d", argIdx)
		args = append(args, *fields.ProcessedBy)
		argIdx++
	}

	if fields.Status != nil && *fields.Status != current.Status {
		if err := domain.ValidateTransition(current.Status, *fields.Status); err != nil {
			return nil, err
		}

		query += fmt.Sprintf(", status = $%d", argIdx)
		args = append(args, *fields.Status)
		argIdx++

		switch {
		case domain.IsTerminalStatus(*fields.Status) && !domain.IsTerminalStatus(current.Status):
			query += ", processed_at = NOW()"
		case *fields.Status == domain.StatusQueued:
			// Explicit reopen: the note goes back into triage.
			query += ", processed_at = NULL"
		}
	}

	query += fmt.Sprintf(" WHERE voice_note_id = $%d AND status = $%d RETURNING ", argIdx, argIdx+1)
	query += voiceNoteColumns
	args = append(args, voiceNoteID, current.Status)

	var note model.VoiceNote
	err = s.db.GetContext(ctx, &note, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The row existed a moment ago; its status moved underneath us.
			return nil, domain.ErrStatusConflict
		}
		return nil, fmt.Errorf("failed to update voice note: %w", err)
	}

	return &note, nil
}

// Delete removes a voice note. Deleting an absent id is not an error at this
// layer; the returned flag lets the handler surface NotFound for user
// feedback.
func (s *Storage) Delete(ctx context.Context, voiceNoteID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM voice_notes WHERE voice_note_id = $1`, voiceNoteID)
	if err != nil {
		return false, fmt.Errorf("failed to delete voice note: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// CountPendingReview counts voice notes no reviewer has handled yet. This is
// the triage counter read by reviewer-facing UI collaborators.
func (s *Storage) CountPendingReview(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM voice_notes WHERE processed_by IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending voice notes: %w", err)
	}

	return count, nil
}
