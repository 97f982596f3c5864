package model

import (
	"database/sql"
	"time"
)

type VoiceNote struct {
	VoiceNoteID    string         `db:"voice_note_id"`
	Source         string         `db:"source"`
	DedupKey       sql.NullString `db:"dedup_key"`
	AudioReference string         `db:"audio_reference"`
	Transcription  sql.NullString `db:"transcription"`
	Status         string         `db:"status"`
	ErrorDetail    sql.NullString `db:"error_detail"`
	ProcessedBy    sql.NullString `db:"processed_by"`
	ProcessedAt    sql.NullTime   `db:"processed_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}
