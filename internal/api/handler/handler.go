package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/voicedesk/voicenote-be/internal/api/dto"
	"github.com/voicedesk/voicenote-be/internal/api/model"
	"github.com/voicedesk/voicenote-be/internal/api/storage"
)

// VoiceNoteStore is the persistence contract the handlers rely on,
// implemented by storage.Storage.
type VoiceNoteStore interface {
	Create(ctx context.Context, note *model.VoiceNote) error
	GetByID(ctx context.Context, voiceNoteID string) (*model.VoiceNote, error)
	GetByDedupKey(ctx context.Context, dedupKey string) (*model.VoiceNote, error)
	List(ctx context.Context, filter storage.VoiceNoteFilter) ([]model.VoiceNote, error)
	Update(ctx context.Context, voiceNoteID string, fields storage.UpdateFields) (*model.VoiceNote, error)
	Delete(ctx context.Context, voiceNoteID string) (bool, error)
	CountPendingReview(ctx context.Context) (int, error)
}

// Transcriber is the slice of the transcription client the handlers use.
type Transcriber interface {
	Upload(ctx context.Context, audio []byte, mimeType string) (string, error)
	Transcribe(ctx context.Context, audio []byte, mimeType, languageCode string) (string, error)
}

// AdmissionLimiter gates the upload path before any provider call.
type AdmissionLimiter interface {
	Allow(key string) bool
}

// QueuePublisher hands queued voice notes to the worker service.
type QueuePublisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger          *slog.Logger
	Store           VoiceNoteStore
	Transcriber     Transcriber
	Limiter         AdmissionLimiter
	Publisher       QueuePublisher
	WebhookDeadline time.Duration
	LanguageCode    string
	MaxUploadBytes  int64
}

// VoiceNoteHandler handles voice-note-related HTTP requests
type VoiceNoteHandler struct {
	logger          *slog.Logger
	store           VoiceNoteStore
	transcriber     Transcriber
	limiter         AdmissionLimiter
	publisher       QueuePublisher
	webhookDeadline time.Duration
	languageCode    string
	maxUploadBytes  int64
}

// NewVoiceNoteHandler creates a new VoiceNoteHandler instance
func NewVoiceNoteHandler(deps *Dependencies) *VoiceNoteHandler {
	return &VoiceNoteHandler{
		logger:          deps.Logger,
		store:           deps.Store,
		transcriber:     deps.Transcriber,
		limiter:         deps.Limiter,
		publisher:       deps.Publisher,
		webhookDeadline: deps.WebhookDeadline,
		languageCode:    deps.LanguageCode,
		maxUploadBytes:  deps.MaxUploadBytes,
	}
}

func toVoiceNoteDTO(note *model.VoiceNote) dto.VoiceNoteDTO {
	out := dto.VoiceNoteDTO{
		VoiceNoteID:    note.VoiceNoteID,
		Source:         note.Source,
		AudioReference: note.AudioReference,
		Status:         note.Status,
		CreatedAt:      note.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      note.UpdatedAt.Format(time.RFC3339),
	}

	if note.Transcription.Valid {
		out.Transcription = &note.Transcription.String
	}
	if note.ErrorDetail.Valid {
		out.ErrorDetail = &note.ErrorDetail.String
	}
	if note.ProcessedBy.Valid {
		out.ProcessedBy = &note.ProcessedBy.String
	}
	if note.ProcessedAt.Valid {
		processedAt := note.ProcessedAt.Time.Format(time.RFC3339)
		out.ProcessedAt = &processedAt
	}

	return out
}
