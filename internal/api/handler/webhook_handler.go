package handler

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/voicedesk/voicenote-be/internal/api/domain"
	"github.com/voicedesk/voicenote-be/internal/api/dto"
	"github.com/voicedesk/voicenote-be/internal/api/model"
)

const dedupKeyPrefix = "evt:"

// HandleMessagingWebhook handles POST /api/v1/webhooks/messaging
// Converts an inbound messaging-platform event carrying an audio attachment
// into a persisted, transcribed voice note, synchronously within the webhook
// window. The platform delivers at least once; the event id is the
// deduplication key. Irrelevant events and transcription failures are both
// acknowledged with 200 — erroring here would only trigger redelivery storms.
func (h *VoiceNoteHandler) HandleMessagingWebhook(c *gin.Context) {
	var event dto.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		h.logger.Warn("Malformed webhook event", slog.String("error", err.Error()))
		c.JSON(http.StatusOK, dto.WebhookAckResponse{Status: "ignored"})
		return
	}

	if event.EventID == "" || event.Type != "message" ||
		event.Message == nil || event.Message.Audio == nil || event.Message.Audio.Data == "" {
		c.JSON(http.StatusOK, dto.WebhookAckResponse{Status: "ignored"})
		return
	}

	dedupKey := dedupKeyPrefix + event.EventID

	// Redelivery check before any provider work.
	if existing, err := h.store.GetByDedupKey(c.Request.Context(), dedupKey); err == nil {
		h.logger.Info("Webhook event already ingested",
			slog.String("event_id", event.EventID),
			slog.String("voice_note_id", existing.VoiceNoteID),
		)
		c.JSON(http.StatusOK, dto.WebhookAckResponse{
			Status:      "duplicate",
			VoiceNoteID: existing.VoiceNoteID,
		})
		return
	} else if !errors.Is(err, domain.ErrVoiceNoteNotFound) {
		h.logger.Error("Dedup lookup failed",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to process event",
		})
		return
	}

	audio, err := base64.StdEncoding.DecodeString(event.Message.Audio.Data)
	if err != nil {
		h.logger.Warn("Webhook audio payload is not valid base64",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusOK, dto.WebhookAckResponse{Status: "ignored"})
		return
	}

	mimeType := event.Message.Audio.MimeType
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	// The deadline must fit inside the platform's webhook response timeout.
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.webhookDeadline)
	defer cancel()

	now := time.Now()
	note := &model.VoiceNote{
		VoiceNoteID: uuid.New().String(),
		Source:      domain.SourceWebhook,
		DedupKey:    sql.NullString{String: dedupKey, Valid: true},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	text, err := h.transcriber.Transcribe(ctx, audio, mimeType, h.languageCode)
	if err != nil {
		// The inbound event is never dropped: it degrades to a failed note
		// the triage queue will surface.
		h.logger.Error("Webhook transcription failed",
			slog.String("event_id", event.EventID),
			slog.String("voice_note_id", note.VoiceNoteID),
			slog.String("error", err.Error()),
		)
		note.Status = domain.StatusFailed
		note.ErrorDetail = sql.NullString{String: err.Error(), Valid: true}
	} else {
		note.Status = domain.StatusCompleted
		note.Transcription = sql.NullString{String: text, Valid: true}
	}
	note.ProcessedAt = sql.NullTime{Time: time.Now(), Valid: true}

	if err := h.store.Create(c.Request.Context(), note); err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			// A concurrent delivery won the insert race; the unique index on
			// dedup_key keeps exactly one note.
			if existing, getErr := h.store.GetByDedupKey(c.Request.Context(), dedupKey); getErr == nil {
				c.JSON(http.StatusOK, dto.WebhookAckResponse{
					Status:      "duplicate",
					VoiceNoteID: existing.VoiceNoteID,
				})
				return
			}
		}
		h.logger.Error("Failed to persist webhook voice note",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to process event",
		})
		return
	}

	h.logger.Info("Webhook voice note ingested",
		slog.String("event_id", event.EventID),
		slog.String("voice_note_id", note.VoiceNoteID),
		slog.String("status", note.Status),
	)

	c.JSON(http.StatusOK, dto.WebhookAckResponse{
		Status:      note.Status,
		VoiceNoteID: note.VoiceNoteID,
	})
}
