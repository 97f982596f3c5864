package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/voicedesk/voicenote-be/internal/api/domain"
	"github.com/voicedesk/voicenote-be/internal/api/dto"
	"github.com/voicedesk/voicenote-be/internal/api/model"
	"github.com/voicedesk/voicenote-be/internal/api/storage"
)

// CreateVoiceNote handles POST /api/v1/voice-notes
// Creates a queued voice note from a previously uploaded audio reference and
// hands it to the worker service for asynchronous transcription.
func (h *VoiceNoteHandler) CreateVoiceNote(c *gin.Context) {
	var req dto.CreateVoiceNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	now := time.Now()
	note := &model.VoiceNote{
		VoiceNoteID:    uuid.New().String(),
		Source:         domain.SourceManualUpload,
		AudioReference: req.AudioURL,
		Status:         domain.StatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.store.Create(c.Request.Context(), note); err != nil {
		h.logger.Error("Failed to create voice note", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create voice note",
		})
		return
	}

	msg, _ := json.Marshal(map[string]string{"voice_note_id": note.VoiceNoteID})
	if err := h.publisher.PublishWithRetry(c.Request.Context(), msg, "application/json"); err != nil {
		// The note exists but nothing will pick it up; surface the failure
		// instead of leaving the caller waiting on a transcript that never
		// arrives.
		h.logger.Error("Failed to enqueue voice note",
			slog.String("voice_note_id", note.VoiceNoteID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue voice note for transcription",
		})
		return
	}

	c.JSON(http.StatusCreated, toVoiceNoteDTO(note))
}

// GetVoiceNote handles GET /api/v1/voice-notes/:voice_note_id
func (h *VoiceNoteHandler) GetVoiceNote(c *gin.Context) {
	voiceNoteID := c.Param("voice_note_id")
	if _, err := uuid.Parse(voiceNoteID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "voice_note_id must be a valid UUID",
		})
		return
	}

	note, err := h.store.GetByID(c.Request.Context(), voiceNoteID)
	if err != nil {
		if errors.Is(err, domain.ErrVoiceNoteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Voice note not found",
			})
			return
		}
		h.logger.Error("Failed to get voice note", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get voice note",
		})
		return
	}

	c.JSON(http.StatusOK, toVoiceNoteDTO(note))
}

// ListVoiceNotes handles GET /api/v1/voice-notes
// Lists voice notes with optional filtering and cursor pagination
func (h *VoiceNoteHandler) ListVoiceNotes(c *gin.Context) {
	var req dto.ListVoiceNotesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeVoiceNoteCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.VoiceNoteFilter{
		Source:   req.Source,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	notes, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list voice notes", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list voice notes",
		})
		return
	}

	hasMore := len(notes) > req.PageSize
	if hasMore {
		notes = notes[:req.PageSize]
	}

	noteResponse := make([]dto.VoiceNoteDTO, len(notes))
	for i := range notes {
		noteResponse[i] = toVoiceNoteDTO(&notes[i])
	}

	var nextCursor string
	if hasMore {
		last := notes[len(notes)-1]
		nextCursor = EncodeVoiceNoteCursor(&storage.VoiceNoteCursor{
			CreatedAt:   last.CreatedAt,
			VoiceNoteID: last.VoiceNoteID,
		})
	}

	c.JSON(http.StatusOK, dto.ListVoiceNotesResponse{
		VoiceNotes: noteResponse,
		NextCursor: nextCursor,
	})
}

// UpdateVoiceNote handles PATCH /api/v1/voice-notes/:voice_note_id
// Applies a reviewer's partial update. Status changes are validated against
// the state machine; terminal notes must be reopened before being moved
// anywhere else.
func (h *VoiceNoteHandler) UpdateVoiceNote(c *gin.Context) {
	voiceNoteID := c.Param("voice_note_id")
	if _, err := uuid.Parse(voiceNoteID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "voice_note_id must be a valid UUID",
		})
		return
	}

	var req dto.UpdateVoiceNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if req.Status != nil && !domain.IsValidStatus(*req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown status value",
		})
		return
	}

	note, err := h.store.Update(c.Request.Context(), voiceNoteID, storage.UpdateFields{
		Transcription: req.Transcription,
		Status:        req.Status,
		ProcessedBy:   req.ProcessedBy,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrVoiceNoteNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Voice note not found",
			})
		case errors.Is(err, domain.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Requested status is not reachable from the current status",
			})
		case errors.Is(err, domain.ErrStatusConflict):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Voice note was modified concurrently, retry",
			})
		default:
			h.logger.Error("Failed to update voice note",
				slog.String("voice_note_id", voiceNoteID),
				slog.String("error", err.Error()),
			)
			// Reviewer-facing: keep the message generic.
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update voice note",
			})
		}
		return
	}

	c.JSON(http.StatusOK, toVoiceNoteDTO(note))
}

// DeleteVoiceNote handles DELETE /api/v1/voice-notes/:voice_note_id
func (h *VoiceNoteHandler) DeleteVoiceNote(c *gin.Context) {
	voiceNoteID := c.Param("voice_note_id")
	if _, err := uuid.Parse(voiceNoteID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "voice_note_id must be a valid UUID",
		})
		return
	}

	deleted, err := h.store.Delete(c.Request.Context(), voiceNoteID)
	if err != nil {
		h.logger.Error("Failed to delete voice note",
			slog.String("voice_note_id", voiceNoteID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete voice note",
		})
		return
	}

	// Storage-level delete is idempotent; 404 here is user feedback only.
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Voice note not found",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// CountPendingReview handles GET /api/v1/voice-notes/pending-review/count
// Returns the triage counter consumed by reviewer-facing UI collaborators.
func (h *VoiceNoteHandler) CountPendingReview(c *gin.Context) {
	count, err := h.store.CountPendingReview(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to count pending voice notes", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to count pending voice notes",
		})
		return
	}

	c.JSON(http.StatusOK, dto.PendingReviewResponse{PendingReview: count})
}
