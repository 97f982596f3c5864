package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voicedesk/voicenote-be/internal/api/dto"
)

// UploadAudio handles POST /api/v1/uploads
// Accepts a direct audio submission and returns the provider-side audio URL.
// The rate limiter is consulted before anything else so rejected callers
// never consume provider quota. No voice note is persisted here; attaching
// requester metadata and creating the durable record is the caller's job.
func (h *VoiceNoteHandler) UploadAudio(c *gin.Context) {
	if !h.limiter.Allow(c.ClientIP()) {
		h.logger.Warn("Upload rejected by rate limiter",
			slog.String("ip", c.ClientIP()),
		)
		c.Header("Retry-After", "1")
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "Too many upload requests, slow down",
		})
		return
	}

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "no audio file provided",
		})
		return
	}
	defer file.Close()

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "audio file exceeds the maximum upload size",
		})
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "failed to read audio file",
		})
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	audioURL, err := h.transcriber.Upload(c.Request.Context(), audio, mimeType)
	if err != nil {
		h.logger.Error("Provider upload failed",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		// Operators need the provider detail to tell bad audio from a
		// provider outage, so the underlying error is surfaced.
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "audio upload failed: " + err.Error(),
		})
		return
	}

	h.logger.Info("Audio uploaded",
		slog.String("filename", header.Filename),
		slog.Int("size_bytes", len(audio)),
		slog.String("mime_type", mimeType),
	)

	c.JSON(http.StatusOK, dto.UploadResponse{AudioURL: audioURL})
}
