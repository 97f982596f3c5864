package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voicedesk/voicenote-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "voicenote-api-service",
		})
	})

	voiceNoteHandler := handler.NewVoiceNoteHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/uploads - Direct audio upload, returns provider audio URL
		v1.POST("/uploads", voiceNoteHandler.UploadAudio)

		// POST /api/v1/webhooks/messaging - Inbound messaging-platform events
		v1.POST("/webhooks/messaging", voiceNoteHandler.HandleMessagingWebhook)

		notes := v1.Group("/voice-notes")
		{
			// POST /api/v1/voice-notes - Create a queued voice note for async transcription
			notes.POST("", voiceNoteHandler.CreateVoiceNote)

			// GET /api/v1/voice-notes - List voice notes with filtering and pagination
			notes.GET("", voiceNoteHandler.ListVoiceNotes)

			// GET /api/v1/voice-notes/pending-review/count - Triage counter
			notes.GET("/pending-review/count", voiceNoteHandler.CountPendingReview)

			// GET /api/v1/voice-notes/:voice_note_id - Get voice note details
			notes.GET("/:voice_note_id", voiceNoteHandler.GetVoiceNote)

			// PATCH /api/v1/voice-notes/:voice_note_id - Reviewer update
			notes.PATCH("/:voice_note_id", voiceNoteHandler.UpdateVoiceNote)

			// DELETE /api/v1/voice-notes/:voice_note_id - Delete a voice note
			notes.DELETE("/:voice_note_id", voiceNoteHandler.DeleteVoiceNote)
		}
	}

	return r
}
