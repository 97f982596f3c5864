package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicedesk/voicenote-be/internal/api/domain"
	"github.com/voicedesk/voicenote-be/internal/api/dto"
)

func webhookRouter(h *VoiceNoteHandler) *gin.Engine {
	r := gin.New()
	r.POST("/api/v1/webhooks/messaging", h.HandleMessagingWebhook)
	return r
}

func postWebhook(t *testing.T, r *gin.Engine, body string) (*httptest.ResponseRecorder, dto.WebhookAckResponse) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/messaging", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var ack dto.WebhookAckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	return w, ack
}

func audioEvent(eventID string) string {
	audio := base64.StdEncoding.EncodeToString([]byte("webm-bytes"))
	return fmt.Sprintf(`{
		"event_id": %q,
		"type": "message",
		"message": {
			"from": "+15550001111",
			"audio": {"data": %q, "mime_type": "audio/webm"}
		}
	}`, eventID, audio)
}

func TestHandleMessagingWebhook_CreatesCompletedNote(t *testing.T) {
	f := newFixture(t)
	f.transcriber.transcript = "call me back tomorrow"
	r := webhookRouter(f.handler)

	w, ack := postWebhook(t, r, audioEvent("evt-1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.StatusCompleted, ack.Status)
	require.NotEmpty(t, ack.VoiceNoteID)

	note := f.store.notes[ack.VoiceNoteID]
	require.NotNil(t, note)
	assert.Equal(t, domain.SourceWebhook, note.Source)
	assert.Equal(t, "call me back tomorrow", note.Transcription.String)
	assert.True(t, note.ProcessedAt.Valid)
	assert.Equal(t, 1, f.transcriber.transcribeCalls)
}

func TestHandleMessagingWebhook_RedeliveryYieldsOneNote(t *testing.T) {
	f := newFixture(t)
	r := webhookRouter(f.handler)

	w1, ack1 := postWebhook(t, r, audioEvent("evt-1"))
	w2, ack2 := postWebhook(t, r, audioEvent("evt-1"))

	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "duplicate", ack2.Status)
	assert.Equal(t, ack1.VoiceNoteID, ack2.VoiceNoteID)

	// Exactly one persisted note, exactly one provider round trip.
	assert.Len(t, f.store.notes, 1)
	assert.Equal(t, 1, f.transcriber.transcribeCalls)
}

func TestHandleMessagingWebhook_TranscriptionFailureDegradesToFailedNote(t *testing.T) {
	f := newFixture(t)
	f.transcriber.transcribeErr = errBoom
	r := webhookRouter(f.handler)

	w, ack := postWebhook(t, r, audioEvent("evt-2"))

	// The platform must still get a success acknowledgment.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.StatusFailed, ack.Status)

	note := f.store.notes[ack.VoiceNoteID]
	require.NotNil(t, note)
	assert.Equal(t, domain.StatusFailed, note.Status)
	assert.False(t, note.Transcription.Valid)
	assert.Contains(t, note.ErrorDetail.String, "boom")
	assert.True(t, note.ProcessedAt.Valid)
}

func TestHandleMessagingWebhook_IrrelevantEventsAreAcknowledged(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"event_id": `},
		{name: "missing event id", body: `{"type": "message"}`},
		{name: "non-message event", body: `{"event_id": "evt-9", "type": "delivery_receipt"}`},
		{name: "no audio attachment", body: `{"event_id": "evt-3", "type": "message", "message": {"from": "x"}}`},
		{name: "audio not base64", body: `{"event_id": "evt-4", "type": "message", "message": {"audio": {"data": "%%%"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			r := webhookRouter(f.handler)

			w, ack := postWebhook(t, r, tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "ignored", ack.Status)
			assert.Empty(t, f.store.notes)
			assert.Zero(t, f.transcriber.transcribeCalls)
		})
	}
}

func TestHandleMessagingWebhook_InsertRaceReturnsExistingNote(t *testing.T) {
	f := newFixture(t)
	r := webhookRouter(f.handler)

	// First delivery lands normally.
	_, ack1 := postWebhook(t, r, audioEvent("evt-5"))

	// Simulate a concurrent redelivery that raced past the dedup read: the
	// read misses once, the insert then hits the unique index.
	f.store.missDedupReadOnce = true
	w, ack2 := postWebhook(t, r, audioEvent("evt-5"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "duplicate", ack2.Status)
	assert.Equal(t, ack1.VoiceNoteID, ack2.VoiceNoteID)
	assert.Len(t, f.store.notes, 1)
}
