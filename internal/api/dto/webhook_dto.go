package dto

// WebhookEvent is the inbound messaging-platform event envelope. Only events
// of type "message" carrying an audio attachment produce a voice note; every
// other shape is acknowledged and ignored.
type WebhookEvent struct {
	EventID string          `json:"event_id"`
	Type    string          `json:"type"`
	Message *WebhookMessage `json:"message"`
}

type WebhookMessage struct {
	From  string        `json:"from"`
	Audio *WebhookAudio `json:"audio"`
}

type WebhookAudio struct {
	// Data is the base64-encoded audio payload.
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

type WebhookAckResponse struct {
	Status      string `json:"status"`
	VoiceNoteID string `json:"voice_note_id,omitempty"`
}
