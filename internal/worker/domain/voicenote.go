package domain

// VoiceNote carries the fields the worker needs to transcribe a claimed note
type VoiceNote struct {
	VoiceNoteID    string
	AudioReference string
	Status         string
}

// NoteMessage represents a voice note message from RabbitMQ
type NoteMessage struct {
	VoiceNoteID string `json:"voice_note_id"`
	DeliveryTag uint64 `json:"-"`
}
