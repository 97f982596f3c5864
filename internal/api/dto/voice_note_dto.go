package dto

type CreateVoiceNoteRequest struct {
	AudioURL     string `json:"audio_url" binding:"required"`
	LanguageCode string `json:"language_code"`
}

type UpdateVoiceNoteRequest struct {
	Transcription *string `json:"transcription"`
	Status        *string `json:"status"`
	ProcessedBy   *string `json:"processed_by"`
}

type ListVoiceNotesRequest struct {
	Source   string `form:"source"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListVoiceNotesResponse struct {
	VoiceNotes []VoiceNoteDTO `json:"voice_notes"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type VoiceNoteDTO struct {
	VoiceNoteID    string  `json:"voice_note_id"`
	Source         string  `json:"source"`
	AudioReference string  `json:"audio_reference"`
	Transcription  *string `json:"transcription"`
	Status         string  `json:"status"`
	ErrorDetail    *string `json:"error_detail,omitempty"`
	ProcessedBy    *string `json:"processed_by"`
	ProcessedAt    *string `json:"processed_at"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

type UploadResponse struct {
	AudioURL string `json:"audio_url"`
}

type PendingReviewResponse struct {
	PendingReview int `json:"pending_review"`
}
