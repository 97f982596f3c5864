package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/voicedesk/voicenote-be/internal/api/domain"
	"github.com/voicedesk/voicenote-be/internal/api/model"
	"github.com/voicedesk/voicenote-be/internal/api/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory VoiceNoteStore mirroring the storage layer's
// contract, including the dedup-key uniqueness and transition checks.
type fakeStore struct {
	notes             map[string]*model.VoiceNote
	createCalls       int
	failCreate        error
	missDedupReadOnce bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{notes: make(map[string]*model.VoiceNote)}
}

func (s *fakeStore) Create(_ context.Context, note *model.VoiceNote) error {
	s.createCalls++
	if s.failCreate != nil {
		return s.failCreate
	}
	if note.DedupKey.Valid {
		for _, existing := range s.notes {
			if existing.DedupKey.Valid && existing.DedupKey.String == note.DedupKey.String {
				return domain.ErrDuplicateEvent
			}
		}
	}
	clone := *note
	s.notes[note.VoiceNoteID] = &clone
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*model.VoiceNote, error) {
	note, ok := s.notes[id]
	if !ok {
		return nil, domain.ErrVoiceNoteNotFound
	}
	clone := *note
	return &clone, nil
}

func (s *fakeStore) GetByDedupKey(_ context.Context, dedupKey string) (*model.VoiceNote, error) {
	if s.missDedupReadOnce {
		s.missDedupReadOnce = false
		return nil, domain.ErrVoiceNoteNotFound
	}
	for _, note := range s.notes {
		if note.DedupKey.Valid && note.DedupKey.String == dedupKey {
			clone := *note
			return &clone, nil
		}
	}
	return nil, domain.ErrVoiceNoteNotFound
}

func (s *fakeStore) List(_ context.Context, filter storage.VoiceNoteFilter) ([]model.VoiceNote, error) {
	var out []model.VoiceNote
	for _, note := range s.notes {
		if filter.Source != "" && note.Source != filter.Source {
			continue
		}
		if filter.Status != "" && note.Status != filter.Status {
			continue
		}
		out = append(out, *note)
	}
	return out, nil
}

func (s *fakeStore) Update(_ context.Context, id string, fields storage.UpdateFields) (*model.VoiceNote, error) {
	note, ok := s.notes[id]
	if !ok {
		return nil, domain.ErrVoiceNoteNotFound
	}

	if fields.Status != nil && *fields.Status != note.Status {
		if err := domain.ValidateTransition(note.Status, *fields.Status); err != nil {
			return nil, err
		}
		if domain.IsTerminalStatus(*fields.Status) && !domain.IsTerminalStatus(note.Status) {
			note.ProcessedAt = sql.NullTime{Time: time.Now(), Valid: true}
		} else if *fields.Status == domain.StatusQueued {
			note.ProcessedAt = sql.NullTime{}
		}
		note.Status = *fields.Status
	}
	if fields.Transcription != nil {
		note.Transcription = sql.NullString{String: *fields.Transcription, Valid: true}
	}
	if fields.ProcessedBy != nil {
		note.ProcessedBy = sql.NullString{String: *fields.ProcessedBy, Valid: true}
	}
	note.UpdatedAt = time.Now()

	clone := *note
	return &clone, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := s.notes[id]; !ok {
		return false, nil
	}
	delete(s.notes, id)
	return true, nil
}

func (s *fakeStore) CountPendingReview(_ context.Context) (int, error) {
	count := 0
	for _, note := range s.notes {
		if !note.ProcessedBy.Valid {
			count++
		}
	}
	return count, nil
}

// fakeTranscriber scripts provider outcomes and counts calls.
type fakeTranscriber struct {
	uploadURL       string
	uploadErr       error
	uploadCalls     int
	transcript      string
	transcribeErr   error
	transcribeCalls int
}

func (f *fakeTranscriber) Upload(_ context.Context, _ []byte, _ string) (string, error) {
	f.uploadCalls++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadURL, nil
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _, _ string) (string, error) {
	f.transcribeCalls++
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcript, nil
}

// fakeLimiter records consultation order relative to provider calls.
type fakeLimiter struct {
	allow bool
	calls int
}

func (f *fakeLimiter) Allow(string) bool {
	f.calls++
	return f.allow
}

type fakePublisher struct {
	published  [][]byte
	publishErr error
}

func (f *fakePublisher) PublishWithRetry(_ context.Context, body []byte, _ string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, body)
	return nil
}

var errBoom = errors.New("boom")

type handlerFixture struct {
	handler     *VoiceNoteHandler
	store       *fakeStore
	transcriber *fakeTranscriber
	limiter     *fakeLimiter
	publisher   *fakePublisher
}

func newFixture(_ *testing.T) *handlerFixture {
	store := newFakeStore()
	transcriber := &fakeTranscriber{uploadURL: "https://cdn.provider.test/audio/abc", transcript: "hello"}
	limiter := &fakeLimiter{allow: true}
	publisher := &fakePublisher{}

	h := NewVoiceNoteHandler(&Dependencies{
		Logger:          testLogger(),
		Store:           store,
		Transcriber:     transcriber,
		Limiter:         limiter,
		Publisher:       publisher,
		WebhookDeadline: 2 * time.Second,
		LanguageCode:    "en",
		MaxUploadBytes:  1 << 20,
	})

	return &handlerFixture{
		handler:     h,
		store:       store,
		transcriber: transcriber,
		limiter:     limiter,
		publisher:   publisher,
	}
}
