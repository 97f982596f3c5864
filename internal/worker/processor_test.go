package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicedesk/voicenote-be/internal/transcriber"
	"github.com/voicedesk/voicenote-be/internal/worker/domain"
)

type fakeNoteStorage struct {
	claimErr        error
	markFailedErr   error
	markDoneErr     error
	claimedID       string
	failedDetail    string
	transcribedText string
	markFailedCalls int
	markDoneCalls   int
}

func (s *fakeNoteStorage) ClaimVoiceNote(_ context.Context, voiceNoteID, _ string) (*domain.VoiceNote, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	s.claimedID = voiceNoteID
	return &domain.VoiceNote{
		VoiceNoteID:    voiceNoteID,
		AudioReference: "https://provider.example/audio/" + voiceNoteID,
		Status:         "processing",
	}, nil
}

func (s *fakeNoteStorage) MarkTranscribed(_ context.Context, _, transcription string) error {
	s.markDoneCalls++
	if s.markDoneErr != nil {
		return s.markDoneErr
	}
	s.transcribedText = transcription
	return nil
}

func (s *fakeNoteStorage) MarkFailed(_ context.Context, _, errorDetail string) error {
	s.markFailedCalls++
	if s.markFailedErr != nil {
		return s.markFailedErr
	}
	s.failedDetail = errorDetail
	return nil
}

type fakeJobTranscriber struct {
	createJobErr error
	pollErr      error
	transcript   string
	jobCalls     int
	pollCalls    int
}

func (t *fakeJobTranscriber) CreateJob(_ context.Context, _, _ string) (string, error) {
	t.jobCalls++
	if t.createJobErr != nil {
		return "", t.createJobErr
	}
	return "job-1", nil
}

func (t *fakeJobTranscriber) Poll(_ context.Context, _ string) (string, error) {
	t.pollCalls++
	if t.pollErr != nil {
		return "", t.pollErr
	}
	return t.transcript, nil
}

func newTestWorker(storage *fakeNoteStorage, tr *fakeJobTranscriber) *Worker {
	return NewWorker(&Config{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Storage:      storage,
		Transcriber:  tr,
		Concurrency:  1,
		LanguageCode: "en",
	})
}

func TestProcessNoteSuccess(t *testing.T) {
	storage := &fakeNoteStorage{}
	tr := &fakeJobTranscriber{transcript: "pick up the dry cleaning"}
	w := newTestWorker(storage, tr)

	err := w.processNote(context.Background(), &domain.NoteMessage{VoiceNoteID: "note-1"})

	require.NoError(t, err)
	assert.Equal(t, "note-1", storage.claimedID)
	assert.Equal(t, "pick up the dry cleaning", storage.transcribedText)
	assert.Equal(t, 1, tr.jobCalls)
	assert.Zero(t, storage.markFailedCalls)
}

func TestProcessNoteAlreadyClaimed(t *testing.T) {
	storage := &fakeNoteStorage{claimErr: domain.ErrNoteAlreadyClaimed}
	tr := &fakeJobTranscriber{}
	w := newTestWorker(storage, tr)

	err := w.processNote(context.Background(), &domain.NoteMessage{VoiceNoteID: "note-1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoteAlreadyClaimed)
	assert.False(t, w.shouldRequeue(err))
	assert.Zero(t, tr.jobCalls)
}

func TestProcessNoteClaimStorageErrorRequeues(t *testing.T) {
	storage := &fakeNoteStorage{claimErr: errors.New("connection refused")}
	w := newTestWorker(storage, &fakeJobTranscriber{})

	err := w.processNote(context.Background(), &domain.NoteMessage{VoiceNoteID: "note-1"})

	require.Error(t, err)
	assert.True(t, w.shouldRequeue(err))
}

func TestProcessNoteTranscriptionFailureMarksFailed(t *testing.T) {
	storage := &fakeNoteStorage{}
	tr := &fakeJobTranscriber{
		pollErr: &transcriber.TranscriptionError{JobID: "job-1", Detail: "audio too noisy"},
	}
	w := newTestWorker(storage, tr)

	err := w.processNote(context.Background(), &domain.NoteMessage{VoiceNoteID: "note-1"})

	// Failure is the recorded outcome, the message is done.
	require.NoError(t, err)
	assert.Equal(t, 1, storage.markFailedCalls)
	assert.Contains(t, storage.failedDetail, "audio too noisy")
	assert.Zero(t, storage.markDoneCalls)
}

func TestProcessNotePollTimeoutRecordsUnknownResult(t *testing.T) {
	storage := &fakeNoteStorage{}
	tr := &fakeJobTranscriber{pollErr: transcriber.ErrPollTimeout}
	w := newTestWorker(storage, tr)

	err := w.processNote(context.Background(), &domain.NoteMessage{VoiceNoteID: "note-1"})

	require.NoError(t, err)
	assert.Equal(t, 1, storage.markFailedCalls)
	assert.Contains(t, storage.failedDetail, "result unknown")
}

func TestProcessNoteMarkFailedErrorRequeues(t *testing.T) {
	storage := &fakeNoteStorage{markFailedErr: errors.New("connection refused")}
	tr := &fakeJobTranscriber{pollErr: &transcriber.TranscriptionError{JobID: "job-1", Detail: "boom"}}
	w := newTestWorker(storage, tr)

	err := w.processNote(context.Background(), &domain.NoteMessage{VoiceNoteID: "note-1"})

	require.Error(t, err)
	assert.True(t, w.shouldRequeue(err))
}

func TestProcessNoteMarkTranscribedErrorRequeues(t *testing.T) {
	storage := &fakeNoteStorage{markDoneErr: errors.New("connection refused")}
	tr := &fakeJobTranscriber{transcript: "hello"}
	w := newTestWorker(storage, tr)

	err := w.processNote(context.Background(), &domain.NoteMessage{VoiceNoteID: "note-1"})

	require.Error(t, err)
	assert.True(t, w.shouldRequeue(err))
}

func TestShouldRequeue(t *testing.T) {
	w := newTestWorker(&fakeNoteStorage{}, &fakeJobTranscriber{})

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"already claimed", domain.ErrNoteAlreadyClaimed, false},
		{"not found", domain.ErrVoiceNoteNotFound, false},
		{"retryable", domain.NewRetryableError(errors.New("db down")), true},
		{"wrapped retryable", domain.NewRetryableError(errors.New("db down")), true},
		{"plain error", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, w.shouldRequeue(tt.err))
		})
	}
}
