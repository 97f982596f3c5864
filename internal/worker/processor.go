package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/voicedesk/voicenote-be/internal/transcriber"
	"github.com/voicedesk/voicenote-be/internal/worker/domain"
)

// processNote drives one queued voice note through transcription. The note's
// audio already lives at the provider (uploaded by the gateway), so the
// worker creates the job and polls.
//
// A transcription failure is recorded on the note and the message is ACKed:
// the failure is the outcome, redelivery would only repeat it. Only storage
// errors requeue.
func (w *Worker) processNote(ctx context.Context, msg *domain.NoteMessage) error {
	w.logger.Info("Processing voice note",
		slog.String("voice_note_id", msg.VoiceNoteID),
		slog.String("worker_id", w.workerID),
	)

	// Claim the note (queued -> processing). Redelivered messages for notes
	// that already moved on fall out here.
	note, err := w.storage.ClaimVoiceNote(ctx, msg.VoiceNoteID, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrNoteAlreadyClaimed) {
			w.logger.Warn("Voice note already claimed, skipping",
				slog.String("voice_note_id", msg.VoiceNoteID),
			)
			return fmt.Errorf("voice note already claimed: %w", err)
		}
		return domain.NewRetryableError(fmt.Errorf("failed to claim voice note: %w", err))
	}

	text, err := w.transcribeNote(ctx, note)
	if err != nil {
		w.logger.Error("Transcription failed",
			slog.String("voice_note_id", note.VoiceNoteID),
			slog.String("error", err.Error()),
		)

		if markErr := w.storage.MarkFailed(ctx, note.VoiceNoteID, err.Error()); markErr != nil {
			return domain.NewRetryableError(fmt.Errorf("failed to record transcription failure: %w", markErr))
		}

		// Outcome recorded; the message is done.
		return nil
	}

	if err := w.storage.MarkTranscribed(ctx, note.VoiceNoteID, text); err != nil {
		return domain.NewRetryableError(fmt.Errorf("failed to record transcription: %w", err))
	}

	w.logger.Info("Voice note transcribed",
		slog.String("voice_note_id", note.VoiceNoteID),
		slog.Int("transcript_chars", len(text)),
	)

	return nil
}

// transcribeNote runs the provider job for a claimed note
func (w *Worker) transcribeNote(ctx context.Context, note *domain.VoiceNote) (string, error) {
	jobID, err := w.transcriber.CreateJob(ctx, note.AudioReference, w.languageCode)
	if err != nil {
		return "", err
	}

	text, err := w.transcriber.Poll(ctx, jobID)
	if err != nil {
		if errors.Is(err, transcriber.ErrPollTimeout) {
			// Result unknown: the provider job may still finish but nothing
			// is listening. Recorded as failed with the distinction kept in
			// the detail for reviewers.
			return "", fmt.Errorf("transcription result unknown, polling deadline exceeded: %w", err)
		}
		return "", err
	}

	return text, nil
}
