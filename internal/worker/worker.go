package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/voicedesk/voicenote-be/internal/worker/domain"
	"github.com/voicedesk/voicenote-be/shared/rabbitmq"
)

// NoteStorage is the persistence contract the worker relies on, implemented
// by storage.Storage.
type NoteStorage interface {
	ClaimVoiceNote(ctx context.Context, voiceNoteID, workerID string) (*domain.VoiceNote, error)
	MarkTranscribed(ctx context.Context, voiceNoteID, transcription string) error
	MarkFailed(ctx context.Context, voiceNoteID, errorDetail string) error
}

// Transcriber is the slice of the transcription client the worker uses. The
// audio was already uploaded by the gateway, so the worker starts at job
// creation.
type Transcriber interface {
	CreateJob(ctx context.Context, audioURL, languageCode string) (string, error)
	Poll(ctx context.Context, jobID string) (string, error)
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Storage       NoteStorage
	RabbitClient  *rabbitmq.Client
	Transcriber   Transcriber
	Concurrency   int
	PrefetchCount int
	QueueName     string
	LanguageCode  string
}

// Worker consumes queued voice notes and drives them through transcription
type Worker struct {
	logger        *slog.Logger
	storage       NoteStorage
	rabbitClient  *rabbitmq.Client
	transcriber   Transcriber
	concurrency   int
	prefetchCount int
	queueName     string
	languageCode  string
	workerID      string
	jobsChan      chan *domain.NoteMessage
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:        cfg.Logger,
		storage:       cfg.Storage,
		rabbitClient:  cfg.RabbitClient,
		transcriber:   cfg.Transcriber,
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		queueName:     cfg.QueueName,
		languageCode:  cfg.LanguageCode,
		workerID:      fmt.Sprintf("voicenote-worker-%s", uuid.New().String()[:8]),
		jobsChan:      make(chan *domain.NoteMessage, cfg.Concurrency),
		stopChan:      make(chan struct{}),
	}
}

// Start begins consuming and processing voice notes. Blocks until the
// context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
