package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Remote job statuses reported by the provider
const (
	remoteStatusQueued     = "queued"
	remoteStatusProcessing = "processing"
	remoteStatusCompleted  = "completed"
	remoteStatusError      = "error"
)

const (
	defaultPollInterval = 1500 * time.Millisecond
	defaultPollTimeout  = 120 * time.Second
)

// Config holds transcription provider settings. PollInterval and PollTimeout
// are injectable so tests can run with short values.
type Config struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	PollTimeout  time.Duration
	HTTPClient   *http.Client
}

// Client drives the external speech-to-text provider through its three
// phases: audio upload, job creation, and status polling.
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates a transcription client. A missing API key is a
// configuration error and fails construction rather than every request.
func NewClient(cfg *Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		httpClient:   cfg.HTTPClient,
		logger:       logger,
	}

	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.pollTimeout <= 0 {
		c.pollTimeout = defaultPollTimeout
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}

	return c, nil
}

type createJobRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type createJobResponse struct {
	ID string `json:"id"`
}

type transcriptStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Upload sends raw audio bytes to the provider's ingestion endpoint and
// returns the provider-side audio URL. No retries here; retry policy belongs
// to the caller.
func (c *Client) Upload(ctx context.Context, audio []byte, mimeType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UploadError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var uploadResp uploadResponse
	if err := json.Unmarshal(body, &uploadResp); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}

	c.logger.Debug("Audio uploaded to provider",
		slog.Int("audio_bytes", len(audio)),
		slog.String("mime_type", mimeType),
	)

	return uploadResp.UploadURL, nil
}

// CreateJob requests transcription of a previously uploaded audio reference
// and returns the provider-assigned job id.
func (c *Client) CreateJob(ctx context.Context, audioURL, languageCode string) (string, error) {
	payload, err := json.Marshal(createJobRequest{
		AudioURL:     audioURL,
		LanguageCode: languageCode,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal job request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcripts", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build job request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("job creation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read job creation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &JobCreationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var jobResp createJobResponse
	if err := json.Unmarshal(body, &jobResp); err != nil {
		return "", fmt.Errorf("failed to parse job creation response: %w", err)
	}

	c.logger.Debug("Transcription job created",
		slog.String("job_id", jobResp.ID),
	)

	return jobResp.ID, nil
}

// Poll queries the job status at a fixed interval until the provider reports
// a terminal status or the deadline elapses. Transient poll failures are
// swallowed and retried on the next interval; only the deadline terminates
// the wait. On ErrPollTimeout the remote job may still be running with no
// further listener.
func (c *Client) Poll(ctx context.Context, jobID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	// First check happens immediately; the ticker paces the rest.
	for {
		status, err := c.getTranscript(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return "", c.pollDeadlineError(ctx, jobID)
			}
			c.logger.Debug("Transient poll failure, will retry",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		} else {
			switch status.Status {
			case remoteStatusCompleted:
				return status.Text, nil
			case remoteStatusError:
				return "", &TranscriptionError{JobID: jobID, Detail: status.Error}
			}
		}

		select {
		case <-ctx.Done():
			return "", c.pollDeadlineError(ctx, jobID)
		case <-ticker.C:
		}
	}
}

func (c *Client) pollDeadlineError(ctx context.Context, jobID string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.logger.Warn("Transcription polling deadline exceeded, remote job outcome unknown",
			slog.String("job_id", jobID),
			slog.Duration("poll_timeout", c.pollTimeout),
		)
		return ErrPollTimeout
	}
	return ctx.Err()
}

// getTranscript performs one status query. Non-2xx responses and malformed
// bodies are returned as errors so Poll can treat them as transient.
func (c *Client) getTranscript(ctx context.Context, jobID string) (*transcriptStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcripts/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status request returned %d: %s", resp.StatusCode, string(body))
	}

	var status transcriptStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}

	return &status, nil
}

// Transcribe composes upload, job creation, and polling into one sequential
// call. A failure in any phase aborts the composition and surfaces that
// phase's error.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType, languageCode string) (string, error) {
	audioURL, err := c.Upload(ctx, audio, mimeType)
	if err != nil {
		return "", err
	}

	jobID, err := c.CreateJob(ctx, audioURL, languageCode)
	if err != nil {
		return "", err
	}

	return c.Poll(ctx, jobID)
}
