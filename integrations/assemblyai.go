package integrations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrTranscriptionFailed = errors.New("transcription failed")

// AssemblyAI uploads audio and polls for the finished transcript.
type AssemblyAI struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	pollInterval time.Duration
}

func NewAssemblyAI(baseURL, apiKey string, timeout, pollInterval time.Duration) *AssemblyAI {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &AssemblyAI{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		client:       newHTTPClient(timeout),
		pollInterval: pollInterval,
	}
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe blocks until the transcript completes, fails, or ctx ends.
func (a *AssemblyAI) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("assemblyai: %w", ErrNotConfigured)
	}
	headers := map[string]string{"Authorization": a.apiKey}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/upload", audio)
	if err != nil {
		return "", fmt.Errorf("assemblyai: build upload: %w", err)
	}
	req.Header.Set("Authorization", a.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")
	var upload struct {
		UploadURL string `json:"upload_url"`
	}
	if err := send(a.client, "assemblyai", req, &upload); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}

	var transcript transcriptResponse
	if err := doJSON(ctx, a.client, "assemblyai", http.MethodPost, a.baseURL+"/transcript", headers,
		map[string]string{"audio_url": upload.UploadURL}, &transcript); err != nil {
		return "", fmt.Errorf("request transcript: %w", err)
	}
	zap.L().Debug("Transcript requested", zap.String("transcript_id", transcript.ID))

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()
	for {
		switch transcript.Status {
		case "completed":
			return transcript.Text, nil
		case "error", "failed":
			return "", fmt.Errorf("%w: %s", ErrTranscriptionFailed, transcript.Error)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		if err := doJSON(ctx, a.client, "assemblyai", http.MethodGet, a.baseURL+"/transcript/"+transcript.ID, headers, nil, &transcript); err != nil {
			return "", fmt.Errorf("poll transcript: %w", err)
		}
	}
}
