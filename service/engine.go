package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/s-ciobanu-r/jora-webapp/config"
	"github.com/s-ciobanu-r/jora-webapp/model"
)

// EngineService calls the external workflow engine webhook that performs the
// one irreversible finalize action (PDF generation + contract persistence).
// The engine is opaque: one request in, one JSON response out.
type EngineService struct {
	config     *config.EngineConfig
	httpClient *http.Client
}

func NewEngineService(cfg *config.EngineConfig) *EngineService {
	return &EngineService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// enginePayload is what travels to the webhook. The user id is injected
// server-side and never accepted from the client.
type enginePayload struct {
	model.ContractDraft
	IdempotencyKey string `json:"idempotency_key"`
	UserID         string `json:"user_id"`
}

// EngineError is a non-2xx answer from the engine. The body is kept for
// logs, never for client responses.
type EngineError struct {
	StatusCode int
	Body       string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine returned status %d", e.StatusCode)
}

// Finalize performs the single engine call and returns the raw response
// bytes on success. Callers store and replay these bytes verbatim for
// duplicate idempotency keys.
func (s *EngineService) Finalize(ctx context.Context, userID string, draft model.ContractDraft, idempotencyKey string) ([]byte, error) {
	body, err := json.Marshal(enginePayload{
		ContractDraft:  draft,
		IdempotencyKey: idempotencyKey,
		UserID:         userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal engine payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &EngineError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	return data, nil
}
