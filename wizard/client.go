package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/s-ciobanu-r/jora-webapp/model"
)

// Client implements DraftSaver and Finalizer against the backend API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type draftUpsertRequest struct {
	ID      string         `json:"id,omitempty"`
	Payload PersistedState `json:"payload"`
}

type draftUpsertResponse struct {
	ID        string `json:"id"`
	UpdatedAt string `json:"updated_at"`
	Error     string `json:"error,omitempty"`
}

// SaveDraft upserts the draft on the remote draft store. Not the finalize
// path: no idempotency key travels here.
func (c *Client) SaveDraft(ctx context.Context, id string, state PersistedState) (string, string, error) {
	body, err := json.Marshal(draftUpsertRequest{ID: id, Payload: state})
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal draft: %w", err)
	}

	var resp draftUpsertResponse
	if err := c.post(ctx, "/api/contracts/draft", body, &resp); err != nil {
		return "", "", err
	}
	return resp.ID, resp.UpdatedAt, nil
}

type finalizeResponse struct {
	Success    bool   `json:"success"`
	ContractID int64  `json:"contract_id"`
	PDFURL     string `json:"pdf_url"`
	Error      string `json:"error,omitempty"`
}

type finalizeRequest struct {
	model.ContractDraft
	IdempotencyKey string `json:"idempotency_key"`
}

// Finalize invokes the idempotent finalize endpoint with the full draft and
// the draft's stable idempotency key.
func (c *Client) Finalize(ctx context.Context, draft model.ContractDraft, idempotencyKey string) (*FinalizeResult, error) {
	body, err := json.Marshal(finalizeRequest{ContractDraft: draft, IdempotencyKey: idempotencyKey})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal finalize request: %w", err)
	}

	var resp finalizeResponse
	if err := c.post(ctx, "/api/contracts/finalize", body, &resp); err != nil {
		return nil, err
	}
	return &FinalizeResult{ContractID: resp.ContractID, PDFURL: resp.PDFURL}, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", path, apiErr.Error)
		}
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
