package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/shared"
)

// RemoteBackend implements [Backend] over the sync HTTP API, letting the CLI
// submit to and observe a running server instead of executing in-process.
type RemoteBackend struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteBackend creates a backend client for the server at baseURL.
func NewRemoteBackend(baseURL string, httpClient *http.Client) *RemoteBackend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RemoteBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Submit posts the request to POST /api/v1/sync and returns the workflow id.
func (b *RemoteBackend) Submit(ctx context.Context, req models.SongRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp models.SubmitResponse
	if err := b.do(ctx, http.MethodPost, "/api/v1/sync", bytes.NewReader(payload), &resp); err != nil {
		return "", err
	}
	return resp.WorkflowID, nil
}

// Status fetches GET /api/v1/sync/{id}.
func (b *RemoteBackend) Status(ctx context.Context, workflowID string) (models.WorkflowStatus, error) {
	var status models.WorkflowStatus
	if err := b.do(ctx, http.MethodGet, "/api/v1/sync/"+workflowID, nil, &status); err != nil {
		return models.WorkflowStatus{}, err
	}
	return status, nil
}

func (b *RemoteBackend) do(ctx context.Context, method, path string, body *bytes.Reader, result any) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, b.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%w: %s (status %d)", shared.ErrAPIRequest, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrMalformedResponse, err)
	}
	return nil
}
