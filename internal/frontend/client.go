// Package frontend provides a client for the copr frontend queue protocol.
package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/TommyLike/copr/internal/models"
)

// authUser is the fixed basic-auth user name expected by the frontend.
const authUser = "user"

// Client talks to the frontend's importing queue.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a queue client for the given frontend base URL.
func NewClient(baseURL, authToken string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   baseURL,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// importingResponse is the body of GET /backend/importing/.
type importingResponse struct {
	Builds []models.RawJob `json:"builds"`
}

// NextTask polls the importing queue and decodes the first queued job into a
// task. The rest of the list stays queued for a future poll. Returns
// (nil, nil) when the queue is empty.
func (c *Client) NextTask(ctx context.Context) (*models.ImportTask, error) {
	url := c.baseURL + "/backend/importing/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building queue request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polling %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("polling %s: HTTP status %d", url, resp.StatusCode)
	}

	var body importingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding queue response: %w", err)
	}

	if len(body.Builds) == 0 {
		return nil, nil
	}

	return models.TaskFromJob(&body.Builds[0], c.baseURL)
}

// PostResult posts a success or failure payload to the import-completed
// endpoint with basic credential auth.
func (c *Client) PostResult(ctx context.Context, payload any) error {
	url := c.baseURL + "/backend/import-completed/"

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding result payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building result request: %w", err)
	}
	req.SetBasicAuth(authUser, c.authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting result to %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("posting result to %s: HTTP status %d", url, resp.StatusCode)
	}
	return nil
}

// PostResultSafe posts a payload and swallows any error, logging it instead.
// Failure notifications must never take the polling loop down with them.
func (c *Client) PostResultSafe(ctx context.Context, payload any) {
	if err := c.PostResult(ctx, payload); err != nil {
		c.logger.Error("failed to post result to frontend", "error", err)
	}
}

// Ping checks that the importing endpoint answers. Used by the health check.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/backend/importing/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("frontend returned HTTP status %d", resp.StatusCode)
	}
	return nil
}
