// Package profilestore is the HTTP client for the external profile store,
// the system that owns the opaque student profile documents.
package profilestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"unifit/internal/evaluator"
)

// Client fetches raw profile documents over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a profile store client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ProfileDocument implements evaluator.ProfileSource.
func (c *Client) ProfileDocument(ctx context.Context, userEmail string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/profiles/%s", c.baseURL, url.PathEscape(userEmail))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", evaluator.ErrProfileNotFound, userEmail)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile store returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read profile body: %w", err)
	}
	return json.RawMessage(body), nil
}
