package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	userAgent = "cratedigger/1.0 (https://github.com/llehouerou/cratedigger)"

	// Retry configuration
	maxRetries   = 3
	initialDelay = 2 * time.Second
	maxDelay     = 30 * time.Second
)

// client is the HTTP helper shared by every adapter: descriptive
// User-Agent, JSON decoding, typed status errors, and exponential-backoff
// retry on server and network failures. Rate limiting is the
// aggregator's concern, not the client's.
type client struct {
	httpClient *http.Client
	provider   string
}

func newClient(providerID string) *client {
	return &client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		provider:   providerID,
	}
}

// getJSON issues a GET for reqURL and decodes the JSON response into v.
// A non-2xx status yields a *HTTPError carrying the provider name.
func (c *client) getJSON(ctx context.Context, reqURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doRequestWithRetry executes an HTTP request with exponential backoff.
// Retries on 5xx errors and network errors; 4xx responses are returned
// to the caller unretried.
func (c *client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(delay):
			}
			delay = min(delay*2, maxDelay)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode < 500 {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries+1, lastErr)
}
