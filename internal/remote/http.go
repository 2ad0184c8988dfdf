package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
)

// HTTPClient talks to the workspace system of record over its REST API.
//
// Outbound requests are throttled to a minimum delay between calls so a
// multi-table sync pass stays inside the remote system's rate limits.
type HTTPClient struct {
	baseURL  string
	apiToken string
	httpc    *http.Client

	minInterval time.Duration
	mu          sync.Mutex
	lastRequest time.Time
}

// HTTPClientConfig configures an HTTPClient.
type HTTPClientConfig struct {
	// BaseURL is the API root, e.g. https://api.workspace.example.
	BaseURL string
	// APIToken is the bearer token for authentication.
	APIToken string
	// RequestTimeout bounds each fetch call (default: 30s).
	RequestTimeout time.Duration
	// MinRequestInterval is the minimum delay between outbound requests
	// (default: 250ms).
	MinRequestInterval time.Duration
}

// NewHTTPClient creates a throttled client for the system of record.
func NewHTTPClient(cfg HTTPClientConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MinRequestInterval <= 0 {
		cfg.MinRequestInterval = 250 * time.Millisecond
	}
	return &HTTPClient{
		baseURL:     cfg.BaseURL,
		apiToken:    cfg.APIToken,
		httpc:       &http.Client{Timeout: cfg.RequestTimeout},
		minInterval: cfg.MinRequestInterval,
	}, nil
}

// listResponse is the remote list envelope.
type listResponse struct {
	Data []Record `json:"data"`
}

// Fetch implements Client.
func (c *HTTPClient) Fetch(ctx context.Context, et schema.EntityType) ([]Record, error) {
	if !schema.ValidEntityType(et) {
		return nil, &Error{Kind: KindMalformed, EntityType: et, Err: fmt.Errorf("unknown entity type")}
	}
	if c.apiToken == "" {
		return nil, &Error{Kind: KindAuth, EntityType: et, Err: fmt.Errorf("API token is not configured")}
	}

	c.throttle(ctx)

	url := fmt.Sprintf("%s/v2/%s/records", c.baseURL, et)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, EntityType: et, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, EntityType: et, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, &Error{Kind: KindAuth, EntityType: et, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Kind: KindRateLimited, EntityType: et, Err: fmt.Errorf("HTTP 429")}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{Kind: KindNetwork, EntityType: et, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &Error{Kind: KindMalformed, EntityType: et, Err: err}
	}

	// Distinguish "empty table" from "missing data key": both decode to
	// a nil slice, and both genuinely mean zero records here.
	if body.Data == nil {
		return []Record{}, nil
	}
	return body.Data, nil
}

// throttle enforces the minimum delay between outbound requests. Returns
// early if the context is cancelled while waiting.
func (c *HTTPClient) throttle(ctx context.Context) {
	c.mu.Lock()
	wait := c.minInterval - time.Since(c.lastRequest)
	c.lastRequest = time.Now()
	if wait > 0 {
		// Push the reservation out so concurrent callers queue behind us.
		c.lastRequest = c.lastRequest.Add(wait)
	}
	c.mu.Unlock()

	if wait <= 0 {
		return
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
