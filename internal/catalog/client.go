package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client fetches records from the catalog API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient creates a catalog client rooted at baseURL, e.g.
// "https://api.bugs.co.kr/3".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BaseURL returns the normalized catalog root.
func (c *Client) BaseURL() string { return c.baseURL }

// envelope is the wrapper every catalog response shares.
type envelope struct {
	Result        json.RawMessage `json:"result"`
	RetCode       int             `json:"ret_code"`
	RetMessage    string          `json:"ret_msg"`
	RetDetailsMsg string          `json:"ret_detail_msg"`
}

// getResult fetches {base}/{collection}/{id} and decodes the envelope's result
// into out.
func (c *Client) getResult(ctx context.Context, collection, id string, out any) error {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, collection, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("catalog %s lookup returned %d (latency=%v)", collection, resp.StatusCode, latency)
	}

	var payload envelope
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if payload.RetCode != 0 {
		return fmt.Errorf("catalog returned ret_code %d: %s", payload.RetCode, strings.TrimSpace(payload.RetMessage))
	}
	if len(payload.Result) == 0 || string(payload.Result) == "null" {
		return fmt.Errorf("catalog %s %s: empty result", collection, id)
	}
	if err := json.Unmarshal(payload.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// Ping checks that the catalog host answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reach catalog: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("catalog returned %d", resp.StatusCode)
	}
	return nil
}
