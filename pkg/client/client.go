// Package client is the outbound SDK for the gateway action vocabulary. It
// fronts the managed function-invocation endpoint and falls back to one
// direct HTTP call when that endpoint misbehaves.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	dErrors "eventdesk/pkg/domain-errors"
)

// Config carries the two transport endpoints and the stored credentials the
// fallback path authenticates with.
type Config struct {
	// PrimaryURL is the managed function-invocation endpoint.
	PrimaryURL string
	// FallbackURL is the direct HTTP endpoint serving the same actions.
	FallbackURL string
	// Token authenticates both transports.
	Token string
}

// Client invokes gateway actions.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.PrimaryURL == "" {
		return nil, fmt.Errorf("primary URL is required")
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Invoke runs one gateway action. The primary transport is tried first; on
// any failure exactly one fallback POST goes to the direct endpoint. When
// both fail the primary error is returned, being the more diagnostic of the
// two. There is no backoff and no retry loop.
func (c *Client) Invoke(ctx context.Context, action string, params map[string]any) (json.RawMessage, error) {
	body := make(map[string]any, len(params)+1)
	for k, v := range params {
		body[k] = v
	}
	if action != "" {
		body["action"] = action
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "encode action params")
	}

	result, primaryErr := c.post(ctx, c.cfg.PrimaryURL, payload)
	if primaryErr == nil {
		return result, nil
	}
	if c.cfg.FallbackURL == "" {
		return nil, primaryErr
	}

	c.logger.WarnContext(ctx, "primary invocation failed, trying direct endpoint",
		"action", action,
		"error", primaryErr.Error(),
	)
	result, fallbackErr := c.post(ctx, c.cfg.FallbackURL, payload)
	if fallbackErr != nil {
		return nil, primaryErr
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, url string, payload []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "invoke endpoint")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, dErrors.New(dErrors.CodeUnavailable,
			fmt.Sprintf("endpoint returned %d: %s", resp.StatusCode, failureMessage(raw)))
	}
	return raw, nil
}

// failureMessage pulls the error string out of a failure envelope, falling
// back to the raw body for non-JSON responses.
func failureMessage(raw []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	const max = 200
	if len(raw) > max {
		raw = raw[:max]
	}
	return string(raw)
}
