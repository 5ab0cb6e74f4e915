// Package platform is the client for the workspace platform's GraphQL
// API: a generic resilient call layer plus typed wrappers for the
// operations vestibule consumes.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Retry defaults. Delay before retry n is min(BaseDelay * 2^(n-1), MaxDelay).
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
)

// maxErrorBodyBytes caps how much of a non-2xx response body is kept
// for the failure message.
const maxErrorBodyBytes = 4 * 1024

// Config holds platform client settings.
type Config struct {
	APIURL   string
	APIToken string

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// HTTPClient overrides the default client (used by tests).
	HTTPClient *http.Client
}

// Client executes GraphQL operations against the platform API with
// bounded retry and failure classification. It is not internally
// concurrent: one network round trip is in flight per Execute call.
type Client struct {
	cfg    Config
	httpc  *http.Client
	logger *slog.Logger
}

// NewClient creates a platform client, applying retry defaults.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, httpc: httpc, logger: logger}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Execute runs one logical GraphQL operation, retrying transient
// failures. On success the response's data object is decoded into out
// (which may be nil). On failure the returned error is a *CallError
// carrying the classification; after exhausting retries the last
// observed retryable failure is returned.
func (c *Client) Execute(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	var last *CallError

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			c.logger.Warn("retrying platform call",
				"operation", operation,
				"attempt", attempt+1,
				"max_attempts", c.cfg.MaxRetries+1,
				"delay_ms", delay.Milliseconds(),
				"error", last.Message,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("platform call %s canceled: %w", operation, ctx.Err())
			}
		}

		err := c.do(ctx, query, variables, out)
		if err == nil {
			return nil
		}

		ce, ok := err.(*CallError)
		if !ok || ce.Kind != KindRetryable {
			return err
		}
		last = ce
	}

	return last
}

// backoff computes the delay before retry n (n >= 1).
func (c *Client) backoff(n int) time.Duration {
	delay := c.cfg.BaseDelay << (n - 1)
	if delay > c.cfg.MaxDelay || delay <= 0 {
		delay = c.cfg.MaxDelay
	}
	return delay
}

// do performs a single round trip and classifies its outcome.
func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return &CallError{Kind: KindTerminal, Message: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return &CallError{Kind: KindTerminal, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &CallError{Kind: KindRetryable, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes+1))
	if err != nil {
		return &CallError{Kind: KindRetryable, StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBodyBytes {
			msg = msg[:maxErrorBodyBytes]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		kind := classifyStatus(resp.StatusCode)
		if kind == KindTerminal && isConflictMessage(msg) {
			kind = KindConflict
		}
		return &CallError{Kind: kind, StatusCode: resp.StatusCode, Message: msg}
	}

	var gr graphqlResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return &CallError{Kind: KindTerminal, StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}

	if len(gr.Errors) > 0 {
		msgs := make([]string, len(gr.Errors))
		for i, e := range gr.Errors {
			msgs[i] = e.Message
		}
		msg := strings.Join(msgs, "; ")
		kind := KindTerminal
		if isConflictMessage(msg) {
			kind = KindConflict
		}
		return &CallError{Kind: kind, StatusCode: resp.StatusCode, Message: msg, Errors: gr.Errors}
	}

	if out != nil && len(gr.Data) > 0 {
		if err := json.Unmarshal(gr.Data, out); err != nil {
			return &CallError{Kind: KindTerminal, StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode data: %v", err)}
		}
	}
	return nil
}
