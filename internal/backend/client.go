package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	app_errors "chatbox/web/internal/errors"
	"chatbox/web/internal/model"
)

// DefaultTimeout bounds every backend call unless the caller configures another.
const DefaultTimeout = 120 * time.Second

// ErrTimeout is returned when a backend call exceeds its client-side budget.
var ErrTimeout = errors.New("backend: request timed out")

// HTTPError is a non-2xx response from the backend.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// Unwrap maps well-known statuses onto the application's sentinel errors.
func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return app_errors.ErrNotFound
	case http.StatusUnauthorized:
		return app_errors.ErrUnauthorized
	case http.StatusForbidden:
		return app_errors.ErrPermission
	case http.StatusConflict:
		return app_errors.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return app_errors.ErrValidation
	}
	return app_errors.ErrUpstream
}

// Classify maps a failed call onto the kind of error bubble the chat shows.
func Classify(err error) model.FailureKind {
	var httpErr *HTTPError
	switch {
	case errors.Is(err, ErrTimeout):
		return model.FailureTimeout
	case errors.As(err, &httpErr):
		return model.FailureHTTP
	}
	return model.FailureGeneric
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// Client is the shared JSON-over-HTTP transport for every backend endpoint.
type Client struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-call budget.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends payload (if any) as JSON and decodes the response into out (if any).
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	ctx, cancel := context.WithTimeoutCause(ctx, c.timeout, ErrTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("could not marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("could not create http request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(context.Cause(ctx), ErrTimeout) {
			return fmt.Errorf("%s %s: %w", method, path, ErrTimeout)
		}
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(bodyBytes))}
	}

	if out == nil {
		return nil
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(context.Cause(ctx), ErrTimeout) {
			return fmt.Errorf("%s %s: %w", method, path, ErrTimeout)
		}
		return fmt.Errorf("could not read response body: %w", err)
	}
	if len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}
