// Package gateway issues JSON requests against the taskflow REST backend,
// attaching the stored bearer token and normalizing failures into
// *RequestError and *TransportError.
package gateway

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

	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is used when New is given an empty base URL.
	DefaultBaseURL = "http://localhost:5000/api"

	DefaultTimeout = 30 * time.Second
)

// TokenSource supplies the bearer token, if any.
type TokenSource interface {
	Get() (string, bool)
}

// Client is an HTTP client for the taskflow backend.
type Client struct {
	BaseURL string
	Tokens  TokenSource
	HTTP    *http.Client

	timeout    time.Duration
	hasTimeout bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. A nil client keeps the
// default.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

// WithTimeout bounds every request. Zero disables the client-side timeout.
// The caller's *http.Client is never modified; the timeout applies to a copy.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		c.hasTimeout = true
	}
}

// New creates a gateway for baseURL. tokens may be nil.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: DefaultTimeout}
	}
	if c.hasTimeout {
		h := *c.HTTP
		h.Timeout = c.timeout
		c.HTTP = &h
	}
	return c
}

// RequestOption adjusts a single outgoing request.
type RequestOption func(*http.Request)

// WithHeader sets a header, overriding the defaults.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// Get issues a GET for path with the query appended.
func (c *Client) Get(ctx context.Context, path string, query Query, result any, opts ...RequestOption) error {
	return c.Send(ctx, http.MethodGet, BuildPath(path, query), nil, result, opts...)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result any, opts ...RequestOption) error {
	return c.Send(ctx, http.MethodPost, path, body, result, opts...)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, result any, opts ...RequestOption) error {
	return c.Send(ctx, http.MethodPut, path, body, result, opts...)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, result any, opts ...RequestOption) error {
	return c.Send(ctx, http.MethodPatch, path, body, result, opts...)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, result any, opts ...RequestOption) error {
	return c.Send(ctx, http.MethodDelete, path, nil, result, opts...)
}

// Send issues method against BaseURL+path. A non-nil body is sent as JSON.
// The response is parsed as JSON whatever the status; on 2xx it is decoded
// into result when result is non-nil.
func (c *Client) Send(ctx context.Context, method, path string, body, result any, opts ...RequestOption) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.Tokens != nil {
		if token, ok := c.Tokens.Get(); ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		slog.Debug("gateway: request failed", "method", method, "path", path, "request_id", requestID, "err", err)
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read response", Err: err}
	}
	slog.Debug("gateway: request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	return decodeResponse(resp.StatusCode, respBody, result)
}

// decodeResponse applies the status and body rules of Send.
func decodeResponse(status int, body []byte, result any) error {
	ok := status >= 200 && status < 300

	if len(bytes.TrimSpace(body)) == 0 {
		if !ok {
			return &RequestError{StatusCode: status, Message: statusMessage(status)}
		}
		return nil
	}

	if !json.Valid(body) {
		return &TransportError{Op: "decode response", Err: fmt.Errorf("invalid JSON (status %d)", status)}
	}

	if !ok {
		var apiErr struct {
			Message string `json:"message"`
		}
		// Non-object bodies carry no message; the fallback applies.
		_ = json.Unmarshal(body, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = statusMessage(status)
		}
		return &RequestError{StatusCode: status, Message: msg}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return &TransportError{Op: "decode response", Err: err}
		}
	}
	return nil
}
