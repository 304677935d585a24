package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common HTTP error classes. A *RequestError matches
// them with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// RequestError is returned when the backend answers with a non-2xx status.
type RequestError struct {
	StatusCode int
	// Message is the backend's "message" field, or a generic status text.
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// Is maps well-known status codes onto the package sentinels.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// TransportError is returned when a request never completed: dial and TLS
// failures, timeouts, cancellation, unreadable or non-JSON responses.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// statusMessage is the fallback message for a failed status without a body
// message.
func statusMessage(code int) string {
	return fmt.Sprintf("HTTP error! status: %d", code)
}

// Message returns the text to show a user for err: the backend message for
// request errors, the error text otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	return err.Error()
}
