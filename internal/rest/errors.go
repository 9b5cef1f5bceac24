package rest

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConnection covers every failure where no usable response arrived:
	// DNS, refused connections, timeouts, and an open circuit breaker. The
	// UI maps it to a "check your connection" message.
	ErrConnection = errors.New("connection failed")

	ErrUnauthorized = errors.New("session expired")
	ErrNotFound     = errors.New("not found")
)

// APIError is a structured 4xx/5xx response from the backend. Message is the
// server-provided text and is safe to show verbatim; Code is the machine
// error type from the response body.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Unwrap maps well-known statuses onto sentinel errors so callers can use
// errors.Is without inspecting status codes.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// IsConnectionError reports whether err belongs to the transport-failure
// class rather than a server-issued error.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}
