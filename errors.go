package goDesk

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired classifies failures that ended the session: no refresh token was
	// held or the refresh call failed. The session has been cleared.
	ErrSessionExpired = errors.New("session expired")
	// ErrNetwork classifies failures where no HTTP response was received.
	ErrNetwork = errors.New("network error")
	// ErrRequestFailed classifies any other non-2xx response.
	ErrRequestFailed = errors.New("request failed")
	// ErrEnvelopeFailure is returned by DecodeEnvelope for a success:false payload.
	ErrEnvelopeFailure = errors.New("envelope reported failure")
	// ErrClosed is returned by requests issued after Close.
	ErrClosed = errors.New("client closed")
)

// User-facing messages.
const (
	MessageSessionExpired = "Session expired. Please login again."
	MessageNetwork        = "Network error. Please check your connection."
	MessageFallback       = "An error occurred"
)

// RequestError is the error every failed Client request surfaces.
//
// Error returns only Message, so it can be shown to users as is. Use errors.Is with
// ErrSessionExpired, ErrNetwork or ErrRequestFailed to classify it; the transport or
// refresh cause is reachable through errors.Is/As as well.
type RequestError struct {
	// Message follows the priority: body "error", body "message", transport error text,
	// "An error occurred".
	Message string
	// Status is the HTTP status code, 0 when no response was received.
	Status int
	// Code is the backend "code" field, when present.
	Code   string
	Method string
	URL    string

	kind  error
	cause error
}

func (e *RequestError) Error() string {
	return e.Message
}

// Unwrap exposes both the classification sentinel and the underlying cause.
func (e *RequestError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.cause != nil {
		out = append(out, e.cause)
	}
	return out
}

// Detail formats the error with its request for logs.
func (e *RequestError) Detail() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, e.Message)
}

// IsSessionExpired reports whether err ended the session.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}
