package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrStreamTruncated reports that the upstream body ended in a way the
// backend protocol does not allow (e.g., a blocked prompt or a dropped
// connection).
var ErrStreamTruncated = errors.New("upstream stream ended unexpectedly")

// Error describes a backend failure. StatusCode is zero for network errors
// and failures reported inside the stream.
type Error struct {
	Backend    string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Backend + ": " + e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewHTTPError builds an Error from a non-2xx response. extract pulls a
// descriptive message out of the (size-limited) body; it may be nil.
func NewHTTPError(backend string, resp *http.Response, extract func([]byte) string) *Error {
	var message string
	if resp.Body != nil && extract != nil {
		if data, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil && len(data) > 0 {
			message = extract(data)
		}
	}
	if message == "" {
		message = defaultHTTPMessage(resp.StatusCode)
	}
	return &Error{Backend: backend, StatusCode: resp.StatusCode, Message: message}
}

// NewNetworkError wraps a transport-level error (connection refused,
// timeout, DNS failure).
func NewNetworkError(backend string, err error) *Error {
	return &Error{Backend: backend, Message: "connection error", Err: err}
}

func defaultHTTPMessage(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "invalid request to backend"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "backend authentication failed"
	case status == http.StatusNotFound:
		return "backend resource not found"
	case status == http.StatusTooManyRequests:
		return "backend rate limit exceeded"
	case status >= http.StatusInternalServerError:
		return "backend server error"
	default:
		return "unexpected backend error"
	}
}
