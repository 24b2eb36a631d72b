package api

import "fmt"

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError      ErrorType = "server_error"
	ErrorTypeInvalidRequest   ErrorType = "invalid_request"
	ErrorTypeUnauthenticated  ErrorType = "unauthenticated"
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed"
	ErrorTypeBackendError     ErrorType = "backend_error"
)

// APIError represents a structured API error. Message is what the client
// sees; Err carries the underlying cause for logs and is never serialized.
type APIError struct {
	Type    ErrorType
	Param   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Param != "" {
		msg += fmt.Sprintf(" (param: %s)", e.Param)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON body written when no stream was started:
//
//	{"error": "<message>"}
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewInvalidRequestError creates an APIError for a malformed request payload.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewUnauthenticatedError creates an APIError for a missing or rejected credential.
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Type:    ErrorTypeUnauthenticated,
		Message: "Unauthorized",
	}
}

// NewMethodNotAllowedError creates an APIError for a wrong HTTP verb.
func NewMethodNotAllowedError() *APIError {
	return &APIError{
		Type:    ErrorTypeMethodNotAllowed,
		Message: "Method Not Allowed",
	}
}

// NewServerError creates an APIError for internal server errors. The cause
// is kept for logging; the client only sees a generic message.
func NewServerError(cause error) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: "Internal server error",
		Err:     cause,
	}
}

// NewBackendError creates an APIError for a generative backend failure.
func NewBackendError(cause error) *APIError {
	return &APIError{
		Type:    ErrorTypeBackendError,
		Message: "Internal server error",
		Err:     cause,
	}
}
