package api

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestAPIErrorInterface(t *testing.T) {
	var _ error = &APIError{}
}

func TestAPIErrorString(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			"with param",
			&APIError{Type: ErrorTypeInvalidRequest, Param: "notes", Message: "notes is required"},
			"invalid_request: notes is required (param: notes)",
		},
		{
			"without param",
			&APIError{Type: ErrorTypeUnauthenticated, Message: "Unauthorized"},
			"unauthenticated: Unauthorized",
		},
		{
			"with cause",
			&APIError{Type: ErrorTypeBackendError, Message: "Internal server error", Err: cause},
			"backend_error: Internal server error: dial tcp: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("APIError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      *APIError
		wantType ErrorType
		wantMsg  string
	}{
		{"invalid request", NewInvalidRequestError("notes", "notes is required"), ErrorTypeInvalidRequest, "notes is required"},
		{"unauthenticated", NewUnauthenticatedError(), ErrorTypeUnauthenticated, "Unauthorized"},
		{"method not allowed", NewMethodNotAllowedError(), ErrorTypeMethodNotAllowed, "Method Not Allowed"},
		{"server", NewServerError(cause), ErrorTypeServerError, "Internal server error"},
		{"backend", NewBackendError(cause), ErrorTypeBackendError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", tt.err.Type, tt.wantType)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := NewBackendError(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	var apiErr *APIError
	wrapped := errors.Join(errors.New("outer"), err)
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As did not find *APIError")
	}
}

func TestErrorResponseJSON(t *testing.T) {
	data, err := json.Marshal(ErrorResponse{Error: "Unauthorized"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(data), `{"error":"Unauthorized"}`; got != want {
		t.Errorf("json = %s, want %s", got, want)
	}
}
