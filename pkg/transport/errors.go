package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rhuss/mediscribe/pkg/api"
)

// ErrClientDisconnected reports that the client went away mid-request.
// It is a silent terminal condition: nothing more is written.
var ErrClientDisconnected = errors.New("client disconnected")

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Transport-level errors (body too large, unsupported content type)
// are written with an explicit status by the HTTP adapter.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeUnauthenticated:
		return http.StatusUnauthorized
	case api.ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case api.ErrorTypeServerError, api.ErrorTypeBackendError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes a JSON error body {"error": "<message>"} with
// the given status code.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr.Message})
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}

// ErrorEventData renders the payload of an in-band error frame. Only the
// client-facing message is included.
func ErrorEventData(apiErr *api.APIError) string {
	b, err := json.Marshal(api.ErrorResponse{Error: apiErr.Message})
	if err != nil {
		return `{"error":"Internal server error"}`
	}
	return string(b)
}

// AsAPIError converts any error into an *api.APIError. Errors that are not
// already API errors become generic server errors.
func AsAPIError(err error) *api.APIError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return api.NewServerError(err)
}
