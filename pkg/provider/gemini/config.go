package gemini

import (
	"net/http"
	"time"
)

// DefaultBaseURL is the public Generative Language API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// Config holds configuration for the Gemini backend.
type Config struct {
	// APIKey is sent in the x-goog-api-key header. Required.
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultModel.
	Model string

	// Temperature and MaxOutputTokens populate generationConfig when set.
	Temperature     *float64
	MaxOutputTokens int

	// Timeout bounds the wait for response headers. The stream body is
	// governed by the caller's context only.
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout. Used in tests.
	HTTPClient *http.Client
}
