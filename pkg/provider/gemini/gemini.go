package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rhuss/mediscribe/pkg/debug"
	"github.com/rhuss/mediscribe/pkg/provider"
)

const backendName = "gemini"

// Backend implements provider.Backend for Gemini.
type Backend struct {
	cfg    Config
	client *http.Client
}

var _ provider.Backend = (*Backend)(nil)

// New creates a Gemini backend. Returns an error if the API key is missing.
func New(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key required")
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		// No client-level timeout: a stream can legitimately outlive any
		// fixed deadline, so only the header wait is bounded.
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = cfg.Timeout
		client = &http.Client{Transport: transport}
	}

	return &Backend{cfg: cfg, client: client}, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return backendName
}

// Model returns the configured model name.
func (b *Backend) Model() string {
	return b.cfg.Model
}

// OpenStream sends the prompt as a single user turn and returns once the
// upstream has answered with 200.
func (b *Backend) OpenStream(ctx context.Context, prompt string) (provider.TextStream, error) {
	body, err := json.Marshal(b.buildRequest(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse",
		b.cfg.BaseURL, url.PathEscape(b.cfg.Model))

	streamCtx, cancel := context.WithCancel(ctx)

	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-goog-api-key", b.cfg.APIKey)

	debug.Log("providers", "gemini stream request", "model", b.cfg.Model, "prompt_bytes", len(body))

	resp, err := b.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, provider.NewNetworkError(backendName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		cancel()
		return nil, provider.NewHTTPError(backendName, resp, extractErrorMessage)
	}

	return provider.StartStream(streamCtx, cancel, func(ctx context.Context, ch chan<- provider.StreamEvent) error {
		defer resp.Body.Close()
		return readStream(ctx, resp, ch)
	}), nil
}

// Close releases idle connections.
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

func (b *Backend) buildRequest(prompt string) *generateContentRequest {
	req := &generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	if b.cfg.Temperature != nil || b.cfg.MaxOutputTokens > 0 {
		req.GenerationConfig = &generationConfig{
			Temperature:     b.cfg.Temperature,
			MaxOutputTokens: b.cfg.MaxOutputTokens,
		}
	}
	return req
}

// readStream parses the SSE body and sends the text of every payload.
// Gemini ends a stream by closing the body; there is no sentinel.
func readStream(ctx context.Context, resp *http.Response, ch chan<- provider.StreamEvent) error {
	return provider.ScanSSE(ctx, resp.Body, func(payload string) error {
		debug.Trace("providers", "gemini frame", "data", debug.Truncate(payload, 500))

		var chunk generateContentResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return &provider.Error{Backend: backendName, Message: "malformed stream chunk", Err: err}
		}
		if chunk.Error != nil {
			return &provider.Error{Backend: backendName, StatusCode: chunk.Error.Code, Message: chunk.Error.Message}
		}
		if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
			return &provider.Error{
				Backend: backendName,
				Message: "prompt blocked: " + chunk.PromptFeedback.BlockReason,
				Err:     provider.ErrStreamTruncated,
			}
		}

		if text := chunk.text(); text != "" {
			if !provider.Send(ctx, ch, provider.StreamEvent{Text: text}) {
				return context.Cause(ctx)
			}
		}

		if len(chunk.Candidates) > 0 && blockingFinishReasons[chunk.Candidates[0].FinishReason] {
			return &provider.Error{
				Backend: backendName,
				Message: "response blocked: " + chunk.Candidates[0].FinishReason,
				Err:     provider.ErrStreamTruncated,
			}
		}
		if chunk.UsageMetadata != nil {
			debug.Log("providers", "gemini usage",
				"prompt_tokens", chunk.UsageMetadata.PromptTokenCount,
				"output_tokens", chunk.UsageMetadata.CandidatesTokenCount,
			)
		}
		return nil
	})
}
