package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/mediscribe/pkg/debug"
	"github.com/rhuss/mediscribe/pkg/provider"
)

// Config holds configuration for an OpenAI-compatible backend.
type Config struct {
	// Name identifies the backend in metrics and errors. Defaults to "openai".
	Name string

	// BaseURL is the server root without the /v1 suffix. Required.
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Model is sent in every request. Required.
	Model string

	Temperature *float64
	MaxTokens   int

	// Timeout bounds the wait for response headers.
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client implements provider.Backend against the Chat Completions
// endpoint of any OpenAI-compatible server (vLLM, LiteLLM, Ollama, ...).
type Client struct {
	cfg        Config
	httpClient *http.Client
}

var _ provider.Backend = (*Client)(nil)

// NewClient creates a new Client for an OpenAI-compatible backend.
func NewClient(cfg Config) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("openaicompat: base URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openaicompat: model is required")
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = cfg.Timeout
		client = &http.Client{Transport: transport}
	}

	return &Client{cfg: cfg, httpClient: client}, nil
}

// Name returns the backend identifier.
func (c *Client) Name() string {
	return c.cfg.Name
}

// OpenStream performs streaming inference against the Chat Completions
// endpoint. The prompt is sent as a single user message.
func (c *Client) OpenStream(ctx context.Context, prompt string) (provider.TextStream, error) {
	chatReq := ChatCompletionRequest{
		Model:         c.cfg.Model,
		Messages:      []ChatMessage{{Role: "user", Content: prompt}},
		Temperature:   c.cfg.Temperature,
		Stream:        true,
		StreamOptions: &ChatStreamOptions{IncludeUsage: true},
	}
	if c.cfg.MaxTokens > 0 {
		mt := c.cfg.MaxTokens
		chatReq.MaxTokens = &mt
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("openaicompat: marshal request: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)

	url := c.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("openaicompat: create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	debug.Log("providers", "chat stream request", "backend", c.cfg.Name, "model", c.cfg.Model, "url", url)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, provider.NewNetworkError(c.cfg.Name, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		cancel()
		return nil, provider.NewHTTPError(c.cfg.Name, httpResp, ExtractErrorMessage)
	}

	return provider.StartStream(streamCtx, cancel, func(ctx context.Context, ch chan<- provider.StreamEvent) error {
		defer httpResp.Body.Close()
		return ParseSSEStream(ctx, c.cfg.Name, httpResp.Body, ch)
	}), nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
