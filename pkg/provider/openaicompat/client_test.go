package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rhuss/mediscribe/pkg/provider"
)

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(Config{Model: "m"}); err == nil {
		t.Error("expected error without base URL")
	}
	if _, err := NewClient(Config{BaseURL: "http://x"}); err == nil {
		t.Error("expected error without model")
	}
	c, err := NewClient(Config{BaseURL: "http://x/", Model: "m"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Name() != "openai" {
		t.Errorf("Name = %q, want openai", c.Name())
	}
	if c.cfg.BaseURL != "http://x" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", c.cfg.BaseURL)
	}
}

func TestClient_OpenStream(t *testing.T) {
	var gotReq ChatCompletionRequest
	var gotAuth, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, `data: {"id":"c1","choices":[{"index":0,"delta":{"content":"line one\n"},"finish_reason":null}]}`+"\n\n")
		io.WriteString(w, `data: {"id":"c1","choices":[{"index":0,"delta":{"content":"line two"},"finish_reason":"stop"}]}`+"\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "sk-test", Model: "llama", MaxTokens: 256})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	s, err := c.OpenStream(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var texts []string
	for {
		chunk, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		texts = append(texts, chunk.Text)
	}

	if len(texts) != 2 || texts[0] != "line one\n" || texts[1] != "line two" {
		t.Errorf("texts = %q", texts)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if !gotReq.Stream || gotReq.Model != "llama" {
		t.Errorf("request = %+v", gotReq)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" || gotReq.Messages[0].Content != "the prompt" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if gotReq.MaxTokens == nil || *gotReq.MaxTokens != 256 {
		t.Errorf("max_tokens = %v, want 256", gotReq.MaxTokens)
	}
}

func TestClient_OpenStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"invalid api key","type":"auth_error"}}`)
	}))
	defer srv.Close()

	c, _ := NewClient(Config{BaseURL: srv.URL, Model: "m"})
	_, err := c.OpenStream(context.Background(), "p")

	var perr *provider.Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *provider.Error, got %v", err)
	}
	if perr.StatusCode != http.StatusUnauthorized || perr.Message != "invalid api key" {
		t.Errorf("error = %+v", perr)
	}
}
