// Command mock-backend runs a deterministic streaming backend for local
// runs of mediscribe. It speaks both the Gemini streamGenerateContent SSE
// dialect and the OpenAI Chat Completions streaming dialect.
//
// A prompt containing MOCK_FAIL breaks the stream with an in-band error
// after the first few chunks.
//
// Configuration:
//
//	MOCK_PORT        - Listen port (default: 9090)
//	MOCK_API_KEY     - When set, requests must present this key
//	MOCK_CHUNK_DELAY - Delay between chunks (default: 50ms)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

// failTrigger in a prompt makes the stream fail mid-way.
const failTrigger = "MOCK_FAIL"

// failAfter is the number of chunks sent before a triggered failure.
const failAfter = 3

type mock struct {
	apiKey string
	delay  time.Duration
}

func main() {
	_ = godotenv.Load()

	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	m := &mock{apiKey: os.Getenv("MOCK_API_KEY"), delay: 50 * time.Millisecond}
	if v := os.Getenv("MOCK_CHUNK_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Error("invalid MOCK_CHUNK_DELAY", "error", err)
			os.Exit(1)
		}
		m.delay = d
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Post("/v1beta/models/{action}", m.handleGemini)
	r.Post("/v1/chat/completions", m.handleChatCompletions)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Gemini ---

type geminiRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func (m *mock) handleGemini(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	model, method, ok := strings.Cut(action, ":")
	if !ok || method != "streamGenerateContent" {
		writeGeminiError(w, http.StatusNotFound, "NOT_FOUND", "unknown method "+method)
		return
	}
	if m.apiKey != "" && r.Header.Get("x-goog-api-key") != m.apiKey {
		writeGeminiError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "API key not valid")
		return
	}

	var req geminiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Contents) == 0 {
		writeGeminiError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request")
		return
	}
	var prompt strings.Builder
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			prompt.WriteString(p.Text)
		}
	}

	slog.Info("gemini stream", "model", model, "prompt_bytes", prompt.Len())
	m.stream(w, r, prompt.String(), func(text string) any {
		return map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
			}},
		}
	}, func() any {
		return map[string]any{"error": map[string]any{"code": 500, "message": "mock failure", "status": "INTERNAL"}}
	}, "")
}

func writeGeminiError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": msg, "status": code},
	})
}

// --- Chat Completions ---

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Stream bool `json:"stream"`
}

func (m *mock) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if m.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+m.apiKey {
		http.Error(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`, http.StatusUnauthorized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Stream {
		http.Error(w, `{"error":{"message":"only streaming requests are supported","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}
	var prompt string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			prompt = req.Messages[i].Content
			break
		}
	}

	model := req.Model
	if model == "" {
		model = "mock-model"
	}

	slog.Info("chat stream", "model", model, "prompt_bytes", len(prompt))
	m.stream(w, r, prompt, func(text string) any {
		return map[string]any{
			"id":      "chatcmpl-mock-stream",
			"object":  "chat.completion.chunk",
			"model":   model,
			"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"content": text}, "finish_reason": nil}},
		}
	}, func() any {
		return map[string]any{"error": map[string]any{"message": "mock failure", "type": "server_error"}}
	}, "[DONE]")
}

// --- Streaming ---

// stream writes the canned reply for prompt as SSE payloads built by
// chunk. The failure payload replaces the rest of the reply when the
// prompt carries the fail trigger. done, when set, is sent as the last
// payload.
func (m *mock) stream(w http.ResponseWriter, r *http.Request, prompt string, chunk func(string) any, failure func() any, done string) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	rc.Flush()

	fail := strings.Contains(prompt, failTrigger)
	for i, piece := range reply(prompt) {
		if fail && i == failAfter {
			writeData(w, failure())
			rc.Flush()
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-time.After(m.delay):
		}
		writeData(w, chunk(piece))
		if err := rc.Flush(); err != nil {
			return
		}
	}
	if done != "" {
		fmt.Fprintf(w, "data: %s\n\n", done)
		rc.Flush()
	}
}

func writeData(w http.ResponseWriter, v any) {
	data, _ := json.Marshal(v)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

var patientName = regexp.MustCompile(`Patient Name: *(.*)`)

// reply returns the canned answer split into chunks that cut across
// line boundaries, the way real models stream.
func reply(prompt string) []string {
	name := "the patient"
	if m := patientName.FindStringSubmatch(prompt); m != nil && strings.TrimSpace(m[1]) != "" {
		name = strings.TrimSpace(m[1])
	}

	text := "### Summary\n" +
		"Routine follow-up for " + name + ". Condition stable.\n\n" +
		"### Next steps\n" +
		"- Continue current medication\n" +
		"- Follow-up visit in 3 months\n\n" +
		"### Email\n" +
		"Dear " + name + ",\n\nthank you for your visit today. " +
		"Your results look good; please continue as discussed.\n\nKind regards"

	const size = 24
	runes := []rune(text)
	var out []string
	for len(runes) > size {
		out = append(out, string(runes[:size]))
		runes = runes[size:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}
