package provider

import "context"

// Backend abstracts a generative text backend that can stream a completion
// for a single prompt. Each adapter handles its own wire protocol.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Backend interface {
	// Name returns the backend identifier (e.g., "gemini", "openai").
	Name() string

	// OpenStream starts a completion for prompt. An error means nothing was
	// produced; the returned stream must be closed by the caller.
	OpenStream(ctx context.Context, prompt string) (TextStream, error)

	// Close releases backend resources (HTTP clients, connections).
	Close() error
}

// TextStream yields the text chunks of one completion in order.
//
// Next returns io.EOF once the completion is exhausted. Any other error is
// terminal. When ctx ends before a chunk is available, Next returns the
// context's cause.
type TextStream interface {
	Next(ctx context.Context) (Chunk, error)

	// Close stops the upstream request. Safe to call more than once.
	Close() error
}

// Chunk is one increment of completion text. Text may be empty.
type Chunk struct {
	Text string
}
