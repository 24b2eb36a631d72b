// Package providertest provides a scripted provider.Backend for tests.
package providertest

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rhuss/mediscribe/pkg/provider"
)

// ErrScripted is the default mid-stream failure.
var ErrScripted = errors.New("scripted upstream failure")

// Backend replays a fixed list of chunks. Configure fields before the
// first OpenStream call.
type Backend struct {
	// Chunks are yielded in order.
	Chunks []string

	// OpenErr makes OpenStream fail.
	OpenErr error

	// FailAfter fails the stream after that many chunks with FailErr, or
	// with ErrScripted when FailErr is nil. A zero FailAfter with a non-nil
	// FailErr fails before the first chunk.
	FailAfter int
	FailErr   error

	// Hang makes Next block until its context ends once Chunks (up to
	// FailAfter) are exhausted.
	Hang bool

	// Delay is applied before every chunk.
	Delay time.Duration

	calls   atomic.Int32
	closed  atomic.Int32
	mu      sync.Mutex
	prompts []string
}

var _ provider.Backend = (*Backend)(nil)

// Name returns "fake".
func (b *Backend) Name() string { return "fake" }

// Close is a no-op.
func (b *Backend) Close() error { return nil }

// Calls returns how many times OpenStream was called.
func (b *Backend) Calls() int { return int(b.calls.Load()) }

// StreamsClosed returns how many opened streams were closed.
func (b *Backend) StreamsClosed() int { return int(b.closed.Load()) }

// LastPrompt returns the prompt of the most recent OpenStream call.
func (b *Backend) LastPrompt() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.prompts) == 0 {
		return ""
	}
	return b.prompts[len(b.prompts)-1]
}

// OpenStream records the call and returns a scripted stream.
func (b *Backend) OpenStream(ctx context.Context, prompt string) (provider.TextStream, error) {
	b.calls.Add(1)
	b.mu.Lock()
	b.prompts = append(b.prompts, prompt)
	b.mu.Unlock()

	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	return &stream{b: b}, nil
}

type stream struct {
	b      *Backend
	next   int
	closed bool
}

func (s *stream) Next(ctx context.Context) (provider.Chunk, error) {
	if s.b.Delay > 0 {
		select {
		case <-time.After(s.b.Delay):
		case <-ctx.Done():
			return provider.Chunk{}, context.Cause(ctx)
		}
	}
	if ctx.Err() != nil {
		return provider.Chunk{}, context.Cause(ctx)
	}

	if (s.b.FailAfter > 0 || s.b.FailErr != nil) && s.next >= s.b.FailAfter {
		if s.b.FailErr != nil {
			return provider.Chunk{}, s.b.FailErr
		}
		return provider.Chunk{}, ErrScripted
	}
	if s.next < len(s.b.Chunks) {
		c := s.b.Chunks[s.next]
		s.next++
		return provider.Chunk{Text: c}, nil
	}
	if s.b.Hang {
		<-ctx.Done()
		return provider.Chunk{}, context.Cause(ctx)
	}
	return provider.Chunk{}, io.EOF
}

func (s *stream) Close() error {
	if !s.closed {
		s.closed = true
		s.b.closed.Add(1)
	}
	return nil
}
