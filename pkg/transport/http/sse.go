package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rhuss/mediscribe/pkg/api"
	"github.com/rhuss/mediscribe/pkg/transport"
)

// writerState tracks the state of an SSE ResponseWriter.
type writerState int

const (
	writerIdle      writerState = iota // Headers not yet committed
	writerStreaming                    // Headers committed, frames may follow
	writerCompleted                    // Terminal frame sent
	writerBroken                       // A write or flush failed; the client is gone
)

// sseHeaders are set once, on Commit.
var sseHeaders = map[string]string{
	"Content-Type":      "text/event-stream; charset=utf-8",
	"Cache-Control":     "no-cache, no-transform",
	"Connection":        "keep-alive",
	"X-Accel-Buffering": "no",
}

var (
	errNotCommitted = errors.New("cannot write event: headers not committed")
	errCompleted    = errors.New("cannot write event: writer is completed")
)

// sseResponseWriter implements transport.ResponseWriter for HTTP/SSE responses.
type sseResponseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState
}

var _ transport.ResponseWriter = (*sseResponseWriter)(nil)

// newSSEResponseWriter creates a new ResponseWriter wrapping an http.ResponseWriter.
func newSSEResponseWriter(w http.ResponseWriter) *sseResponseWriter {
	return &sseResponseWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// Commit writes status 200 with the SSE headers and flushes them.
func (s *sseResponseWriter) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != writerIdle {
		return nil
	}

	h := s.w.Header()
	for k, v := range sseHeaders {
		h.Set(k, v)
	}
	h.Del("Content-Length")
	s.w.WriteHeader(http.StatusOK)
	s.state = writerStreaming

	return s.flushLocked()
}

// Committed reports whether headers have been sent.
func (s *sseResponseWriter) Committed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != writerIdle
}

// Completed reports whether a terminal frame has been written.
func (s *sseResponseWriter) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerCompleted
}

// broken reports whether the client is known to be gone.
func (s *sseResponseWriter) broken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerBroken
}

// WriteEvent sends one SSE frame. Data frames are written as
//
//	data: {line}\n
//	\n
//
// and named events as
//
//	event: {type}\n
//	data: {data}\n
//	\n
//
// Terminal frames are flushed and move the writer to completed.
func (s *sseResponseWriter) WriteEvent(_ context.Context, event api.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case writerIdle:
		return errNotCommitted
	case writerCompleted:
		return errCompleted
	case writerBroken:
		return transport.ErrClientDisconnected
	}

	if _, err := s.w.Write([]byte(formatEvent(event))); err != nil {
		s.state = writerBroken
		return fmt.Errorf("%w: %v", transport.ErrClientDisconnected, err)
	}

	if event.IsTerminal() {
		if err := s.flushLocked(); err != nil {
			return err
		}
		s.state = writerCompleted
	}
	return nil
}

// Flush ensures buffered frames are sent to the client.
func (s *sseResponseWriter) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == writerBroken {
		return transport.ErrClientDisconnected
	}
	return s.flushLocked()
}

func (s *sseResponseWriter) flushLocked() error {
	if err := s.rc.Flush(); err != nil {
		// Writers without flush support still deliver on handler return.
		if errors.Is(err, http.ErrNotSupported) {
			return nil
		}
		s.state = writerBroken
		return fmt.Errorf("%w: %v", transport.ErrClientDisconnected, err)
	}
	return nil
}

var dataLineEnds = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// formatEvent renders one frame. Data containing line ends ("\r\n", "\r"
// or "\n") is split over several data lines so the frame stays well-formed.
func formatEvent(event api.Event) string {
	var b strings.Builder
	if event.Type != api.EventData {
		b.WriteString("event: ")
		b.WriteString(string(event.Type))
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(dataLineEnds.Replace(event.Data), "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}
