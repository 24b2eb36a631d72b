package transport

import (
	"context"

	"github.com/rhuss/mediscribe/pkg/api"
)

// Streamer handles one authenticated streaming request. The implementation
// opens the backend stream, commits the SSE headers on the ResponseWriter
// and forwards frames until a terminal event has been written.
//
// A returned error whose writer was never committed is rendered as a JSON
// error by the transport. Once committed, the streamer is expected to have
// written its own terminal frame.
type Streamer interface {
	Stream(ctx context.Context, req *api.StreamRequest, w ResponseWriter) error
}

// StreamerFunc is an adapter that allows using an ordinary function
// as a Streamer.
type StreamerFunc func(ctx context.Context, req *api.StreamRequest, w ResponseWriter) error

// Stream calls f(ctx, req, w).
func (f StreamerFunc) Stream(ctx context.Context, req *api.StreamRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// ResponseWriter abstracts the SSE output of a single request.
//
// Commit sends the response headers exactly once. WriteEvent before Commit
// returns an error, as does any write after a terminal event.
type ResponseWriter interface {
	// Commit writes status 200 and the SSE headers. A second call is a no-op.
	Commit() error

	// Committed reports whether headers have been sent.
	Committed() bool

	// WriteEvent sends one frame. Terminal frames are flushed immediately.
	WriteEvent(ctx context.Context, event api.Event) error

	// Flush ensures buffered frames reach the client. Returns an error
	// if the client has disconnected.
	Flush() error

	// Completed reports whether a terminal frame has been written.
	Completed() bool
}
