package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rhuss/mediscribe/pkg/api"
	"github.com/rhuss/mediscribe/pkg/auth"
	"github.com/rhuss/mediscribe/pkg/debug"
	"github.com/rhuss/mediscribe/pkg/observability"
	"github.com/rhuss/mediscribe/pkg/prompt"
	"github.com/rhuss/mediscribe/pkg/provider"
	"github.com/rhuss/mediscribe/pkg/transport"
)

// Default timeouts.
const (
	DefaultMaxDuration = 5 * time.Minute
	DefaultIdleTimeout = 60 * time.Second
)

// Config controls stream lifetime and terminal framing.
type Config struct {
	// MaxDuration bounds the whole stream, including the open.
	MaxDuration time.Duration

	// IdleTimeout bounds the wait for each chunk.
	IdleTimeout time.Duration

	// Done is the success frame of consultation streams.
	Done api.Terminal

	// IdeaDone is the success frame of idea streams.
	IdeaDone api.Terminal
}

// DefaultConfig returns the default relay configuration.
func DefaultConfig() Config {
	return Config{
		MaxDuration: DefaultMaxDuration,
		IdleTimeout: DefaultIdleTimeout,
		Done:        api.DefaultTerminal,
		IdeaDone:    api.Terminal{Type: api.EventEnd, Data: "done"},
	}
}

// Relay implements transport.Streamer on top of a provider.Backend.
// It holds no per-request state and is safe for concurrent use.
type Relay struct {
	backend provider.Backend
	cfg     Config
	logger  *slog.Logger
}

var _ transport.Streamer = (*Relay)(nil)

// New creates a Relay. Zero fields of cfg take their defaults.
func New(backend provider.Backend, cfg Config, logger *slog.Logger) (*Relay, error) {
	if backend == nil {
		return nil, errors.New("relay: backend is required")
	}
	def := DefaultConfig()
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = def.MaxDuration
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.Done.Type == "" {
		cfg.Done = def.Done
	}
	if cfg.IdeaDone.Type == "" {
		cfg.IdeaDone = def.IdeaDone
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{backend: backend, cfg: cfg, logger: logger}, nil
}

// Stream relays one completion. Errors returned before w was committed
// are *api.APIError values suitable for a JSON response. Once committed,
// Stream has already written the terminal frame (or found the client
// gone) and the returned error is informational.
func (r *Relay) Stream(ctx context.Context, req *api.StreamRequest, w transport.ResponseWriter) error {
	outcome, err := r.stream(ctx, req, w)
	observability.StreamOutcomesTotal.WithLabelValues(string(outcome)).Inc()
	return err
}

func (r *Relay) stream(ctx context.Context, req *api.StreamRequest, w transport.ResponseWriter) (Outcome, error) {
	requestID := transport.RequestIDFromContext(ctx)

	text, err := prompt.For(req)
	if err != nil {
		return OutcomeInvalidRequest, err
	}
	terminal := r.terminalFor(req.Kind)

	streamCtx, cancel := context.WithTimeoutCause(ctx, r.cfg.MaxDuration, ErrMaxDuration)
	defer cancel()

	start := time.Now()
	stream, err := r.backend.OpenStream(streamCtx, text)
	observability.BackendOpenLatency.WithLabelValues(r.backend.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.BackendRequestsTotal.WithLabelValues(r.backend.Name(), "error").Inc()
		if ctx.Err() != nil && !isShutdown(ctx) {
			return OutcomeClientDisconnect, &OutcomeError{Outcome: OutcomeClientDisconnect, Err: ErrClientDisconnected}
		}
		r.logger.Error("backend open failed",
			"request_id", requestID,
			"backend", r.backend.Name(),
			"error", err,
		)
		return OutcomeOpenFailed, &OutcomeError{
			Outcome: OutcomeOpenFailed,
			Err:     api.NewBackendError(err),
		}
	}
	defer stream.Close()
	observability.BackendRequestsTotal.WithLabelValues(r.backend.Name(), "ok").Inc()

	if err := w.Commit(); err != nil {
		return OutcomeClientDisconnect, &OutcomeError{Outcome: OutcomeClientDisconnect, Err: ErrClientDisconnected}
	}
	debug.Log("relay", "stream open",
		"request_id", requestID,
		"subject", auth.SubjectFromContext(ctx),
		"backend", r.backend.Name(),
		"kind", req.Kind,
	)

	chunks := 0
	for {
		chunkCtx, cancelChunk := context.WithTimeoutCause(streamCtx, r.cfg.IdleTimeout, ErrIdleTimeout)
		chunk, err := stream.Next(chunkCtx)
		cancelChunk()

		if errors.Is(err, io.EOF) {
			if werr := w.WriteEvent(ctx, api.Event{Type: terminal.Type, Data: terminal.Data}); werr != nil {
				return OutcomeClientDisconnect, &OutcomeError{Outcome: OutcomeClientDisconnect, Err: ErrClientDisconnected}
			}
			debug.Log("relay", "stream completed", "request_id", requestID, "chunks", chunks)
			return OutcomeCompleted, nil
		}

		if err != nil {
			return r.fail(ctx, w, requestID, err)
		}

		if chunk.Text == "" {
			continue
		}

		for _, line := range Frames(chunk.Text) {
			if werr := w.WriteEvent(ctx, api.Event{Data: line}); werr != nil {
				return OutcomeClientDisconnect, &OutcomeError{Outcome: OutcomeClientDisconnect, Err: ErrClientDisconnected}
			}
		}
		if werr := w.Flush(); werr != nil {
			return OutcomeClientDisconnect, &OutcomeError{Outcome: OutcomeClientDisconnect, Err: ErrClientDisconnected}
		}
		chunks++
		observability.ChunksForwardedTotal.WithLabelValues(r.backend.Name()).Inc()
	}
}

// fail ends a committed stream after an upstream failure. A cancelled
// request context means the client left, unless the server is draining.
func (r *Relay) fail(ctx context.Context, w transport.ResponseWriter, requestID string, cause error) (Outcome, error) {
	if ctx.Err() != nil && !isShutdown(ctx) {
		debug.Log("relay", "client disconnected", "request_id", requestID)
		return OutcomeClientDisconnect, &OutcomeError{Outcome: OutcomeClientDisconnect, Err: ErrClientDisconnected}
	}

	r.logger.Error("stream failed",
		"request_id", requestID,
		"backend", r.backend.Name(),
		"error", cause,
	)

	apiErr := api.NewBackendError(cause)
	if werr := w.WriteEvent(ctx, api.Event{Type: api.EventError, Data: transport.ErrorEventData(apiErr)}); werr != nil {
		return OutcomeClientDisconnect, &OutcomeError{Outcome: OutcomeClientDisconnect, Err: ErrClientDisconnected}
	}
	return OutcomeUpstreamError, &OutcomeError{
		Outcome: OutcomeUpstreamError,
		Err:     fmt.Errorf("upstream stream failed: %w", apiErr),
	}
}

func (r *Relay) terminalFor(kind api.StreamKind) api.Terminal {
	if kind == api.StreamIdea {
		return r.cfg.IdeaDone
	}
	return r.cfg.Done
}

func isShutdown(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), transport.ErrShuttingDown)
}
