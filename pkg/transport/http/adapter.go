package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rhuss/mediscribe/pkg/api"
	"github.com/rhuss/mediscribe/pkg/debug"
	"github.com/rhuss/mediscribe/pkg/transport"
)

// Route paths served by the adapter.
const (
	ConsultationPath = "/api/consultation"
	IdeaPath         = "/api/idea"
)

// Adapter serves the streaming endpoints over HTTP.
// It decodes requests, dispatches them to the Streamer and renders
// pre-stream failures as JSON.
type Adapter struct {
	streamer transport.Streamer
	inflight *transport.InFlightRegistry
	config   Config
	logger   *slog.Logger
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20, // 1 MB
	}
}

// NewAdapter creates an HTTP adapter for the given Streamer. Middleware is
// applied to the Streamer in the given order. inflight may be nil.
func NewAdapter(streamer transport.Streamer, inflight *transport.InFlightRegistry, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		streamer = transport.Chain(middlewares...)(streamer)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	return &Adapter{
		streamer: streamer,
		inflight: inflight,
		config:   cfg,
		logger:   slog.Default(),
	}
}

// Routes mounts the streaming endpoints on r. The method check runs before
// gate, so a wrong verb is answered with 405 even without a credential.
// gate may be nil.
func (a *Adapter) Routes(r chi.Router, gate func(http.Handler) http.Handler) {
	if gate == nil {
		gate = func(h http.Handler) http.Handler { return h }
	}
	r.Handle(ConsultationPath, allowMethods(gate(http.HandlerFunc(a.handleConsultation)), http.MethodPost))
	r.Handle(IdeaPath, allowMethods(gate(http.HandlerFunc(a.handleIdea)), http.MethodGet, http.MethodPost))
}

// allowMethods answers any other verb with 405 and an Allow header.
func allowMethods(next http.Handler, methods ...string) http.Handler {
	allow := strings.Join(methods, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, m := range methods {
			if r.Method == m {
				next.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("Allow", allow)
		transport.WriteAPIError(w, api.NewMethodNotAllowedError())
	})
}

// handleConsultation handles POST /api/consultation.
func (a *Adapter) handleConsultation(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var visit api.VisitRequest
	if err := json.NewDecoder(r.Body).Decode(&visit); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
		case errors.Is(err, io.EOF):
			transport.WriteAPIError(w, api.NewInvalidRequestError("body", "request body is required"))
		default:
			transport.WriteAPIError(w, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()))
		}
		return
	}

	a.dispatch(w, r, &api.StreamRequest{Kind: api.StreamConsultation, Visit: &visit})
}

// handleIdea handles GET|POST /api/idea. Any request body is ignored.
func (a *Adapter) handleIdea(w http.ResponseWriter, r *http.Request) {
	a.dispatch(w, r, &api.StreamRequest{Kind: api.StreamIdea})
}

// dispatch runs the Streamer with a cancelable context registered in the
// in-flight registry.
func (a *Adapter) dispatch(w http.ResponseWriter, r *http.Request, req *api.StreamRequest) {
	ctx := r.Context()
	if a.inflight != nil {
		id := transport.RequestIDFromContext(ctx)
		if id == "" {
			id = transport.NewRequestID()
			ctx = transport.ContextWithRequestID(ctx, id)
		}
		var release func()
		ctx, release = a.inflight.Track(ctx)
		defer release()
	}

	rw := newSSEResponseWriter(w)
	if err := a.streamer.Stream(ctx, req, rw); err != nil {
		a.writeHandlerError(ctx, w, rw, err)
	}
}

// writeHandlerError renders a Streamer error. Before the SSE headers are
// committed it writes a JSON error. After that, it writes an error frame
// unless a terminal frame was already sent or the client is gone.
func (a *Adapter) writeHandlerError(ctx context.Context, w http.ResponseWriter, rw *sseResponseWriter, err error) {
	if errors.Is(err, transport.ErrClientDisconnected) || rw.broken() {
		debug.Log("transport", "client gone, dropping error",
			"request_id", transport.RequestIDFromContext(ctx),
			"error", err.Error(),
		)
		return
	}

	apiErr := transport.AsAPIError(err)

	if rw.Completed() {
		return
	}

	if rw.Committed() {
		rw.WriteEvent(ctx, api.Event{Type: api.EventError, Data: transport.ErrorEventData(apiErr)})
		return
	}

	transport.WriteAPIError(w, apiErr)
}
