package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/mediscribe/pkg/api"
	"github.com/rhuss/mediscribe/pkg/auth"
	"github.com/rhuss/mediscribe/pkg/observability"
	"github.com/rhuss/mediscribe/pkg/transport"
)

// RouterConfig wires the adapter, auth gate and operational endpoints.
type RouterConfig struct {
	// Adapter serves the streaming endpoints. Required.
	Adapter *Adapter

	// AuthChain gates the streaming endpoints. Nil disables authentication.
	AuthChain *auth.AuthChain

	// AllowedOrigins enables CORS for browser clients when non-empty.
	AllowedOrigins []string

	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string

	// Ready reports readiness for /readyz. Nil means always ready.
	Ready func() error
}

// NewRouter builds the complete HTTP handler.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(RecoverMiddleware)
	r.Use(observability.MetricsMiddleware)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", transport.RequestIDHeader},
			ExposedHeaders:   []string{transport.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	if cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	var gate func(http.Handler) http.Handler
	if cfg.AuthChain != nil {
		gate = auth.Middleware(cfg.AuthChain, nil)
	}
	cfg.Adapter.Routes(r, gate)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		transport.WriteErrorResponse(w, &api.APIError{Type: api.ErrorTypeInvalidRequest, Message: "Not Found"}, http.StatusNotFound)
	})

	return r
}

// RequestIDMiddleware propagates the X-Request-ID header. A missing ID is
// generated so every log line and response carries one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(transport.RequestIDHeader)
		if id == "" {
			id = transport.NewRequestID()
		}
		w.Header().Set(transport.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(transport.ContextWithRequestID(r.Context(), id)))
	})
}
