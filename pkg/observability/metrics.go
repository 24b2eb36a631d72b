// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the mediscribe relay.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM streaming latencies,
// ranging from 100ms to 5m.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300}

// Stream outcome label values.
const (
	OutcomeCompleted        = "completed"
	OutcomeUpstreamError    = "upstream_error"
	OutcomeClientDisconnect = "client_disconnect"
	OutcomeOpenFailed       = "open_failed"
	OutcomeInvalidRequest   = "invalid_request"
)

var (
	// RequestsTotal counts all HTTP requests by method, route pattern, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediscribe_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds. For SSE
	// responses this is the lifetime of the stream.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediscribe_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks the number of active SSE streams.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediscribe_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// BackendRequestsTotal counts stream-open attempts against the generative backend.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediscribe_backend_requests_total",
			Help: "Backend stream open attempts",
		},
		[]string{"backend", "status"},
	)

	// BackendOpenLatency records the time until the backend stream is open.
	BackendOpenLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediscribe_backend_open_latency_seconds",
			Help:    "Backend stream open latency",
			Buckets: LLMBuckets,
		},
		[]string{"backend"},
	)

	// ChunksForwardedTotal counts non-empty text chunks relayed to clients.
	ChunksForwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediscribe_chunks_forwarded_total",
			Help: "Text chunks forwarded",
		},
		[]string{"backend"},
	)

	// StreamOutcomesTotal counts relay requests by terminal outcome.
	StreamOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediscribe_stream_outcomes_total",
			Help: "Relay outcomes",
		},
		[]string{"outcome"},
	)

	// AuthRejectedTotal counts requests rejected by the auth gate.
	AuthRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediscribe_auth_rejected_total",
			Help: "Auth rejections",
		},
		[]string{"decision"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		BackendRequestsTotal,
		BackendOpenLatency,
		ChunksForwardedTotal,
		StreamOutcomesTotal,
		AuthRejectedTotal,
	)
}
