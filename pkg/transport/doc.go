// Package transport defines the streaming handler contract and middleware
// chain for the mediscribe HTTP/SSE transport layer.
//
// The transport layer bridges HTTP clients and the relay. It decodes the
// incoming request into the types of pkg/api, dispatches it to a Streamer,
// and either lets the streamer emit SSE frames or, when nothing has been
// committed yet, renders the returned error as JSON.
//
// # Handler Interface
//
// Streamer handles one authenticated request. ResponseWriter abstracts the
// SSE output: a single header commit followed by data frames and exactly
// one terminal frame.
//
// # Middleware
//
// The middleware chain wraps Streamer with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID) and structured logging via log/slog.
//
// # Shutdown
//
// InFlightRegistry keeps cancel functions for active streams so the server
// can end them with ErrShuttingDown as the cancellation cause.
package transport
