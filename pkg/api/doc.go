// Package api defines the wire types shared by the relay and the HTTP
// transport: the visit payload accepted by the consultation endpoint, the
// SSE event names emitted on the stream, and the structured error types
// returned before a stream has started.
//
// The package performs no I/O and depends only on the standard library.
//
// Core types:
//   - [VisitRequest]: doctor's notes for one patient visit
//   - [Event]: a single SSE frame (data line or named terminal event)
//   - [APIError]: structured error with type, param and client-facing message
package api
