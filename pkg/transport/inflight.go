package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrShuttingDown is the cancellation cause attached to streams that are
// stopped because the server is shutting down.
var ErrShuttingDown = errors.New("server shutting down")

// InFlightRegistry tracks active streams so a shutting-down server can
// end them with an error frame instead of waiting for the backend.
// It maps stream keys to cancel functions. Track generates its own keys;
// request IDs come from clients and are not unique.
//
// All methods are safe for concurrent access.
type InFlightRegistry struct {
	mu      sync.Mutex
	entries map[string]context.CancelCauseFunc
}

// NewInFlightRegistry creates a new empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{
		entries: make(map[string]context.CancelCauseFunc),
	}
}

// Register adds an in-flight stream to the registry.
func (r *InFlightRegistry) Register(id string, cancel context.CancelCauseFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = cancel
}

// Cancel cancels one in-flight stream with ErrShuttingDown as the cause.
// Returns false if the ID was not registered.
func (r *InFlightRegistry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.entries[id]
	if !ok {
		return false
	}
	cancel(ErrShuttingDown)
	delete(r.entries, id)
	return true
}

// CancelAll cancels every registered stream and returns how many there were.
func (r *InFlightRegistry) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	for id, cancel := range r.entries {
		cancel(ErrShuttingDown)
		delete(r.entries, id)
	}
	return n
}

// Remove removes a stream from the registry without cancelling it.
// Called when a stream ends on its own.
func (r *InFlightRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len returns the number of registered streams.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Track registers a cancelable child of ctx under a fresh key and returns it
// with a release function that must be called when the stream ends.
func (r *InFlightRegistry) Track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	id := uuid.NewString()
	r.Register(id, cancel)
	return ctx, func() {
		r.Remove(id)
		cancel(nil)
	}
}
