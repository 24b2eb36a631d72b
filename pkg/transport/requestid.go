package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/rhuss/mediscribe/pkg/api"
)

// RequestIDHeader is the header used to propagate request IDs.
const RequestIDHeader = "X-Request-ID"

// RequestID returns middleware that assigns a unique request ID to each
// request. If the incoming context already carries one (set by the HTTP
// adapter from the X-Request-ID header), that value is kept.
func RequestID() Middleware {
	return func(next Streamer) Streamer {
		return StreamerFunc(func(ctx context.Context, req *api.StreamRequest, w ResponseWriter) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.Stream(ctx, req, w)
		})
	}
}

// NewRequestID generates a random request ID.
func NewRequestID() string {
	return uuid.NewString()
}
