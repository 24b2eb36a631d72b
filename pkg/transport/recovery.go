package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/mediscribe/pkg/api"
)

// Recovery returns middleware that catches panics in the streamer and
// converts them to server errors. The server continues to accept new
// requests after a panic is recovered.
func Recovery() Middleware {
	return func(next Streamer) Streamer {
		return StreamerFunc(func(ctx context.Context, req *api.StreamRequest, w ResponseWriter) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic in streamer",
						"request_id", RequestIDFromContext(ctx),
						"panic", r,
					)
					retErr = api.NewServerError(fmt.Errorf("panic: %v", r))
				}
			}()
			return next.Stream(ctx, req, w)
		})
	}
}
