package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/mediscribe/pkg/api"
)

// Logging returns middleware that emits one structured log entry per
// stream. Request payloads are never logged: visit notes are patient data.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Streamer) Streamer {
		return StreamerFunc(func(ctx context.Context, req *api.StreamRequest, w ResponseWriter) error {
			start := time.Now()

			err := next.Stream(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("kind", string(req.Kind)),
				slog.Bool("committed", w.Committed()),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "stream failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "stream completed", attrs...)
			}

			return err
		})
	}
}
