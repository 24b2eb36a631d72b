package http

import (
	"fmt"
	"log/slog"
	"net/http"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rhuss/mediscribe/pkg/api"
	"github.com/rhuss/mediscribe/pkg/transport"
)

// RecoverMiddleware turns a panic anywhere in the handler chain into a JSON
// 500. Once the status line has been sent (an SSE stream is committed) no
// second response is written; the panic is logged and the handler returns,
// which ends the response. http.ErrAbortHandler is re-raised for net/http.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("panic in http handler",
				"request_id", transport.RequestIDFromContext(r.Context()),
				"path", r.URL.Path,
				"committed", ww.Status() != 0,
				"panic", rec,
			)
			if ww.Status() != 0 {
				return
			}
			transport.WriteAPIError(ww, api.NewServerError(fmt.Errorf("panic: %v", rec)))
		}()
		next.ServeHTTP(ww, r)
	})
}
