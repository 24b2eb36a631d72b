package auth

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/mediscribe/pkg/api"
	"github.com/rhuss/mediscribe/pkg/debug"
	"github.com/rhuss/mediscribe/pkg/observability"
	"github.com/rhuss/mediscribe/pkg/transport"
)

// Middleware creates HTTP middleware from an AuthChain. It checks the bypass
// list, runs authentication and injects the identity into the request
// context. Rejections are written as {"error":"Unauthorized"} with status
// 401 and the next handler is never invoked.
func Middleware(chain *AuthChain, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check bypass list.
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)

			if result.Decision != Yes || result.Identity == nil {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"request_id", transport.RequestIDFromContext(r.Context()),
					"error", result.Err,
				)
				observability.AuthRejectedTotal.WithLabelValues(result.Decision.String()).Inc()
				transport.WriteAPIError(w, api.NewUnauthenticatedError())
				return
			}

			if result.Identity.Subject == "" {
				slog.Error("authenticator returned identity with empty subject")
				transport.WriteAPIError(w, api.NewServerError(ErrUnauthenticated))
				return
			}

			debug.Log("auth", "authentication succeeded",
				"subject", result.Identity.Subject,
				"path", r.URL.Path,
			)

			ctx := SetIdentity(r.Context(), result.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
