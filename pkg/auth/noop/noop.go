// Package noop provides a no-op authenticator that accepts all requests.
// Used for local development against the mock backend.
package noop

import (
	"context"
	"net/http"

	"github.com/rhuss/mediscribe/pkg/auth"
)

// Authenticator always returns Yes with a default anonymous identity.
type Authenticator struct{}

func (a *Authenticator) Authenticate(_ context.Context, _ *http.Request) auth.AuthResult {
	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{Subject: "anonymous"},
	}
}
