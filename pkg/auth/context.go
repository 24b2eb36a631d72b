package auth

import "context"

type identityKey struct{}

// SetIdentity returns a copy of ctx carrying the caller verified by the gate.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the verified caller, or nil for requests that
// never passed the gate (bypassed endpoints, direct relay calls in tests).
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// SubjectFromContext returns the verified subject for log attribution, or
// "" when the request carries no identity.
func SubjectFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Subject
	}
	return ""
}
