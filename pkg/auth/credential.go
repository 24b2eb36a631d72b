package auth

import (
	"net/http"
	"strings"
)

// DefaultSessionCookie is the cookie the hosted sign-in frontend stores its
// session token in.
const DefaultSessionCookie = "__session"

// CredentialSource says where an authenticator looks for the bearer token.
// The Authorization header is always consulted first.
type CredentialSource struct {
	// SessionCookie is the fallback cookie name. Empty disables the fallback.
	SessionCookie string
}

// Extract returns the raw credential and whether one was presented at all.
// A present-but-empty bearer header yields ("", true) so callers can vote No
// instead of Abstain.
func (s CredentialSource) Extract(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := parseBearer(header)
		if ok {
			return token, true
		}
		// Non-bearer schemes are left to other authenticators.
		return "", false
	}

	if s.SessionCookie != "" {
		if c, err := r.Cookie(s.SessionCookie); err == nil {
			return c.Value, true
		}
	}

	return "", false
}

// parseBearer splits "Bearer <token>". The scheme is matched
// case-insensitively.
func parseBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found {
		if strings.EqualFold(header, "Bearer") {
			return "", true
		}
		return "", false
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}
