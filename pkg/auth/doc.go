// Package auth gates the relay endpoints behind bearer-token authentication.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default voter decides
// when all authenticators abstain.
//
// Auth is implemented as HTTP middleware so the gate always resolves before
// a handler commits any response header. The verified identity is placed in
// the request context and is otherwise not consumed by the relay.
package auth
