package shared

import "context"

// Session is the read-only identity snapshot observed at a decision point.
// It is derived from the bearer token on each request and replaces any prior
// snapshot wholesale; nothing in the core depends on session history.
type Session struct {
	UID           string
	Email         string
	EmailVerified bool
}

// IdentityProvider exposes the current session for a presented credential.
// The core never authenticates users itself; it only reads what the external
// auth service attests.
type IdentityProvider interface {
	CurrentSession(ctx context.Context, idToken string) (*Session, error)
}
