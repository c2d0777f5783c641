// Package identity authenticates API callers. A Verifier turns a bearer
// token into a Session; the middleware stores it on the request context.
package identity

import (
	"context"
	"errors"
	"time"
)

// ErrUnauthenticated means no usable session: the token is missing,
// malformed, expired or rejected by the provider.
var ErrUnauthenticated = errors.New("unauthenticated")

// Session is the caller resolved from a bearer token. Token is kept so
// adapters talking to a remote transaction service can forward it.
type Session struct {
	UserID    string
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Active reports whether the session is usable at now.
func (s Session) Active(now time.Time) bool {
	if s.UserID == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

type sessionKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session put there by the middleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
