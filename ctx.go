package session

import (
	"context"
)

var identityCtxKey = &contextKey{"identity"}
var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSessionIdentity sets the authenticated Identity in the given context
func WithSessionIdentity(r context.Context, identity Identity) context.Context {
	return context.WithValue(r, identityCtxKey, identity)
}

// IdentityFromContext finds the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok
}

// WithSession sets the session snapshot in the given context
func WithSession(r context.Context, s Session) context.Context {
	return context.WithValue(r, sessionCtxKey, s)
}

// SessionFromContext finds the session snapshot from the context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok
}

// Authenticated reports whether the context carries an authenticated
// session or identity.
func Authenticated(ctx context.Context) bool {
	if s, ok := SessionFromContext(ctx); ok {
		return s.Authenticated()
	}
	_, ok := IdentityFromContext(ctx)
	return ok
}
