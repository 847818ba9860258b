package session

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes the identity provider vouches for.
type Identity interface {
	ID() string
	Email() string
}

// Credential is a short-lived access token plus its expiry instant.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the credential is past its expiry at the
// given instant.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// Unsubscribe detaches a previously registered listener.
type Unsubscribe func()

// IdentityProvider is the external authority that verifies credentials
// and issues access tokens. A nil identity on the change stream means
// the provider considers the session signed out or invalidated.
type IdentityProvider interface {
	Subscribe(onChange func(Identity)) Unsubscribe
	SignInWithPassword(ctx context.Context, email, password string) error
	SignUpWithPassword(ctx context.Context, email, password, displayName string) error
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	FreshCredential(ctx context.Context, forceRefresh bool) (Credential, error)
}

// ProfileStore is the durable store holding one profile record per
// identity id. Get returns a not-found error (see IsProfileNotFound)
// when no record exists. The store may be eventually consistent;
// callers treat writes as idempotent upserts.
type ProfileStore interface {
	Get(ctx context.Context, identityID string) (*Profile, error)
	Upsert(ctx context.Context, identityID string, profile *Profile) (*Profile, error)
}

// Navigator performs client navigation for the redirect coordinator.
type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// NavigatorFunc adapts a navigation function to the Navigator
// interface. CurrentPath reports empty, so the loop guard never trips.
type NavigatorFunc func(path string)

func (f NavigatorFunc) CurrentPath() string { return "" }

func (f NavigatorFunc) Navigate(path string) {
	if f != nil {
		f(path)
	}
}

// Config holds session options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetIssuer() string
	GetAudience() []string
	GetTokenTTL() time.Duration
	GetRefreshSafetyMargin() time.Duration
	GetCookieName() string
	GetCookiePath() string
	GetContextKey() string
	GetReturnToParam() string
	GetRejectedRouteKey() string
	GetDefaultDestination() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
