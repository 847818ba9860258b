package session

import (
	"time"

	"github.com/goliatone/go-router"
)

// DefaultCookieName is the cookie carrying the access token so
// server-side route guards can read the session across requests.
const DefaultCookieName = "auth-token"

// CookieJar is where the controller persists the token cookie. Server
// flows wrap a router context, browsers wrap their document API, tests
// capture writes.
type CookieJar interface {
	Set(cookie *router.Cookie)
}

// CookieJarFunc adapts a function to the CookieJar interface.
type CookieJarFunc func(cookie *router.Cookie)

// Set implements CookieJar.
func (f CookieJarFunc) Set(cookie *router.Cookie) {
	if f != nil {
		f(cookie)
	}
}

type noopCookieJar struct{}

func (noopCookieJar) Set(*router.Cookie) {}

// TokenCookie builds the session cookie for a credential. The max-age
// is derived from the credential expiry, so an expired token never
// outlives its cookie.
func TokenCookie(cfg Config, credential Credential, now time.Time) *router.Cookie {
	maxAge := int(credential.ExpiresAt.Sub(now) / time.Second)
	if maxAge < 0 {
		maxAge = 0
	}

	return &router.Cookie{
		Name:     cookieName(cfg),
		Value:    credential.Token,
		Path:     cookiePath(cfg),
		MaxAge:   maxAge,
		Expires:  credential.ExpiresAt,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	}
}

// ClearedTokenCookie builds the removal form of the session cookie:
// empty value, zero max-age, expiry in the past.
func ClearedTokenCookie(cfg Config, now time.Time) *router.Cookie {
	return &router.Cookie{
		Name:     cookieName(cfg),
		Value:    "",
		Path:     cookiePath(cfg),
		MaxAge:   0,
		Expires:  now.Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	}
}

func cookieName(cfg Config) string {
	if cfg != nil && cfg.GetCookieName() != "" {
		return cfg.GetCookieName()
	}
	return DefaultCookieName
}

func cookiePath(cfg Config) string {
	if cfg != nil && cfg.GetCookiePath() != "" {
		return cfg.GetCookiePath()
	}
	return "/"
}
