package session

import (
	"net/url"
	"strings"
	"sync"
)

// DefaultDestination is where users land after authenticating when no
// valid return-to destination was captured.
const DefaultDestination = "/dashboard"

// RedirectCoordinator remembers the page a user meant to reach before
// being sent to the login surface and navigates back there exactly
// once after the first authenticated transition. Destinations that are
// not same-origin relative paths are silently replaced with the
// default to keep the flow closed to open redirects.
type RedirectCoordinator struct {
	nav    Navigator
	def    string
	logger Logger

	mu       sync.Mutex
	pending  string
	captured bool
}

// RedirectOption customizes coordinator construction.
type RedirectOption func(*RedirectCoordinator)

// WithRedirectDefault overrides the fallback destination.
func WithRedirectDefault(destination string) RedirectOption {
	return func(rc *RedirectCoordinator) {
		if destination != "" {
			rc.def = destination
		}
	}
}

// WithRedirectLogger overrides the coordinator logger.
func WithRedirectLogger(logger Logger) RedirectOption {
	return func(rc *RedirectCoordinator) {
		if logger != nil {
			rc.logger = logger
		}
	}
}

// NewRedirectCoordinator returns a coordinator navigating through nav.
func NewRedirectCoordinator(nav Navigator, opts ...RedirectOption) *RedirectCoordinator {
	rc := &RedirectCoordinator{
		nav:    nav,
		def:    DefaultDestination,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(rc)
		}
	}

	return rc
}

// Capture stores the return-to destination read from the login
// surface's query parameter, sanitized. It returns the destination
// that will be used.
func (rc *RedirectCoordinator) Capture(raw string) string {
	destination := SanitizeDestination(raw, rc.def)
	if destination != raw && raw != "" {
		rc.logger.Debug("discarded return destination %q, using %q", raw, destination)
	}

	rc.mu.Lock()
	rc.pending = destination
	rc.captured = true
	rc.mu.Unlock()

	return destination
}

// Consume observes a session status transition. The first
// authenticated transition after a capture performs exactly one
// navigation and discards the destination; later authenticated events
// are no-ops. Navigation is skipped when the current location already
// is the destination, so a login on the protected page itself cannot
// loop.
func (rc *RedirectCoordinator) Consume(status Status) bool {
	if status != StatusAuthenticated {
		return false
	}

	rc.mu.Lock()
	if !rc.captured {
		rc.mu.Unlock()
		return false
	}
	destination := rc.pending
	rc.captured = false
	rc.pending = ""
	rc.mu.Unlock()

	if rc.nav == nil {
		return false
	}

	if current := rc.nav.CurrentPath(); current != "" && current == destination {
		return false
	}

	rc.nav.Navigate(destination)
	return true
}

// SanitizeDestination accepts only same-origin relative paths; any
// absolute URL, scheme-relative URL, or otherwise malformed value
// resolves to the fallback.
func SanitizeDestination(raw, fallback string) string {
	if raw == "" {
		return fallback
	}

	// Backslashes are treated as slashes by some user agents.
	if strings.ContainsAny(raw, "\\\r\n") {
		return fallback
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if u.Scheme != "" || u.Host != "" || u.User != nil {
		return fallback
	}

	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return fallback
	}

	destination := u.Path
	if u.RawQuery != "" {
		destination += "?" + u.RawQuery
	}

	return destination
}
