package session_test

import (
	"testing"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeDestination(t *testing.T) {
	fallback := "/dashboard"

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty uses fallback", "", fallback},
		{"relative path passes", "/courses/42", "/courses/42"},
		{"query string preserved", "/courses/42?tab=notes", "/courses/42?tab=notes"},
		{"absolute url rejected", "https://evil.example.com/phish", fallback},
		{"scheme relative rejected", "//evil.example.com/phish", fallback},
		{"backslash rejected", "/\\evil.example.com", fallback},
		{"newline rejected", "/courses\n/42", fallback},
		{"carriage return rejected", "/courses\r/42", fallback},
		{"userinfo rejected", "https://user@evil.example.com", fallback},
		{"no leading slash rejected", "courses/42", fallback},
		{"javascript scheme rejected", "javascript:alert(1)", fallback},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, session.SanitizeDestination(tc.raw, fallback))
		})
	}
}

func TestRedirectCaptureSanitizes(t *testing.T) {
	nav := &stubNavigator{}
	rc := session.NewRedirectCoordinator(nav)

	assert.Equal(t, "/courses/42", rc.Capture("/courses/42"))
	assert.Equal(t, session.DefaultDestination, rc.Capture("https://evil.example.com"))
}

func TestRedirectConsumeExactlyOnce(t *testing.T) {
	nav := &stubNavigator{}
	rc := session.NewRedirectCoordinator(nav)

	rc.Capture("/courses/42")

	assert.True(t, rc.Consume(session.StatusAuthenticated))
	assert.False(t, rc.Consume(session.StatusAuthenticated), "second authenticated event is a no-op")
	require.Equal(t, []string{"/courses/42"}, nav.paths())
}

func TestRedirectConsumeIgnoresOtherStatuses(t *testing.T) {
	nav := &stubNavigator{}
	rc := session.NewRedirectCoordinator(nav)

	rc.Capture("/courses/42")

	assert.False(t, rc.Consume(session.StatusInitializing))
	assert.False(t, rc.Consume(session.StatusUnauthenticated))
	assert.Empty(t, nav.paths())

	// the capture is still pending for the eventual sign in
	assert.True(t, rc.Consume(session.StatusAuthenticated))
	assert.Equal(t, []string{"/courses/42"}, nav.paths())
}

func TestRedirectConsumeWithoutCapture(t *testing.T) {
	nav := &stubNavigator{}
	rc := session.NewRedirectCoordinator(nav)

	assert.False(t, rc.Consume(session.StatusAuthenticated))
	assert.Empty(t, nav.paths())
}

func TestRedirectLoopGuard(t *testing.T) {
	nav := &stubNavigator{current: "/courses/42"}
	rc := session.NewRedirectCoordinator(nav)

	rc.Capture("/courses/42")

	assert.False(t, rc.Consume(session.StatusAuthenticated), "already on the destination")
	assert.Empty(t, nav.paths())

	// the capture was still consumed, a later event does not navigate
	assert.False(t, rc.Consume(session.StatusAuthenticated))
}

func TestRedirectCustomDefault(t *testing.T) {
	nav := &stubNavigator{}
	rc := session.NewRedirectCoordinator(nav, session.WithRedirectDefault("/home"))

	rc.Capture("not-a-path")

	assert.True(t, rc.Consume(session.StatusAuthenticated))
	assert.Equal(t, []string{"/home"}, nav.paths())
}
