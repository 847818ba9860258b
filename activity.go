package session

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess        ActivityEventType = "session.login.success"
	ActivityEventLoginFailure        ActivityEventType = "session.login.failure"
	ActivityEventLogout              ActivityEventType = "session.logout"
	ActivityEventSignUpSuccess       ActivityEventType = "session.signup.success"
	ActivityEventSignUpFailure       ActivityEventType = "session.signup.failure"
	ActivityEventProfileCreated      ActivityEventType = "session.profile.created"
	ActivityEventTokenRefreshed      ActivityEventType = "session.token.refreshed"
	ActivityEventTokenRefreshFailure ActivityEventType = "session.token.refresh.failure"
	ActivityEventPasswordReset       ActivityEventType = "session.password.reset"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	IdentityID string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry
// purposes. Sinks run best-effort: errors are logged, never blocking
// the lifecycle.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
