package session

import (
	"context"
	"sync"
	"time"
)

// DefaultRefreshSafetyMargin is how long before credential expiry a
// renewal fires, leaving room for clock skew and slow networks.
const DefaultRefreshSafetyMargin = 5 * time.Minute

// RefreshFunc performs a credential renewal and returns the renewed
// credential so the refresher can schedule the next cycle from its
// expiry.
type RefreshFunc func(ctx context.Context) (Credential, error)

// Refresher keeps a credential silently renewed for the life of a
// session. It holds at most one pending timer: scheduling again
// replaces the previous timer, and Cancel drops it. A failed renewal
// is logged and scheduling stops, the next provider event recovers it.
type Refresher struct {
	refresh RefreshFunc
	margin  time.Duration
	clock   func() time.Time
	logger  Logger

	mu    sync.Mutex
	timer *time.Timer
}

// RefresherOption customizes refresher construction.
type RefresherOption func(*Refresher)

// WithRefresherMargin overrides the safety margin.
func WithRefresherMargin(margin time.Duration) RefresherOption {
	return func(r *Refresher) {
		if margin > 0 {
			r.margin = margin
		}
	}
}

// WithRefresherClock injects a custom clock (useful for tests).
func WithRefresherClock(clock func() time.Time) RefresherOption {
	return func(r *Refresher) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithRefresherLogger overrides the refresher logger.
func WithRefresherLogger(logger Logger) RefresherOption {
	return func(r *Refresher) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRefresher returns a refresher driving the given renewal function.
func NewRefresher(refresh RefreshFunc, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		refresh: refresh,
		margin:  DefaultRefreshSafetyMargin,
		clock:   time.Now,
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// RefreshDelay computes how long to wait before renewing a credential
// that expires at the given instant, never negative.
func RefreshDelay(expiry, now time.Time, margin time.Duration) time.Duration {
	delay := expiry.Sub(now) - margin
	if delay < 0 {
		return 0
	}
	return delay
}

// Schedule arms a renewal for the credential expiring at the given
// instant, replacing any pending timer.
func (r *Refresher) Schedule(expiry time.Time) {
	delay := RefreshDelay(expiry, r.clock(), r.margin)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelLocked()
	r.timer = time.AfterFunc(delay, r.fire)
}

// Cancel drops the pending timer, if any. No renewal fires afterwards
// until Schedule is called again.
func (r *Refresher) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
}

// Pending reports whether a renewal timer is armed.
func (r *Refresher) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

func (r *Refresher) cancelLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Refresher) fire() {
	r.mu.Lock()
	r.timer = nil
	r.mu.Unlock()

	credential, err := r.refresh(context.Background())
	if err != nil {
		// No retry loop here: the next natural credential fetch
		// re-establishes scheduling.
		r.logger.Warn("credential renewal failed, not rescheduling: %v", err)
		return
	}

	r.Schedule(credential.ExpiresAt)
}
