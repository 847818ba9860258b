package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Subscriber receives a session snapshot on every published change.
type Subscriber func(Session)

// Controller is the authoritative owner of the in-memory session. It
// holds exactly one subscription to the identity provider's change
// stream, and those events are the only writer of the session status:
// SignIn and SignOut delegate to the provider and wait for the
// resulting event to land.
type Controller struct {
	provider IdentityProvider
	profiles ProfileStore
	cfg      Config

	cookies   CookieJar
	refresher *Refresher
	redirects *RedirectCoordinator
	sink      ActivitySink
	logger    Logger
	now       func() time.Time

	// procMu serializes provider-event processing so events are applied
	// in arrival order, one at a time, emissions included.
	procMu sync.Mutex

	mu          sync.Mutex
	started     bool
	disposed    bool
	unsubscribe Unsubscribe
	generation  uint64
	current     Session
	subscribers map[int]Subscriber
	nextSubID   int
}

// ControllerOption customizes controller construction.
type ControllerOption func(*Controller)

// WithLogger overrides the controller logger.
func WithLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCookieJar sets the jar the controller writes the token cookie
// through. Defaults to a no-op jar.
func WithCookieJar(jar CookieJar) ControllerOption {
	return func(c *Controller) {
		if jar != nil {
			c.cookies = jar
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ControllerOption {
	return func(c *Controller) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithActivitySink configures an ActivitySink for lifecycle events.
func WithActivitySink(sink ActivitySink) ControllerOption {
	return func(c *Controller) {
		c.sink = normalizeActivitySink(sink)
	}
}

// WithRedirectCoordinator attaches a coordinator that observes
// authenticated transitions and performs the captured navigation.
func WithRedirectCoordinator(rc *RedirectCoordinator) ControllerOption {
	return func(c *Controller) {
		c.redirects = rc
	}
}

// NewController returns a new session Controller. The session starts
// in the initializing status and settles when the provider's first
// change event arrives after Start.
func NewController(provider IdentityProvider, profiles ProfileStore, cfg Config, opts ...ControllerOption) *Controller {
	c := &Controller{
		provider:    provider,
		profiles:    profiles,
		cfg:         cfg,
		cookies:     noopCookieJar{},
		sink:        noopActivitySink{},
		logger:      defLogger{},
		now:         time.Now,
		current:     Session{Status: StatusInitializing},
		subscribers: map[int]Subscriber{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.refresher = NewRefresher(c.renewCredential,
		WithRefresherMargin(cfg.GetRefreshSafetyMargin()),
		WithRefresherClock(c.now),
		WithRefresherLogger(c.logger),
	)

	return c
}

// Start subscribes to the provider's change stream. Calling it twice
// does not create a second subscription.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started || c.disposed {
		c.mu.Unlock()
		c.logger.Debug("controller start ignored, already started or disposed")
		return
	}
	c.started = true
	c.mu.Unlock()

	// Subscribe outside the lock: providers may deliver the first
	// event synchronously on the subscribing goroutine.
	unsubscribe := c.provider.Subscribe(c.handleProviderEvent)

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
}

// Dispose detaches the provider subscription, cancels any pending
// credential renewal, and drops all subscribers. The controller cannot
// be restarted afterwards.
func (c *Controller) Dispose() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.disposed = true
	c.subscribers = map[int]Subscriber{}
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.refresher.Cancel()
}

// Current returns a snapshot of the session.
func (c *Controller) Current() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Refresher exposes the credential refresher owned by this controller.
func (c *Controller) Refresher() *Refresher {
	return c.refresher
}

// Subscribe registers a subscriber and immediately delivers the
// current snapshot so late subscribers do not miss the settled state.
func (c *Controller) Subscribe(fn Subscriber) Unsubscribe {
	if fn == nil {
		return func() {}
	}

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	snapshot := c.current
	c.mu.Unlock()

	fn(snapshot)

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// SignIn delegates to the provider. On rejection it records the error
// and returns it to the caller; the session status is left untouched,
// the provider event stream is the only writer of status.
func (c *Controller) SignIn(ctx context.Context, email, password string) error {
	c.setLastError("")

	if err := c.provider.SignInWithPassword(ctx, email, password); err != nil {
		authErr := NewAuthenticationFailed(err, "sign in rejected")
		c.setLastError(authErr.Error())
		c.recordActivity(ctx, ActivityEventLoginFailure, "", map[string]any{
			"email": email,
			"error": err.Error(),
		})
		return authErr
	}

	return nil
}

// SignUp delegates account creation to the provider, with the same
// error contract as SignIn.
func (c *Controller) SignUp(ctx context.Context, email, password, displayName string) error {
	c.setLastError("")

	if err := c.provider.SignUpWithPassword(ctx, email, password, displayName); err != nil {
		authErr := NewAuthenticationFailed(err, "sign up rejected")
		c.setLastError(authErr.Error())
		c.recordActivity(ctx, ActivityEventSignUpFailure, "", map[string]any{
			"email": email,
			"error": err.Error(),
		})
		return authErr
	}

	c.recordActivity(ctx, ActivityEventSignUpSuccess, "", map[string]any{
		"email": email,
	})

	return nil
}

// SignOut delegates to the provider; the resulting nil event is what
// actually clears the session state.
func (c *Controller) SignOut(ctx context.Context) error {
	return c.provider.SignOut(ctx)
}

// ResetPassword delegates a reset request to the provider. Errors
// surface to the caller; the session state is unaffected.
func (c *Controller) ResetPassword(ctx context.Context, email string) error {
	if err := c.provider.SendPasswordReset(ctx, email); err != nil {
		return NewAuthenticationFailed(err, "password reset rejected")
	}

	c.recordActivity(ctx, ActivityEventPasswordReset, "", map[string]any{
		"email": email,
	})

	return nil
}

func (c *Controller) handleProviderEvent(identity Identity) {
	c.procMu.Lock()
	defer c.procMu.Unlock()

	c.mu.Lock()
	c.generation++
	c.mu.Unlock()

	if identity == nil {
		c.applySignedOut("")
		return
	}

	ctx := context.Background()

	profile, syncErr := c.syncProfile(ctx, identity)
	if syncErr != nil {
		c.logger.Warn("profile sync degraded for %s: %v", identity.ID(), syncErr)
	}

	credential, err := c.provider.FreshCredential(ctx, false)
	if err != nil {
		// Without a credential the identity cannot be confirmed usable:
		// fail open to unauthenticated rather than staying stuck.
		c.logger.Error("credential fetch failed for %s: %v", identity.ID(), err)
		c.recordActivity(ctx, ActivityEventLoginFailure, identity.ID(), map[string]any{
			"error": err.Error(),
		})
		c.applySignedOut(err.Error())
		return
	}

	// The cookie write happens before the authenticated emission so the
	// cookie and the observable status never disagree.
	c.cookies.Set(TokenCookie(c.cfg, credential, c.now()))

	next := Session{
		Status:   StatusAuthenticated,
		Identity: identity,
		Profile:  profile,
	}
	if syncErr != nil {
		next.LastError = syncErr.Error()
	}
	c.apply(next)

	c.refresher.Schedule(credential.ExpiresAt)

	c.recordActivity(ctx, ActivityEventLoginSuccess, identity.ID(), nil)
	c.observeRedirect(next.Status)
}

// applySignedOut clears the cookie, cancels pending renewal, and
// publishes the unauthenticated session. Cookie clear happens before
// the emission, mirroring the authenticated path.
func (c *Controller) applySignedOut(lastError string) {
	c.refresher.Cancel()
	c.cookies.Set(ClearedTokenCookie(c.cfg, c.now()))
	c.apply(Session{Status: StatusUnauthenticated, LastError: lastError})
	if lastError == "" {
		c.recordActivity(context.Background(), ActivityEventLogout, "", nil)
	}
}

// syncProfile resolves the authoritative profile for the identity:
// upsert-on-first-login when absent, otherwise touch last-login in
// place and re-read to guard against read-after-write races on an
// eventually consistent store. A returned error is degradation, not
// failure: the accompanying profile is still usable.
func (c *Controller) syncProfile(ctx context.Context, identity Identity) (*Profile, error) {
	now := c.now()

	existing, err := c.profiles.Get(ctx, identity.ID())
	if err != nil && !IsProfileNotFound(err) {
		return fallbackProfile(identity, now), NewProfileSyncDegraded(err, identity.ID())
	}

	if err != nil || existing == nil {
		record := &Profile{
			Email:       identity.Email(),
			Premium:     false,
			CreatedAt:   &now,
			LastLoginAt: &now,
		}
		created, uerr := c.profiles.Upsert(ctx, identity.ID(), record)
		if uerr != nil {
			return fallbackProfile(identity, now), NewProfileSyncDegraded(uerr, identity.ID())
		}
		c.recordActivity(ctx, ActivityEventProfileCreated, identity.ID(), nil)
		if created == nil {
			created = record
		}
		return created, nil
	}

	existing.LastLoginAt = &now
	if _, uerr := c.profiles.Upsert(ctx, identity.ID(), existing); uerr != nil {
		return existing, NewProfileSyncDegraded(uerr, identity.ID())
	}

	fresh, rerr := c.profiles.Get(ctx, identity.ID())
	if rerr != nil || fresh == nil {
		return existing, NewProfileSyncDegraded(rerr, identity.ID())
	}

	return fresh, nil
}

// renewCredential is the refresher callback. A renewal that lands
// after a newer provider event superseded the session is discarded.
func (c *Controller) renewCredential(ctx context.Context) (Credential, error) {
	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()

	credential, err := c.provider.FreshCredential(ctx, true)
	if err != nil {
		c.recordActivity(ctx, ActivityEventTokenRefreshFailure, "", map[string]any{
			"error": err.Error(),
		})
		return Credential{}, NewTokenRefreshFailed(err)
	}

	c.mu.Lock()
	stale := generation != c.generation || c.current.Status != StatusAuthenticated
	c.mu.Unlock()
	if stale {
		return Credential{}, errStaleRenewal
	}

	c.cookies.Set(TokenCookie(c.cfg, credential, c.now()))
	c.recordActivity(ctx, ActivityEventTokenRefreshed, "", nil)

	return credential, nil
}

func (c *Controller) apply(next Session) {
	c.mu.Lock()
	prev := c.current
	if !canTransition(prev.Status, next.Status) {
		c.mu.Unlock()
		c.logger.Warn("ignoring illegal session transition %s -> %s", prev.Status, next.Status)
		return
	}
	c.current = next
	subscribers := c.snapshotSubscribersLocked()
	c.mu.Unlock()

	for _, fn := range subscribers {
		fn(next)
	}
}

func (c *Controller) snapshotSubscribersLocked() []Subscriber {
	ids := make([]int, 0, len(c.subscribers))
	for id := range c.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]Subscriber, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.subscribers[id])
	}
	return out
}

func (c *Controller) setLastError(message string) {
	c.mu.Lock()
	c.current.LastError = message
	c.mu.Unlock()
}

func (c *Controller) observeRedirect(status Status) {
	if c.redirects != nil {
		c.redirects.Consume(status)
	}
}

func (c *Controller) recordActivity(ctx context.Context, eventType ActivityEventType, identityID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		IdentityID: identityID,
		Metadata:   metadata,
		OccurredAt: c.now(),
	}

	if err := normalizeActivitySink(c.sink).Record(ctx, event); err != nil {
		c.logger.Warn("activity sink record error: %v", err)
	}
}

func fallbackProfile(identity Identity, now time.Time) *Profile {
	return &Profile{
		Email:       identity.Email(),
		LastLoginAt: &now,
	}
}
