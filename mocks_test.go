package session_test

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-router"
	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/mock"
)

// TestIdentity implements session.Identity
type TestIdentity struct {
	id    string
	email string
}

func (t TestIdentity) ID() string    { return t.id }
func (t TestIdentity) Email() string { return t.email }

// fakeProvider is a scriptable session.IdentityProvider. Tests drive
// the change stream by calling Emit directly or by letting the
// password operations emit on success.
type fakeProvider struct {
	mu        sync.Mutex
	listeners []func(session.Identity)

	subscribeCalls int

	signInErr error
	signUpErr error
	resetErr  error

	// identity emitted when a password operation succeeds
	identity session.Identity

	credential     session.Credential
	credErr        error
	credCalls      int
	forcedRefresh  int
	resetRequested []string
}

func (p *fakeProvider) Subscribe(onChange func(session.Identity)) session.Unsubscribe {
	p.mu.Lock()
	p.subscribeCalls++
	p.listeners = append(p.listeners, onChange)
	p.mu.Unlock()
	return func() {}
}

func (p *fakeProvider) Emit(identity session.Identity) {
	p.mu.Lock()
	listeners := append([]func(session.Identity){}, p.listeners...)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(identity)
	}
}

func (p *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) error {
	if p.signInErr != nil {
		return p.signInErr
	}
	p.Emit(p.identity)
	return nil
}

func (p *fakeProvider) SignUpWithPassword(ctx context.Context, email, password, displayName string) error {
	if p.signUpErr != nil {
		return p.signUpErr
	}
	p.Emit(p.identity)
	return nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.Emit(nil)
	return nil
}

func (p *fakeProvider) SendPasswordReset(ctx context.Context, email string) error {
	if p.resetErr != nil {
		return p.resetErr
	}
	p.mu.Lock()
	p.resetRequested = append(p.resetRequested, email)
	p.mu.Unlock()
	return nil
}

func (p *fakeProvider) FreshCredential(ctx context.Context, forceRefresh bool) (session.Credential, error) {
	p.mu.Lock()
	p.credCalls++
	if forceRefresh {
		p.forcedRefresh++
	}
	cred, err := p.credential, p.credErr
	p.mu.Unlock()
	return cred, err
}

// memStore is an in-memory session.ProfileStore with fault injection.
type memStore struct {
	mu       sync.Mutex
	records  map[string]*session.Profile
	getErr   error
	writeErr error

	getCalls    int
	upsertCalls int
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*session.Profile{}}
}

func (s *memStore) Get(ctx context.Context, identityID string) (*session.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	record, ok := s.records[identityID]
	if !ok {
		return nil, session.NewProfileNotFound(identityID)
	}
	clone := *record
	return &clone, nil
}

func (s *memStore) Upsert(ctx context.Context, identityID string, profile *session.Profile) (*session.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertCalls++
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	clone := *profile
	s.records[identityID] = &clone
	out := clone
	return &out, nil
}

// captureJar records every cookie the controller writes, in order.
type captureJar struct {
	mu      sync.Mutex
	cookies []*router.Cookie
}

func (j *captureJar) Set(cookie *router.Cookie) {
	j.mu.Lock()
	j.cookies = append(j.cookies, cookie)
	j.mu.Unlock()
}

func (j *captureJar) last() *router.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.cookies) == 0 {
		return nil
	}
	return j.cookies[len(j.cookies)-1]
}

// stubNavigator records navigations and reports a fixed current path.
type stubNavigator struct {
	mu        sync.Mutex
	current   string
	navigated []string
}

func (n *stubNavigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *stubNavigator) Navigate(path string) {
	n.mu.Lock()
	n.navigated = append(n.navigated, path)
	n.mu.Unlock()
}

func (n *stubNavigator) paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.navigated...)
}

// capturingSink collects activity events for assertions.
type capturingSink struct {
	mu     sync.Mutex
	events []session.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, event session.ActivityEvent) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	return nil
}

func (c *capturingSink) types() []session.ActivityEventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]session.ActivityEventType, 0, len(c.events))
	for _, evt := range c.events {
		out = append(out, evt.EventType)
	}
	return out
}

func (c *capturingSink) has(eventType session.ActivityEventType) bool {
	for _, et := range c.types() {
		if et == eventType {
			return true
		}
	}
	return false
}

// testConfig implements session.Config with plain fields.
type testConfig struct {
	signingKey         string
	signingMethod      string
	issuer             string
	audience           []string
	tokenTTL           time.Duration
	refreshMargin      time.Duration
	cookieName         string
	cookiePath         string
	contextKey         string
	returnToParam      string
	rejectedRouteKey   string
	defaultDestination string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:    "test-signing-secret",
		signingMethod: "HS256",
		issuer:        "session-test",
		audience:      []string{"app:user"},
		tokenTTL:      time.Hour,
		refreshMargin: 5 * time.Minute,
	}
}

func (c *testConfig) GetSigningKey() string                 { return c.signingKey }
func (c *testConfig) GetSigningMethod() string              { return c.signingMethod }
func (c *testConfig) GetIssuer() string                     { return c.issuer }
func (c *testConfig) GetAudience() []string                 { return c.audience }
func (c *testConfig) GetTokenTTL() time.Duration            { return c.tokenTTL }
func (c *testConfig) GetRefreshSafetyMargin() time.Duration { return c.refreshMargin }
func (c *testConfig) GetCookieName() string                 { return c.cookieName }
func (c *testConfig) GetCookiePath() string                 { return c.cookiePath }
func (c *testConfig) GetContextKey() string                 { return c.contextKey }
func (c *testConfig) GetReturnToParam() string              { return c.returnToParam }
func (c *testConfig) GetRejectedRouteKey() string           { return c.rejectedRouteKey }
func (c *testConfig) GetDefaultDestination() string         { return c.defaultDestination }

// MockContext mocks router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
