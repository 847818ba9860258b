package session

import (
	"context"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// LocalProvider is a password-based IdentityProvider backed by the
// accounts repository and the local token service. It keeps the
// sign-in state of a single session and notifies subscribers on every
// change, which makes it both the default standalone provider and the
// reference implementation for wiring external ones.
type LocalProvider struct {
	repo   RepositoryManager
	tokens TokenService
	logger Logger
	clock  func() time.Time

	// Deterministic account ids derived from the email let profile
	// records keep the same key across re-registrations in dev setups.
	useHashid bool

	mu        sync.Mutex
	current   Identity
	listeners map[int]func(Identity)
	nextID    int
}

// LocalProviderOption customizes provider construction.
type LocalProviderOption func(*LocalProvider)

// WithLocalProviderLogger overrides the provider logger.
func WithLocalProviderLogger(logger Logger) LocalProviderOption {
	return func(p *LocalProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithLocalProviderClock injects a custom clock (useful for tests).
func WithLocalProviderClock(clock func() time.Time) LocalProviderOption {
	return func(p *LocalProvider) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithLocalProviderHashid derives account ids from the email address.
func WithLocalProviderHashid() LocalProviderOption {
	return func(p *LocalProvider) {
		p.useHashid = true
	}
}

// NewLocalProvider returns a provider verifying passwords against the
// accounts repository and minting credentials with the token service.
func NewLocalProvider(repo RepositoryManager, tokens TokenService, opts ...LocalProviderOption) *LocalProvider {
	p := &LocalProvider{
		repo:      repo,
		tokens:    tokens,
		logger:    defLogger{},
		clock:     time.Now,
		listeners: map[int]func(Identity){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// Subscribe registers a change listener and synchronously delivers the
// current state so subscribers always observe a first event.
func (p *LocalProvider) Subscribe(onChange func(Identity)) Unsubscribe {
	if onChange == nil {
		return func() {}
	}

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = onChange
	current := p.current
	p.mu.Unlock()

	onChange(current)

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// SignInWithPassword verifies the credentials and, on success, emits
// the identity on the change stream.
func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) error {
	payload := signInPayload{Email: email, Password: password}
	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sign in payload")
	}

	account, err := p.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrMismatchedHashAndPassword
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during verification")
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return err
	}

	p.emit(NewIdentityFromAccount(account))
	return nil
}

// SignUpWithPassword creates an account and immediately signs it in.
func (p *LocalProvider) SignUpWithPassword(ctx context.Context, email, password, displayName string) error {
	payload := signUpPayload{Email: email, Password: password, DisplayName: displayName}
	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sign up payload")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	account := &Account{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	}

	if p.useHashid {
		if id, herr := hashid.NewUUID(normalizeEmail(email)); herr == nil {
			account.ID = id
		}
	}

	created, err := p.repo.Accounts().Register(ctx, account)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
	}

	p.emit(NewIdentityFromAccount(created))
	return nil
}

// SignOut clears the provider session; subscribers receive a nil
// identity.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.emit(nil)
	return nil
}

// SendPasswordReset records a reset request for the account. Unknown
// emails succeed silently so the endpoint cannot be used to probe for
// accounts.
func (p *LocalProvider) SendPasswordReset(ctx context.Context, email string) error {
	if err := (validation.Errors{
		"email": validation.Validate(email, validation.Required, is.Email),
	}).Filter(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password reset payload")
	}

	account, err := p.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			p.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account for reset")
	}

	reset := &PasswordReset{
		ID:        uuid.New(),
		AccountID: &account.ID,
		Email:     account.Email,
		Status:    ResetRequestedStatus,
	}

	if _, err := p.repo.PasswordResets().Create(ctx, reset); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not record password reset request")
	}

	return nil
}

// FreshCredential mints a new access credential for the signed-in
// identity. forceRefresh is accepted for interface parity; local
// minting always produces a fresh token.
func (p *LocalProvider) FreshCredential(ctx context.Context, forceRefresh bool) (Credential, error) {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	if current == nil {
		return Credential{}, ErrNoActiveSession
	}

	return p.tokens.Issue(current, nil)
}

// emit updates the current identity and notifies listeners outside the
// provider lock, since listeners routinely call back into the
// provider.
func (p *LocalProvider) emit(identity Identity) {
	p.mu.Lock()
	p.current = identity
	listeners := make([]func(Identity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(identity)
	}
}

var _ IdentityProvider = (*LocalProvider)(nil)

type signInPayload struct {
	Email    string
	Password string
}

func (r signInPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

type signUpPayload struct {
	Email       string
	Password    string
	DisplayName string
}

func (r signUpPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(&r.DisplayName, validation.Required, validation.Length(1, 200)),
	)
}
