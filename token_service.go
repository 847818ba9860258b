package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService mints and validates the short-lived access credentials
// backing a session.
type TokenService interface {
	Issue(identity Identity, profile *Profile) (Credential, error)
	TokenValidator
}

// TokenValidator validates a raw token and returns its claims.
type TokenValidator interface {
	Validate(raw string) (*SessionClaims, error)
}

// TokenServiceImpl implements the TokenService interface with HS256
// signed tokens.
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	clock      func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}

	ttl := cfg.GetTokenTTL()
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		ttl:        ttl,
		issuer:     cfg.GetIssuer(),
		audience:   cfg.GetAudience(),
		logger:     logger,
		clock:      time.Now,
	}
}

// WithClock injects a custom clock (useful for tests).
func (ts *TokenServiceImpl) WithClock(clock func() time.Time) *TokenServiceImpl {
	if clock != nil {
		ts.clock = clock
	}
	return ts
}

// Issue mints a credential for the identity. The returned expiry is
// the token's own, so cookie lifetimes and renewal scheduling can be
// derived from it.
func (ts *TokenServiceImpl) Issue(identity Identity, profile *Profile) (Credential, error) {
	if identity == nil {
		return Credential{}, errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := ts.clock()
	expiresAt := now.Add(ts.ttl)

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserEmail: identity.Email(),
	}

	if profile != nil {
		claims.Premium = profile.PremiumActive(now)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return Credential{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return Credential{Token: signed, ExpiresAt: expiresAt}, nil
}

// Validate parses and validates a token string, returning its claims.
func (ts *TokenServiceImpl) Validate(raw string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("token validate could not decode claims")
	return nil, ErrTokenMalformed
}
