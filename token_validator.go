package session

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// JWKSValidator validates provider-issued tokens against a remote JWK
// Set, for deployments where the identity provider signs credentials
// with its own rotating keys instead of the local HS256 service.
type JWKSValidator struct {
	jwks     *keyfunc.JWKS
	issuer   string
	audience []string
	logger   Logger
}

// JWKSValidatorOption customizes validator construction.
type JWKSValidatorOption func(*JWKSValidator)

// WithJWKSIssuer requires tokens to carry the given issuer.
func WithJWKSIssuer(issuer string) JWKSValidatorOption {
	return func(v *JWKSValidator) {
		v.issuer = issuer
	}
}

// WithJWKSAudience requires tokens to carry the given audience.
func WithJWKSAudience(audience []string) JWKSValidatorOption {
	return func(v *JWKSValidator) {
		v.audience = audience
	}
}

// WithJWKSLogger overrides the validator logger.
func WithJWKSLogger(logger Logger) JWKSValidatorOption {
	return func(v *JWKSValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewJWKSValidator fetches the JWK Set from the given URL and keeps it
// refreshed in the background.
func NewJWKSValidator(jwksURL string, opts ...JWKSValidatorOption) (*JWKSValidator, error) {
	v := &JWKSValidator{
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			v.logger.Warn("background refresh of JWK Set failed: %v", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to get JWK Set")
	}

	v.jwks = jwks
	return v, nil
}

// Validate implements TokenValidator against the remote key set.
func (v *JWKSValidator) Validate(raw string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}
	if len(v.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(v.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, v.jwks.Keyfunc, parserOptions...)
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

	return nil, ErrTokenMalformed
}

// Close stops the background JWK Set refresh.
func (v *JWKSValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

var _ TokenValidator = (*JWKSValidator)(nil)
