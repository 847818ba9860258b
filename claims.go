package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims carried by locally minted access
// tokens.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserEmail string `json:"email,omitempty"`
	Premium   bool   `json:"prem,omitempty"`
}

// IdentityID returns the identity the token was issued for.
func (c *SessionClaims) IdentityID() string {
	return c.RegisteredClaims.Subject
}

// Email returns the email claim.
func (c *SessionClaims) Email() string {
	return c.UserEmail
}

// Expires returns the expiry instant, zero when unset.
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

type claimsIdentity struct {
	claims *SessionClaims
}

func (c claimsIdentity) ID() string    { return c.claims.IdentityID() }
func (c claimsIdentity) Email() string { return c.claims.Email() }

// NewIdentityFromClaims adapts validated token claims into the
// Identity interface for downstream guards.
func NewIdentityFromClaims(claims *SessionClaims) Identity {
	if claims == nil {
		return nil
	}
	return claimsIdentity{claims: claims}
}
