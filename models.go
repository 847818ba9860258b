package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profile is the application-level profile record, one per identity.
// Created lazily on first successful authentication, never duplicated.
type Profile struct {
	bun.BaseModel      `bun:"table:profiles,alias:prf"`
	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email              string     `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName        string     `bun:"display_name" json:"display_name,omitempty"`
	Premium            bool       `bun:"is_premium" json:"is_premium,omitempty"`
	PremiumActivatedAt *time.Time `bun:"premium_activated_at,nullzero" json:"premium_activated_at,omitempty"`
	PremiumExpiresAt   *time.Time `bun:"premium_expires_at,nullzero" json:"premium_expires_at,omitempty"`
	LastLoginAt        *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt          *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// PremiumActive reports whether the premium flag is set and the
// premium window, when bounded, covers the given instant.
func (p *Profile) PremiumActive(now time.Time) bool {
	if p == nil || !p.Premium {
		return false
	}
	if p.PremiumExpiresAt != nil && !p.PremiumExpiresAt.After(now) {
		return false
	}
	return true
}

// Account is the credential record backing the local password
// provider. Profiles are keyed by the same id.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName   string     `bun:"display_name" json:"display_name,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"password_hash,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

type accountIdentity struct {
	id    string
	email string
}

func (a accountIdentity) ID() string    { return a.id }
func (a accountIdentity) Email() string { return a.email }

var _ Identity = accountIdentity{}

// NewIdentityFromAccount adapts an account into the Identity interface.
func NewIdentityFromAccount(account *Account) Identity {
	if account == nil {
		return nil
	}
	return accountIdentity{
		id:    account.ID.String(),
		email: account.Email,
	}
}

const (
	// ResetRequestedStatus is the requested status
	ResetRequestedStatus = "requested"
	// ResetExpiredStatus is the expired status
	ResetExpiredStatus = "expired"
	// ResetChangedStatus is the changed status
	ResetChangedStatus = "changed"
)

// PasswordReset records a password reset request for an account.
type PasswordReset struct {
	bun.BaseModel `bun:"table:password_reset,alias:pwdr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     *uuid.UUID `bun:"account_id,notnull" json:"account_id,omitempty"`
	Account       *Account   `bun:"rel:has-one,join:account_id=id" json:"account,omitempty"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	ResetedAt     *time.Time `bun:"reseted_at,nullzero" json:"reseted_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}
