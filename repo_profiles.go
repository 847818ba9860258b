package session

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles is the repository for profile records.
type Profiles interface {
	repository.Repository[*Profile]

	GetByIdentity(ctx context.Context, identityID string) (*Profile, error)
	GetByIdentityTx(ctx context.Context, tx bun.IDB, identityID string) (*Profile, error)
	EnsureForIdentity(ctx context.Context, identityID string, record *Profile) (*Profile, error)
	EnsureForIdentityTx(ctx context.Context, tx bun.IDB, identityID string, record *Profile) (*Profile, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	TouchLastLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
)

// NewProfilesRepository returns the bun-backed Profiles repository.
func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (a *profiles) GetByIdentity(ctx context.Context, identityID string) (*Profile, error) {
	return a.GetByIdentityTx(ctx, a.db, identityID)
}

func (a *profiles) GetByIdentityTx(ctx context.Context, tx bun.IDB, identityID string) (*Profile, error) {
	id, err := parseIdentityID(identityID)
	if err != nil {
		return nil, err
	}

	record := &Profile{}
	err = tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"identity_id": identityID,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *profiles) EnsureForIdentity(ctx context.Context, identityID string, record *Profile) (*Profile, error) {
	return a.EnsureForIdentityTx(ctx, a.db, identityID, record)
}

// EnsureForIdentityTx creates the profile keyed by the identity id if
// it is absent and updates it in place otherwise: repeat calls for the
// same identity never produce a second record.
func (a *profiles) EnsureForIdentityTx(ctx context.Context, tx bun.IDB, identityID string, record *Profile) (*Profile, error) {
	id, err := parseIdentityID(identityID)
	if err != nil {
		return nil, err
	}
	record.ID = id

	existing, err := a.GetByIdentityTx(ctx, tx, identityID)
	if err == nil {
		record.CreatedAt = existing.CreatedAt
		return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *profiles) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return a.TouchLastLoginTx(ctx, a.db, id, at)
}

func (a *profiles) TouchLastLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	_, err := tx.NewRaw(`
		UPDATE "profiles" AS "prf"
		SET
			"last_login_at" = ?,
			"updated_at" = ?
		WHERE
			("prf".id = ?)
			AND "prf"."deleted_at" IS NULL;
	`, at, at, id).Exec(ctx)

	return err
}

func parseIdentityID(identityID string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(identityID))
	if err != nil {
		return uuid.Nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"identity_id": identityID,
				"reason":      "identity id is not a valid uuid",
			})
	}
	return id, nil
}

// bunProfileStore adapts the Profiles repository to the ProfileStore
// capability consumed by the Controller.
type bunProfileStore struct {
	repo Profiles
}

// NewProfileStore wraps a Profiles repository as a ProfileStore.
func NewProfileStore(repo Profiles) ProfileStore {
	return &bunProfileStore{repo: repo}
}

func (s *bunProfileStore) Get(ctx context.Context, identityID string) (*Profile, error) {
	return s.repo.GetByIdentity(ctx, identityID)
}

func (s *bunProfileStore) Upsert(ctx context.Context, identityID string, profile *Profile) (*Profile, error) {
	return s.repo.EnsureForIdentity(ctx, identityID, profile)
}

var _ ProfileStore = (*bunProfileStore)(nil)
