package session_test

import (
	"testing"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings!
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := session.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)

			err = session.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := session.HashPassword(password)
	require.NoError(t, err)

	t.Run("matching password", func(t *testing.T) {
		assert.NoError(t, session.ComparePasswordAndHash(password, hash))
	})

	t.Run("wrong password", func(t *testing.T) {
		err := session.ComparePasswordAndHash("notThePassword", hash)
		require.Error(t, err)
		assert.ErrorIs(t, err, session.ErrMismatchedHashAndPassword)
	})

	t.Run("invalid hash", func(t *testing.T) {
		err := session.ComparePasswordAndHash(password, "not-a-bcrypt-hash")
		assert.Error(t, err)
	})
}

func TestRandomPasswordHash(t *testing.T) {
	first := session.RandomPasswordHash()
	second := session.RandomPasswordHash()

	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
}
