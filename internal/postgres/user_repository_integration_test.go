package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	user, err := repo.Create(ctx, "alice", "hashed-secret")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "hashed-secret", user.PasswordHash)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byID.ID)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
}

func TestUserRepo_DuplicateUsername(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, "alice", "hash1")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "alice", "hash2")
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestUserRepo_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
