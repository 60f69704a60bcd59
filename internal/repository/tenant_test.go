//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborcrm/harborai/internal/domain"
	"github.com/harborcrm/harborai/internal/testutil"
)

func TestTenantSettingsRepository_GetEmbeddingKey(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTenantSettingsRepository(pool)

	// No row yet: empty key, no error.
	key, err := repo.GetEmbeddingKey(ctx, domain.UserScope("user-1"))
	require.NoError(t, err)
	assert.Empty(t, key)

	require.NoError(t, repo.SetEmbeddingKey(ctx, domain.UserScope("user-1"), "sk-user-own"))
	require.NoError(t, repo.SetEmbeddingKey(ctx, domain.TeamScope("team-1"), "sk-team-own"))

	key, err = repo.GetEmbeddingKey(ctx, domain.UserScope("user-1"))
	require.NoError(t, err)
	assert.Equal(t, "sk-user-own", key)

	key, err = repo.GetEmbeddingKey(ctx, domain.TeamScope("team-1"))
	require.NoError(t, err)
	assert.Equal(t, "sk-team-own", key)

	// Keys do not leak across scopes.
	key, err = repo.GetEmbeddingKey(ctx, domain.UserScope("user-2"))
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestTenantSettingsRepository_SetEmbeddingKeyReplaces(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTenantSettingsRepository(pool)
	scope := domain.TeamScope("team-1")

	require.NoError(t, repo.SetEmbeddingKey(ctx, scope, "sk-old"))
	require.NoError(t, repo.SetEmbeddingKey(ctx, scope, "sk-new"))

	key, err := repo.GetEmbeddingKey(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, "sk-new", key)
}

func TestTenantSettingsRepository_SetEmbeddingKeyInvalidScope(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTenantSettingsRepository(pool)

	err := repo.SetEmbeddingKey(ctx, domain.Scope{}, "sk-any")
	assert.ErrorIs(t, err, domain.ErrInvalidScope)
}
