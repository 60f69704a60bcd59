package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborcrm/harborai/internal/domain"
)

// TenantSettingsRepository reads per-tenant pipeline settings.
type TenantSettingsRepository struct {
	pool *pgxpool.Pool
}

func NewTenantSettingsRepository(pool *pgxpool.Pool) *TenantSettingsRepository {
	return &TenantSettingsRepository{pool: pool}
}

// GetEmbeddingKey returns the tenant's embedding API key, or "" when the
// tenant has no row or left the key unset.
func (r *TenantSettingsRepository) GetEmbeddingKey(ctx context.Context, scope domain.Scope) (string, error) {
	scopeColumn := "user_id"
	if scope.IsTeam() {
		scopeColumn = "team_id"
	}

	var key *string
	err := r.pool.QueryRow(ctx,
		`SELECT embedding_api_key FROM tenant_settings WHERE `+scopeColumn+` = $1`,
		scope.Key(),
	).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if key == nil {
		return "", nil
	}
	return *key, nil
}

// SetEmbeddingKey stores or replaces the tenant's embedding API key.
func (r *TenantSettingsRepository) SetEmbeddingKey(ctx context.Context, scope domain.Scope, key string) error {
	if err := domain.ValidateScope(scope); err != nil {
		return err
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO tenant_settings (user_id, team_id, embedding_api_key, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, team_id)
		 DO UPDATE SET embedding_api_key = EXCLUDED.embedding_api_key, updated_at = now()`,
		nullableString(scope.UserID),
		nullableString(scope.TeamID),
		nullableString(key),
	)
	return err
}
