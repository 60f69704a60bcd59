package service

import (
	"context"

	"github.com/harborcrm/harborai/internal/domain"
)

// TenantSettingsRepository looks up per-tenant embedding credentials.
// An empty key with a nil error means the tenant has none configured.
type TenantSettingsRepository interface {
	GetEmbeddingKey(ctx context.Context, scope domain.Scope) (string, error)
}

// CredentialSource resolves embedding API credentials for a tenant scope.
type CredentialSource interface {
	Resolve(ctx context.Context, scope domain.Scope) (string, error)
}

// CredentialResolver resolves tenant keys from settings, falling back to a
// deployment-wide key when one is configured. Tenants are not guaranteed to
// share one global key.
type CredentialResolver struct {
	repo        TenantSettingsRepository
	fallbackKey string
}

// NewCredentialResolver creates a CredentialResolver. fallbackKey may be
// empty, in which case tenants without their own key cannot embed.
func NewCredentialResolver(repo TenantSettingsRepository, fallbackKey string) *CredentialResolver {
	return &CredentialResolver{
		repo:        repo,
		fallbackKey: fallbackKey,
	}
}

// Resolve returns the API key for scope, or domain.ErrCredentialsMissing
// when neither the tenant nor the deployment has one.
func (r *CredentialResolver) Resolve(ctx context.Context, scope domain.Scope) (string, error) {
	if err := domain.ValidateScope(scope); err != nil {
		return "", err
	}

	if r.repo != nil {
		key, err := r.repo.GetEmbeddingKey(ctx, scope)
		if err != nil {
			return "", domain.StorageError(err)
		}
		if key != "" {
			return key, nil
		}
	}

	if r.fallbackKey != "" {
		return r.fallbackKey, nil
	}

	return "", domain.ErrCredentialsMissing
}
