package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harborcrm/harborai/internal/domain"
)

// MockTenantSettingsRepo mocks the tenant settings lookup
type MockTenantSettingsRepo struct {
	mock.Mock
}

func (m *MockTenantSettingsRepo) GetEmbeddingKey(ctx context.Context, scope domain.Scope) (string, error) {
	args := m.Called(ctx, scope)
	return args.String(0), args.Error(1)
}

func TestCredentialResolver_TenantKey(t *testing.T) {
	mockRepo := new(MockTenantSettingsRepo)
	resolver := NewCredentialResolver(mockRepo, "sk-global")

	scope := domain.TeamScope("team-1")
	mockRepo.On("GetEmbeddingKey", mock.Anything, scope).Return("sk-team-own", nil)

	key, err := resolver.Resolve(context.Background(), scope)

	require.NoError(t, err)
	assert.Equal(t, "sk-team-own", key)
}

func TestCredentialResolver_FallbackKey(t *testing.T) {
	mockRepo := new(MockTenantSettingsRepo)
	resolver := NewCredentialResolver(mockRepo, "sk-global")

	scope := domain.UserScope("user-1")
	mockRepo.On("GetEmbeddingKey", mock.Anything, scope).Return("", nil)

	key, err := resolver.Resolve(context.Background(), scope)

	require.NoError(t, err)
	assert.Equal(t, "sk-global", key)
}

func TestCredentialResolver_Missing(t *testing.T) {
	mockRepo := new(MockTenantSettingsRepo)
	resolver := NewCredentialResolver(mockRepo, "")

	scope := domain.UserScope("user-1")
	mockRepo.On("GetEmbeddingKey", mock.Anything, scope).Return("", nil)

	_, err := resolver.Resolve(context.Background(), scope)

	assert.ErrorIs(t, err, domain.ErrCredentialsMissing)
}

func TestCredentialResolver_LookupFailure(t *testing.T) {
	mockRepo := new(MockTenantSettingsRepo)
	resolver := NewCredentialResolver(mockRepo, "sk-global")

	scope := domain.UserScope("user-1")
	mockRepo.On("GetEmbeddingKey", mock.Anything, scope).Return("", errors.New("db down"))

	_, err := resolver.Resolve(context.Background(), scope)

	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestCredentialResolver_InvalidScope(t *testing.T) {
	resolver := NewCredentialResolver(new(MockTenantSettingsRepo), "sk-global")

	_, err := resolver.Resolve(context.Background(), domain.Scope{})

	assert.ErrorIs(t, err, domain.ErrInvalidScope)
}

func TestCredentialResolver_NilRepoUsesFallback(t *testing.T) {
	resolver := NewCredentialResolver(nil, "sk-global")

	key, err := resolver.Resolve(context.Background(), domain.UserScope("user-1"))

	require.NoError(t, err)
	assert.Equal(t, "sk-global", key)
}
