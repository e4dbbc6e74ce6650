package services

import (
	"context"
	"testing"

	"github.com/commercekit/loyalty-backend/internal/config"
	"github.com/commercekit/loyalty-backend/internal/models"
	"github.com/commercekit/loyalty-backend/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService() *AuthServiceImpl {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpiresIn = 3600
	return NewAuthService(memory.NewAdminUserRepository(), cfg)
}

func TestAuthService_LoginSuccess(t *testing.T) {
	svc := newTestAuthService()
	ctx := context.Background()

	created, err := svc.CreateAdminUser(ctx, "Ops", "Admin", "ops@example.com", "sup3rsecret", "admin")
	require.NoError(t, err)
	assert.Empty(t, created.Password, "hash must not leak")

	resp, err := svc.Login(ctx, &models.LoginRequest{Email: "ops@example.com", Password: "sup3rsecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.False(t, resp.ExpiresAt.IsZero())
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	svc := newTestAuthService()
	ctx := context.Background()

	_, err := svc.CreateAdminUser(ctx, "Ops", "Admin", "ops@example.com", "sup3rsecret", "admin")
	require.NoError(t, err)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "ops@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_LoginUnknownEmail(t *testing.T) {
	svc := newTestAuthService()

	_, err := svc.Login(context.Background(), &models.LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_DuplicateEmailRejected(t *testing.T) {
	svc := newTestAuthService()
	ctx := context.Background()

	_, err := svc.CreateAdminUser(ctx, "Ops", "Admin", "ops@example.com", "sup3rsecret", "admin")
	require.NoError(t, err)

	_, err = svc.CreateAdminUser(ctx, "Other", "Admin", "ops@example.com", "another", "admin")
	assert.Error(t, err)
}
