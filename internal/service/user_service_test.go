package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/prefvista/fiscal-api/internal/auth"
	"github.com/prefvista/fiscal-api/internal/config"
	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/repository"
	"github.com/prefvista/fiscal-api/internal/service"
)

func newUserService(t *testing.T, db *gorm.DB) *service.UserService {
	t.Helper()

	issuer, err := auth.NewTokenIssuer(&config.AuthConfig{
		JWTSecret: "test-secret-test-secret-test-secret",
		TokenTTL:  60,
		Issuer:    "fiscal-api-test",
	})
	require.NoError(t, err)
	return service.NewUserService(repository.NewUserRepository(db), issuer, zap.NewNop())
}

func seedUser(t *testing.T, db *gorm.DB, email, password string, role domain.UserRole, active bool) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{
		Email:        email,
		DisplayName:  "Carlos Pereira",
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	repo := repository.NewUserRepository(db)
	require.NoError(t, repo.Create(context.Background(), user))

	// The is_active column carries a default of true, and an insert drops a
	// zero-value false, so deactivation has to go through an update.
	if !active {
		user.IsActive = false
		require.NoError(t, repo.Update(context.Background(), user))
	}
	return user
}

func TestUserService_Login(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(t, db)
	ctx := context.Background()

	seedUser(t, db, "carlos@prefvista.gov.br", "s3nh4forte", domain.RoleOperator, true)
	seedUser(t, db, "inativo@prefvista.gov.br", "s3nh4forte", domain.RoleViewer, false)

	t.Run("valid credentials issue a token and record the login", func(t *testing.T) {
		resp, err := svc.Login(ctx, &domain.LoginRequest{
			Email:    "carlos@prefvista.gov.br",
			Password: "s3nh4forte",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.NotEmpty(t, resp.ExpiresAt)
		assert.Equal(t, "carlos@prefvista.gov.br", resp.User.Email)
		assert.Equal(t, domain.RoleOperator, resp.User.Role)

		stored, err := repository.NewUserRepository(db).GetByEmail(ctx, "carlos@prefvista.gov.br")
		require.NoError(t, err)
		assert.NotNil(t, stored.LastLoginAt)
	})

	t.Run("email is matched case-insensitively", func(t *testing.T) {
		resp, err := svc.Login(ctx, &domain.LoginRequest{
			Email:    "  CARLOS@prefvista.gov.br ",
			Password: "s3nh4forte",
		})
		require.NoError(t, err)
		assert.Equal(t, "carlos@prefvista.gov.br", resp.User.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, &domain.LoginRequest{
			Email:    "carlos@prefvista.gov.br",
			Password: "errada",
		})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, &domain.LoginRequest{
			Email:    "ninguem@prefvista.gov.br",
			Password: "s3nh4forte",
		})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("deactivated account", func(t *testing.T) {
		_, err := svc.Login(ctx, &domain.LoginRequest{
			Email:    "inativo@prefvista.gov.br",
			Password: "s3nh4forte",
		})
		assert.ErrorIs(t, err, service.ErrUserInactive)
	})
}

func TestUserService_GetCurrent(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(t, db)

	user := seedUser(t, db, "carlos@prefvista.gov.br", "s3nh4forte", domain.RoleAdmin, true)

	t.Run("returns the authenticated user", func(t *testing.T) {
		ctx := auth.WithUserContext(context.Background(), &auth.UserContext{
			UserID:      user.ID,
			DisplayName: user.DisplayName,
			Email:       user.Email,
			Role:        user.Role,
		})
		dto, err := svc.GetCurrent(ctx)
		require.NoError(t, err)
		assert.Equal(t, user.Email, dto.Email)
		assert.Equal(t, domain.RoleAdmin, dto.Role)
	})

	t.Run("missing user context", func(t *testing.T) {
		_, err := svc.GetCurrent(context.Background())
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})
}

func TestUserService_EnsureBootstrapAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the first administrator on an empty table", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newUserService(t, db)

		err := svc.EnsureBootstrapAdmin(ctx, "admin@prefvista.gov.br", "s3nh4forte", "Administrador")
		require.NoError(t, err)

		resp, err := svc.Login(ctx, &domain.LoginRequest{
			Email:    "admin@prefvista.gov.br",
			Password: "s3nh4forte",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, resp.User.Role)
	})

	t.Run("does nothing when users already exist", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newUserService(t, db)
		seedUser(t, db, "carlos@prefvista.gov.br", "s3nh4forte", domain.RoleOperator, true)

		err := svc.EnsureBootstrapAdmin(ctx, "admin@prefvista.gov.br", "s3nh4forte", "Administrador")
		require.NoError(t, err)

		_, err = svc.Login(ctx, &domain.LoginRequest{
			Email:    "admin@prefvista.gov.br",
			Password: "s3nh4forte",
		})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("does nothing without credentials", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newUserService(t, db)

		require.NoError(t, svc.EnsureBootstrapAdmin(ctx, "", "", ""))
		users, err := repository.NewUserRepository(db).List(ctx)
		require.NoError(t, err)
		assert.Empty(t, users)
	})
}
