package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prefvista/fiscal-api/internal/auth"
	"github.com/prefvista/fiscal-api/internal/config"
	"github.com/prefvista/fiscal-api/internal/domain"
)

func newTestIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()

	issuer, err := auth.NewTokenIssuer(&config.AuthConfig{
		JWTSecret: "test-secret-test-secret-test-secret",
		TokenTTL:  60,
		Issuer:    "fiscal-api-test",
	})
	require.NoError(t, err)
	return issuer
}

func testUser() *domain.User {
	user := &domain.User{
		Email:       "carlos@prefvista.gov.br",
		DisplayName: "Carlos Pereira",
		Role:        domain.RoleOperator,
	}
	user.ID = uuid.New()
	return user
}

func TestTokenIssuer_IssueAndValidate(t *testing.T) {
	issuer := newTestIssuer(t)
	user := testUser()

	token, expiresAt, err := issuer.Issue(user, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	userCtx, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userCtx.UserID)
	assert.Equal(t, user.Email, userCtx.Email)
	assert.Equal(t, user.DisplayName, userCtx.DisplayName)
	assert.Equal(t, domain.RoleOperator, userCtx.Role)
}

func TestTokenIssuer_ExpiredToken(t *testing.T) {
	issuer := newTestIssuer(t)

	token, _, err := issuer.Issue(testUser(), time.Now().UTC().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestTokenIssuer_RejectsBadTokens(t *testing.T) {
	issuer := newTestIssuer(t)

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Validate("not-a-token")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("tampered signature", func(t *testing.T) {
		token, _, err := issuer.Issue(testUser(), time.Now().UTC())
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]

		_, err = issuer.Validate(tampered)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other, err := auth.NewTokenIssuer(&config.AuthConfig{
			JWTSecret: "another-secret-another-secret",
			TokenTTL:  60,
			Issuer:    "fiscal-api-test",
		})
		require.NoError(t, err)

		token, _, err := other.Issue(testUser(), time.Now().UTC())
		require.NoError(t, err)

		_, err = issuer.Validate(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := auth.NewTokenIssuer(&config.AuthConfig{
			JWTSecret: "test-secret-test-secret-test-secret",
			TokenTTL:  60,
			Issuer:    "someone-else",
		})
		require.NoError(t, err)

		token, _, err := other.Issue(testUser(), time.Now().UTC())
		require.NoError(t, err)

		_, err = issuer.Validate(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := auth.NewTokenIssuer(&config.AuthConfig{TokenTTL: 60})
	assert.Error(t, err)
}
