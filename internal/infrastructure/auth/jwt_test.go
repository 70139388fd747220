package auth

import (
	"testing"
	"time"

	"github.com/arflow/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "arflow-test",
		MaxRefreshCount:        3,
	})
}

func newTestSubject() Subject {
	return Subject{
		OrganizationID: uuid.New(),
		UserID:         uuid.New(),
		Email:          "ap@example.com",
		Role:           "MANAGER",
	}
}

func TestNewJWTService_UsesSecretForRefreshIfNotProvided(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret"})
	assert.Equal(t, []byte("test-secret"), svc.refreshSecret)
}

func TestGenerateTokenPair(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.GenerateTokenPair(newTestSubject())
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))
}

func TestValidateAccessToken(t *testing.T) {
	svc := newTestJWTService()
	sub := newTestSubject()
	customerID := uuid.New()
	sub.Role = "CUSTOMER"
	sub.CustomerID = &customerID

	pair, err := svc.GenerateTokenPair(sub)
	require.NoError(t, err)

	t.Run("returns identity claims", func(t *testing.T) {
		claims, err := svc.ValidateAccessToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, sub.OrganizationID, claims.OrganizationUUID())
		assert.Equal(t, sub.UserID, claims.UserUUID())
		assert.Equal(t, "CUSTOMER", claims.Role)
		assert.Equal(t, "ap@example.com", claims.Email)
		require.NotNil(t, claims.CustomerUUID())
		assert.Equal(t, customerID, *claims.CustomerUUID())
		assert.NotEmpty(t, claims.ID)
		assert.True(t, claims.RemainingTTL(time.Now()) > 14*time.Minute)
	})

	t.Run("rejects refresh token", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(pair.RefreshToken)
		assert.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects token signed with another secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "another-secret-key-at-least-32-ch",
			AccessTokenExpiration: time.Minute,
			Issuer:                "arflow-test",
		})
		_, err := other.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects another issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars",
			AccessTokenExpiration: time.Minute,
			Issuer:                "someone-else",
		})
		_, err := other.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc := newTestJWTService()
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	pair, err := svc.GenerateTokenPair(newTestSubject())
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRefreshToken_WrongType(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{
		Secret:                 "shared-secret-key-at-least-32-chars",
		AccessTokenExpiration:  time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "arflow-test",
	})
	pair, err := svc.GenerateTokenPair(newTestSubject())
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestRotateTokenPair(t *testing.T) {
	svc := newTestJWTService()
	sub := newTestSubject()

	pair, err := svc.GenerateTokenPair(sub)
	require.NoError(t, err)
	refresh, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, refresh.Role)

	t.Run("picks up the reloaded role and increments count", func(t *testing.T) {
		promoted := sub
		promoted.Role = "ADMIN"

		next, err := svc.RotateTokenPair(refresh, promoted)
		require.NoError(t, err)

		access, err := svc.ValidateAccessToken(next.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "ADMIN", access.Role)

		nextRefresh, err := svc.ValidateRefreshToken(next.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, 1, nextRefresh.RefreshCount)
	})

	t.Run("rejects a different user", func(t *testing.T) {
		other := newTestSubject()
		_, err := svc.RotateTokenPair(refresh, other)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("enforces max refresh count", func(t *testing.T) {
		claims := *refresh
		claims.RefreshCount = 3
		_, err := svc.RotateTokenPair(&claims, sub)
		assert.ErrorIs(t, err, ErrMaxRefreshExceeded)
	})

	t.Run("rejects access claims", func(t *testing.T) {
		claims := *refresh
		claims.TokenType = TokenTypeAccess
		_, err := svc.RotateTokenPair(&claims, sub)
		assert.ErrorIs(t, err, ErrInvalidTokenType)
	})
}

func TestClaims_CustomerUUID(t *testing.T) {
	assert.Nil(t, (&Claims{}).CustomerUUID())
	assert.Nil(t, (&Claims{CustomerID: "bogus"}).CustomerUUID())
}
