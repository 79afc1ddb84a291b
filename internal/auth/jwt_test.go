package auth

import (
	"testing"

	"photofix-api/config"
	"photofix-api/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService() *TokenService {
	return NewTokenService(&config.Config{
		JWT: config.JWTConfig{
			SecretKey:       "test-secret-key",
			AccessTokenTTL:  15,
			RefreshTokenTTL: 7,
		},
	})
}

func TestAccessTokenRoundtrip(t *testing.T) {
	ts := newTestTokenService()
	user := &models.User{
		ID:      uuid.New(),
		Email:   "user@example.com",
		IsAdmin: true,
	}

	token, err := ts.GenerateAccessToken(user)
	require.NoError(t, err)

	claims, err := ts.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "photofix-api", claims.Issuer)
	assert.Equal(t, user.ID.String(), claims.Subject)
}

func TestRefreshTokenRoundtrip(t *testing.T) {
	ts := newTestTokenService()
	userID := uuid.New()

	token, err := ts.GenerateRefreshToken(userID)
	require.NoError(t, err)

	claims, err := ts.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	ts := newTestTokenService()
	token, err := ts.GenerateAccessToken(&models.User{ID: uuid.New()})
	require.NoError(t, err)

	other := NewTokenService(&config.Config{
		JWT: config.JWTConfig{SecretKey: "different-secret", AccessTokenTTL: 15},
	})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	ts := NewTokenService(&config.Config{
		JWT: config.JWTConfig{SecretKey: "test-secret-key", AccessTokenTTL: -1},
	})

	token, err := ts.GenerateAccessToken(&models.User{ID: uuid.New()})
	require.NoError(t, err)

	_, err = ts.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	ts := newTestTokenService()
	_, err := ts.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	ts := newTestTokenService()

	token, err := ts.ExtractTokenFromHeader("Bearer abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	_, err = ts.ExtractTokenFromHeader("")
	assert.Error(t, err)

	_, err = ts.ExtractTokenFromHeader("Basic abc123")
	assert.Error(t, err)
}
