package auth

import (
	"testing"
	"time"

	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *models.User {
	return &models.User{
		ID:    "user-123",
		Email: "student@example.com",
		Role:  models.RoleStudent,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	tm := NewTokenManager("test-secret")

	token, err := tm.GenerateToken(testUser(), time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "student@example.com", claims.Email)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a").GenerateToken(testUser(), time.Hour)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret")
	token, err := tm.GenerateToken(testUser(), -time.Minute)
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateGarbageToken(t *testing.T) {
	tm := NewTokenManager("test-secret")
	_, err := tm.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
