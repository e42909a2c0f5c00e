package live

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueToken(t *testing.T) {
	issuer := NewTokenIssuer("api-key", "api-secret", "wss://live.example.com")
	user := &models.User{
		ID:    "user-1",
		Email: "teacher@example.com",
		Role:  models.RoleTeacher,
		Name:  "Mme Dupont",
	}

	signed, err := issuer.IssueToken(user, "class-abc123")
	require.NoError(t, err)

	var claims joinClaims
	token, err := jwt.ParseWithClaims(signed, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("api-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, "api-key", claims.Issuer)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Mme Dupont", claims.Name)
	assert.Equal(t, "class-abc123", claims.Video.Room)
	assert.True(t, claims.Video.RoomJoin)
	assert.True(t, claims.Video.CanPublish)
	assert.True(t, claims.Video.CanSubscribe)
	assert.True(t, claims.Video.CanPublishData)
	assert.WithinDuration(t, time.Now().Add(6*time.Hour), claims.ExpiresAt.Time, time.Minute)

	var meta participantMetadata
	require.NoError(t, json.Unmarshal([]byte(claims.Metadata), &meta))
	assert.Equal(t, "user-1", meta.UserID)
	assert.Equal(t, "teacher", meta.Role)
	assert.Equal(t, "teacher@example.com", meta.Email)
}

func TestIssueTokenWithoutCredentials(t *testing.T) {
	issuer := NewTokenIssuer("", "", "")
	_, err := issuer.IssueToken(&models.User{ID: "u"}, "room")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCanCreateRoom(t *testing.T) {
	assert.True(t, CanCreateRoom(models.RoleTeacher))
	assert.True(t, CanCreateRoom(models.RoleAdmin))
	assert.False(t, CanCreateRoom(models.RoleStudent))
	assert.False(t, CanCreateRoom(models.RoleParent))
}
