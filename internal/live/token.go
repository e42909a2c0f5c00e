// Package live issues join tokens for the external video conferencing
// service. Tokens are signed locally; the service itself is never called.
package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 6 * time.Hour

var ErrNotConfigured = errors.New("live video credentials not configured")

// VideoGrant is the room permission block embedded in a join token.
type VideoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type joinClaims struct {
	Name     string     `json:"name"`
	Video    VideoGrant `json:"video"`
	Metadata string     `json:"metadata,omitempty"`
	jwt.RegisteredClaims
}

type participantMetadata struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Email  string `json:"email"`
}

// TokenIssuer signs join tokens with the video service's API credentials.
type TokenIssuer struct {
	apiKey    string
	apiSecret string
	url       string
}

// NewTokenIssuer creates a TokenIssuer. URL is handed back to clients
// alongside each token so they know where to connect.
func NewTokenIssuer(apiKey, apiSecret, url string) *TokenIssuer {
	return &TokenIssuer{apiKey: apiKey, apiSecret: apiSecret, url: url}
}

// URL returns the video service endpoint clients should dial.
func (ti *TokenIssuer) URL() string {
	return ti.url
}

// IssueToken signs a join token for user to enter room. Every participant
// may publish and subscribe; moderation happens inside the room.
func (ti *TokenIssuer) IssueToken(user *models.User, room string) (string, error) {
	if ti.apiKey == "" || ti.apiSecret == "" {
		return "", ErrNotConfigured
	}

	meta, err := json.Marshal(participantMetadata{
		UserID: user.ID,
		Role:   string(user.Role),
		Email:  user.Email,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode participant metadata: %w", err)
	}

	now := time.Now()
	claims := joinClaims{
		Name: user.Name,
		Video: VideoGrant{
			Room:           room,
			RoomJoin:       true,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
		Metadata: string(meta),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.apiKey,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(ti.apiSecret))
}

// CanCreateRoom reports whether the role may schedule live sessions.
func CanCreateRoom(role models.Role) bool {
	return role == models.RoleTeacher || role == models.RoleAdmin
}
