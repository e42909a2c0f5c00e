package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Scolaria-io/scolaria/internal/auth"
	"github.com/Scolaria-io/scolaria/internal/database"
	"github.com/Scolaria-io/scolaria/internal/models"
	"go.uber.org/zap"
)

func tokenCacheKey(userID string) string {
	return "token:" + userID
}

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	Name     string  `json:"name"`
	Grade    *string `json:"grade,omitempty"`
	ParentID *string `json:"parentId,omitempty"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RegisterHandler creates an account, seeds a free subscription for
// students, and returns a signed session token.
func (api *Api) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" || req.Name == "" || req.Role == "" {
		api.respondError(w, http.StatusBadRequest, "email, password, name and role are required")
		return
	}
	if !models.ValidRole(models.Role(req.Role)) {
		api.respondError(w, http.StatusBadRequest, "invalid role")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		api.logger.Error("failed to hash password", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user := &models.User{
		Email:    req.Email,
		Password: hash,
		Role:     models.Role(req.Role),
		Name:     req.Name,
		Grade:    req.Grade,
		ParentID: req.ParentID,
	}
	if err := api.store.CreateUser(r.Context(), user); err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}

	// Students start on the free plan. Other roles have no subscription row.
	if user.Role == models.RoleStudent {
		sub := &models.Subscription{
			UserID:    user.ID,
			Plan:      models.PlanFree,
			Status:    "active",
			StartDate: time.Now().UTC(),
		}
		if err := api.store.CreateSubscription(r.Context(), sub); err != nil {
			api.logger.Error("failed to seed free subscription",
				zap.String("user_id", user.ID), zap.Error(err))
			api.respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	token, err := api.issueSession(r, user, api.Config.SessionTTL())
	if err != nil {
		api.logger.Error("failed to issue session", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	api.respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// LoginHandler verifies credentials and returns a session token. Unknown
// email and wrong password produce the same response.
func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	user, err := api.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			api.respondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		api.respondStoreError(w, err, "user not found")
		return
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		api.respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	ttl := api.Config.SessionTTL()
	if req.Remember {
		ttl = api.Config.RememberTTL()
	}

	token, err := api.issueSession(r, user, ttl)
	if err != nil {
		api.logger.Error("failed to issue session", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	api.respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// issueSession signs a token and mirrors it into the cache. Tokens stay
// valid until expiry whether or not the cache entry survives.
func (api *Api) issueSession(r *http.Request, user *models.User, ttl time.Duration) (string, error) {
	token, err := api.tokens.GenerateToken(user, ttl)
	if err != nil {
		return "", err
	}
	if err := api.flags.Put(r.Context(), tokenCacheKey(user.ID), token, ttl); err != nil {
		api.logger.Warn("failed to cache session token",
			zap.String("user_id", user.ID), zap.Error(err))
	}
	return token, nil
}

// LogoutHandler drops the cached token. The token itself remains valid
// until it expires; logout is advisory.
func (api *Api) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := api.flags.Delete(r.Context(), tokenCacheKey(claims.UserID)); err != nil {
		api.logger.Warn("failed to drop cached token", zap.Error(err))
	}
	api.respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// MeHandler returns the account behind the presented token. A valid token
// for a deleted account yields 404.
func (api *Api) MeHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	user, err := api.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}
