package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Scolaria-io/scolaria/internal/auth"
	"github.com/Scolaria-io/scolaria/internal/live"
	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type liveTokenRequest struct {
	Room string `json:"room"`
}

// LiveTokenHandler issues a join token for a video room. Any authenticated
// account may join; room access control is the room creator's concern.
func (api *Api) LiveTokenHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req liveTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Room == "" {
		api.respondError(w, http.StatusBadRequest, "room is required")
		return
	}

	user, err := api.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}

	token, err := api.live.IssueToken(user, req.Room)
	if err != nil {
		if errors.Is(err, live.ErrNotConfigured) {
			api.respondError(w, http.StatusServiceUnavailable, "live video not configured")
			return
		}
		api.logger.Error("failed to issue live token", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	api.respondJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"url":   api.live.URL(),
	})
}

type createSessionRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CourseID    string     `json:"courseId"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
}

// CreateLiveSessionHandler schedules a live session with a generated room
// name. Restricted to teachers and admins by the route table.
func (api *Api) CreateLiveSessionHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if !live.CanCreateRoom(claims.Role) {
		api.respondError(w, http.StatusForbidden, "insufficient role")
		return
	}

	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		api.respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.CourseID != "" {
		if _, err := api.store.GetCourse(r.Context(), req.CourseID); err != nil {
			api.respondStoreError(w, err, "course not found")
			return
		}
	}

	session := &models.LiveSession{
		Title:       req.Title,
		Description: req.Description,
		CourseID:    req.CourseID,
		RoomName:    fmt.Sprintf("class-%s", uuid.NewString()[:8]),
		ScheduledAt: req.ScheduledAt,
		CreatedBy:   claims.UserID,
	}
	if err := api.store.CreateLiveSession(r.Context(), session); err != nil {
		api.logger.Error("failed to create live session", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	api.respondJSON(w, http.StatusCreated, map[string]*models.LiveSession{"session": session})
}

// ListLiveSessionsHandler lists scheduled sessions, newest first.
func (api *Api) ListLiveSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := api.store.ListLiveSessions(r.Context())
	if err != nil {
		api.respondStoreError(w, err, "sessions not found")
		return
	}
	if sessions == nil {
		sessions = []*models.LiveSession{}
	}
	api.respondJSON(w, http.StatusOK, map[string][]*models.LiveSession{"sessions": sessions})
}
