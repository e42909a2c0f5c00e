package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Scolaria-io/scolaria/internal/auth"
	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/Scolaria-io/scolaria/internal/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxPhotoSize = 5 << 20 // 5 MiB

// GetProfileHandler returns the caller's own account record.
func (api *Api) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	user, err := api.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

type updateProfileRequest struct {
	Name  string  `json:"name"`
	Grade *string `json:"grade,omitempty"`
}

// UpdateProfileHandler changes the caller's display name and grade. Email,
// role and parent links are immutable here.
func (api *Api) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		api.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	user, err := api.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}

	if err := api.store.UpdateUserProfile(r.Context(), user.ID, req.Name, req.Grade, user.PhotoURL); err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}

	user.Name = req.Name
	user.Grade = req.Grade
	api.respondJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePasswordHandler rotates the caller's password after verifying the
// current one.
func (api *Api) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		api.respondError(w, http.StatusBadRequest, "current and new passwords are required")
		return
	}

	user, err := api.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}
	if !auth.CheckPassword(user.Password, req.CurrentPassword) {
		api.respondError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		api.logger.Error("failed to hash password", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := api.store.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}

	api.respondJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// UploadPhotoHandler stores a profile photo in the blob store and records
// its key on the account.
func (api *Api) UploadPhotoHandler(w http.ResponseWriter, r *http.Request) {
	if api.blobs == nil {
		api.respondError(w, http.StatusServiceUnavailable, "file storage not configured")
		return
	}
	claims, _ := auth.ClaimsFromContext(r.Context())

	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		api.respondError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	key := storage.PhotoKey(claims.UserID, header.Filename)
	contentType := storage.ContentTypeFor(header.Filename)
	if err := api.blobs.Upload(r.Context(), key, file, contentType); err != nil {
		api.logger.Error("photo upload failed", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}

	photoURL := fmt.Sprintf("/users/%s/photo", claims.UserID)
	if err := api.store.UpdateUserPhoto(r.Context(), claims.UserID, key); err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}

	api.respondJSON(w, http.StatusOK, map[string]string{"photoUrl": photoURL})
}

// ServePhotoHandler streams a user's profile photo from the blob store.
func (api *Api) ServePhotoHandler(w http.ResponseWriter, r *http.Request) {
	if api.blobs == nil {
		api.respondError(w, http.StatusServiceUnavailable, "file storage not configured")
		return
	}
	userID := chi.URLParam(r, "userID")

	user, err := api.store.GetUserByID(r.Context(), userID)
	if err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}
	if user.PhotoURL == nil {
		api.respondError(w, http.StatusNotFound, "no photo on file")
		return
	}

	body, contentType, err := api.blobs.Download(r.Context(), *user.PhotoURL)
	if err != nil {
		api.logger.Error("photo download failed", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "failed to fetch photo")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, body); err != nil {
		api.logger.Warn("photo stream interrupted", zap.Error(err))
	}
}

// ListChildrenHandler returns the student accounts linked to a parent.
func (api *Api) ListChildrenHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if claims.Role != models.RoleParent {
		api.respondError(w, http.StatusForbidden, "parent account required")
		return
	}

	children, err := api.store.ListChildren(r.Context(), claims.UserID)
	if err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string][]*models.User{"children": children})
}
