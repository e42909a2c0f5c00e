package api

import (
	"net/http"

	"github.com/Scolaria-io/scolaria/internal/auth"
	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/go-chi/chi/v5"
)

type recordProgressRequest struct {
	CourseID string `json:"courseId"`
	Score    *int   `json:"score,omitempty"`
}

// RecordProgressHandler appends a course access/completion to the ledger.
// This is what consumes the free-tier meter; quiz submissions append their
// own rows.
func (api *Api) RecordProgressHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req recordProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CourseID == "" {
		api.respondError(w, http.StatusBadRequest, "courseId is required")
		return
	}
	if _, err := api.store.GetCourse(r.Context(), req.CourseID); err != nil {
		api.respondStoreError(w, err, "course not found")
		return
	}

	entry, err := api.entitlements.RecordCompletion(r.Context(), claims.UserID, req.CourseID, nil, req.Score)
	if err != nil {
		api.respondStoreError(w, err, "course not found")
		return
	}
	api.respondJSON(w, http.StatusCreated, map[string]*models.ProgressEntry{"progress": entry})
}

// ListProgressHandler returns the caller's full progress history, newest
// first.
func (api *Api) ListProgressHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	entries, err := api.store.ListProgress(r.Context(), claims.UserID)
	if err != nil {
		api.respondStoreError(w, err, "progress not found")
		return
	}
	if entries == nil {
		entries = []*models.ProgressEntry{}
	}
	api.respondJSON(w, http.StatusOK, map[string][]*models.ProgressEntry{"progress": entries})
}

// ListCourseProgressHandler returns the caller's history for one course.
func (api *Api) ListCourseProgressHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	entries, err := api.store.ListCourseProgress(r.Context(), claims.UserID, chi.URLParam(r, "courseID"))
	if err != nil {
		api.respondStoreError(w, err, "progress not found")
		return
	}
	if entries == nil {
		entries = []*models.ProgressEntry{}
	}
	api.respondJSON(w, http.StatusOK, map[string][]*models.ProgressEntry{"progress": entries})
}

// UserStatsHandler returns the caller's aggregate stats.
func (api *Api) UserStatsHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	stats, err := api.store.UserStats(r.Context(), claims.UserID)
	if err != nil {
		api.respondStoreError(w, err, "stats not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]*models.UserStats{"stats": stats})
}

// requireChild verifies the caller is a parent linked to childID. Unlinked
// children are reported as absent, not forbidden, so parents cannot probe
// for valid account IDs.
func (api *Api) requireChild(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if claims.Role != models.RoleParent {
		api.respondError(w, http.StatusForbidden, "parent account required")
		return "", false
	}

	childID := chi.URLParam(r, "childID")
	linked, err := api.store.IsChildOf(r.Context(), childID, claims.UserID)
	if err != nil {
		api.respondStoreError(w, err, "child not found")
		return "", false
	}
	if !linked {
		api.respondError(w, http.StatusNotFound, "child not found")
		return "", false
	}
	return childID, true
}

// ChildProgressHandler returns a linked child's progress history.
func (api *Api) ChildProgressHandler(w http.ResponseWriter, r *http.Request) {
	childID, ok := api.requireChild(w, r)
	if !ok {
		return
	}
	entries, err := api.store.ListProgress(r.Context(), childID)
	if err != nil {
		api.respondStoreError(w, err, "progress not found")
		return
	}
	if entries == nil {
		entries = []*models.ProgressEntry{}
	}
	api.respondJSON(w, http.StatusOK, map[string][]*models.ProgressEntry{"progress": entries})
}

// ChildStatsHandler returns a linked child's aggregate stats.
func (api *Api) ChildStatsHandler(w http.ResponseWriter, r *http.Request) {
	childID, ok := api.requireChild(w, r)
	if !ok {
		return
	}
	stats, err := api.store.UserStats(r.Context(), childID)
	if err != nil {
		api.respondStoreError(w, err, "stats not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]*models.UserStats{"stats": stats})
}
