package api

import (
	"io"
	"net/http"

	"github.com/Scolaria-io/scolaria/internal/auth"
	"github.com/Scolaria-io/scolaria/internal/database"
	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/Scolaria-io/scolaria/internal/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxPDFSize = 25 << 20 // 25 MiB

// ListCoursesHandler returns the public catalog, optionally filtered by
// level, subject and a title/description search term.
func (api *Api) ListCoursesHandler(w http.ResponseWriter, r *http.Request) {
	filter := database.CourseFilter{
		Level:   models.Level(r.URL.Query().Get("level")),
		Subject: r.URL.Query().Get("subject"),
		Search:  r.URL.Query().Get("search"),
	}
	if filter.Level != "" && !models.ValidLevel(filter.Level) {
		api.respondError(w, http.StatusBadRequest, "invalid level")
		return
	}

	courses, err := api.store.ListCourses(r.Context(), filter)
	if err != nil {
		api.respondStoreError(w, err, "course not found")
		return
	}
	if courses == nil {
		courses = []*models.Course{}
	}
	api.respondJSON(w, http.StatusOK, map[string][]*models.Course{"courses": courses})
}

// GetCourseHandler returns one catalog entry. Metadata is public; the
// entitlement check gates content, not this route.
func (api *Api) GetCourseHandler(w http.ResponseWriter, r *http.Request) {
	course, err := api.store.GetCourse(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		api.respondStoreError(w, err, "course not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]*models.Course{"course": course})
}

type courseRequest struct {
	Title       string  `json:"title"`
	Level       string  `json:"level"`
	Subject     string  `json:"subject"`
	Description string  `json:"description"`
	VideoURL    *string `json:"videoUrl,omitempty"`
}

// CreateCourseHandler adds a catalog entry owned by the calling teacher.
func (api *Api) CreateCourseHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req courseRequest
	if err := decodeJSON(r, &req); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Subject == "" {
		api.respondError(w, http.StatusBadRequest, "title and subject are required")
		return
	}
	if !models.ValidLevel(models.Level(req.Level)) {
		api.respondError(w, http.StatusBadRequest, "invalid level")
		return
	}

	course := &models.Course{
		Title:       req.Title,
		Level:       models.Level(req.Level),
		Subject:     req.Subject,
		Description: req.Description,
		TeacherID:   claims.UserID,
		VideoURL:    req.VideoURL,
	}
	if err := api.store.CreateCourse(r.Context(), course); err != nil {
		api.logger.Error("failed to create course", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	api.respondJSON(w, http.StatusCreated, map[string]*models.Course{"course": course})
}

// loadOwnedCourse fetches a course and enforces that the caller owns it or
// is an admin. A nil return means the response has been written.
func (api *Api) loadOwnedCourse(w http.ResponseWriter, r *http.Request) *models.Course {
	claims, _ := auth.ClaimsFromContext(r.Context())

	course, err := api.store.GetCourse(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		api.respondStoreError(w, err, "course not found")
		return nil
	}
	if claims.Role != models.RoleAdmin && course.TeacherID != claims.UserID {
		api.respondError(w, http.StatusForbidden, "not the course owner")
		return nil
	}
	return course
}

// UpdateCourseHandler rewrites a course's editable fields. Only the owning
// teacher or an admin may edit.
func (api *Api) UpdateCourseHandler(w http.ResponseWriter, r *http.Request) {
	course := api.loadOwnedCourse(w, r)
	if course == nil {
		return
	}

	var req courseRequest
	if err := decodeJSON(r, &req); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title != "" {
		course.Title = req.Title
	}
	if req.Level != "" {
		if !models.ValidLevel(models.Level(req.Level)) {
			api.respondError(w, http.StatusBadRequest, "invalid level")
			return
		}
		course.Level = models.Level(req.Level)
	}
	if req.Subject != "" {
		course.Subject = req.Subject
	}
	if req.Description != "" {
		course.Description = req.Description
	}
	if req.VideoURL != nil {
		course.VideoURL = req.VideoURL
	}

	if err := api.store.UpdateCourse(r.Context(), course); err != nil {
		api.respondStoreError(w, err, "course not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]*models.Course{"course": course})
}

// DeleteCourseHandler removes a course from the catalog.
func (api *Api) DeleteCourseHandler(w http.ResponseWriter, r *http.Request) {
	course := api.loadOwnedCourse(w, r)
	if course == nil {
		return
	}
	if err := api.store.DeleteCourse(r.Context(), course.ID); err != nil {
		api.respondStoreError(w, err, "course not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]string{"message": "course deleted"})
}

// UploadCoursePDFHandler attaches a PDF to a course.
func (api *Api) UploadCoursePDFHandler(w http.ResponseWriter, r *http.Request) {
	if api.blobs == nil {
		api.respondError(w, http.StatusServiceUnavailable, "file storage not configured")
		return
	}
	course := api.loadOwnedCourse(w, r)
	if course == nil {
		return
	}

	if err := r.ParseMultipartForm(maxPDFSize); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("pdf")
	if err != nil {
		api.respondError(w, http.StatusBadRequest, "pdf file is required")
		return
	}
	defer file.Close()

	key := storage.CoursePDFKey(course.ID, header.Filename)
	if err := api.blobs.Upload(r.Context(), key, file, "application/pdf"); err != nil {
		api.logger.Error("pdf upload failed", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "failed to store pdf")
		return
	}

	course.PDFURL = &key
	if err := api.store.UpdateCourse(r.Context(), course); err != nil {
		api.respondStoreError(w, err, "course not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]*models.Course{"course": course})
}

// ServeCoursePDFHandler streams a course's PDF from the blob store.
func (api *Api) ServeCoursePDFHandler(w http.ResponseWriter, r *http.Request) {
	if api.blobs == nil {
		api.respondError(w, http.StatusServiceUnavailable, "file storage not configured")
		return
	}

	course, err := api.store.GetCourse(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		api.respondStoreError(w, err, "course not found")
		return
	}
	if course.PDFURL == nil {
		api.respondError(w, http.StatusNotFound, "course has no pdf")
		return
	}

	body, contentType, err := api.blobs.Download(r.Context(), *course.PDFURL)
	if err != nil {
		api.logger.Error("pdf download failed", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "failed to fetch pdf")
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, body); err != nil {
		api.logger.Warn("pdf stream interrupted", zap.Error(err))
	}
}
