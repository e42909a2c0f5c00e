package api

import (
	"net/http"
	"strings"

	"github.com/Scolaria-io/scolaria/internal/auth"
	"github.com/Scolaria-io/scolaria/internal/database"
	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type platformStats struct {
	TotalUsers   int                  `json:"totalUsers"`
	TotalCourses int                  `json:"totalCourses"`
	Enrollments  int                  `json:"enrollments"`
	UsersByRole  []database.RoleCount `json:"usersByRole"`
}

// AdminStatsHandler reports platform-wide totals.
func (api *Api) AdminStatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := platformStats{}

	var err error
	if stats.TotalUsers, err = api.store.CountUsers(ctx); err != nil {
		api.respondStoreError(w, err, "stats not found")
		return
	}
	if stats.TotalCourses, err = api.store.CountCourses(ctx); err != nil {
		api.respondStoreError(w, err, "stats not found")
		return
	}
	if stats.Enrollments, err = api.store.CountEnrollments(ctx); err != nil {
		api.respondStoreError(w, err, "stats not found")
		return
	}
	if stats.UsersByRole, err = api.store.CountUsersByRole(ctx); err != nil {
		api.respondStoreError(w, err, "stats not found")
		return
	}

	api.respondJSON(w, http.StatusOK, stats)
}

// AdminActivityHandler returns the most recent ledger entries with user
// names attached.
func (api *Api) AdminActivityHandler(w http.ResponseWriter, r *http.Request) {
	activity, err := api.store.RecentActivity(r.Context(), 20)
	if err != nil {
		api.respondStoreError(w, err, "activity not found")
		return
	}
	if activity == nil {
		activity = []*database.ActivityEntry{}
	}
	api.respondJSON(w, http.StatusOK, map[string][]*database.ActivityEntry{"activity": activity})
}

// AdminListCoursesHandler returns the unfiltered catalog.
func (api *Api) AdminListCoursesHandler(w http.ResponseWriter, r *http.Request) {
	courses, err := api.store.ListCourses(r.Context(), database.CourseFilter{})
	if err != nil {
		api.respondStoreError(w, err, "courses not found")
		return
	}
	if courses == nil {
		courses = []*models.Course{}
	}
	api.respondJSON(w, http.StatusOK, map[string][]*models.Course{"courses": courses})
}

// AdminListQuizzesHandler returns every quiz with its course title.
func (api *Api) AdminListQuizzesHandler(w http.ResponseWriter, r *http.Request) {
	quizzes, err := api.store.ListQuizzes(r.Context())
	if err != nil {
		api.respondStoreError(w, err, "quizzes not found")
		return
	}
	if quizzes == nil {
		quizzes = []*models.Quiz{}
	}
	api.respondJSON(w, http.StatusOK, map[string][]*models.Quiz{"quizzes": quizzes})
}

// AdminListUsersHandler lists accounts, optionally filtered by role and a
// name/email search term.
func (api *Api) AdminListUsersHandler(w http.ResponseWriter, r *http.Request) {
	filter := database.UserFilter{
		Role:   models.Role(r.URL.Query().Get("role")),
		Search: r.URL.Query().Get("search"),
	}
	if filter.Role != "" && !models.ValidRole(filter.Role) {
		api.respondError(w, http.StatusBadRequest, "invalid role")
		return
	}

	users, err := api.store.ListUsers(r.Context(), filter)
	if err != nil {
		api.respondStoreError(w, err, "users not found")
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	api.respondJSON(w, http.StatusOK, map[string][]*models.User{"users": users})
}

// AdminCreateUserHandler creates an account with any role. No subscription
// row is seeded; admin-created students are expected to be provisioned
// explicitly.
func (api *Api) AdminCreateUserHandler(w http.ResponseWriter, r *http.Request) {
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

	api.respondJSON(w, http.StatusCreated, map[string]*models.User{"user": user})
}

type adminUpdateUserRequest struct {
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	Grade    *string `json:"grade,omitempty"`
	ParentID *string `json:"parentId,omitempty"`
}

// AdminUpdateUserHandler rewrites an account's name, role, grade and parent
// link.
func (api *Api) AdminUpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := api.store.GetUserByID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}

	var req adminUpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		api.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Role != "" {
		if !models.ValidRole(models.Role(req.Role)) {
			api.respondError(w, http.StatusBadRequest, "invalid role")
			return
		}
		user.Role = models.Role(req.Role)
	}
	if req.Grade != nil {
		user.Grade = req.Grade
	}
	if req.ParentID != nil {
		user.ParentID = req.ParentID
	}

	if err := api.store.UpdateUser(r.Context(), user); err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

// AdminDeleteUserHandler hard-deletes an account. Subscriptions and ledger
// rows go with it through cascading foreign keys.
func (api *Api) AdminDeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	userID := chi.URLParam(r, "userID")
	if userID == claims.UserID {
		api.respondError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := api.store.DeleteUser(r.Context(), userID); err != nil {
		api.respondStoreError(w, err, "user not found")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
