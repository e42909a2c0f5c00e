package api

import (
	"net/http"

	"github.com/Scolaria-io/scolaria/internal/auth"
	"github.com/Scolaria-io/scolaria/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SubscriptionSummaryHandler reports the caller's plan, premium flag state
// and meter position.
func (api *Api) SubscriptionSummaryHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	summary, err := api.entitlements.Summarize(r.Context(), claims.UserID)
	if err != nil {
		api.logger.Error("failed to summarize subscription", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	api.respondJSON(w, http.StatusOK, summary)
}

// UpgradeHandler moves the caller to the premium plan. Safe to call
// repeatedly.
func (api *Api) UpgradeHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	sub, err := api.entitlements.Upgrade(r.Context(), claims.UserID)
	if err != nil {
		api.logger.Error("upgrade failed", zap.String("user_id", claims.UserID), zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	api.respondJSON(w, http.StatusOK, map[string]*models.Subscription{"subscription": sub})
}

// CheckAccessHandler runs the entitlement decision for one course. The
// course must exist; the decision itself never consults the catalog.
func (api *Api) CheckAccessHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	courseID := chi.URLParam(r, "courseID")

	if _, err := api.store.GetCourse(r.Context(), courseID); err != nil {
		api.respondStoreError(w, err, "course not found")
		return
	}

	decision, err := api.entitlements.CheckAccess(r.Context(), claims.UserID, courseID)
	if err != nil {
		api.logger.Error("entitlement check failed", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	api.respondJSON(w, http.StatusOK, decision)
}
