package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Scolaria-io/scolaria/internal/database"
	"go.uber.org/zap"
)

func (api *Api) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			api.logger.Error("failed to encode response", zap.Error(err))
		}
	}
}

func (api *Api) respondError(w http.ResponseWriter, status int, msg string) {
	api.respondJSON(w, status, map[string]string{"error": msg})
}

// respondStoreError maps store errors to the HTTP taxonomy: missing rows
// become 404, duplicate emails 409, everything else a logged 500.
func (api *Api) respondStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		api.respondError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, database.ErrDuplicateEmail):
		api.respondError(w, http.StatusConflict, "email already registered")
	default:
		api.logger.Error("store operation failed", zap.Error(err))
		api.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
