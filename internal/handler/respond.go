package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/taskblast/internal/auth"
	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/profile"
	"github.com/dukerupert/taskblast/internal/reward"
	"github.com/dukerupert/taskblast/internal/store"
	"github.com/dukerupert/taskblast/internal/tasklist"
)

// ChildParam selects a child's collection instead of the account's own.
const ChildParam = "child"

func parseIDParam(r *http.Request) (string, bool) {
	id := r.PathValue("id")
	return id, id != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// resolveOwner maps the authenticated account and ?child= to an owner. It
// writes the error response itself and reports false on failure.
func resolveOwner(w http.ResponseWriter, r *http.Request, resolver *profile.Resolver) (model.OwnerRef, bool) {
	accountID := auth.AccountID(r.Context())
	owner, err := resolver.ResolveUsername(r.Context(), accountID, r.URL.Query().Get(ChildParam))
	switch {
	case err == nil:
		return owner, true
	case errors.Is(err, profile.ErrNoAccount):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "child not found")
	default:
		writeError(w, http.StatusInternalServerError, "failed to resolve profile")
	}
	return model.OwnerRef{}, false
}

// writeStoreError maps domain errors to a status. Unknown errors are logged
// and reported as msg with a 500.
func writeStoreError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrAlreadyArchived):
		writeError(w, http.StatusConflict, "task already archived")
	case errors.Is(err, tasklist.ErrCyclesIncomplete):
		writeError(w, http.StatusConflict, "task cycles not complete")
	case errors.Is(err, tasklist.ErrValidation), errors.Is(err, reward.ErrNegativeAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}
