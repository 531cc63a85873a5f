package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/taskblast/internal/backend"
	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/profile"
	"github.com/dukerupert/taskblast/internal/reward"
)

type BalanceHandler struct {
	client   *backend.Client
	settler  *reward.Settler
	resolver *profile.Resolver
	logger   *slog.Logger
}

func NewBalanceHandler(client *backend.Client, settler *reward.Settler, logger *slog.Logger) *BalanceHandler {
	return &BalanceHandler{
		client:   client,
		settler:  settler,
		resolver: profile.NewResolver(nil, client),
		logger:   logger,
	}
}

func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := resolveOwner(w, r, h.resolver)
	if !ok {
		return
	}
	rocks, err := h.client.Balance(r.Context(), owner)
	if err != nil {
		writeStoreError(w, h.logger, "failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, model.Balance{Owner: owner, Rocks: rocks})
}

// Score credits a finished game's score to the owner.
func (h *BalanceHandler) Score(w http.ResponseWriter, r *http.Request) {
	owner, ok := resolveOwner(w, r, h.resolver)
	if !ok {
		return
	}
	var req struct {
		Score *int `json:"score"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Score == nil {
		writeError(w, http.StatusBadRequest, "score is required")
		return
	}

	st, err := h.settler.Settle(r.Context(), owner, *req.Score, model.SourceGameScore)
	if err != nil {
		writeStoreError(w, h.logger, "failed to credit score", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
