package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/taskblast/internal/auth"
	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/store"
)

type ChildHandler struct {
	store  *store.ChildStore
	logger *slog.Logger
}

func NewChildHandler(s *store.ChildStore, logger *slog.Logger) *ChildHandler {
	return &ChildHandler{store: s, logger: logger}
}

func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	children, err := h.store.ListByAccount(r.Context(), auth.AccountID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "failed to list children", err)
		return
	}
	if children == nil {
		children = []model.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	username, ok := model.NormalizeUsername(req.Username)
	if !ok {
		writeError(w, http.StatusBadRequest, "username must be 2-32 lowercase letters, digits, '.', '_' or '-'")
		return
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		req.DisplayName = username
	}

	exists, err := h.store.UsernameExists(r.Context(), username)
	if err != nil {
		writeStoreError(w, h.logger, "failed to check username", err)
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "that username is taken")
		return
	}

	child, err := h.store.Create(r.Context(), auth.AccountID(r.Context()), username, req.DisplayName)
	if err != nil {
		writeStoreError(w, h.logger, "failed to create child", err)
		return
	}
	writeJSON(w, http.StatusCreated, child)
}
