package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/taskblast/internal/auth"
	"github.com/dukerupert/taskblast/internal/pin"
	"github.com/dukerupert/taskblast/internal/store"
)

type AccountHandler struct {
	accounts *store.AccountStore
	sessions *store.SessionStore
	logger   *slog.Logger
}

func NewAccountHandler(as *store.AccountStore, ss *store.SessionStore, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: as, sessions: ss, logger: logger}
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	acct, err := h.accounts.GetByID(r.Context(), auth.AccountID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "failed to get account", err)
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *AccountHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	hash, err := pin.Hash(req.PIN)
	if err != nil {
		writeError(w, http.StatusBadRequest, "PIN must be exactly 4 digits")
		return
	}
	if err := h.accounts.SetPIN(r.Context(), auth.AccountID(r.Context()), hash); err != nil {
		writeStoreError(w, h.logger, "failed to set PIN", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "pin set"})
}

func (h *AccountHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.ClearPIN(r.Context(), auth.AccountID(r.Context())); err != nil {
		writeStoreError(w, h.logger, "failed to clear PIN", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin cleared"})
}

// VerifyPIN answers "Incorrect PIN" for a wrong PIN and for an account
// without one alike.
func (h *AccountHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	hash, err := h.accounts.GetPINHash(r.Context(), auth.AccountID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "failed to get PIN", err)
		return
	}

	if !pin.NewHashVerifier(hash).Verify(req.PIN) {
		writeError(w, http.StatusUnauthorized, pin.IncorrectMessage)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// Logout revokes the current session token.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), auth.SessionID(r.Context())); err != nil {
		writeStoreError(w, h.logger, "failed to delete session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
