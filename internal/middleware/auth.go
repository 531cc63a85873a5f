package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/taskblast/internal/auth"
	"github.com/dukerupert/taskblast/internal/store"
)

// TokenQueryParam carries the session token for WebSocket upgrades, where
// browsers cannot set an Authorization header.
const TokenQueryParam = "token"

// RequireAuth validates the bearer session token and populates AuthContext.
func RequireAuth(sessionStore *store.SessionStore, accountStore *store.AccountStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w)
				return
			}

			sess, err := sessionStore.GetByToken(r.Context(), token)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			acct, err := accountStore.GetByID(r.Context(), sess.AccountID)
			if err != nil || acct == nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				AccountID: acct.ID,
				SessionID: sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get(TokenQueryParam)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="taskblast"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}
