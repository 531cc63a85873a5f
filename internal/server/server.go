package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/taskblast/internal/backend"
	"github.com/dukerupert/taskblast/internal/handler"
	"github.com/dukerupert/taskblast/internal/middleware"
	"github.com/dukerupert/taskblast/internal/reward"
	"github.com/dukerupert/taskblast/internal/store"
	ws "github.com/dukerupert/taskblast/internal/websocket"
)

// Config holds the HTTP-level tunables.
type Config struct {
	PINAttempts int
	PINWindow   time.Duration
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	client       *backend.Client
	taskH        *handler.TaskHandler
	accountH     *handler.AccountHandler
	childH       *handler.ChildHandler
	balanceH     *handler.BalanceHandler
	streamH      *handler.StreamHandler
	sessionStore *store.SessionStore
	accountStore *store.AccountStore
	rateLimiter  *middleware.RateLimiter
	cfg          Config
	logger       *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	if cfg.PINAttempts <= 0 {
		cfg.PINAttempts = 5
	}
	if cfg.PINWindow <= 0 {
		cfg.PINWindow = time.Minute
	}

	hub := ws.NewHub(logger.With("component", "websocket"))
	client := backend.New(db, hub, logger.With("component", "backend"))
	settler := reward.NewSettler(client, nil, logger.With("component", "reward"))

	accountStore := store.NewAccountStore(db)
	sessionStore := store.NewSessionStore(db)

	srv := &Server{
		db:           db,
		hub:          hub,
		client:       client,
		accountH:     handler.NewAccountHandler(accountStore, sessionStore, logger.With("component", "account")),
		childH:       handler.NewChildHandler(store.NewChildStore(db), logger.With("component", "child")),
		balanceH:     handler.NewBalanceHandler(client, settler, logger.With("component", "balance")),
		streamH:      handler.NewStreamHandler(client, hub, logger.With("component", "stream")),
		sessionStore: sessionStore,
		accountStore: accountStore,
		rateLimiter:  middleware.NewRateLimiter(),
		cfg:          cfg,
		logger:       logger,
	}
	srv.taskH = handler.NewTaskHandler(client, settler, srv.allowPINAttempt, logger.With("component", "task"))
	return srv
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Backend() *backend.Client {
	return s.client
}

func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.accountStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func pinKey(r *http.Request) string {
	return "pin:" + middleware.AccountOrIP(r)
}

// allowPINAttempt spends one manager PIN attempt for the request's account.
func (s *Server) allowPINAttempt(r *http.Request) bool {
	return s.rateLimiter.Allow(pinKey(r), s.cfg.PINAttempts, s.cfg.PINWindow)
}

// pinLimited throttles handlers that compare the manager PIN, per account.
func (s *Server) pinLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, pinKey, s.cfg.PINAttempts, s.cfg.PINWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Account
	mux.HandleFunc("GET /api/account", s.accountH.Get)
	mux.HandleFunc("PUT /api/account/pin", s.accountH.SetPIN)
	mux.HandleFunc("DELETE /api/account/pin", s.accountH.ClearPIN)
	mux.HandleFunc("POST /api/account/pin/verify", s.pinLimited(s.accountH.VerifyPIN))
	mux.HandleFunc("DELETE /api/session", s.accountH.Logout)

	// Children
	mux.HandleFunc("GET /api/children", s.childH.List)
	mux.HandleFunc("POST /api/children", s.childH.Create)

	// Tasks
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{id}/archive", s.taskH.Archive)
	mux.HandleFunc("POST /api/tasks/{id}/unarchive", s.taskH.Unarchive)
	mux.HandleFunc("POST /api/tasks/{id}/cycles", s.taskH.IncrementCycles)

	// Balance
	mux.HandleFunc("GET /api/balance", s.balanceH.Get)
	mux.HandleFunc("POST /api/balance/score", s.balanceH.Score)

	// Live snapshots
	mux.HandleFunc("GET /ws", s.streamH.Serve)
}

// RunMaintenance prunes expired sessions and rate-limit entries until ctx ends.
func (s *Server) RunMaintenance(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rateLimiter.Cleanup()
			n, err := s.sessionStore.DeleteExpired(ctx)
			if err != nil {
				s.logger.Error("prune sessions", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("pruned sessions", "count", n)
			}
		}
	}
}
