package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/taskblast/internal/database"
	"github.com/dukerupert/taskblast/internal/middleware"
	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/pin"
	"github.com/dukerupert/taskblast/internal/store"
	websocket "github.com/dukerupert/taskblast/internal/websocket"
)

type testServer struct {
	srv     *Server
	handler http.Handler
	token   string
}

func setupServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	accounts := store.NewAccountStore(db)
	acct, err := accounts.Create(ctx, "parent@example.com", "Parent", model.AccountManaged)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	hash, _ := pin.Hash("4321")
	if err := accounts.SetPIN(ctx, acct.ID, hash); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	sess, err := store.NewSessionStore(db).Create(ctx, acct.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	srv := New(db, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &testServer{srv: srv, handler: srv.Router(), token: sess.Token}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+ts.token)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	ts := setupServer(t, Config{})

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	ts := setupServer(t, Config{})

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestResponsesCarryRequestID(t *testing.T) {
	ts := setupServer(t, Config{})

	rec := ts.do(t, "GET", "/api/tasks", "")
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id on the response")
	}

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "trace-7")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(middleware.RequestIDHeader); got != "trace-7" {
		t.Errorf("request id = %q, want %q", got, "trace-7")
	}
}

func TestTaskRoundTrip(t *testing.T) {
	ts := setupServer(t, Config{})

	rec := ts.do(t, "POST", "/api/tasks", `{"name":"Clean room","reward":50,"pin":"4321"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var task model.Task
	json.NewDecoder(rec.Body).Decode(&task)

	if rec := ts.do(t, "POST", "/api/tasks/"+task.ID+"/archive", `{"pin":"4321"}`); rec.Code != http.StatusOK {
		t.Fatalf("archive: status = %d", rec.Code)
	}
	rec = ts.do(t, "GET", "/api/balance", "")
	var bal model.Balance
	json.NewDecoder(rec.Body).Decode(&bal)
	if bal.Rocks != 50 {
		t.Errorf("rocks = %d, want 50", bal.Rocks)
	}
}

func TestPINVerifyIsThrottled(t *testing.T) {
	ts := setupServer(t, Config{PINAttempts: 3, PINWindow: time.Minute})

	for i := 0; i < 3; i++ {
		rec := ts.do(t, "POST", "/api/account/pin/verify", `{"pin":"0000"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want %d", i+1, rec.Code, http.StatusUnauthorized)
		}
	}

	rec := ts.do(t, "POST", "/api/account/pin/verify", `{"pin":"4321"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("4th attempt: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := setupServer(t, Config{})

	if rec := ts.do(t, "DELETE", "/api/session", ""); rec.Code != http.StatusOK {
		t.Fatalf("logout: status = %d", rec.Code)
	}
	if rec := ts.do(t, "GET", "/api/account", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func readMessage(t *testing.T, ctx context.Context, conn *ws.Conn) websocket.Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg websocket.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return msg
}

func TestWebSocketStreamsSnapshots(t *testing.T) {
	ts := setupServer(t, Config{})
	httpSrv := httptest.NewServer(ts.handler)
	defer httpSrv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws?token=" + ts.token
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	first := readMessage(t, ctx, conn)
	if first.Type != "task_snapshot" {
		t.Errorf("first type = %q, want %q", first.Type, "task_snapshot")
	}

	req, _ := http.NewRequest("POST", httpSrv.URL+"/api/tasks", bytes.NewBufferString(`{"name":"Dishes","reward":3,"pin":"4321"}`))
	req.Header.Set("Authorization", "Bearer "+ts.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	resp.Body.Close()

	msg := readMessage(t, ctx, conn)
	if msg.Type != "task_created" {
		t.Fatalf("type = %q, want %q", msg.Type, "task_created")
	}
	tasks, ok := msg.Tasks.([]any)
	if !ok || len(tasks) != 1 {
		t.Errorf("tasks = %#v, want one task", msg.Tasks)
	}
}
