package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/taskblast/internal/backend"
	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/profile"
	"github.com/dukerupert/taskblast/internal/websocket"
)

// StreamHandler serves live task snapshots over WebSocket. Every task
// notification for the owner's collection is replaced by the full list.
type StreamHandler struct {
	client   *backend.Client
	hub      *websocket.Hub
	resolver *profile.Resolver
	logger   *slog.Logger
}

func NewStreamHandler(client *backend.Client, hub *websocket.Hub, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		client:   client,
		hub:      hub,
		resolver: profile.NewResolver(nil, client),
		logger:   logger,
	}
}

func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	owner, ok := resolveOwner(w, r, h.resolver)
	if !ok {
		return
	}

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true, // Allow connections from any origin (household LAN)
	})
	if err != nil {
		h.logger.Error("websocket accept", "error", err)
		return
	}

	ctx := r.Context()
	client := websocket.NewClient(h.hub, conn, owner.Collection())

	initial, err := h.snapshot(ctx, owner, websocket.NewMessage(owner.Collection(), "task", "snapshot", ""))
	if err != nil {
		h.logger.Error("initial snapshot", "collection", owner.Collection(), "error", err)
		conn.Close(ws.StatusInternalError, "Failed to load tasks")
		return
	}
	client.Send(initial)

	client.Run(ctx, func(ctx context.Context, notification []byte) ([]byte, error) {
		var msg websocket.Message
		if err := json.Unmarshal(notification, &msg); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		return h.snapshot(ctx, owner, msg)
	})
}

// snapshot fills msg with the current state: the task list for task
// messages, the balance for balance messages.
func (h *StreamHandler) snapshot(ctx context.Context, owner model.OwnerRef, msg websocket.Message) ([]byte, error) {
	switch msg.Entity {
	case "task":
		tasks, err := h.client.Tasks(ctx, owner)
		if err != nil {
			return nil, err
		}
		if tasks == nil {
			tasks = []model.Task{}
		}
		msg.Tasks = tasks
	case "balance":
		rocks, err := h.client.Balance(ctx, owner)
		if err != nil {
			return nil, err
		}
		msg.Extra = map[string]any{"rocks": rocks}
	}
	return json.Marshal(msg)
}
