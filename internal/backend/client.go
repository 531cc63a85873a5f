// Package backend is the data client the task list talks to. Every write goes
// straight to SQLite and is then announced on the hub, and subscriptions turn
// those announcements into full collection snapshots.
package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/store"
	"github.com/dukerupert/taskblast/internal/websocket"
)

const (
	entityTask    = "task"
	entityBalance = "balance"
)

type Client struct {
	accounts    *store.AccountStore
	children    *store.ChildStore
	tasks       *store.TaskStore
	settlements *store.SettlementStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func New(db *sql.DB, hub *websocket.Hub, logger *slog.Logger) *Client {
	return &Client{
		accounts:    store.NewAccountStore(db),
		children:    store.NewChildStore(db),
		tasks:       store.NewTaskStore(db),
		settlements: store.NewSettlementStore(db),
		hub:         hub,
		logger:      logger,
	}
}

func (c *Client) broadcast(owner model.OwnerRef, entity, action, id string) {
	if c.hub != nil {
		c.hub.Broadcast(websocket.NewMessage(owner.Collection(), entity, action, id))
	}
}

// Account fetches an account document. Missing accounts return store.ErrNotFound.
func (c *Client) Account(ctx context.Context, id string) (*model.Account, error) {
	a, err := c.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("account %s: %w", id, store.ErrNotFound)
	}
	return a, nil
}

// PINHash returns the account's stored PIN hash, "" when none is set.
func (c *Client) PINHash(ctx context.Context, accountID string) (string, error) {
	return c.accounts.GetPINHash(ctx, accountID)
}

// ChildByUsername resolves a child sub-profile of the account by username.
func (c *Client) ChildByUsername(ctx context.Context, accountID, username string) (*model.Child, error) {
	child, err := c.children.GetByUsername(ctx, accountID, username)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, fmt.Errorf("child %q: %w", username, store.ErrNotFound)
	}
	return child, nil
}

func (c *Client) Task(ctx context.Context, owner model.OwnerRef, id string) (*model.Task, error) {
	t, err := c.tasks.GetByID(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", id, store.ErrNotFound)
	}
	return t, nil
}

func (c *Client) Tasks(ctx context.Context, owner model.OwnerRef) ([]model.Task, error) {
	return c.tasks.List(ctx, owner)
}

func (c *Client) CreateTask(ctx context.Context, owner model.OwnerRef, t model.Task) (*model.Task, error) {
	created, err := c.tasks.Create(ctx, owner, t)
	if err != nil {
		return nil, err
	}
	c.broadcast(owner, entityTask, "created", created.ID)
	return created, nil
}

// UpdateTask applies a partial update to one task document.
func (c *Client) UpdateTask(ctx context.Context, owner model.OwnerRef, id string, p model.TaskPatch) (*model.Task, error) {
	updated, err := c.tasks.Update(ctx, owner, id, p)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("task %s: %w", id, store.ErrNotFound)
	}
	c.broadcast(owner, entityTask, "updated", id)
	return updated, nil
}

// IncrementCycles is called by the Pomodoro flow after each finished work period.
func (c *Client) IncrementCycles(ctx context.Context, owner model.OwnerRef, id string) (*model.Task, error) {
	updated, err := c.tasks.IncrementCycles(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("task %s: %w", id, store.ErrNotFound)
	}
	c.broadcast(owner, entityTask, "updated", id)
	return updated, nil
}

func (c *Client) DeleteTask(ctx context.Context, owner model.OwnerRef, id string) error {
	if err := c.tasks.Delete(ctx, owner, id); err != nil {
		return err
	}
	c.broadcast(owner, entityTask, "deleted", id)
	return nil
}

// ArchiveTask archives the task and credits its reward atomically.
func (c *Client) ArchiveTask(ctx context.Context, owner model.OwnerRef, id string) (*model.Settlement, error) {
	st, err := c.settlements.ArchiveTask(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	c.broadcast(owner, entityTask, "archived", id)
	c.broadcast(owner, entityBalance, "credited", owner.ID)
	return st, nil
}

func (c *Client) Credit(ctx context.Context, owner model.OwnerRef, amount int, source model.SettlementSource) (*model.Settlement, error) {
	st, err := c.settlements.Credit(ctx, owner, amount, source)
	if err != nil {
		return nil, err
	}
	c.broadcast(owner, entityBalance, "credited", owner.ID)
	return st, nil
}

func (c *Client) Balance(ctx context.Context, owner model.OwnerRef) (int, error) {
	return c.settlements.Balance(ctx, owner)
}

// Subscribe delivers the owner's full task collection to onSnapshot, first
// immediately and then after every task change. Other notifications on the
// collection are skipped unless the listener buffer filled up, in which case
// the collection is re-read. A read failure is passed to
// onError and ends the subscription. The returned func stops it.
func (c *Client) Subscribe(ctx context.Context, owner model.OwnerRef, onSnapshot func([]model.Task), onError func(error)) (cancel func()) {
	ctx, stopCtx := context.WithCancel(ctx)
	notifications, stopListen := c.hub.Listen(owner.Collection())

	go func() {
		defer stopListen()

		if !c.deliver(ctx, owner, onSnapshot, onError) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-notifications:
				if !ok {
					return
				}
				// The hub drops notifications while the buffer is full, so a
				// full buffer may hide a task change behind other entities.
				overflowed := len(notifications) >= cap(notifications)-1
				if !isTaskChange(raw) && !overflowed {
					continue
				}
				drain(notifications)
				if !c.deliver(ctx, owner, onSnapshot, onError) {
					return
				}
			}
		}
	}()

	return func() {
		stopCtx()
	}
}

func (c *Client) deliver(ctx context.Context, owner model.OwnerRef, onSnapshot func([]model.Task), onError func(error)) bool {
	tasks, err := c.tasks.List(ctx, owner)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		c.logger.Error("snapshot read failed", "collection", owner.Collection(), "error", err)
		if onError != nil {
			onError(err)
		}
		return false
	}
	onSnapshot(tasks)
	return true
}

func isTaskChange(raw []byte) bool {
	var msg websocket.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return false
	}
	return msg.Entity == entityTask
}

// drain discards queued notifications; the next read covers all of them.
func drain(ch <-chan []byte) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
