// Package tasklist drives one task list: it resolves the active collection,
// keeps a live sorted view from snapshots, runs the Normal/Edit/Archive mode
// machine and dispatches mutations to the backend. The view only changes when
// a snapshot arrives.
package tasklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/pin"
	"github.com/dukerupert/taskblast/internal/profile"
	"github.com/dukerupert/taskblast/internal/reward"
	"github.com/dukerupert/taskblast/internal/store"
	"github.com/dukerupert/taskblast/internal/tap"
)

const (
	MsgLoadFailed = "Failed to load tasks"
	MsgLogin      = "Please log in to view tasks"
)

var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrCyclesIncomplete  = errors.New("task cycles not complete")
	ErrActionNotOffered  = errors.New("action not offered in this mode")
	ErrInvalidTransition = errors.New("invalid mode transition")
	ErrAccountUnknown    = errors.New("account type unknown")
	ErrValidation        = errors.New("invalid task")
	ErrClosed            = errors.New("task list closed")
	ErrNotOpen           = errors.New("task list not opened")
)

// Backend is the data surface the controller calls.
type Backend interface {
	profile.ChildLookup
	reward.Ledger
	Account(ctx context.Context, id string) (*model.Account, error)
	PINHash(ctx context.Context, accountID string) (string, error)
	CreateTask(ctx context.Context, owner model.OwnerRef, t model.Task) (*model.Task, error)
	UpdateTask(ctx context.Context, owner model.OwnerRef, id string, p model.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, owner model.OwnerRef, id string) error
	Subscribe(ctx context.Context, owner model.OwnerRef, onSnapshot func([]model.Task), onError func(error)) (cancel func())
}

type Alerter interface {
	Alert(message string)
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(message string)

func (f AlertFunc) Alert(message string) { f(message) }

// Launcher receives the Pomodoro handoff when a task is started.
type Launcher interface {
	Launch(req model.StartRequest) error
}

type LaunchFunc func(req model.StartRequest) error

func (f LaunchFunc) Launch(req model.StartRequest) error { return f(req) }

// Config wires a Controller. Backend and AccountID are required; everything
// else has a usable zero value.
type Config struct {
	AccountID string
	Backend   Backend
	Prefs     profile.KeyValue
	Alerter   Alerter
	Launcher  Launcher
	// Render is called with a fresh view after every snapshot and mode change.
	Render func(View)
	// OnRocksChange is called after every successful credit.
	OnRocksChange func()
	// Verifier overrides the verifier built from the stored PIN hash.
	Verifier pin.Verifier
	Taps     *tap.Tracker
	Logger   *slog.Logger
}

type Controller struct {
	cfg      Config
	backend  Backend
	resolver *profile.Resolver
	settler  *reward.Settler
	taps     *tap.Tracker
	gate     *pin.Gate
	logger   *slog.Logger

	mu          sync.Mutex
	ctx         context.Context
	opened      bool
	closed      bool
	cancel      func()
	owner       model.OwnerRef
	accountType model.AccountType
	mode        Mode
	tasks       []model.Task
	loadErr     error
}

func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tasklist")
	taps := cfg.Taps
	if taps == nil {
		taps = tap.NewTracker(tap.DefaultWindow, tap.DefaultThreshold)
	}
	c := &Controller{
		cfg:      cfg,
		backend:  cfg.Backend,
		resolver: profile.NewResolver(cfg.Prefs, cfg.Backend),
		taps:     taps,
		logger:   logger,
		mode:     Normal,
		ctx:      context.Background(),
	}
	c.settler = reward.NewSettler(cfg.Backend, cfg.OnRocksChange, logger)
	c.gate = pin.NewGate(pin.DenyVerifier{})
	return c
}

// Open resolves the collection, loads the account fields once and starts the
// subscription. The first snapshot arrives through Render.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.opened {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if c.cfg.AccountID == "" {
		c.alert(MsgLogin)
		return ErrNotAuthenticated
	}

	owner, err := c.resolver.Resolve(ctx, c.cfg.AccountID)
	if err != nil {
		c.logger.Error("resolve task collection", "account", c.cfg.AccountID, "error", err)
		c.alert(MsgLoadFailed)
		return fmt.Errorf("open task list: %w", err)
	}

	accountType, verifier := c.loadAccount(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.ctx = context.WithoutCancel(ctx)
	c.opened = true
	c.owner = owner
	c.accountType = accountType
	c.gate = pin.NewGate(verifier)
	c.mu.Unlock()

	c.logger.Info("task list opened", "collection", owner.Collection(), "account_type", string(accountType))

	cancel := c.backend.Subscribe(c.ctx, owner, c.onSnapshot, c.onSubscriptionError)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return ErrClosed
	}
	c.cancel = cancel
	c.mu.Unlock()
	return nil
}

// loadAccount fetches the account type and PIN verifier. Any failure leaves
// the type unknown, which blocks gated actions until Refresh succeeds.
func (c *Controller) loadAccount(ctx context.Context) (model.AccountType, pin.Verifier) {
	acct, err := c.backend.Account(ctx, c.cfg.AccountID)
	if err != nil {
		c.logger.Error("load account fields", "account", c.cfg.AccountID, "error", err)
		return model.AccountUnknown, pin.DenyVerifier{}
	}
	if !acct.AccountType.Valid() {
		c.logger.Warn("unrecognised account type", "account", acct.ID, "account_type", string(acct.AccountType))
		return model.AccountUnknown, pin.DenyVerifier{}
	}
	if c.cfg.Verifier != nil {
		return acct.AccountType, c.cfg.Verifier
	}
	if acct.AccountType != model.AccountManaged {
		return acct.AccountType, pin.DenyVerifier{}
	}
	hash, err := c.backend.PINHash(ctx, acct.ID)
	if err != nil {
		c.logger.Error("load manager pin", "account", acct.ID, "error", err)
		return model.AccountUnknown, pin.DenyVerifier{}
	}
	return acct.AccountType, pin.NewHashVerifier(hash)
}

// Refresh reloads the account fields, e.g. after a failed fetch at Open.
func (c *Controller) Refresh(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	accountType, verifier := c.loadAccount(ctx)
	c.mu.Lock()
	c.accountType = accountType
	c.gate.Cancel()
	c.gate = pin.NewGate(verifier)
	c.mu.Unlock()
	c.render()
	if accountType == model.AccountUnknown {
		return ErrAccountUnknown
	}
	return nil
}

// Close stops the subscription. Snapshots that arrive later are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	c.cancel = nil
	gate := c.gate
	c.mu.Unlock()

	gate.Cancel()
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) onSnapshot(tasks []model.Task) {
	sorted := make([]model.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.tasks = sorted
	c.loadErr = nil
	c.mu.Unlock()
	c.render()
}

func (c *Controller) onSubscriptionError(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.tasks = nil
	c.loadErr = err
	c.mu.Unlock()

	c.logger.Error("task subscription failed", "error", err)
	c.alert(MsgLoadFailed)
	c.render()
}

// Err returns the subscription error, if the subscription has stopped.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

func (c *Controller) ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.opened {
		return ErrNotOpen
	}
	return nil
}

func (c *Controller) alert(msg string) {
	if c.cfg.Alerter != nil {
		c.cfg.Alerter.Alert(msg)
	}
}

// View returns the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		Mode:        c.mode,
		AccountType: c.accountType,
		Owner:       c.owner,
		CanAdd:      c.mode == Edit,
		PINPrompt:   c.gate.State() == pin.Open,
		PINError:    c.gate.Message(),
	}
	for _, t := range c.tasks {
		if t.Archived != c.mode.showsArchived() {
			continue
		}
		v.Rows = append(v.Rows, Row{
			Task:        t,
			Actions:     actionsFor(c.mode, t),
			CanComplete: canComplete(c.mode, t),
		})
	}
	return v
}

func (c *Controller) render() {
	if c.cfg.Render == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	v := c.viewLocked()
	c.mu.Unlock()
	c.cfg.Render(v)
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) AccountType() model.AccountType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountType
}

func (c *Controller) Owner() model.OwnerRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// Visible returns the tasks shown in the current mode, newest first.
func (c *Controller) Visible() []model.Task {
	v := c.View()
	out := make([]model.Task, len(v.Rows))
	for i, r := range v.Rows {
		out[i] = r.Task
	}
	return out
}

// Actions lists what the task's row offers right now. Tasks hidden in the
// current mode offer nothing.
func (c *Controller) Actions(id string) []Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.findLocked(id)
	if !ok {
		return nil
	}
	return actionsFor(c.mode, t)
}

func (c *Controller) findLocked(id string) (model.Task, bool) {
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// lookup returns the task from the latest snapshot if the current mode offers
// action on it.
func (c *Controller) lookup(id string, action Action) (model.Task, model.OwnerRef, Mode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return model.Task{}, model.OwnerRef{}, c.mode, ErrClosed
	}
	if !c.opened {
		return model.Task{}, model.OwnerRef{}, c.mode, ErrNotOpen
	}
	t, ok := c.findLocked(id)
	if !ok {
		return model.Task{}, c.owner, c.mode, fmt.Errorf("task %s: %w", id, store.ErrNotFound)
	}
	if t.Archived != c.mode.showsArchived() || !c.mode.offers(action) {
		return model.Task{}, c.owner, c.mode, fmt.Errorf("%s in %s mode: %w", action, c.mode, ErrActionNotOffered)
	}
	return t, c.owner, c.mode, nil
}

// fail logs a store failure and shows the generic alert for verb.
func (c *Controller) fail(verb, id string, err error) error {
	c.logger.Error("task mutation failed", "action", verb, "task", id, "error", err)
	c.alert(fmt.Sprintf("Failed to %s task", verb))
	return fmt.Errorf("%s task: %w", verb, err)
}
