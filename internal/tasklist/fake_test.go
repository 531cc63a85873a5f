package tasklist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/store"
)

// fakeBackend keeps tasks in memory and only delivers snapshots when the
// test calls publish, so tests control exactly when the view may change.
type fakeBackend struct {
	mu         sync.Mutex
	account    *model.Account
	accountErr error
	pinHash    string
	children   map[string]*model.Child
	tasks      map[string]*model.Task
	balances   map[string]int
	writeErr   error
	seq        int
	base       time.Time

	lastOwner  model.OwnerRef
	onSnapshot func([]model.Task)
	onError    func(error)
	cancelled  bool
}

func newFakeBackend(accountType model.AccountType) *fakeBackend {
	return &fakeBackend{
		account:  &model.Account{ID: "acct-1", Email: "p@example.com", AccountType: accountType},
		children: map[string]*model.Child{},
		tasks:    map[string]*model.Task{},
		balances: map[string]int{},
		base:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeBackend) Account(_ context.Context, id string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	if f.account == nil || f.account.ID != id {
		return nil, store.ErrNotFound
	}
	a := *f.account
	return &a, nil
}

func (f *fakeBackend) PINHash(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pinHash, nil
}

func (f *fakeBackend) ChildByUsername(_ context.Context, accountID, username string) (*model.Child, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.children[username]
	if !ok || c.AccountID != accountID {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeBackend) CreateTask(_ context.Context, owner model.OwnerRef, t model.Task) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.lastOwner = owner
	f.seq++
	t.ID = fmt.Sprintf("task-%d", f.seq)
	t.CreatedAt = f.base.Add(time.Duration(f.seq) * time.Minute)
	t.UpdatedAt = t.CreatedAt
	f.tasks[t.ID] = &t
	out := t
	return &out, nil
}

func (f *fakeBackend) UpdateTask(_ context.Context, owner model.OwnerRef, id string, p model.TaskPatch) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.lastOwner = owner
	t, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Reward != nil {
		t.Reward = *p.Reward
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.AllowMinimization != nil {
		t.AllowMinimization = *p.AllowMinimization
	}
	if p.WorkTime != nil {
		t.WorkTime = *p.WorkTime
	}
	if p.PlayTime != nil {
		t.PlayTime = *p.PlayTime
	}
	if p.Cycles != nil {
		t.Cycles = *p.Cycles
	}
	if p.CompletedCycles != nil {
		t.CompletedCycles = *p.CompletedCycles
	}
	if p.Archived != nil {
		t.Archived = *p.Archived
	}
	t.UpdatedAt = t.UpdatedAt.Add(time.Second)
	out := *t
	return &out, nil
}

func (f *fakeBackend) DeleteTask(_ context.Context, owner model.OwnerRef, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.lastOwner = owner
	if _, ok := f.tasks[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeBackend) ArchiveTask(_ context.Context, owner model.OwnerRef, id string) (*model.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if t.Archived {
		return nil, store.ErrAlreadyArchived
	}
	t.Archived = true
	f.balances[owner.ID] += t.Reward
	taskID := id
	return &model.Settlement{ID: "s-" + id, OwnerKind: owner.Kind, OwnerID: owner.ID, TaskID: &taskID, Amount: t.Reward, Source: model.SourceTaskArchive}, nil
}

func (f *fakeBackend) Credit(_ context.Context, owner model.OwnerRef, amount int, source model.SettlementSource) (*model.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.balances[owner.ID] += amount
	return &model.Settlement{OwnerKind: owner.Kind, OwnerID: owner.ID, Amount: amount, Source: source}, nil
}

func (f *fakeBackend) Subscribe(_ context.Context, owner model.OwnerRef, onSnapshot func([]model.Task), onError func(error)) func() {
	f.mu.Lock()
	f.lastOwner = owner
	f.onSnapshot = onSnapshot
	f.onError = onError
	f.mu.Unlock()
	f.publish()
	return func() {
		f.mu.Lock()
		f.cancelled = true
		f.mu.Unlock()
	}
}

// publish delivers the current collection, oldest first, to the subscriber.
func (f *fakeBackend) publish() {
	f.mu.Lock()
	fn := f.onSnapshot
	tasks := make([]model.Task, 0, len(f.tasks))
	for i := 1; i <= f.seq; i++ {
		if t, ok := f.tasks[fmt.Sprintf("task-%d", i)]; ok {
			tasks = append(tasks, *t)
		}
	}
	f.mu.Unlock()
	if fn != nil {
		fn(tasks)
	}
}

func (f *fakeBackend) fail(err error) {
	f.mu.Lock()
	f.onSnapshot = nil
	fn := f.onError
	f.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// setCycles simulates the Pomodoro flow bumping progress from elsewhere.
func (f *fakeBackend) setCycles(id string, n int) {
	f.mu.Lock()
	f.tasks[id].CompletedCycles = n
	f.mu.Unlock()
}

func (f *fakeBackend) task(id string) model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.tasks[id]
}

func (f *fakeBackend) balance(ownerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[ownerID]
}

type alertLog struct {
	mu   sync.Mutex
	msgs []string
}

func (a *alertLog) Alert(msg string) {
	a.mu.Lock()
	a.msgs = append(a.msgs, msg)
	a.mu.Unlock()
}

func (a *alertLog) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.msgs...)
}

type memPrefs map[string]string

func (m memPrefs) Get(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}
