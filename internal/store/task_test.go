package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/taskblast/internal/model"
)

func newTask(name string, reward int) model.Task {
	return model.Task{
		Name:     name,
		Reward:   reward,
		WorkTime: model.DefaultWorkTime,
		PlayTime: model.DefaultPlayTime,
		Cycles:   model.DefaultCycles,
	}
}

func TestTaskCRUD(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTaskStore(db)
	ctx := context.Background()
	owner := model.AccountOwner(createTestAccount(t, db, model.AccountIndependent).ID)

	task, err := ts.Create(ctx, owner, newTask("Clean room", 50))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.ID == "" {
		t.Error("expected generated id")
	}
	if task.Name != "Clean room" {
		t.Errorf("name = %q, want %q", task.Name, "Clean room")
	}
	if task.Reward != 50 {
		t.Errorf("reward = %d, want 50", task.Reward)
	}
	if task.CompletedCycles != 0 || task.Completed || task.Archived {
		t.Errorf("unexpected initial state: %+v", task)
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	updated, err := ts.Update(ctx, owner, task.ID, model.TaskPatch{Name: strPtr("Clean bedroom"), Reward: intPtr(60)})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Name != "Clean bedroom" {
		t.Errorf("updated name = %q, want %q", updated.Name, "Clean bedroom")
	}
	if updated.Reward != 60 {
		t.Errorf("updated reward = %d, want 60", updated.Reward)
	}
	if updated.Cycles != 1 {
		t.Errorf("partial update changed cycles to %d", updated.Cycles)
	}

	if err := ts.Delete(ctx, owner, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	got, err := ts.GetByID(ctx, owner, task.ID)
	if err != nil {
		t.Fatalf("get deleted task: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted task")
	}
}

func TestTaskUpdateMissing(t *testing.T) {
	db := setupTestDB(t)
	owner := model.AccountOwner(createTestAccount(t, db, model.AccountIndependent).ID)

	got, err := NewTaskStore(db).Update(context.Background(), owner, "missing", model.TaskPatch{Completed: boolPtr(true)})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent task")
	}
}

func TestTaskCollectionsAreIsolated(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTaskStore(db)
	ctx := context.Background()
	a := createTestAccount(t, db, model.AccountManaged)
	child, err := NewChildStore(db).Create(ctx, a.ID, "zoe", "Zoe")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	parent := model.AccountOwner(a.ID)
	kid := model.ChildOwner(a.ID, child.ID)

	pt, _ := ts.Create(ctx, parent, newTask("Pay bills", 0))
	ts.Create(ctx, kid, newTask("Homework", 10))

	tasks, err := ts.List(ctx, kid)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Name != "Homework" {
		t.Fatalf("child tasks = %+v, want only Homework", tasks)
	}

	got, _ := ts.GetByID(ctx, kid, pt.ID)
	if got != nil {
		t.Error("parent task must not be visible in child collection")
	}
}

func TestTaskListNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTaskStore(db)
	ctx := context.Background()
	owner := model.AccountOwner(createTestAccount(t, db, model.AccountIndependent).ID)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	orig := now
	t.Cleanup(func() { now = orig })
	for i, name := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		now = func() time.Time { return at }
		if _, err := ts.Create(ctx, owner, newTask(name, 1)); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	tasks, err := ts.List(ctx, owner)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	want := []string{"third", "second", "first"}
	for i, name := range want {
		if tasks[i].Name != name {
			t.Errorf("tasks[%d] = %q, want %q", i, tasks[i].Name, name)
		}
	}
}

func TestTaskCycleConstraints(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTaskStore(db)
	ctx := context.Background()
	owner := model.AccountOwner(createTestAccount(t, db, model.AccountIndependent).ID)

	bad := newTask("Bad", 1)
	bad.Cycles = 0
	if _, err := ts.Create(ctx, owner, bad); err == nil {
		t.Error("expected cycles = 0 to be rejected")
	}

	inf := newTask("Forever", 1)
	inf.Cycles = model.InfiniteCycles
	if _, err := ts.Create(ctx, owner, inf); err != nil {
		t.Errorf("infinite cycles rejected: %v", err)
	}

	neg := newTask("Negative", -5)
	if _, err := ts.Create(ctx, owner, neg); err == nil {
		t.Error("expected negative reward to be rejected")
	}
}

func TestTaskIncrementCycles(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTaskStore(db)
	ctx := context.Background()
	owner := model.AccountOwner(createTestAccount(t, db, model.AccountIndependent).ID)

	task, _ := ts.Create(ctx, owner, newTask("Read", 5))
	got, err := ts.IncrementCycles(ctx, owner, task.ID)
	if err != nil {
		t.Fatalf("increment cycles: %v", err)
	}
	if got.CompletedCycles != 1 {
		t.Errorf("completed_cycles = %d, want 1", got.CompletedCycles)
	}

	got, err = ts.IncrementCycles(ctx, owner, "missing")
	if err != nil {
		t.Fatalf("increment missing: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent task")
	}
}
