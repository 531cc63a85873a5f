package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/taskblast/internal/model"
)

func TestArchiveTaskCreditsReward(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTaskStore(db)
	ss := NewSettlementStore(db)
	ctx := context.Background()
	owner := model.AccountOwner(createTestAccount(t, db, model.AccountIndependent).ID)

	task, _ := ts.Create(ctx, owner, newTask("Clean room", 50))

	st, err := ss.ArchiveTask(ctx, owner, task.ID)
	if err != nil {
		t.Fatalf("archive task: %v", err)
	}
	if st.Amount != 50 {
		t.Errorf("amount = %d, want 50", st.Amount)
	}
	if st.Source != model.SourceTaskArchive {
		t.Errorf("source = %q, want %q", st.Source, model.SourceTaskArchive)
	}
	if st.TaskID == nil || *st.TaskID != task.ID {
		t.Errorf("task_id = %v, want %s", st.TaskID, task.ID)
	}

	balance, err := ss.Balance(ctx, owner)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 50 {
		t.Errorf("balance = %d, want 50", balance)
	}

	got, _ := ts.GetByID(ctx, owner, task.ID)
	if !got.Archived {
		t.Error("expected task to be archived")
	}
}

func TestArchiveTaskTwiceDoesNotDoubleCredit(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTaskStore(db)
	ss := NewSettlementStore(db)
	ctx := context.Background()
	owner := model.AccountOwner(createTestAccount(t, db, model.AccountIndependent).ID)

	task, _ := ts.Create(ctx, owner, newTask("Dishes", 20))
	if _, err := ss.ArchiveTask(ctx, owner, task.ID); err != nil {
		t.Fatalf("first archive: %v", err)
	}

	_, err := ss.ArchiveTask(ctx, owner, task.ID)
	if !errors.Is(err, ErrAlreadyArchived) {
		t.Fatalf("second archive err = %v, want ErrAlreadyArchived", err)
	}

	balance, _ := ss.Balance(ctx, owner)
	if balance != 20 {
		t.Errorf("balance = %d, want 20", balance)
	}
	settlements, _ := ss.ListByOwner(ctx, owner)
	if len(settlements) != 1 {
		t.Errorf("expected 1 settlement, got %d", len(settlements))
	}
}

func TestArchiveTaskMissing(t *testing.T) {
	db := setupTestDB(t)
	owner := model.AccountOwner(createTestAccount(t, db, model.AccountIndependent).ID)

	_, err := NewSettlementStore(db).ArchiveTask(context.Background(), owner, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestArchiveTaskRollsBackWhenOwnerMissing(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTaskStore(db)
	ctx := context.Background()
	ghost := model.ChildOwner("nobody", "ghost-child")

	task, err := ts.Create(ctx, ghost, newTask("Orphan", 5))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	_, err = NewSettlementStore(db).ArchiveTask(ctx, ghost, task.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	got, _ := ts.GetByID(ctx, ghost, task.ID)
	if got.Archived {
		t.Error("archive write should have rolled back with the failed credit")
	}
}

func TestCreditChildBalance(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSettlementStore(db)
	ctx := context.Background()
	a := createTestAccount(t, db, model.AccountManaged)
	child, _ := NewChildStore(db).Create(ctx, a.ID, "zoe", "Zoe")
	kid := model.ChildOwner(a.ID, child.ID)

	if _, err := ss.Credit(ctx, kid, 7, model.SourceGameScore); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := ss.Credit(ctx, kid, 3, model.SourceGameScore); err != nil {
		t.Fatalf("credit: %v", err)
	}

	balance, _ := ss.Balance(ctx, kid)
	if balance != 10 {
		t.Errorf("child balance = %d, want 10", balance)
	}
	parent, _ := ss.Balance(ctx, model.AccountOwner(a.ID))
	if parent != 0 {
		t.Errorf("parent balance = %d, want 0", parent)
	}
}

func TestCreditRejectsNegativeAmount(t *testing.T) {
	db := setupTestDB(t)
	owner := model.AccountOwner(createTestAccount(t, db, model.AccountIndependent).ID)

	if _, err := NewSettlementStore(db).Credit(context.Background(), owner, -1, model.SourceGameScore); err == nil {
		t.Error("expected negative credit to fail the ledger constraint")
	}
}
