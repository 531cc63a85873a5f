package store

import (
	"context"
	"testing"

	"github.com/dukerupert/taskblast/internal/model"
)

func TestChildCRUD(t *testing.T) {
	db := setupTestDB(t)
	cs := NewChildStore(db)
	ctx := context.Background()
	a := createTestAccount(t, db, model.AccountManaged)

	c, err := cs.Create(ctx, a.ID, "zoe", "Zoe")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if c.AccountID != a.ID {
		t.Errorf("account_id = %q, want %q", c.AccountID, a.ID)
	}

	got, err := cs.GetByUsername(ctx, a.ID, "zoe")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if got == nil || got.ID != c.ID {
		t.Fatalf("get by username = %v, want id %s", got, c.ID)
	}

	cs.Create(ctx, a.ID, "adam", "Adam")
	children, err := cs.ListByAccount(ctx, a.ID)
	if err != nil {
		t.Fatalf("list children: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if children[0].Username != "adam" {
		t.Errorf("first child = %q, want %q", children[0].Username, "adam")
	}

	if err := cs.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete child: %v", err)
	}
	got, _ = cs.GetByID(ctx, c.ID)
	if got != nil {
		t.Error("expected nil for deleted child")
	}
}

func TestChildUsernameScopedToAccount(t *testing.T) {
	db := setupTestDB(t)
	cs := NewChildStore(db)
	ctx := context.Background()
	a := createTestAccount(t, db, model.AccountManaged)
	other := createTestAccount(t, db, model.AccountIndependent)

	cs.Create(ctx, a.ID, "zoe", "Zoe")

	got, err := cs.GetByUsername(ctx, other.ID, "zoe")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if got != nil {
		t.Error("child of another account must not resolve")
	}
}

func TestChildUsernameUnique(t *testing.T) {
	db := setupTestDB(t)
	cs := NewChildStore(db)
	ctx := context.Background()
	a := createTestAccount(t, db, model.AccountManaged)

	if _, err := cs.Create(ctx, a.ID, "zoe", "Zoe"); err != nil {
		t.Fatalf("create child: %v", err)
	}
	if _, err := cs.Create(ctx, a.ID, "zoe", "Zoe again"); err == nil {
		t.Error("expected duplicate username to fail")
	}
	exists, err := cs.UsernameExists(ctx, "zoe")
	if err != nil {
		t.Fatalf("username exists: %v", err)
	}
	if !exists {
		t.Error("expected username to exist")
	}
}
