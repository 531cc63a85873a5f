package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/taskblast/internal/model"
)

func TestAccountCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	as := NewAccountStore(db)
	ctx := context.Background()

	a, err := as.Create(ctx, "mom@example.com", "Mom", model.AccountManaged)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if a.ID == "" {
		t.Error("expected generated id")
	}
	if a.AccountType != model.AccountManaged {
		t.Errorf("account_type = %q, want %q", a.AccountType, model.AccountManaged)
	}
	if a.HasPIN {
		t.Error("new account should not have a PIN")
	}
	if a.Rocks != 0 {
		t.Errorf("rocks = %d, want 0", a.Rocks)
	}

	got, err := as.GetByEmail(ctx, "mom@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Fatalf("get by email = %v, want id %s", got, a.ID)
	}
}

func TestAccountGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)

	got, err := NewAccountStore(db).GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent account")
	}
}

func TestAccountRejectsUnknownType(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewAccountStore(db).Create(context.Background(), "x@example.com", "X", model.AccountType("guest"))
	if err == nil {
		t.Fatal("expected error for invalid account type")
	}
}

func TestAccountPIN(t *testing.T) {
	db := setupTestDB(t)
	as := NewAccountStore(db)
	ctx := context.Background()
	a := createTestAccount(t, db, model.AccountManaged)

	hash, err := as.GetPINHash(ctx, a.ID)
	if err != nil {
		t.Fatalf("get pin hash: %v", err)
	}
	if hash != "" {
		t.Errorf("hash = %q, want empty", hash)
	}

	if err := as.SetPIN(ctx, a.ID, "hashed-value"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	hash, _ = as.GetPINHash(ctx, a.ID)
	if hash != "hashed-value" {
		t.Errorf("hash = %q, want %q", hash, "hashed-value")
	}
	got, _ := as.GetByID(ctx, a.ID)
	if !got.HasPIN {
		t.Error("expected HasPIN after SetPIN")
	}

	if err := as.ClearPIN(ctx, a.ID); err != nil {
		t.Fatalf("clear pin: %v", err)
	}
	got, _ = as.GetByID(ctx, a.ID)
	if got.HasPIN {
		t.Error("expected no PIN after ClearPIN")
	}
}

func TestAccountGetPINHashMissingAccount(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewAccountStore(db).GetPINHash(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAccountEmailExists(t *testing.T) {
	db := setupTestDB(t)
	as := NewAccountStore(db)
	ctx := context.Background()
	createTestAccount(t, db, model.AccountIndependent)

	exists, err := as.EmailExists(ctx, "parent-independent@example.com")
	if err != nil {
		t.Fatalf("email exists: %v", err)
	}
	if !exists {
		t.Error("expected email to exist")
	}
	exists, _ = as.EmailExists(ctx, "nobody@example.com")
	if exists {
		t.Error("expected email not to exist")
	}
}
