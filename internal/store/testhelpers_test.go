package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/taskblast/internal/database"
	"github.com/dukerupert/taskblast/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestAccount(t *testing.T, db *sql.DB, accountType model.AccountType) *model.Account {
	t.Helper()
	a, err := NewAccountStore(db).Create(context.Background(), "parent-"+string(accountType)+"@example.com", "Parent", accountType)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }
