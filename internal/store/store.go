package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/taskblast/internal/model"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyArchived = errors.New("task already archived")
)

// now is swapped in tests that need deterministic ordering.
var now = func() time.Time { return time.Now().UTC() }

type scanner interface{ Scan(...any) error }

// withTx runs fn inside a SQL transaction, rolling back on error.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// balanceTable returns the table holding the rocks column for an owner.
func balanceTable(kind model.OwnerKind) (string, error) {
	switch kind {
	case model.OwnerAccount:
		return "accounts", nil
	case model.OwnerChild:
		return "children", nil
	default:
		return "", fmt.Errorf("unknown owner kind %q", kind)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
