package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/taskblast/internal/model"
	"github.com/google/uuid"
)

// SettlementStore owns the rocks balances and the ledger of credits.
type SettlementStore struct {
	db *sql.DB
}

func NewSettlementStore(db *sql.DB) *SettlementStore {
	return &SettlementStore{db: db}
}

func scanSettlement(row scanner) (*model.Settlement, error) {
	var st model.Settlement
	var kind, source string
	var taskID sql.NullString
	err := row.Scan(&st.ID, &kind, &st.OwnerID, &taskID, &st.Amount, &source, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	st.OwnerKind = model.OwnerKind(kind)
	st.Source = model.SettlementSource(source)
	if taskID.Valid {
		st.TaskID = &taskID.String
	}
	return &st, nil
}

const settlementCols = `id, owner_kind, owner_id, task_id, amount, source, created_at`

// ArchiveTask archives the task and credits its reward to the owner in one
// transaction. Archiving an already archived task returns ErrAlreadyArchived
// and credits nothing.
func (s *SettlementStore) ArchiveTask(ctx context.Context, owner model.OwnerRef, taskID string) (*model.Settlement, error) {
	var st *model.Settlement
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var reward int
		var archived bool
		err := tx.QueryRowContext(ctx,
			`SELECT reward, archived FROM tasks WHERE owner_kind = ? AND owner_id = ? AND id = ?`,
			string(owner.Kind), owner.ID, taskID,
		).Scan(&reward, &archived)
		if err == sql.ErrNoRows {
			return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get task reward: %w", err)
		}
		if archived {
			return fmt.Errorf("task %s: %w", taskID, ErrAlreadyArchived)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE tasks SET archived = 1, updated_at = ? WHERE owner_kind = ? AND owner_id = ? AND id = ? AND archived = 0`,
			now(), string(owner.Kind), owner.ID, taskID,
		)
		if err != nil {
			return fmt.Errorf("archive task: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("task %s: %w", taskID, ErrAlreadyArchived)
		}

		st, err = credit(ctx, tx, owner, reward, model.SourceTaskArchive, &taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Credit adds amount to the owner's balance and records it in the ledger.
func (s *SettlementStore) Credit(ctx context.Context, owner model.OwnerRef, amount int, source model.SettlementSource) (*model.Settlement, error) {
	var st *model.Settlement
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		st, err = credit(ctx, tx, owner, amount, source, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func credit(ctx context.Context, tx *sql.Tx, owner model.OwnerRef, amount int, source model.SettlementSource, taskID *string) (*model.Settlement, error) {
	table, err := balanceTable(owner.Kind)
	if err != nil {
		return nil, err
	}

	ts := now()
	result, err := tx.ExecContext(ctx,
		`UPDATE `+table+` SET rocks = rocks + ?, updated_at = ? WHERE id = ?`,
		amount, ts, owner.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("increment rocks: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("owner %s %s: %w", owner.Kind, owner.ID, ErrNotFound)
	}

	var tID sql.NullString
	if taskID != nil {
		tID = sql.NullString{String: *taskID, Valid: true}
	}
	st := &model.Settlement{
		ID:        uuid.NewString(),
		OwnerKind: owner.Kind,
		OwnerID:   owner.ID,
		TaskID:    taskID,
		Amount:    amount,
		Source:    source,
		CreatedAt: ts,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO settlements (`+settlementCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.ID, string(owner.Kind), owner.ID, tID, amount, string(source), ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert settlement: %w", err)
	}
	return st, nil
}

// Balance returns the owner's current rocks.
func (s *SettlementStore) Balance(ctx context.Context, owner model.OwnerRef) (int, error) {
	table, err := balanceTable(owner.Kind)
	if err != nil {
		return 0, err
	}
	var rocks int
	err = s.db.QueryRowContext(ctx, `SELECT rocks FROM `+table+` WHERE id = ?`, owner.ID).Scan(&rocks)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("owner %s %s: %w", owner.Kind, owner.ID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return rocks, nil
}

func (s *SettlementStore) ListByOwner(ctx context.Context, owner model.OwnerRef) ([]model.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+settlementCols+` FROM settlements WHERE owner_kind = ? AND owner_id = ? ORDER BY created_at DESC`,
		string(owner.Kind), owner.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []model.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		settlements = append(settlements, *st)
	}
	return settlements, rows.Err()
}
