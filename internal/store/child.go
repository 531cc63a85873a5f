package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/taskblast/internal/model"
	"github.com/google/uuid"
)

type ChildStore struct {
	db *sql.DB
}

func NewChildStore(db *sql.DB) *ChildStore {
	return &ChildStore{db: db}
}

func scanChild(row scanner) (*model.Child, error) {
	var c model.Child
	err := row.Scan(&c.ID, &c.AccountID, &c.Username, &c.DisplayName, &c.Rocks, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const childCols = `id, account_id, username, display_name, rocks, created_at, updated_at`

func (s *ChildStore) Create(ctx context.Context, accountID, username, displayName string) (*model.Child, error) {
	id := uuid.NewString()
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO children (id, account_id, username, display_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, accountID, username, displayName, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ChildStore) GetByID(ctx context.Context, id string) (*model.Child, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+childCols+` FROM children WHERE id = ?`, id)
	c, err := scanChild(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	return c, nil
}

// GetByUsername finds a child of the given account by username.
func (s *ChildStore) GetByUsername(ctx context.Context, accountID, username string) (*model.Child, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+childCols+` FROM children WHERE account_id = ? AND username = ?`,
		accountID, username,
	)
	c, err := scanChild(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child by username: %w", err)
	}
	return c, nil
}

func (s *ChildStore) ListByAccount(ctx context.Context, accountID string) ([]model.Child, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+childCols+` FROM children WHERE account_id = ? ORDER BY username ASC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []model.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

func (s *ChildStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM children WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	return nil
}

func (s *ChildStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM children WHERE username = ?`, username).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check username exists: %w", err)
	}
	return count > 0, nil
}
