package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/taskblast/internal/model"
	"github.com/google/uuid"
)

type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

func scanAccount(row scanner) (*model.Account, error) {
	var a model.Account
	var accountType string
	err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &accountType, &a.HasPIN, &a.Rocks, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.AccountType = model.AccountType(accountType)
	return &a, nil
}

const accountCols = `id, email, display_name, account_type, managerial_pin IS NOT NULL, rocks, created_at, updated_at`

func (s *AccountStore) Create(ctx context.Context, email, displayName string, accountType model.AccountType) (*model.Account, error) {
	id := uuid.NewString()
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, display_name, account_type, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, email, displayName, string(accountType), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE email = ?`, email)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

func (s *AccountStore) SetAccountType(ctx context.Context, id string, accountType model.AccountType) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET account_type = ?, updated_at = ? WHERE id = ?`,
		string(accountType), now(), id,
	)
	if err != nil {
		return fmt.Errorf("set account type: %w", err)
	}
	return nil
}

func (s *AccountStore) SetPIN(ctx context.Context, id, hashedPIN string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET managerial_pin = ?, updated_at = ? WHERE id = ?`,
		hashedPIN, now(), id,
	)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *AccountStore) ClearPIN(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET managerial_pin = NULL, updated_at = ? WHERE id = ?`,
		now(), id,
	)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

// GetPINHash returns the stored PIN hash, or "" when no PIN is set.
func (s *AccountStore) GetPINHash(ctx context.Context, id string) (string, error) {
	var pin sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT managerial_pin FROM accounts WHERE id = ?`, id).Scan(&pin)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query pin: %w", err)
	}
	if !pin.Valid {
		return "", nil
	}
	return pin.String, nil
}

func (s *AccountStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE email = ?`, email).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return count > 0, nil
}
