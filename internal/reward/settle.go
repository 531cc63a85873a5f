// Package reward credits rocks to an owner's balance and tells listeners
// about it.
package reward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/taskblast/internal/model"
)

var ErrNegativeAmount = errors.New("settlement amount must not be negative")

// Ledger is the write side of the backend the settler needs.
type Ledger interface {
	ArchiveTask(ctx context.Context, owner model.OwnerRef, taskID string) (*model.Settlement, error)
	Credit(ctx context.Context, owner model.OwnerRef, amount int, source model.SettlementSource) (*model.Settlement, error)
}

type Settler struct {
	ledger        Ledger
	onRocksChange func()
	logger        *slog.Logger
}

// NewSettler returns a settler. onRocksChange may be nil.
func NewSettler(ledger Ledger, onRocksChange func(), logger *slog.Logger) *Settler {
	return &Settler{ledger: ledger, onRocksChange: onRocksChange, logger: logger}
}

// ArchiveTask archives the task and credits its reward in one transaction.
// Archiving an already archived task fails with store.ErrAlreadyArchived and
// credits nothing.
func (s *Settler) ArchiveTask(ctx context.Context, owner model.OwnerRef, taskID string) (*model.Settlement, error) {
	st, err := s.ledger.ArchiveTask(ctx, owner, taskID)
	if err != nil {
		return nil, fmt.Errorf("settle archive %s: %w", taskID, err)
	}
	s.logger.Info("task settled", "owner", owner.ID, "task", taskID, "amount", st.Amount)
	s.notify()
	return st, nil
}

// Settle credits amount to the owner.
func (s *Settler) Settle(ctx context.Context, owner model.OwnerRef, amount int, source model.SettlementSource) (*model.Settlement, error) {
	if amount < 0 {
		return nil, ErrNegativeAmount
	}
	st, err := s.ledger.Credit(ctx, owner, amount, source)
	if err != nil {
		return nil, fmt.Errorf("settle %s: %w", source, err)
	}
	s.logger.Info("balance credited", "owner", owner.ID, "source", source, "amount", amount)
	s.notify()
	return st, nil
}

func (s *Settler) notify() {
	if s.onRocksChange != nil {
		s.onRocksChange()
	}
}
