package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/taskblast/internal/model"
)

var ErrNoAccount = errors.New("no authenticated account")

// KeyValue is the read side of the preferences store.
type KeyValue interface {
	Get(key string) (string, bool, error)
}

// ChildLookup finds a child sub-profile by username under an account.
type ChildLookup interface {
	ChildByUsername(ctx context.Context, accountID, username string) (*model.Child, error)
}

// Resolver maps the active-child selector to the owner whose tasks are shown.
type Resolver struct {
	prefs    KeyValue
	children ChildLookup
}

func NewResolver(prefs KeyValue, children ChildLookup) *Resolver {
	return &Resolver{prefs: prefs, children: children}
}

// Resolve reads the selector once and returns the account's own owner when it
// is absent or empty.
func (r *Resolver) Resolve(ctx context.Context, accountID string) (model.OwnerRef, error) {
	if accountID == "" {
		return model.OwnerRef{}, ErrNoAccount
	}
	username := ""
	if r.prefs != nil {
		v, ok, err := r.prefs.Get(ActiveChildKey)
		if err != nil {
			return model.OwnerRef{}, fmt.Errorf("read active child: %w", err)
		}
		if ok {
			username = v
		}
	}
	return r.ResolveUsername(ctx, accountID, username)
}

// ResolveUsername resolves an explicit selector, as passed by ?child= on the API.
func (r *Resolver) ResolveUsername(ctx context.Context, accountID, username string) (model.OwnerRef, error) {
	if accountID == "" {
		return model.OwnerRef{}, ErrNoAccount
	}
	if username == "" {
		return model.AccountOwner(accountID), nil
	}
	child, err := r.children.ChildByUsername(ctx, accountID, username)
	if err != nil {
		return model.OwnerRef{}, fmt.Errorf("resolve child %q: %w", username, err)
	}
	return model.ChildOwner(accountID, child.ID), nil
}
