package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type AccountType string

const (
	AccountManaged     AccountType = "managed"
	AccountIndependent AccountType = "independent"
	// AccountUnknown is never stored; it marks an account whose fields could
	// not be loaded.
	AccountUnknown AccountType = ""
)

func (t AccountType) Valid() bool {
	return t == AccountManaged || t == AccountIndependent
}

type Account struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"displayName"`
	AccountType AccountType `json:"accountType"`
	HasPIN      bool        `json:"hasPin"`
	Rocks       int         `json:"rocks"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type Child struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Rocks       int       `json:"rocks"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type OwnerKind string

const (
	OwnerAccount OwnerKind = "account"
	OwnerChild   OwnerKind = "child"
)

// OwnerRef names the profile that owns a task collection and a balance.
type OwnerRef struct {
	Kind      OwnerKind `json:"kind"`
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
}

func AccountOwner(accountID string) OwnerRef {
	return OwnerRef{Kind: OwnerAccount, ID: accountID, AccountID: accountID}
}

func ChildOwner(accountID, childID string) OwnerRef {
	return OwnerRef{Kind: OwnerChild, ID: childID, AccountID: accountID}
}

// Collection returns the document path of the owner's task collection.
func (o OwnerRef) Collection() string {
	if o.Kind == OwnerChild {
		return fmt.Sprintf("accounts/%s/children/%s/tasks", o.AccountID, o.ID)
	}
	return fmt.Sprintf("accounts/%s/tasks", o.ID)
}

func (o OwnerRef) IsZero() bool {
	return o.ID == ""
}

var usernameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{1,31}$`)

// NormalizeUsername lowercases and trims a child username and reports
// whether the result is 2-32 characters of [a-z0-9_.-] starting with a
// letter or digit.
func NormalizeUsername(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, usernameRegexp.MatchString(s)
}
