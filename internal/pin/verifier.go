// Package pin implements the 4-digit manager PIN: hashing, verification,
// the digit entry widget state, and the gate that guards protected actions.
package pin

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const Length = 4

var ErrInvalidPIN = errors.New("PIN must be exactly 4 digits")

// Verifier decides whether a candidate PIN unlocks a gate.
type Verifier interface {
	Verify(candidate string) bool
}

// Validate checks that p is exactly four ASCII digits.
func Validate(p string) error {
	if len(p) != Length {
		return ErrInvalidPIN
	}
	for _, c := range p {
		if c < '0' || c > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// Hash validates and bcrypt-hashes a PIN for storage.
func Hash(p string) (string, error) {
	if err := Validate(p); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// PlainVerifier compares against a plaintext PIN.
type PlainVerifier string

func (v PlainVerifier) Verify(candidate string) bool {
	return v != "" && string(v) == candidate
}

// HashVerifier compares against a bcrypt hash loaded once.
type HashVerifier struct {
	hash []byte
}

func NewHashVerifier(hash string) *HashVerifier {
	return &HashVerifier{hash: []byte(hash)}
}

func (v *HashVerifier) Verify(candidate string) bool {
	if len(v.hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(candidate)) == nil
}

// DenyVerifier rejects everything. Used when a managed account has no PIN.
type DenyVerifier struct{}

func (DenyVerifier) Verify(string) bool { return false }

// Throttle limits failed attempts: after limit failures inside window every
// attempt is refused until the window ends.
type Throttle struct {
	mu       sync.Mutex
	next     Verifier
	limit    int
	window   time.Duration
	failures int
	resetAt  time.Time
	now      func() time.Time
}

func NewThrottle(next Verifier, limit int, window time.Duration) *Throttle {
	return &Throttle{next: next, limit: limit, window: window, now: time.Now}
}

func (t *Throttle) Verify(candidate string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if !now.Before(t.resetAt) {
		t.failures = 0
		t.resetAt = now.Add(t.window)
	}
	if t.failures >= t.limit {
		return false
	}
	if t.next.Verify(candidate) {
		t.failures = 0
		return true
	}
	t.failures++
	return false
}

// Locked reports whether attempts are currently refused.
func (t *Throttle) Locked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now().Before(t.resetAt) && t.failures >= t.limit
}
