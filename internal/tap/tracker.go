// Package tap counts rapid repeated taps per key.
package tap

import (
	"sync"
	"time"
)

const (
	DefaultWindow    = 500 * time.Millisecond
	DefaultThreshold = 3
)

type entry struct {
	taps      []time.Time
	expiresAt time.Time
}

// live drops taps older than one window before now and returns what is left.
func (e *entry) live(now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(e.taps) && now.Sub(e.taps[i]) >= window {
		i++
	}
	e.taps = e.taps[i:]
	return e.taps
}

// Tracker fires once a key is tapped threshold times inside a rolling window:
// the oldest of the last threshold taps must be less than one window older
// than the newest. Each tap pushes the entry's expiry out by one window; once
// it lapses the count reads as zero.
type Tracker struct {
	mu        sync.Mutex
	entries   map[string]*entry
	window    time.Duration
	threshold int
	now       func() time.Time
}

func NewTracker(window time.Duration, threshold int) *Tracker {
	return &Tracker{
		entries:   make(map[string]*entry),
		window:    window,
		threshold: threshold,
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Tap records a tap on key and reports whether it completed the sequence.
// A completed sequence resets the key.
func (t *Tracker) Tap(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	e, ok := t.entries[key]
	if !ok {
		e = &entry{}
		t.entries[key] = e
	}
	e.taps = append(e.live(now, t.window), now)
	e.expiresAt = now.Add(t.window)
	if len(e.taps) >= t.threshold {
		delete(t.entries, key)
		return true
	}
	return false
}

// Count returns the live tap count for key.
func (t *Tracker) Count(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		return 0
	}
	return len(e.live(t.now(), t.window))
}

// Forget drops any pending state for key, e.g. after the task is deleted.
func (t *Tracker) Forget(key string) {
	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
}

// Cleanup removes expired entries.
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for key, e := range t.entries {
		if !now.Before(e.expiresAt) {
			delete(t.entries, key)
		}
	}
}

// Len returns the number of tracked keys, expired or not.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
