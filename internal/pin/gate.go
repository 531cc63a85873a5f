package pin

import (
	"errors"
	"sync"
)

const IncorrectMessage = "Incorrect PIN"

var (
	ErrNotOpen    = errors.New("pin gate is not open")
	ErrIncomplete = errors.New("pin entry incomplete")
)

type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// Gate holds one pending action behind a PIN prompt.
type Gate struct {
	mu       sync.Mutex
	verifier Verifier
	state    State
	pending  func() error
	entry    Entry
	message  string
}

func NewGate(v Verifier) *Gate {
	return &Gate{verifier: v}
}

// Open shows the prompt with action attached. Opening an already open gate
// replaces the pending action.
func (g *Gate) Open(action func() error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Open
	g.pending = action
	g.entry.Clear()
	g.message = ""
}

// Type and Backspace forward key presses to the entry while the gate is open.
func (g *Gate) Type(r rune) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Open {
		g.entry.Type(r)
	}
}

func (g *Gate) Backspace() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Open {
		g.entry.Backspace()
	}
}

// Submit checks the entered PIN. On a match the gate closes and the pending
// action runs; its error is returned. On a mismatch the gate stays open,
// the entry is cleared and Message reports "Incorrect PIN".
func (g *Gate) Submit() (bool, error) {
	g.mu.Lock()
	if g.state != Open {
		g.mu.Unlock()
		return false, ErrNotOpen
	}
	if !g.entry.Complete() {
		g.mu.Unlock()
		return false, ErrIncomplete
	}
	candidate := g.entry.Value()
	if !g.verifier.Verify(candidate) {
		g.entry.Clear()
		g.message = IncorrectMessage
		g.mu.Unlock()
		return false, nil
	}
	action := g.pending
	g.state = Closed
	g.pending = nil
	g.entry.Clear()
	g.message = ""
	g.mu.Unlock()

	if action == nil {
		return true, nil
	}
	return true, action()
}

// SubmitPIN types p into a fresh entry and submits it. Anything other than
// four digits is refused without counting as an attempt.
func (g *Gate) SubmitPIN(p string) (bool, error) {
	if err := Validate(p); err != nil {
		return false, err
	}
	g.mu.Lock()
	g.entry.Clear()
	if g.state == Open {
		for _, r := range p {
			g.entry.Type(r)
		}
	}
	g.mu.Unlock()
	return g.Submit()
}

// Cancel closes the prompt and discards the pending action.
func (g *Gate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Closed
	g.pending = nil
	g.entry.Clear()
	g.message = ""
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Message is the inline error shown in the prompt, "" when none.
func (g *Gate) Message() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.message
}

// Entered returns the digits currently in the entry.
func (g *Gate) Entered() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.entry.Value()
}

func (g *Gate) CanSubmit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == Open && g.entry.Complete()
}
