package tasklist

import (
	"fmt"

	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/pin"
)

// RequestEdit asks to enter Edit mode. Independent accounts switch at once;
// managed accounts get the PIN prompt and switch after a correct PIN. An
// unknown account type refuses.
func (c *Controller) RequestEdit() error {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	switch c.mode {
	case Edit:
		c.mu.Unlock()
		return nil
	case Archive:
		c.mu.Unlock()
		return fmt.Errorf("archive to edit: %w", ErrInvalidTransition)
	}

	switch c.accountType {
	case model.AccountIndependent:
		c.mode = Edit
		c.mu.Unlock()
		c.render()
		return nil
	case model.AccountManaged:
		gate := c.gate
		c.mu.Unlock()
		gate.Open(c.enterEdit)
		c.render()
		return nil
	default:
		c.mu.Unlock()
		return fmt.Errorf("enter edit: %w", ErrAccountUnknown)
	}
}

func (c *Controller) enterEdit() error {
	c.mu.Lock()
	if c.mode != Normal {
		c.mu.Unlock()
		return fmt.Errorf("%s to edit: %w", c.mode, ErrInvalidTransition)
	}
	c.mode = Edit
	c.mu.Unlock()
	return nil
}

// EnterArchive switches Normal to Archive. Edit must go through Normal first.
func (c *Controller) EnterArchive() error {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	switch c.mode {
	case Archive:
		c.mu.Unlock()
		return nil
	case Edit:
		c.mu.Unlock()
		return fmt.Errorf("edit to archive: %w", ErrInvalidTransition)
	}
	c.mode = Archive
	gate := c.gate
	c.mu.Unlock()
	gate.Cancel()
	c.render()
	return nil
}

// ExitToNormal leaves Edit or Archive. Any open PIN prompt is cancelled.
func (c *Controller) ExitToNormal() {
	c.mu.Lock()
	c.mode = Normal
	gate := c.gate
	c.mu.Unlock()
	gate.Cancel()
	c.render()
}

// Resume is called whenever the list becomes visible again.
func (c *Controller) Resume() {
	c.ExitToNormal()
}

func (c *Controller) readyLocked() error {
	if c.closed {
		return ErrClosed
	}
	if !c.opened {
		return ErrNotOpen
	}
	return nil
}

// PIN returns the gate for key-by-key entry.
func (c *Controller) PIN() *pin.Gate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gate
}

// SubmitPIN checks a whole PIN against the open prompt. A mismatch leaves the
// mode unchanged and the prompt open with "Incorrect PIN".
func (c *Controller) SubmitPIN(p string) (bool, error) {
	ok, err := c.PIN().SubmitPIN(p)
	c.render()
	return ok, err
}

// CancelPIN closes the prompt and drops the pending action.
func (c *Controller) CancelPIN() {
	c.PIN().Cancel()
	c.render()
}
