package tasklist

import (
	"fmt"

	"github.com/dukerupert/taskblast/internal/model"
)

// Row is one rendered task.
type Row struct {
	Task    model.Task
	Actions []Action
	// CanComplete is false when the checkmark is shown disabled.
	CanComplete bool
}

// Progress renders the cycle counter, e.g. "0/1" or "3/∞".
func (r Row) Progress() string {
	if r.Task.Cycles == model.InfiniteCycles {
		return fmt.Sprintf("%d/∞", r.Task.CompletedCycles)
	}
	return fmt.Sprintf("%d/%d", r.Task.CompletedCycles, r.Task.Cycles)
}

// View is what the render callback receives.
type View struct {
	Mode        Mode
	AccountType model.AccountType
	Owner       model.OwnerRef
	Rows        []Row
	CanAdd      bool
	// PINPrompt is true while the PIN gate is open.
	PINPrompt bool
	PINError  string
}

func (v View) Row(id string) (Row, bool) {
	for _, r := range v.Rows {
		if r.Task.ID == id {
			return r, true
		}
	}
	return Row{}, false
}

// IDs returns the row ids in display order.
func (v View) IDs() []string {
	ids := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		ids[i] = r.Task.ID
	}
	return ids
}

func actionsFor(m Mode, t model.Task) []Action {
	if t.Archived != m.showsArchived() {
		return nil
	}
	return append([]Action(nil), modeActions[m]...)
}

func canComplete(m Mode, t model.Task) bool {
	if !m.offers(ActionToggleComplete) || t.Archived {
		return false
	}
	return t.Completed || m == Edit || t.CyclesMet()
}
