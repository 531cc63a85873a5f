package tasklist

import (
	"context"
	"fmt"

	"github.com/dukerupert/taskblast/internal/model"
)

// Create adds a task. Only Edit mode offers it. The new task shows up with the
// next snapshot, not from the return value.
func (c *Controller) Create(ctx context.Context, in model.TaskInput) (*model.Task, error) {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	mode, owner := c.mode, c.owner
	c.mu.Unlock()
	if mode != Edit {
		return nil, fmt.Errorf("add in %s mode: %w", mode, ErrActionNotOffered)
	}

	t, err := Normalize(in)
	if err != nil {
		return nil, err
	}
	created, err := c.backend.CreateTask(ctx, owner, t)
	if err != nil {
		return nil, c.fail("create", "", err)
	}
	c.logger.Info("task created", "task", created.ID, "collection", owner.Collection())
	return created, nil
}

// Edit rewrites the user-editable fields. Cycle progress and archive state
// are left alone.
func (c *Controller) Edit(ctx context.Context, id string, in model.TaskInput) (*model.Task, error) {
	_, owner, _, err := c.lookup(id, ActionEdit)
	if err != nil {
		return nil, err
	}
	t, err := Normalize(in)
	if err != nil {
		return nil, err
	}
	updated, err := c.backend.UpdateTask(ctx, owner, id, model.TaskPatch{
		Name:              &t.Name,
		Description:       &t.Description,
		Reward:            &t.Reward,
		AllowMinimization: &t.AllowMinimization,
		WorkTime:          &t.WorkTime,
		PlayTime:          &t.PlayTime,
		Cycles:            &t.Cycles,
	})
	if err != nil {
		return nil, c.fail("update", id, err)
	}
	return updated, nil
}

// ToggleComplete flips completed. Outside Edit mode an unfinished task can
// only be checked off once its cycles are met.
func (c *Controller) ToggleComplete(ctx context.Context, id string) (*model.Task, error) {
	t, owner, mode, err := c.lookup(id, ActionToggleComplete)
	if err != nil {
		return nil, err
	}
	if !t.Completed && mode != Edit && !t.CyclesMet() {
		return nil, fmt.Errorf("task %s at %d/%d: %w", id, t.CompletedCycles, t.Cycles, ErrCyclesIncomplete)
	}
	completed := !t.Completed
	updated, err := c.backend.UpdateTask(ctx, owner, id, model.TaskPatch{Completed: &completed})
	if err != nil {
		return nil, c.fail("update", id, err)
	}
	return updated, nil
}

// Archive hides the task and credits its reward in one step.
func (c *Controller) Archive(ctx context.Context, id string) (*model.Settlement, error) {
	_, owner, _, err := c.lookup(id, ActionArchive)
	if err != nil {
		return nil, err
	}
	st, err := c.settler.ArchiveTask(ctx, owner, id)
	if err != nil {
		return nil, c.fail("archive", id, err)
	}
	return st, nil
}

// Unarchive restores the task with its progress reset. Managed accounts are
// asked for the PIN first and the write happens on a correct submit; in that
// case pending is true.
func (c *Controller) Unarchive(ctx context.Context, id string) (pending bool, err error) {
	_, owner, _, err := c.lookup(id, ActionUnarchive)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	accountType, gate, base := c.accountType, c.gate, c.ctx
	c.mu.Unlock()

	switch accountType {
	case model.AccountIndependent:
		return false, c.unarchive(ctx, owner, id)
	case model.AccountManaged:
		gate.Open(func() error { return c.unarchive(base, owner, id) })
		c.render()
		return true, nil
	default:
		return false, fmt.Errorf("unarchive: %w", ErrAccountUnknown)
	}
}

func (c *Controller) unarchive(ctx context.Context, owner model.OwnerRef, id string) error {
	archived, completed, cycles := false, false, 0
	_, err := c.backend.UpdateTask(ctx, owner, id, model.TaskPatch{
		Archived:        &archived,
		Completed:       &completed,
		CompletedCycles: &cycles,
	})
	if err != nil {
		return c.fail("unarchive", id, err)
	}
	return nil
}

// Delete removes the task for good and forgets its tap state.
func (c *Controller) Delete(ctx context.Context, id string) error {
	_, owner, _, err := c.lookup(id, ActionDelete)
	if err != nil {
		return err
	}
	if err := c.backend.DeleteTask(ctx, owner, id); err != nil {
		return c.fail("delete", id, err)
	}
	c.taps.Forget(id)
	return nil
}

// Tap records a tap on the task row. The third tap inside the window resets
// the cycle counter, whatever the mode.
func (c *Controller) Tap(ctx context.Context, id string) (reset bool, err error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	if !c.taps.Tap(id) {
		return false, nil
	}
	if err := c.ResetCycles(ctx, id); err != nil {
		return true, err
	}
	return true, nil
}

// ResetCycles forces completedCycles back to zero.
func (c *Controller) ResetCycles(ctx context.Context, id string) error {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	owner := c.owner
	c.mu.Unlock()

	zero := 0
	if _, err := c.backend.UpdateTask(ctx, owner, id, model.TaskPatch{CompletedCycles: &zero}); err != nil {
		return c.fail("reset", id, err)
	}
	c.logger.Debug("cycles reset", "task", id)
	return nil
}

// Start hands the task to the Pomodoro timer.
func (c *Controller) Start(id string) (model.StartRequest, error) {
	t, _, _, err := c.lookup(id, ActionStart)
	if err != nil {
		return model.StartRequest{}, err
	}
	req := model.StartRequest{
		TaskID:            t.ID,
		TaskName:          t.Name,
		WorkTime:          t.WorkTime,
		PlayTime:          t.PlayTime,
		Cycles:            t.Cycles,
		AllowMinimization: t.AllowMinimization,
	}
	if c.cfg.Launcher != nil {
		if err := c.cfg.Launcher.Launch(req); err != nil {
			return req, c.fail("start", id, err)
		}
	}
	return req, nil
}

// Info returns the task as of the latest snapshot.
func (c *Controller) Info(id string) (model.Task, error) {
	t, _, _, err := c.lookup(id, ActionInfo)
	return t, err
}
