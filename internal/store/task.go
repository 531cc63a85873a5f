package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/taskblast/internal/model"
	"github.com/google/uuid"
)

// TaskStore holds every owner's task collection. All methods are scoped to
// an owner, so a task id from another collection reads as not found.
type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(row scanner) (*model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Reward, &t.Completed,
		&t.AllowMinimization, &t.WorkTime, &t.PlayTime, &t.Cycles,
		&t.CompletedCycles, &t.Archived, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const taskCols = `id, name, description, reward, completed, allow_minimization, work_time, play_time, cycles, completed_cycles, archived, created_at, updated_at`

// Create inserts t into the owner's collection. ID and timestamps on t are
// ignored and assigned here.
func (s *TaskStore) Create(ctx context.Context, owner model.OwnerRef, t model.Task) (*model.Task, error) {
	id := uuid.NewString()
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, owner_kind, owner_id, name, description, reward, completed, allow_minimization, work_time, play_time, cycles, completed_cycles, archived, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(owner.Kind), owner.ID, t.Name, t.Description, t.Reward, boolInt(t.Completed),
		boolInt(t.AllowMinimization), t.WorkTime, t.PlayTime, t.Cycles, t.CompletedCycles,
		boolInt(t.Archived), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetByID(ctx, owner, id)
}

func (s *TaskStore) GetByID(ctx context.Context, owner model.OwnerRef, id string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE owner_kind = ? AND owner_id = ? AND id = ?`,
		string(owner.Kind), owner.ID, id,
	)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// List returns the owner's whole collection, newest first.
func (s *TaskStore) List(ctx context.Context, owner model.OwnerRef) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE owner_kind = ? AND owner_id = ? ORDER BY created_at DESC, rowid DESC`,
		string(owner.Kind), owner.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update applies a partial update and stamps updated_at. It returns
// (nil, nil) when the task does not exist in the owner's collection.
func (s *TaskStore) Update(ctx context.Context, owner model.OwnerRef, id string, p model.TaskPatch) (*model.Task, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Reward != nil {
		add("reward", *p.Reward)
	}
	if p.Completed != nil {
		add("completed", boolInt(*p.Completed))
	}
	if p.AllowMinimization != nil {
		add("allow_minimization", boolInt(*p.AllowMinimization))
	}
	if p.WorkTime != nil {
		add("work_time", *p.WorkTime)
	}
	if p.PlayTime != nil {
		add("play_time", *p.PlayTime)
	}
	if p.Cycles != nil {
		add("cycles", *p.Cycles)
	}
	if p.CompletedCycles != nil {
		add("completed_cycles", *p.CompletedCycles)
	}
	if p.Archived != nil {
		add("archived", boolInt(*p.Archived))
	}
	add("updated_at", now())
	args = append(args, string(owner.Kind), owner.ID, id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE owner_kind = ? AND owner_id = ? AND id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, owner, id)
}

// IncrementCycles records one finished work cycle.
func (s *TaskStore) IncrementCycles(ctx context.Context, owner model.OwnerRef, id string) (*model.Task, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET completed_cycles = completed_cycles + 1, updated_at = ? WHERE owner_kind = ? AND owner_id = ? AND id = ?`,
		now(), string(owner.Kind), owner.ID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("increment cycles: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, owner, id)
}

func (s *TaskStore) Delete(ctx context.Context, owner model.OwnerRef, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE owner_kind = ? AND owner_id = ? AND id = ?`,
		string(owner.Kind), owner.ID, id,
	)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
