package model

import "time"

const (
	// InfiniteCycles marks a task whose cycle count never gates completion.
	InfiniteCycles = -1

	DefaultWorkTime = 25
	DefaultPlayTime = 5
	DefaultCycles   = 1

	MaxDescriptionLength = 200
)

type Task struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Reward            int       `json:"reward"`
	Completed         bool      `json:"completed"`
	AllowMinimization bool      `json:"allowMinimization"`
	WorkTime          int       `json:"workTime"`
	PlayTime          int       `json:"playTime"`
	Cycles            int       `json:"cycles"`
	CompletedCycles   int       `json:"completedCycles"`
	Archived          bool      `json:"archived"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// CyclesMet reports whether enough cycles are done for the task to be
// checked off outside of edit mode.
func (t Task) CyclesMet() bool {
	return t.Cycles == InfiniteCycles || t.CompletedCycles >= t.Cycles
}

// TaskInput carries the user-editable fields of a task. Reward is a pointer so
// that "not entered" can be told apart from zero.
type TaskInput struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Reward            *int   `json:"reward"`
	AllowMinimization bool   `json:"allowMinimization"`
	WorkTime          int    `json:"workTime"`
	PlayTime          int    `json:"playTime"`
	Cycles            int    `json:"cycles"`
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Name              *string `json:"name,omitempty"`
	Description       *string `json:"description,omitempty"`
	Reward            *int    `json:"reward,omitempty"`
	Completed         *bool   `json:"completed,omitempty"`
	AllowMinimization *bool   `json:"allowMinimization,omitempty"`
	WorkTime          *int    `json:"workTime,omitempty"`
	PlayTime          *int    `json:"playTime,omitempty"`
	Cycles            *int    `json:"cycles,omitempty"`
	CompletedCycles   *int    `json:"completedCycles,omitempty"`
	Archived          *bool   `json:"archived,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p == TaskPatch{}
}

// StartRequest is handed to the Pomodoro timer when a task is started.
type StartRequest struct {
	TaskID            string `json:"taskId"`
	TaskName          string `json:"taskName"`
	WorkTime          int    `json:"workTime"`
	PlayTime          int    `json:"playTime"`
	Cycles            int    `json:"cycles"`
	AllowMinimization bool   `json:"allowMinimization"`
}
