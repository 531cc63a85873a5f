package tasklist

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/taskblast/internal/model"
)

// Normalize validates user input and fills defaults. It returns the fields a
// create or edit writes.
func Normalize(in model.TaskInput) (model.Task, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Task{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.Reward == nil {
		return model.Task{}, fmt.Errorf("%w: reward is required", ErrValidation)
	}
	if *in.Reward < 0 {
		return model.Task{}, fmt.Errorf("%w: reward must not be negative", ErrValidation)
	}
	if utf8.RuneCountInString(in.Description) > model.MaxDescriptionLength {
		return model.Task{}, fmt.Errorf("%w: description exceeds %d characters", ErrValidation, model.MaxDescriptionLength)
	}

	t := model.Task{
		Name:              name,
		Description:       in.Description,
		Reward:            *in.Reward,
		AllowMinimization: in.AllowMinimization,
		WorkTime:          in.WorkTime,
		PlayTime:          in.PlayTime,
		Cycles:            in.Cycles,
	}
	switch {
	case t.WorkTime == 0:
		t.WorkTime = model.DefaultWorkTime
	case t.WorkTime < 0:
		return model.Task{}, fmt.Errorf("%w: work time must be positive", ErrValidation)
	}
	switch {
	case t.PlayTime == 0:
		t.PlayTime = model.DefaultPlayTime
	case t.PlayTime < 0:
		return model.Task{}, fmt.Errorf("%w: play time must be positive", ErrValidation)
	}
	switch {
	case t.Cycles == 0:
		t.Cycles = model.DefaultCycles
	case t.Cycles < model.InfiniteCycles:
		return model.Task{}, fmt.Errorf("%w: cycles must be -1 or at least 1", ErrValidation)
	}
	return t, nil
}

// Validate checks input the way Create and Edit do.
func Validate(in model.TaskInput) error {
	_, err := Normalize(in)
	return err
}
