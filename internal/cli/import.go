package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/tasklist"
)

// fileTask is one entry of a task import file.
type fileTask struct {
	Name              string `yaml:"name"`
	Description       string `yaml:"description"`
	Reward            *int   `yaml:"reward"`
	AllowMinimization bool   `yaml:"allow_minimization"`
	WorkTime          int    `yaml:"work_time"`
	PlayTime          int    `yaml:"play_time"`
	Cycles            int    `yaml:"cycles"`
}

// parseTaskFile decodes a YAML list of tasks and validates every entry, so
// that a bad entry rejects the whole file before anything is written.
func parseTaskFile(content []byte) ([]model.TaskInput, error) {
	var entries []fileTask
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("task file is empty")
		}
		return nil, fmt.Errorf("parse task file: %w", err)
	}
	if len(entries) == 0 {
		return nil, errors.New("task file is empty")
	}

	inputs := make([]model.TaskInput, len(entries))
	for i, e := range entries {
		in := model.TaskInput{
			Name:              e.Name,
			Description:       e.Description,
			Reward:            e.Reward,
			AllowMinimization: e.AllowMinimization,
			WorkTime:          e.WorkTime,
			PlayTime:          e.PlayTime,
			Cycles:            e.Cycles,
		}
		if err := tasklist.Validate(in); err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
		inputs[i] = in
	}
	return inputs, nil
}

func newTaskImportCommand(rt *runtime) *cobra.Command {
	var (
		dryRun bool
		pin    string
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Add tasks from a YAML file",
		Long: `Add every task listed in a YAML file to the active profile.

All entries are validated before any task is created.

File format:
  - name: Clean room
    reward: 50
  - name: Practice piano
    description: Scales first
    reward: 20
    cycles: 3
    work_time: 15
    play_time: 5
    allow_minimization: true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			inputs, err := parseTaskFile(content)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintln(w, "Dry run - tasks that would be created:")
				for _, in := range inputs {
					fmt.Fprintf(w, "  %s (%d rocks)\n", in.Name, *in.Reward)
				}
				return nil
			}

			s, err := rt.openTaskList(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.enterEdit(pin); err != nil {
				return err
			}
			for i, in := range inputs {
				t, err := s.ctl.Create(cmd.Context(), in)
				if err != nil {
					return fmt.Errorf("task %d: %w", i+1, err)
				}
				fmt.Fprintf(w, "Created task %s %q (%d rocks)\n", shortID(t.ID), t.Name, t.Reward)
			}
			fmt.Fprintf(w, "Created %d task(s)\n", len(inputs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and print without creating")
	cmd.Flags().StringVar(&pin, "pin", "", "manager PIN")
	return cmd
}
