package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/tasklist"
)

var ErrAmbiguousID = errors.New("task id prefix matches more than one task")

func newTaskCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "List and change tasks of the active profile",
		Long: `List and change tasks of the active profile (see "taskblast profile").

Task ids may be shortened to any unique prefix. On managed accounts the
commands that need edit mode, and unarchive, take the manager PIN via --pin.`,
	}
	cmd.AddCommand(
		newTaskListCommand(rt),
		newTaskAddCommand(rt),
		newTaskImportCommand(rt),
		newTaskEditCommand(rt),
		newTaskCompleteCommand(rt),
		newTaskArchiveCommand(rt),
		newTaskUnarchiveCommand(rt),
		newTaskDeleteCommand(rt),
		newTaskStartCommand(rt),
		newTaskInfoCommand(rt),
		newTaskTapCommand(rt),
		newTaskCycleCommand(rt),
	)
	return cmd
}

// matchID resolves a full id or unique prefix against the rows of v.
func matchID(v tasklist.View, arg string) (string, error) {
	if _, ok := v.Row(arg); ok {
		return arg, nil
	}
	var found string
	for _, id := range v.IDs() {
		if strings.HasPrefix(id, arg) {
			if found != "" {
				return "", fmt.Errorf("%s: %w", arg, ErrAmbiguousID)
			}
			found = id
		}
	}
	if found == "" {
		return "", fmt.Errorf("no %s-mode task matches %s", v.Mode, arg)
	}
	return found, nil
}

func printRows(w io.Writer, v tasklist.View) error {
	if len(v.Rows) == 0 {
		if v.Mode == tasklist.Archive {
			_, err := fmt.Fprintln(w, "No archived tasks.")
			return err
		}
		_, err := fmt.Fprintln(w, "No tasks.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tNAME\tREWARD\tCYCLES")
	for _, r := range v.Rows {
		done := "[ ]"
		switch {
		case r.Task.Completed:
			done = "[x]"
		case !r.CanComplete && v.Mode != tasklist.Archive:
			done = "[-]"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", shortID(r.Task.ID), done, r.Task.Name, r.Task.Reward, r.Progress())
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newTaskListCommand(rt *runtime) *cobra.Command {
	var archived bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, newest first",
		Long: `List tasks, newest first.

A [-] mark means the task cannot be checked off yet because its cycles
are not done.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := rt.openTaskList(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if archived {
				if err := s.ctl.EnterArchive(); err != nil {
					return err
				}
			}
			return printRows(cmd.OutOrStdout(), s.ctl.View())
		},
	}
	cmd.Flags().BoolVarP(&archived, "archived", "a", false, "list archived tasks")
	return cmd
}

type taskFlags struct {
	Name        string
	Description string
	Reward      int
	Minimize    bool
	WorkTime    int
	PlayTime    int
	Cycles      int
}

func (f *taskFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.Name, "name", "", "task name")
	flags.StringVar(&f.Description, "description", "", "description, up to 200 characters")
	flags.IntVar(&f.Reward, "reward", 0, "reward in rocks")
	flags.BoolVar(&f.Minimize, "allow-minimize", false, "allow minimizing the timer")
	flags.IntVar(&f.WorkTime, "work", 0, "work minutes per cycle (default 25)")
	flags.IntVar(&f.PlayTime, "play", 0, "play minutes per cycle (default 5)")
	flags.IntVar(&f.Cycles, "cycles", 0, "cycles to finish, -1 for unlimited (default 1)")
}

// apply copies the flags the user set onto in.
func (f *taskFlags) apply(cmd *cobra.Command, in *model.TaskInput) {
	changed := cmd.Flags().Changed
	if changed("name") {
		in.Name = f.Name
	}
	if changed("description") {
		in.Description = f.Description
	}
	if changed("reward") {
		reward := f.Reward
		in.Reward = &reward
	}
	if changed("allow-minimize") {
		in.AllowMinimization = f.Minimize
	}
	if changed("work") {
		in.WorkTime = f.WorkTime
	}
	if changed("play") {
		in.PlayTime = f.PlayTime
	}
	if changed("cycles") {
		in.Cycles = f.Cycles
	}
}

func newTaskAddCommand(rt *runtime) *cobra.Command {
	var (
		flags taskFlags
		pin   string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		Long: `Add a task to the active profile.

Examples:
  taskblast task add --name "Clean room" --reward 50 --pin 1234
  taskblast task add --name "Read" --reward 10 --cycles 3 --work 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in model.TaskInput
			flags.apply(cmd, &in)

			s, err := rt.openTaskList(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.enterEdit(pin); err != nil {
				return err
			}
			t, err := s.ctl.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s %q (%d rocks)\n", shortID(t.ID), t.Name, t.Reward)
			return nil
		},
	}
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("reward")
	cmd.Flags().StringVar(&pin, "pin", "", "manager PIN")
	return cmd
}

func newTaskEditCommand(rt *runtime) *cobra.Command {
	var (
		flags taskFlags
		pin   string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's name, reward or timer settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.openTaskList(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.enterEdit(pin); err != nil {
				return err
			}
			v := s.ctl.View()
			id, err := matchID(v, args[0])
			if err != nil {
				return err
			}
			row, _ := v.Row(id)
			reward := row.Task.Reward
			in := model.TaskInput{
				Name:              row.Task.Name,
				Description:       row.Task.Description,
				Reward:            &reward,
				AllowMinimization: row.Task.AllowMinimization,
				WorkTime:          row.Task.WorkTime,
				PlayTime:          row.Task.PlayTime,
				Cycles:            row.Task.Cycles,
			}
			flags.apply(cmd, &in)

			t, err := s.ctl.Edit(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s %q\n", shortID(t.ID), t.Name)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&pin, "pin", "", "manager PIN")
	return cmd
}

func newTaskCompleteCommand(rt *runtime) *cobra.Command {
	var (
		override bool
		pin      string
	)

	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Check a task off, or uncheck it",
		Long: `Toggle a task's completed mark.

A task with unfinished cycles can only be checked off in edit mode, which
--override enters (managed accounts also need --pin).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.openTaskList(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if override {
				if err := s.enterEdit(pin); err != nil {
					return err
				}
			}
			id, err := matchID(s.ctl.View(), args[0])
			if err != nil {
				return err
			}
			t, err := s.ctl.ToggleComplete(cmd.Context(), id)
			if err != nil {
				if errors.Is(err, tasklist.ErrCyclesIncomplete) {
					return fmt.Errorf("%w (use --override)", err)
				}
				return err
			}
			state := "not done"
			if t.Completed {
				state = "done"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s marked %s\n", shortID(t.ID), state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&override, "override", false, "complete in edit mode regardless of cycles")
	cmd.Flags().StringVar(&pin, "pin", "", "manager PIN")
	return cmd
}

func newTaskArchiveCommand(rt *runtime) *cobra.Command {
	var pin string

	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a task and credit its reward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.openTaskList(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.enterEdit(pin); err != nil {
				return err
			}
			id, err := matchID(s.ctl.View(), args[0])
			if err != nil {
				return err
			}
			st, err := s.ctl.Archive(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived task %s, +%d rocks\n", shortID(id), st.Amount)
			return nil
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "manager PIN")
	return cmd
}

func newTaskUnarchiveCommand(rt *runtime) *cobra.Command {
	var pin string

	cmd := &cobra.Command{
		Use:   "unarchive <id>",
		Short: "Restore an archived task with its progress reset",
		Long: `Restore an archived task. Its completed mark and cycle count are
reset. The reward already credited is kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.openTaskList(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.ctl.EnterArchive(); err != nil {
				return err
			}
			id, err := matchID(s.ctl.View(), args[0])
			if err != nil {
				return err
			}
			pending, err := s.ctl.Unarchive(cmd.Context(), id)
			if err != nil {
				return err
			}
			if pending {
				if err := s.submitPIN(pin); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored task %s\n", shortID(id))
			return nil
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "manager PIN")
	return cmd
}

func newTaskDeleteCommand(rt *runtime) *cobra.Command {
	var pin string

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task without reward",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.openTaskList(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.enterEdit(pin); err != nil {
				return err
			}
			id, err := matchID(s.ctl.View(), args[0])
			if err != nil {
				return err
			}
			if err := s.ctl.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", shortID(id))
			return nil
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "manager PIN")
	return cmd
}

func newTaskStartCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Print the timer start request for a task as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.openTaskList(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := matchID(s.ctl.View(), args[0])
			if err != nil {
				return err
			}
			_, err = s.ctl.Start(id)
			return err
		},
	}
}

func newTaskInfoCommand(rt *runtime) *cobra.Command {
	var archived bool

	cmd := &cobra.Command{
		Use:   "info <id>",
		Short: "Show a task's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.openTaskList(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if archived {
				if err := s.ctl.EnterArchive(); err != nil {
					return err
				}
			}
			v := s.ctl.View()
			id, err := matchID(v, args[0])
			if err != nil {
				return err
			}
			t, err := s.ctl.Info(id)
			if err != nil {
				return err
			}
			row, _ := v.Row(id)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:          %s\n", t.ID)
			fmt.Fprintf(out, "Name:        %s\n", t.Name)
			if t.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", t.Description)
			}
			fmt.Fprintf(out, "Reward:      %d rocks\n", t.Reward)
			fmt.Fprintf(out, "Completed:   %t\n", t.Completed)
			fmt.Fprintf(out, "Cycles:      %s\n", row.Progress())
			fmt.Fprintf(out, "Timer:       %dm work / %dm play\n", t.WorkTime, t.PlayTime)
			fmt.Fprintf(out, "Minimize:    %t\n", t.AllowMinimization)
			fmt.Fprintf(out, "Created:     %s\n", t.CreatedAt.Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&archived, "archived", "a", false, "look among archived tasks")
	return cmd
}

func newTaskTapCommand(rt *runtime) *cobra.Command {
	var times int

	cmd := &cobra.Command{
		Use:   "tap <id>",
		Short: "Tap a task row; three quick taps reset its cycles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if times < 1 {
				return fmt.Errorf("--times must be at least 1")
			}
			s, err := rt.openTaskList(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := matchID(s.ctl.View(), args[0])
			if err != nil {
				return err
			}
			for range times {
				reset, err := s.ctl.Tap(cmd.Context(), id)
				if err != nil {
					return err
				}
				if reset {
					fmt.Fprintf(cmd.OutOrStdout(), "Reset cycles of task %s\n", shortID(id))
					return nil
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tapped task %s\n", shortID(id))
			return nil
		},
	}
	cmd.Flags().IntVarP(&times, "times", "n", 1, "number of taps")
	return cmd
}

func newTaskCycleCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle <id>",
		Short: "Record one finished timer cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.openTaskList(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := matchID(s.ctl.View(), args[0])
			if err != nil {
				return err
			}
			t, err := s.client.IncrementCycles(cmd.Context(), s.ctl.Owner(), id)
			if err != nil {
				return err
			}
			row := tasklist.Row{Task: *t}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s at %s cycles\n", shortID(id), row.Progress())
			return nil
		},
	}
}
