// Package cli provides the command-line interface for taskblast.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dukerupert/taskblast/internal/config"
	"github.com/dukerupert/taskblast/internal/logging"
)

// runtime carries the loaded configuration and logger to every command.
type runtime struct {
	getenv     func(string) string
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

// NewRootCommand creates the root command with all subcommands. getenv is
// the environment lookup used for TASKBLAST_* variables.
func NewRootCommand(version string, getenv func(string) string) *cobra.Command {
	rt := &runtime{getenv: getenv}

	root := &cobra.Command{
		Use:   "taskblast",
		Short: "Family task tracker with rock rewards",
		Long: `taskblast tracks chores for a family account and its child profiles.

Finished tasks are archived for their reward in rocks. Managed accounts
protect editing and restoring tasks behind a 4-digit manager PIN.

Run "taskblast serve" for the HTTP and WebSocket API, or use the task
commands directly against the database.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&rt.configPath, "config", "c", "", "config file (default ./"+config.DefaultFileName+" if present)")
	flags.String("db", "", "SQLite database path")
	flags.String("prefs", "", "local preferences file")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("token", "", "session token (see \"account create\")")

	root.AddGroup(
		&cobra.Group{ID: "setup", Title: "Setup:"},
		&cobra.Group{ID: "tasks", Title: "Tasks:"},
	)

	for _, cmd := range []*cobra.Command{
		newServeCommand(rt),
		newAccountCommand(rt),
		newChildCommand(rt),
		newProfileCommand(rt),
	} {
		cmd.GroupID = "setup"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		newTaskCommand(rt),
		newScoreCommand(rt),
	} {
		cmd.GroupID = "tasks"
		root.AddCommand(cmd)
	}

	return root
}

// load applies defaults, the config file, the environment and then any
// flags the user set explicitly.
func (rt *runtime) load(cmd *cobra.Command) error {
	cfg, err := config.Load(rt.configPath, rt.getenv)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"db":        &cfg.DBPath,
		"prefs":     &cfg.PrefsPath,
		"log-level": &cfg.LogLevel,
		"token":     &cfg.Token,
	} {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}

	rt.cfg = cfg
	rt.logger = logging.Setup(cfg.LogLevel, cmd.ErrOrStderr())
	return nil
}
