package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/taskblast/internal/backend"
	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/profile"
	"github.com/dukerupert/taskblast/internal/store"
	"github.com/dukerupert/taskblast/internal/websocket"
)

func newProfileCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Choose whose tasks the task commands work on",
		Long: `Choose whose tasks the task commands work on.

With no active child the account's own tasks are used. The choice is kept
in the local preferences file (--prefs).`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "use <username>",
			Short: "Switch to a child profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				username, _ := model.NormalizeUsername(args[0])

				db, err := rt.openDB()
				if err != nil {
					return err
				}
				defer db.Close()

				accountID, err := rt.requireAccount(ctx, db)
				if err != nil {
					return err
				}
				client := backend.New(db, websocket.NewHub(rt.logger), rt.logger)
				owner, err := profile.NewResolver(nil, client).ResolveUsername(ctx, accountID, username)
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("no child named %s", username)
					}
					return err
				}
				if owner.Kind != model.OwnerChild {
					return fmt.Errorf("no child named %s", username)
				}
				if err := rt.prefs().Set(profile.ActiveChildKey, username); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Using %s\n", username)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Switch back to the account's own tasks",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := rt.prefs().Delete(profile.ActiveChildKey); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Using account tasks")
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the active profile",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				username, ok, err := rt.prefs().Get(profile.ActiveChildKey)
				if err != nil {
					return err
				}
				if !ok || username == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "account")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), username)
				return nil
			},
		},
	)
	return cmd
}
