package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/store"
)

func newChildCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "child",
		Short: "Manage child profiles",
	}
	cmd.AddCommand(newChildAddCommand(rt), newChildListCommand(rt))
	return cmd
}

func newChildAddCommand(rt *runtime) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Add a child profile to the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			username, ok := model.NormalizeUsername(args[0])
			if !ok {
				return fmt.Errorf("username must be 2-32 lowercase letters, digits, '.', '_' or '-'")
			}

			db, err := rt.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			accountID, err := rt.requireAccount(ctx, db)
			if err != nil {
				return err
			}
			children := store.NewChildStore(db)
			taken, err := children.UsernameExists(ctx, username)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("username %s is taken", username)
			}

			display := strings.TrimSpace(name)
			if display == "" {
				display = username
			}
			child, err := children.Create(ctx, accountID, username, display)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added child %s (%s)\n", child.Username, child.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newChildListCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List child profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := rt.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			accountID, err := rt.requireAccount(ctx, db)
			if err != nil {
				return err
			}
			children, err := store.NewChildStore(db).ListByAccount(ctx, accountID)
			if err != nil {
				return err
			}
			if len(children) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No children.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tNAME\tROCKS")
			for _, c := range children {
				fmt.Fprintf(w, "%s\t%s\t%d\n", c.Username, c.DisplayName, c.Rocks)
			}
			return w.Flush()
		},
	}
}
