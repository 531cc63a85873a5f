package cli

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dukerupert/taskblast/internal/backend"
	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/profile"
	"github.com/dukerupert/taskblast/internal/reward"
	"github.com/dukerupert/taskblast/internal/websocket"
)

func newScoreCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Game scores and the rocks balance",
		Long: `Game scores and the rocks balance of the active profile.

The minigame leaves its score in the preferences file under
"` + reward.PendingScoreKey + `". "score flush" credits it.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stash <score>",
			Short: "Store a pending game score without crediting it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 0 {
					return fmt.Errorf("score must be a non-negative integer, got %q", args[0])
				}
				return rt.prefs().Set(reward.PendingScoreKey, strconv.Itoa(n))
			},
		},
		&cobra.Command{
			Use:   "flush",
			Short: "Credit the pending game score",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return rt.withOwner(cmd.Context(), func(client *backend.Client, owner model.OwnerRef) error {
					prefs := rt.prefs()
					settler := reward.NewSettler(client, nil, rt.logger)
					n, err := reward.NewScoreFlusher(prefs, settler).Flush(cmd.Context(), owner)
					if err != nil {
						return err
					}
					if n == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No pending score.")
						return nil
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Credited %d rocks\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "balance",
			Short: "Print the rocks balance",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return rt.withOwner(cmd.Context(), func(client *backend.Client, owner model.OwnerRef) error {
					n, err := client.Balance(cmd.Context(), owner)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), n)
					return nil
				})
			},
		},
	)
	return cmd
}

// withOwner resolves the active profile and hands fn a backend client.
func (rt *runtime) withOwner(ctx context.Context, fn func(*backend.Client, model.OwnerRef) error) error {
	db, err := rt.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return rt.resolveOwner(ctx, db, fn)
}

func (rt *runtime) resolveOwner(ctx context.Context, db *sql.DB, fn func(*backend.Client, model.OwnerRef) error) error {
	accountID, err := rt.requireAccount(ctx, db)
	if err != nil {
		return err
	}
	client := backend.New(db, websocket.NewHub(rt.logger), rt.logger)
	owner, err := profile.NewResolver(rt.prefs(), client).Resolve(ctx, accountID)
	if err != nil {
		return err
	}
	return fn(client, owner)
}
