package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/pin"
	"github.com/dukerupert/taskblast/internal/store"
)

func newAccountCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Create accounts and manage sessions and the manager PIN",
	}
	cmd.AddCommand(
		newAccountCreateCommand(rt),
		newAccountTokenCommand(rt),
		newAccountShowCommand(rt),
		newAccountPINCommand(rt),
	)
	return cmd
}

func newAccountCreateCommand(rt *runtime) *cobra.Command {
	var opts struct {
		Email string
		Name  string
		Type  string
		PIN   string
	}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account and print a session token",
		Long: `Create an account and print a session token for it.

Managed accounts are run by a parent: entering edit mode and restoring
archived tasks require the manager PIN. Independent accounts need no PIN.

Examples:
  taskblast account create --email parent@example.com --type managed --pin 1234
  taskblast account create --email me@example.com --type independent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			accountType := model.AccountType(strings.ToLower(opts.Type))
			if !accountType.Valid() {
				return fmt.Errorf("account type must be %q or %q", model.AccountManaged, model.AccountIndependent)
			}
			email := strings.ToLower(strings.TrimSpace(opts.Email))
			if email == "" {
				return fmt.Errorf("required flag(s) \"email\" not set")
			}
			var hash string
			if opts.PIN != "" {
				h, err := pin.Hash(opts.PIN)
				if err != nil {
					return err
				}
				hash = h
			}

			db, err := rt.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			accounts := store.NewAccountStore(db)
			exists, err := accounts.EmailExists(ctx, email)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("an account with email %s already exists", email)
			}

			name := strings.TrimSpace(opts.Name)
			if name == "" {
				name = email
			}
			acct, err := accounts.Create(ctx, email, name, accountType)
			if err != nil {
				return err
			}
			if hash != "" {
				if err := accounts.SetPIN(ctx, acct.ID, hash); err != nil {
					return err
				}
			}

			sess, err := store.NewSessionStore(db).Create(ctx, acct.ID, rt.cfg.SessionTTL)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s account %s\n", acct.AccountType, acct.ID)
			fmt.Fprintf(out, "Token: %s\n", sess.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Type, "type", string(model.AccountManaged), "account type: managed or independent")
	cmd.Flags().StringVar(&opts.PIN, "pin", "", "4-digit manager PIN")
	return cmd
}

func newAccountTokenCommand(rt *runtime) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a new session token for an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := rt.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			acct, err := store.NewAccountStore(db).GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
			if err != nil {
				return err
			}
			if acct == nil {
				return fmt.Errorf("no account with email %s", email)
			}
			sess, err := store.NewSessionStore(db).Create(ctx, acct.ID, rt.cfg.SessionTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAccountShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := rt.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			id, err := rt.requireAccount(ctx, db)
			if err != nil {
				return err
			}
			acct, err := store.NewAccountStore(db).GetByID(ctx, id)
			if err != nil {
				return err
			}
			if acct == nil {
				return ErrInvalidToken
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %s\n", acct.ID)
			fmt.Fprintf(out, "Email:   %s\n", acct.Email)
			fmt.Fprintf(out, "Name:    %s\n", acct.DisplayName)
			fmt.Fprintf(out, "Type:    %s\n", acct.AccountType)
			fmt.Fprintf(out, "PIN set: %t\n", acct.HasPIN)
			fmt.Fprintf(out, "Rocks:   %d\n", acct.Rocks)
			return nil
		},
	}
}

func newAccountPINCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Set or clear the manager PIN",
	}

	set := &cobra.Command{
		Use:   "set <pin>",
		Short: "Set the 4-digit manager PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := pin.Hash(args[0])
			if err != nil {
				return err
			}
			return rt.withAccount(cmd, func(accounts *store.AccountStore, id string) error {
				if err := accounts.SetPIN(cmd.Context(), id, hash); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "PIN set")
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the manager PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withAccount(cmd, func(accounts *store.AccountStore, id string) error {
				if err := accounts.ClearPIN(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "PIN cleared")
				return nil
			})
		},
	}

	cmd.AddCommand(set, clearCmd)
	return cmd
}

func (rt *runtime) withAccount(cmd *cobra.Command, fn func(accounts *store.AccountStore, id string) error) error {
	db, err := rt.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := rt.requireAccount(cmd.Context(), db)
	if err != nil {
		return err
	}
	return fn(store.NewAccountStore(db), id)
}
