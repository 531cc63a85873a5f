package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/taskblast/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(rt *runtime) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Long: `Run the HTTP and WebSocket API until interrupted.

Clients authenticate with "Authorization: Bearer <token>", or with
?token=<token> on the /ws upgrade.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				rt.cfg.Port = port
			}
			return rt.serve(cmd.Context(), cmd)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port")
	return cmd
}

// serve blocks until ctx is cancelled, then shuts the server down.
func (rt *runtime) serve(ctx context.Context, cmd *cobra.Command) error {
	db, err := rt.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(db, server.Config{
		PINAttempts: rt.cfg.PINAttempts,
		PINWindow:   rt.cfg.PINWindow,
	}, rt.logger)

	httpServer := &http.Server{
		Addr:         ":" + rt.cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	maintCtx, stopMaint := context.WithCancel(ctx)
	defer stopMaint()
	go srv.RunMaintenance(maintCtx, rt.cfg.Maintenance)

	errc := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "TaskBlast running at http://localhost:%s\n", rt.cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
