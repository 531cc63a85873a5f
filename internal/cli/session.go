package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/taskblast/internal/backend"
	"github.com/dukerupert/taskblast/internal/database"
	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/pin"
	"github.com/dukerupert/taskblast/internal/profile"
	"github.com/dukerupert/taskblast/internal/store"
	"github.com/dukerupert/taskblast/internal/tasklist"
	"github.com/dukerupert/taskblast/internal/websocket"
)

// snapshotTimeout bounds the wait for the first task snapshot.
const snapshotTimeout = 5 * time.Second

var (
	ErrNoToken      = errors.New("no session token: pass --token or set TASKBLAST_TOKEN")
	ErrInvalidToken = errors.New("session token is invalid or expired")
	ErrPINRequired  = errors.New("manager PIN required: pass --pin")
	ErrIncorrectPIN = errors.New(pin.IncorrectMessage)
)

func (rt *runtime) openDB() (*sql.DB, error) {
	db, err := database.Open(rt.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", rt.cfg.DBPath, err)
	}
	return db, nil
}

func (rt *runtime) prefs() *profile.Prefs {
	return profile.NewPrefs(rt.cfg.PrefsPath)
}

// accountID maps the configured token to its account. An empty token yields
// an empty ID so callers can decide how to report it.
func (rt *runtime) accountID(ctx context.Context, db *sql.DB) (string, error) {
	if rt.cfg.Token == "" {
		return "", nil
	}
	sess, err := store.NewSessionStore(db).GetByToken(ctx, rt.cfg.Token)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", ErrInvalidToken
	}
	return sess.AccountID, nil
}

func (rt *runtime) requireAccount(ctx context.Context, db *sql.DB) (string, error) {
	id, err := rt.accountID(ctx, db)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrNoToken
	}
	return id, nil
}

// taskSession is a task list controller opened for one command.
type taskSession struct {
	db     *sql.DB
	client *backend.Client
	ctl    *tasklist.Controller
}

func (s *taskSession) Close() {
	s.ctl.Close()
	s.db.Close()
}

// openTaskList opens the controller for the active profile and waits for its
// first snapshot. Alerts go to stderr; started tasks are printed as JSON.
func (rt *runtime) openTaskList(cmd *cobra.Command) (*taskSession, error) {
	ctx := cmd.Context()
	db, err := rt.openDB()
	if err != nil {
		return nil, err
	}
	accountID, err := rt.accountID(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	client := backend.New(db, websocket.NewHub(rt.logger), rt.logger)

	first := make(chan struct{})
	var once sync.Once
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	ctl := tasklist.New(tasklist.Config{
		AccountID: accountID,
		Backend:   client,
		Prefs:     rt.prefs(),
		Alerter: tasklist.AlertFunc(func(msg string) {
			fmt.Fprintln(errOut, msg)
		}),
		Launcher: tasklist.LaunchFunc(func(req model.StartRequest) error {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(req)
		}),
		Render: func(tasklist.View) {
			once.Do(func() { close(first) })
		},
		Logger: rt.logger,
	})

	s := &taskSession{db: db, client: client, ctl: ctl}
	if err := ctl.Open(ctx); err != nil {
		s.Close()
		return nil, err
	}

	select {
	case <-first:
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	case <-time.After(snapshotTimeout):
		s.Close()
		return nil, errors.New("timed out waiting for tasks")
	}
	if err := ctl.Err(); err != nil {
		s.Close()
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return s, nil
}

// submitPIN answers an open PIN prompt. It is a no-op when no prompt is open,
// which is the case for independent accounts.
func (s *taskSession) submitPIN(p string) error {
	if s.ctl.PIN().State() != pin.Open {
		return nil
	}
	if p == "" {
		s.ctl.CancelPIN()
		return ErrPINRequired
	}
	ok, err := s.ctl.SubmitPIN(p)
	if err != nil {
		return err
	}
	if !ok {
		s.ctl.CancelPIN()
		return ErrIncorrectPIN
	}
	return nil
}

// enterEdit switches to Edit mode, answering the PIN prompt if one opens.
func (s *taskSession) enterEdit(p string) error {
	if err := s.ctl.RequestEdit(); err != nil {
		return err
	}
	return s.submitPIN(p)
}
