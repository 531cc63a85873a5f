package tasklist

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/taskblast/internal/backend"
	"github.com/dukerupert/taskblast/internal/database"
	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/pin"
	"github.com/dukerupert/taskblast/internal/store"
	"github.com/dukerupert/taskblast/internal/websocket"
)

func TestControllerAgainstSQLite(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	accounts := store.NewAccountStore(db)
	acct, err := accounts.Create(ctx, "parent@example.com", "Parent", model.AccountManaged)
	require.NoError(t, err)
	hash, err := pin.Hash("4321")
	require.NoError(t, err)
	require.NoError(t, accounts.SetPIN(ctx, acct.ID, hash))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := backend.New(db, websocket.NewHub(logger), logger)

	var rocksChanged atomic.Int32
	c := New(Config{
		AccountID:     acct.ID,
		Backend:       client,
		OnRocksChange: func() { rocksChanged.Add(1) },
		Logger:        logger,
	})
	require.NoError(t, c.Open(ctx))
	t.Cleanup(c.Close)

	require.NoError(t, c.RequestEdit())
	ok, err := c.SubmitPIN("4321")
	require.NoError(t, err)
	require.True(t, ok)

	created, err := c.Create(ctx, model.TaskInput{Name: "Clean room", Reward: amount(50)})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(c.Visible()) == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = c.Archive(ctx, created.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(c.Visible()) == 0 }, 2*time.Second, 10*time.Millisecond)

	bal, err := client.Balance(ctx, model.AccountOwner(acct.ID))
	require.NoError(t, err)
	assert.Equal(t, 50, bal)
	assert.Equal(t, int32(1), rocksChanged.Load())
}
