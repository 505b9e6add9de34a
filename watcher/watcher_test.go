package watcher_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/fhe2048/devnet"
	"github.com/tolelom/fhe2048/events"
	"github.com/tolelom/fhe2048/internal/testutil"
	"github.com/tolelom/fhe2048/rpc"
	"github.com/tolelom/fhe2048/wallet"
	"github.com/tolelom/fhe2048/watcher"
)

func TestWatcherForwardsEvents(t *testing.T) {
	secret := []byte("s3cret")
	node, err := devnet.NewNode(testutil.NewMemDB(), devnet.Config{})
	require.NoError(t, err)
	srv := rpc.NewServer("127.0.0.1:0", rpc.NewHandler(node), node.Events(), secret, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	local := events.NewEmitter()
	var (
		mu  sync.Mutex
		got []events.Event
	)
	local.Subscribe(events.EventSessionStarted, func(ev events.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	})

	w := watcher.New(rpc.Dial(ts.URL, rpc.WithSecret(secret)), local, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, w.Connected, 5*time.Second, 10*time.Millisecond)

	player, err := wallet.Generate(node.ChainID())
	require.NoError(t, err)
	_, _, err = node.Bind(player).StartGame(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 5*time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, player.Address().String(), got[0].Data["player"])
	assert.Equal(t, float64(0), got[0].Data["session_id"])
	mu.Unlock()
	require.Eventually(t, func() bool { return w.Received() == 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.False(t, w.Connected())
}

func TestWatcherRetriesUnreachableNode(t *testing.T) {
	w := watcher.New(rpc.Dial("http://127.0.0.1:1"), events.NewEmitter(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	assert.NoError(t, w.Run(ctx))
	assert.False(t, w.Connected())
}
