// Package watcher follows a node's event stream and re-emits every event on
// a local emitter, reconnecting when the stream drops.
package watcher

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tolelom/fhe2048/events"
	"github.com/tolelom/fhe2048/rpc"
)

const (
	minBackoff = 250 * time.Millisecond
	maxBackoff = 10 * time.Second
)

// Watcher streams node events into an Emitter.
type Watcher struct {
	client    *rpc.Client
	emitter   *events.Emitter
	log       *slog.Logger
	connected atomic.Bool
	received  atomic.Uint64
}

// New creates a Watcher for the node behind client.
func New(client *rpc.Client, emitter *events.Emitter, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{client: client, emitter: emitter, log: log.With("component", "watcher")}
}

// Connected reports whether the stream is currently open.
func (w *Watcher) Connected() bool { return w.connected.Load() }

// Received is the number of events forwarded so far.
func (w *Watcher) Received() uint64 { return w.received.Load() }

// Run streams until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		opened, err := w.stream(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if opened {
			backoff = minBackoff
		}
		if err != nil {
			w.log.Warn("event stream interrupted", "err", err, "retry_in", backoff)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (w *Watcher) streamURL() string {
	u := w.client.URL()
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// stream reads events until the connection fails. opened reports whether
// the handshake succeeded.
func (w *Watcher) stream(ctx context.Context) (opened bool, err error) {
	header := http.Header{}
	tok, err := w.client.Token()
	if err != nil {
		return false, err
	}
	if tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}
	// The stream is long-lived; the request timeout must not apply to it.
	hc := *w.client.HTTPClient()
	hc.Timeout = 0
	conn, _, err := websocket.Dial(ctx, w.streamURL(), &websocket.DialOptions{HTTPClient: &hc, HTTPHeader: header})
	if err != nil {
		return false, errors.Wrap(err, "dial event stream")
	}
	defer conn.CloseNow()

	w.connected.Store(true)
	defer w.connected.Store(false)
	w.log.Info("event stream connected", "url", w.streamURL())

	for {
		var ev events.Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return true, errors.Wrap(err, "read event")
		}
		w.received.Add(1)
		w.emitter.Emit(ev)
	}
}
