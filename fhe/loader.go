package fhe

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotLoaded is returned by Current before a successful Load.
	ErrNotLoaded = errors.New("encryption instance not initialised")
	// ErrLoadAborted is returned when Reset ran while a Load was in flight.
	ErrLoadAborted = errors.New("encryption instance load aborted")
)

// Loader initialises an Instance once per chain. A cancelled or aborted
// load publishes nothing.
type Loader struct {
	relayer Relayer
	log     *slog.Logger

	mu      sync.Mutex // serialises loads
	pubMu   sync.Mutex // orders publish against Reset
	gen     atomic.Uint64
	chainID atomic.Uint64
	cur     atomic.Pointer[Client]
}

// NewLoader returns a Loader for chainID.
func NewLoader(relayer Relayer, chainID uint64, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	l := &Loader{relayer: relayer, log: log}
	l.chainID.Store(chainID)
	return l
}

// Load returns the current Instance, initialising it if needed. ctx cancels
// the initialisation.
func (l *Loader) Load(ctx context.Context) (Instance, error) {
	if c := l.cur.Load(); c != nil {
		return c, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if c := l.cur.Load(); c != nil {
		return c, nil
	}

	gen := l.gen.Load()
	chainID := l.chainID.Load()
	l.log.Info("loading encryption instance", "chain_id", chainID)
	c, err := NewClient(ctx, l.relayer, chainID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "load encryption instance")
	}
	l.pubMu.Lock()
	defer l.pubMu.Unlock()
	if l.gen.Load() != gen {
		return nil, ErrLoadAborted
	}
	l.cur.Store(c)
	return c, nil
}

// Current returns the loaded Instance without initialising.
func (l *Loader) Current() (Instance, error) {
	c := l.cur.Load()
	if c == nil {
		return nil, ErrNotLoaded
	}
	return c, nil
}

// Reset drops the current Instance and aborts any load in flight. chainID
// is used by the next Load.
func (l *Loader) Reset(chainID uint64) {
	l.pubMu.Lock()
	defer l.pubMu.Unlock()
	l.gen.Add(1)
	l.chainID.Store(chainID)
	l.cur.Store(nil)
}
