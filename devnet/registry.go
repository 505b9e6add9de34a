package devnet

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/ledger"
)

// Handler executes one contract method. It returns the call's return value
// (zero when the method has none).
type Handler func(ctx *Context, payload json.RawMessage) (uint64, error)

// Registry maps contract methods to Handlers. Thread-safe for concurrent
// registration.
type Registry struct {
	mu       sync.RWMutex
	handlers map[ledger.Method]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[ledger.Method]Handler)}
}

// Register associates m with h. Panics on duplicate registration.
func (r *Registry) Register(m ledger.Method, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[m]; exists {
		panic(fmt.Sprintf("devnet: handler already registered for method %q", m))
	}
	r.handlers[m] = h
}

// Execute dispatches payload to the handler registered for m.
func (r *Registry) Execute(m ledger.Method, ctx *Context, payload json.RawMessage) (uint64, error) {
	r.mu.RLock()
	h, ok := r.handlers[m]
	r.mu.RUnlock()
	if !ok {
		return 0, errors.Newf("no handler registered for method %q", m)
	}
	return h(ctx, payload)
}
