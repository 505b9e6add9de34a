// Package events is a small typed pub/sub broker used for ledger events
// and for wallet account/chain change notifications.
package events

import (
	"log/slog"
	"sync"
)

// EventType labels what happened.
type EventType string

const (
	// Ledger events.
	EventTxExecuted        EventType = "tx_executed"
	EventSessionStarted    EventType = "session_started"
	EventSessionCompleted  EventType = "session_completed"
	EventAveragesRefreshed EventType = "averages_refreshed"
	EventDecryptionAllowed EventType = "decryption_allowed"

	// Identity provider events.
	EventAccountChanged EventType = "account_changed"
	EventChainChanged   EventType = "chain_changed"
)

// Event carries a typed payload emitted after a state change.
type Event struct {
	Type        EventType      `json:"type"`
	TxID        string         `json:"tx_id,omitempty"`
	BlockHeight int64          `json:"block_height,omitempty"`
	Data        map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

type subscription struct {
	id uint64
	h  Handler
}

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[EventType][]subscription
	all      []subscription
	log      *slog.Logger
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]subscription), log: slog.Default()}
}

// Subscribe registers h to be called whenever typ is emitted. The returned
// func removes the subscription.
func (e *Emitter) Subscribe(typ EventType, h Handler) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	id := e.next
	e.handlers[typ] = append(e.handlers[typ], subscription{id: id, h: h})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.handlers[typ] = remove(e.handlers[typ], id)
	}
}

// SubscribeAll registers h for every event type.
func (e *Emitter) SubscribeAll(h Handler) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	id := e.next
	e.all = append(e.all, subscription{id: id, h: h})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.all = remove(e.all, id)
	}
}

// Emit delivers ev to all subscribers for ev.Type synchronously.
// Each handler is guarded by panic recovery so a misbehaving subscriber
// cannot halt the emitting flow.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	subs := make([]subscription, 0, len(e.handlers[ev.Type])+len(e.all))
	subs = append(subs, e.handlers[ev.Type]...)
	subs = append(subs, e.all...)
	e.mu.RUnlock()
	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error("event handler panicked", "type", ev.Type, "panic", r)
				}
			}()
			s.h(ev)
		}()
	}
}

func remove(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
