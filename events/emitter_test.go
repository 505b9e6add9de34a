package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitDeliversByType(t *testing.T) {
	e := NewEmitter()
	var got []EventType
	e.Subscribe(EventChainChanged, func(ev Event) { got = append(got, ev.Type) })

	e.Emit(Event{Type: EventChainChanged, Data: map[string]any{"chain_id": uint64(31337)}})
	e.Emit(Event{Type: EventAccountChanged})

	assert.Equal(t, []EventType{EventChainChanged}, got)
}

func TestUnsubscribe(t *testing.T) {
	e := NewEmitter()
	calls := 0
	unsub := e.Subscribe(EventSessionStarted, func(Event) { calls++ })
	e.Emit(Event{Type: EventSessionStarted})
	unsub()
	e.Emit(Event{Type: EventSessionStarted})
	assert.Equal(t, 1, calls)
}

func TestSubscribeAll(t *testing.T) {
	e := NewEmitter()
	var got []EventType
	unsub := e.SubscribeAll(func(ev Event) { got = append(got, ev.Type) })
	e.Emit(Event{Type: EventSessionStarted})
	e.Emit(Event{Type: EventSessionCompleted})
	unsub()
	e.Emit(Event{Type: EventTxExecuted})
	assert.Equal(t, []EventType{EventSessionStarted, EventSessionCompleted}, got)
}

// A panicking handler must not stop delivery to the others.
func TestPanickingHandlerIsContained(t *testing.T) {
	e := NewEmitter()
	delivered := false
	e.Subscribe(EventTxExecuted, func(Event) { panic("boom") })
	e.Subscribe(EventTxExecuted, func(Event) { delivered = true })

	assert.NotPanics(t, func() { e.Emit(Event{Type: EventTxExecuted}) })
	assert.True(t, delivered)
}
