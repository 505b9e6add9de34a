// Package wallet is a local identity provider: it holds the active account
// key, tracks the selected chain, signs transactions and typed messages,
// and reports account and chain changes through an events.Emitter.
package wallet

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/events"
)

var (
	// ErrNotConnected is returned when no account is selected.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrRejected is returned when the user declines a signature request.
	ErrRejected = errors.New("user rejected the signature request")
)

// TypedMessage is a structured message presented to the user for signing.
type TypedMessage interface {
	// Digest is the 32-byte hash that is signed.
	Digest() []byte
	// Summary is the human-readable text shown on confirmation.
	Summary() string
}

// ConfirmFunc asks the account holder to approve a typed-message signature.
type ConfirmFunc func(ctx context.Context, summary string) (bool, error)

// Option configures a Wallet.
type Option func(*Wallet)

// WithConfirm requires every typed-message signature to be approved by f.
func WithConfirm(f ConfirmFunc) Option {
	return func(w *Wallet) { w.confirm = f }
}

// WithEmitter publishes account and chain changes on e.
func WithEmitter(e *events.Emitter) Option {
	return func(w *Wallet) { w.emitter = e }
}

// Wallet holds the active key and chain selection.
type Wallet struct {
	mu      sync.RWMutex
	priv    *crypto.PrivateKey
	chainID uint64
	confirm ConfirmFunc
	emitter *events.Emitter
}

// New creates a Wallet from an existing private key. A nil key yields a
// disconnected wallet.
func New(priv *crypto.PrivateKey, chainID uint64, opts ...Option) *Wallet {
	w := &Wallet{priv: priv, chainID: chainID}
	for _, o := range opts {
		o(w)
	}
	if w.emitter == nil {
		w.emitter = events.NewEmitter()
	}
	return w
}

// Generate creates a Wallet with a freshly generated key.
func Generate(chainID uint64, opts ...Option) (*Wallet, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return New(priv, chainID, opts...), nil
}

// Events returns the emitter carrying account and chain notifications.
func (w *Wallet) Events() *events.Emitter {
	return w.emitter
}

// Connected reports whether an account is selected.
func (w *Wallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.priv != nil
}

// Address returns the active account, or the zero address when disconnected.
func (w *Wallet) Address() crypto.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.priv == nil {
		return crypto.ZeroAddress
	}
	return w.priv.Address()
}

// ChainID returns the selected chain.
func (w *Wallet) ChainID() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chainID
}

// SignHash signs a 32-byte transaction digest without confirmation.
func (w *Wallet) SignHash(digest []byte) ([]byte, error) {
	w.mu.RLock()
	priv := w.priv
	w.mu.RUnlock()
	if priv == nil {
		return nil, ErrNotConnected
	}
	return crypto.Sign(priv, digest)
}

// SignTypedData asks for confirmation (if configured) and signs msg.Digest().
func (w *Wallet) SignTypedData(ctx context.Context, msg TypedMessage) ([]byte, error) {
	w.mu.RLock()
	priv, confirm := w.priv, w.confirm
	w.mu.RUnlock()
	if priv == nil {
		return nil, ErrNotConnected
	}
	if confirm != nil {
		ok, err := confirm(ctx, msg.Summary())
		if err != nil {
			return nil, errors.Wrap(err, "confirm signature")
		}
		if !ok {
			return nil, ErrRejected
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return crypto.Sign(priv, msg.Digest())
}

// SwitchAccount selects priv (nil disconnects) and emits EventAccountChanged.
func (w *Wallet) SwitchAccount(priv *crypto.PrivateKey) {
	w.mu.Lock()
	w.priv = priv
	w.mu.Unlock()
	w.emitter.Emit(events.Event{
		Type: events.EventAccountChanged,
		Data: map[string]any{"address": w.Address().String()},
	})
}

// Disconnect clears the active account.
func (w *Wallet) Disconnect() {
	w.SwitchAccount(nil)
}

// SwitchChain selects id and emits EventChainChanged.
func (w *Wallet) SwitchChain(id uint64) {
	w.mu.Lock()
	w.chainID = id
	w.mu.Unlock()
	w.emitter.Emit(events.Event{
		Type: events.EventChainChanged,
		Data: map[string]any{"chain_id": id},
	})
}
