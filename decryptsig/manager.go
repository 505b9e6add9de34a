package decryptsig

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/wallet"
)

//go:generate go tool mockgen -destination=./mocks/signer_mock.go -package=mocks . Signer

var (
	// ErrSignerUnavailable means no identity could be asked to sign.
	ErrSignerUnavailable = errors.New("signer unavailable")
	// ErrSignatureRejected means the identity holder declined, or returned a
	// signature that does not verify.
	ErrSignatureRejected = errors.New("decryption signature rejected")
)

// DefaultDurationDays is the validity window of a fresh capability.
const DefaultDurationDays = 365

// Signer is the identity asked to sign permits.
type Signer interface {
	Address() crypto.Address
	SignTypedData(ctx context.Context, msg wallet.TypedMessage) ([]byte, error)
}

// KeyGenerator supplies ephemeral key pairs and the chain id. fhe.Instance
// satisfies it.
type KeyGenerator interface {
	ChainID() uint64
	GenerateKeypair() (fhe.Keypair, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithDurationDays sets the validity window of fresh capabilities.
func WithDurationDays(days int64) Option {
	return func(m *Manager) { m.days = days }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// Manager loads, validates and (re)issues decryption capabilities. Readers
// share the cache; regeneration is collapsed per key so one window gets
// exactly one signature, while other keys stay readable.
type Manager struct {
	store Store
	now   func() time.Time
	days  int64
	log   *slog.Logger

	flight singleflight.Group

	mu    sync.RWMutex
	cache map[string]*DecryptionSignature
}

// NewManager returns a Manager persisting to store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		now:   time.Now,
		days:  DefaultDurationDays,
		log:   slog.Default(),
		cache: make(map[string]*DecryptionSignature),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// LoadOrSign returns a valid capability for (signer, chain, contracts): the
// cached or stored one while it is valid, otherwise a freshly signed one
// that is persisted with a single write. Concurrent callers for the same key
// share one signing request.
func (m *Manager) LoadOrSign(ctx context.Context, keys KeyGenerator, contracts []crypto.Address, signer Signer) (*DecryptionSignature, error) {
	if signer == nil {
		return nil, ErrSignerUnavailable
	}
	user := signer.Address()
	if user.IsZero() {
		return nil, errors.Wrap(ErrSignerUnavailable, "no account selected")
	}
	if len(contracts) == 0 {
		return nil, errors.New("decryption signature needs at least one contract")
	}
	key := Key(user, keys.ChainID(), contracts)
	if sig := m.cached(key); sig != nil {
		return sig, nil
	}

	v, err, _ := m.flight.Do(key, func() (any, error) {
		return m.renew(ctx, key, keys, contracts, signer, user)
	})
	if err != nil {
		return nil, err
	}
	return v.(*DecryptionSignature), nil
}

// Forget drops the in-memory copy for (user, chainID, contracts). The stored
// record is kept.
func (m *Manager) Forget(user crypto.Address, chainID uint64, contracts []crypto.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, Key(user, chainID, contracts))
}

func (m *Manager) cached(key string) *DecryptionSignature {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sig, ok := m.cache[key]; ok && sig.ValidAt(m.now()) {
		return sig
	}
	return nil
}

func (m *Manager) put(key string, sig *DecryptionSignature) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sig == nil {
		delete(m.cache, key)
		return
	}
	m.cache[key] = sig
}

// renew runs once per key at a time: it revalidates the cache and the
// store, and signs only when neither holds a usable capability.
func (m *Manager) renew(ctx context.Context, key string, keys KeyGenerator, contracts []crypto.Address, signer Signer, user crypto.Address) (*DecryptionSignature, error) {
	if sig := m.cached(key); sig != nil {
		return sig, nil
	}
	m.put(key, nil)
	now := m.now()
	chainID := keys.ChainID()

	stale := false
	stored, err := m.load(key)
	if err != nil {
		m.log.Warn("ignoring unreadable decryption signature", "key", key, "error", err)
		stale = true
	} else if stored != nil {
		if stored.ValidAt(now) && stored.Matches(user, chainID, contracts) {
			m.put(key, stored)
			return stored, nil
		}
		stale = true
	}

	sig, err := m.sign(ctx, keys, contracts, signer, user, now)
	if err != nil {
		if stale {
			if rmErr := m.store.RemoveItem(key); rmErr != nil {
				m.log.Warn("remove expired decryption signature", "key", key, "error", rmErr)
			}
		}
		return nil, err
	}
	v, err := encode(sig)
	if err != nil {
		return nil, err
	}
	if err := m.store.SetItem(key, v); err != nil {
		return nil, errors.Wrap(err, "persist decryption signature")
	}
	m.put(key, sig)
	m.log.Info("issued decryption signature", "user", user, "chain_id", sig.ChainID,
		"contracts", len(sig.ContractAddresses), "expires", sig.ExpiresAt().UTC().Format(time.RFC3339))
	return sig, nil
}

func (m *Manager) load(key string) (*DecryptionSignature, error) {
	v, ok, err := m.store.GetItem(key)
	if err != nil || !ok {
		return nil, err
	}
	return decode(v)
}

func (m *Manager) sign(ctx context.Context, keys KeyGenerator, contracts []crypto.Address, signer Signer, user crypto.Address, now time.Time) (*DecryptionSignature, error) {
	kp, err := keys.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	permit := fhe.NewPermit(keys.ChainID(), kp.PublicKey, contracts, now, m.days)
	raw, err := signer.SignTypedData(ctx, permit)
	switch {
	case errors.Is(err, wallet.ErrRejected):
		return nil, errors.Mark(err, ErrSignatureRejected)
	case errors.Is(err, wallet.ErrNotConnected):
		return nil, errors.Mark(err, ErrSignerUnavailable)
	case err != nil:
		return nil, errors.Mark(errors.Wrap(err, "sign decryption permit"), ErrSignerUnavailable)
	}
	if err := crypto.Verify(user, permit.Digest(), raw); err != nil {
		return nil, errors.Mark(err, ErrSignatureRejected)
	}
	return &DecryptionSignature{
		PublicKey:         kp.PublicKey,
		PrivateKey:        kp.PrivateKey,
		Signature:         raw,
		ContractAddresses: permit.ContractAddresses,
		UserAddress:       user,
		StartTimestamp:    permit.StartTimestamp,
		DurationDays:      permit.DurationDays,
		ChainID:           permit.ChainID,
	}, nil
}
