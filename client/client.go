// Package client is the session-scoped game client: it opens and finalises
// encrypted game sessions, decrypts the values the connected identity may
// see and runs the global average aggregation.
package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/decryptsig"
	"github.com/tolelom/fhe2048/events"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/game"
	"github.com/tolelom/fhe2048/ledger"
	"github.com/tolelom/fhe2048/wallet"
)

// Identity is the connected account: it signs transactions and decryption
// permits. *wallet.Wallet satisfies it.
type Identity interface {
	Address() crypto.Address
	ChainID() uint64
	Connected() bool
	SignHash(digest []byte) ([]byte, error)
	SignTypedData(ctx context.Context, msg wallet.TypedMessage) ([]byte, error)
}

// InstanceSource yields the encryption instance for the current chain.
// *fhe.Loader satisfies it.
type InstanceSource interface {
	Load(ctx context.Context) (fhe.Instance, error)
	Reset(chainID uint64)
}

// BindFunc binds the contract deployed at address on chainID.
type BindFunc func(address crypto.Address, chainID uint64) ledger.Ledger

// Config wires a GameClient.
type Config struct {
	Identity   Identity
	Instances  InstanceSource
	Signatures *decryptsig.Manager
	// Deployments resolves the contract address for the current chain.
	Deployments ledger.AddressBook
	Bind        BindFunc
	Logger      *slog.Logger
}

// Status is a snapshot of the client for display.
type Status struct {
	Ready           bool           `json:"ready"`
	WalletConnected bool           `json:"wallet_connected"`
	Deployed        bool           `json:"deployed"`
	ChainID         uint64         `json:"chain_id"`
	Account         crypto.Address `json:"account"`
	Contract        crypto.Address `json:"contract,omitempty"`
	CurrentGameID   *uint64        `json:"current_game_id,omitempty"`
	Starting        bool           `json:"starting"`
	Submitting      bool           `json:"submitting"`
	Decrypting      bool           `json:"decrypting"`
	Aggregating     bool           `json:"aggregating"`
	LastError       string         `json:"last_error,omitempty"`
}

type action int

const (
	actStart action = iota
	actSubmit
	actDecrypt
	actAggregate
	numActions
)

// GameClient is one player's session against the game contract. Methods
// may be called concurrently; concurrent calls of the same action are not
// deduplicated.
type GameClient struct {
	id   Identity
	inst InstanceSource
	sigs *decryptsig.Manager
	book ledger.AddressBook
	bind BindFunc
	log  *slog.Logger

	mu          sync.Mutex
	chainID     uint64
	ledger      ledger.Ledger // nil when not deployed on chainID
	currentGame *uint64
	busy        [numActions]int
	lastErr     error
}

// New returns a GameClient bound to the identity's current chain.
func New(cfg Config) (*GameClient, error) {
	if cfg.Identity == nil || cfg.Instances == nil || cfg.Signatures == nil || cfg.Bind == nil {
		return nil, errors.New("client: identity, instances, signatures and bind are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &GameClient{
		id:   cfg.Identity,
		inst: cfg.Instances,
		sigs: cfg.Signatures,
		book: cfg.Deployments,
		bind: cfg.Bind,
		log:  cfg.Logger,
	}
	c.rebind(cfg.Identity.ChainID())
	return c, nil
}

// rebind resolves the contract on chainID. Callers other than New hold no
// lock.
func (c *GameClient) rebind(chainID uint64) {
	var l ledger.Ledger
	addr, err := c.book.Lookup(chainID)
	if err == nil {
		l = c.bind(addr, chainID)
	} else {
		c.log.Warn("contract not deployed", "chain_id", chainID)
	}
	c.mu.Lock()
	c.chainID = chainID
	c.ledger = l
	c.currentGame = nil
	c.mu.Unlock()
}

// Watch registers the client for account and chain change notifications
// on em.
func (c *GameClient) Watch(em *events.Emitter) (unsubscribe func()) {
	u1 := em.Subscribe(events.EventAccountChanged, func(ev events.Event) {
		addr, _ := ev.Data["address"].(string)
		c.OnAccountChanged(crypto.Address(addr))
	})
	u2 := em.Subscribe(events.EventChainChanged, func(ev events.Event) {
		switch id := ev.Data["chain_id"].(type) {
		case uint64:
			c.OnChainChanged(id)
		case float64:
			c.OnChainChanged(uint64(id))
		}
	})
	return func() { u1(); u2() }
}

// OnAccountChanged drops per-account session state.
func (c *GameClient) OnAccountChanged(addr crypto.Address) {
	c.log.Info("account changed", "address", addr)
	c.mu.Lock()
	c.currentGame = nil
	c.lastErr = nil
	c.mu.Unlock()
}

// OnChainChanged drops the encryption instance and rebinds the contract
// for the new chain.
func (c *GameClient) OnChainChanged(chainID uint64) {
	c.log.Info("chain changed", "chain_id", chainID)
	c.inst.Reset(chainID)
	c.rebind(chainID)
}

// Status returns a snapshot of the client.
func (c *GameClient) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Status{
		WalletConnected: c.id.Connected(),
		Deployed:        c.ledger != nil,
		ChainID:         c.chainID,
		Account:         c.id.Address(),
		Starting:        c.busy[actStart] > 0,
		Submitting:      c.busy[actSubmit] > 0,
		Decrypting:      c.busy[actDecrypt] > 0,
		Aggregating:     c.busy[actAggregate] > 0,
	}
	if c.ledger != nil {
		s.Contract = c.ledger.ContractAddress()
	}
	if c.currentGame != nil {
		id := *c.currentGame
		s.CurrentGameID = &id
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	s.Ready = s.WalletConnected && s.Deployed
	return s
}

// begin marks act busy, clears the last error and returns the bound
// contract. The returned func must be called with the operation's error.
func (c *GameClient) begin(act action) (ledger.Ledger, func(*error), error) {
	c.mu.Lock()
	c.busy[act]++
	c.lastErr = nil
	l := c.ledger
	c.mu.Unlock()

	end := func(errp *error) {
		*errp = classify(*errp)
		c.mu.Lock()
		c.busy[act]--
		if *errp != nil {
			c.lastErr = *errp
		}
		c.mu.Unlock()
	}
	if !c.id.Connected() || c.id.Address().IsZero() {
		return nil, end, wallet.ErrNotConnected
	}
	if l == nil {
		return nil, end, ledger.ErrNotDeployed
	}
	return l, end, nil
}

// StartGame opens a new session owned by the identity.
func (c *GameClient) StartGame(ctx context.Context) (id uint64, err error) {
	l, end, err := c.begin(actStart)
	defer end(&err)
	if err != nil {
		return 0, err
	}
	id, _, err = l.StartGame(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.currentGame = &id
	c.mu.Unlock()
	c.log.Info("game started", "session_id", id, "player", c.id.Address())
	return id, nil
}

// SubmitScore encrypts score and moves as two separate inputs and
// finalises sessionID with them.
func (c *GameClient) SubmitScore(ctx context.Context, sessionID uint64, score, moves uint32) (rcpt ledger.Receipt, err error) {
	l, end, err := c.begin(actSubmit)
	defer end(&err)
	if err != nil {
		return ledger.Receipt{}, err
	}
	inst, err := c.inst.Load(ctx)
	if err != nil {
		return ledger.Receipt{}, err
	}
	user := c.id.Address()
	contract := l.ContractAddress()

	encScore, err := inst.CreateEncryptedInput(contract, user).Add32(score).Encrypt()
	if err != nil {
		return ledger.Receipt{}, errors.Wrap(err, "encrypt score")
	}
	encMoves, err := inst.CreateEncryptedInput(contract, user).Add32(moves).Encrypt()
	if err != nil {
		return ledger.Receipt{}, errors.Wrap(err, "encrypt moves")
	}
	rcpt, err = l.SubmitScore(ctx, sessionID,
		encScore.Handles[0], encScore.InputProof,
		encMoves.Handles[0], encMoves.InputProof)
	if err != nil {
		return ledger.Receipt{}, err
	}
	c.mu.Lock()
	if c.currentGame != nil && *c.currentGame == sessionID {
		c.currentGame = nil
	}
	c.mu.Unlock()
	c.log.Info("score submitted", "session_id", sessionID, "tx", rcpt.TxID)
	return rcpt, nil
}

// SubmitGame submits a finished local game.
func (c *GameClient) SubmitGame(ctx context.Context, sessionID uint64, s game.State) (ledger.Receipt, error) {
	return c.SubmitScore(ctx, sessionID, s.Score, s.Moves)
}

// AllowScoreDecryption re-grants the owner access to a session score.
func (c *GameClient) AllowScoreDecryption(ctx context.Context, sessionID uint64) (err error) {
	l, end, err := c.begin(actDecrypt)
	defer end(&err)
	if err != nil {
		return err
	}
	_, err = l.AllowScoreDecryption(ctx, sessionID)
	return err
}
