// Package devnet is an in-process reference ledger running the FHE2048
// game contract on a mock FHE coprocessor. It executes signed transactions
// one per block with snapshot/rollback, serves the contract's views, and
// acts as the relayer and key management service for user decryption.
// Plaintexts stay inspectable so tests can check aggregate results.
package devnet

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/nacl/box"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/events"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/ledger"
	"github.com/tolelom/fhe2048/storage"
)

const keyHeight = "meta:height"

// Config holds node parameters. Zero fields take defaults.
type Config struct {
	ChainID  uint64
	Contract crypto.Address
	WinScore uint64
	Clock    func() time.Time
	Logger   *slog.Logger
	Emitter  *events.Emitter
}

// DefaultChainID is the local development chain.
const DefaultChainID = 31337

// ContractAddressFor derives the deterministic contract address used when
// none is configured.
func ContractAddressFor(chainID uint64) crypto.Address {
	h := crypto.Keccak256([]byte("FHE2048Game"), []byte(strconv.FormatUint(chainID, 10)))
	return crypto.MustAddress("0x" + crypto.Keccak256Hex(h)[2+24:])
}

// Node is the reference ledger. All methods are safe for concurrent use.
type Node struct {
	mu       sync.Mutex
	chainID  uint64
	contract crypto.Address
	clock    func() time.Time
	log      *slog.Logger

	db      storage.DB
	state   *StateDB
	fhe     *Coprocessor
	exec    *Executor
	emitter *events.Emitter
	height  int64

	netPub, netPriv *[32]byte
}

// NewNode opens the ledger stored in db, creating the network key on first
// start.
func NewNode(db storage.DB, cfg Config) (*Node, error) {
	if cfg.ChainID == 0 {
		cfg.ChainID = DefaultChainID
	}
	if cfg.Contract.IsZero() {
		cfg.Contract = ContractAddressFor(cfg.ChainID)
	}
	if cfg.WinScore == 0 {
		cfg.WinScore = DefaultWinScore
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = events.NewEmitter()
	}

	pub, priv, err := loadNetworkKey(db)
	if err != nil {
		return nil, err
	}
	height, err := loadHeight(db)
	if err != nil {
		return nil, err
	}

	state := NewStateDB(db)
	cop := newCoprocessor(state, pub, priv)
	reg := NewRegistry()
	registerContract(reg)

	n := &Node{
		chainID:  cfg.ChainID,
		contract: cfg.Contract,
		clock:    cfg.Clock,
		log:      cfg.Logger,
		db:       db,
		state:    state,
		fhe:      cop,
		exec:     NewExecutor(state, cop, reg, cfg.Emitter, cfg.WinScore),
		emitter:  cfg.Emitter,
		height:   height,
		netPub:   pub,
		netPriv:  priv,
	}
	n.log.Info("devnet ready", "chain_id", n.chainID, "contract", n.contract, "height", height)
	return n, nil
}

func loadNetworkKey(db storage.DB) (*[32]byte, *[32]byte, error) {
	v, err := db.Get([]byte(keyNetwork))
	if err == nil && len(v) == 64 {
		var pub, priv [32]byte
		copy(pub[:], v[:32])
		copy(priv[:], v[32:])
		return &pub, &priv, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, errors.Wrap(err, "load network key")
	}
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, errors.Wrap(err, "generate network key")
	}
	if err := db.Set([]byte(keyNetwork), append(pub[:], priv[:]...)); err != nil {
		return nil, nil, errors.Wrap(err, "store network key")
	}
	return pub, priv, nil
}

func loadHeight(db storage.DB) (int64, error) {
	v, err := db.Get([]byte(keyHeight))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "load height")
	}
	return int64(binary.BigEndian.Uint64(v)), nil
}

func (n *Node) ChainID() uint64 { return n.chainID }

func (n *Node) ContractAddress() crypto.Address { return n.contract }

// Events returns the emitter carrying contract events.
func (n *Node) Events() *events.Emitter { return n.emitter }

// Height returns the number of executed transactions.
func (n *Node) Height() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height
}

// StateRoot returns the current contract state root.
func (n *Node) StateRoot() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.ComputeRoot()
}

// Nonce returns the next nonce expected from addr.
func (n *Node) Nonce(addr crypto.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	acc, err := n.state.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// SendTransaction executes tx in a new block and commits it. A failing
// transaction leaves the state untouched.
func (n *Node) SendTransaction(tx *ledger.Transaction) (ledger.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.execute(tx)
}

// Send builds, signs and executes a call from signer under one lock, so
// concurrent calls by the same signer never draw the same nonce.
func (n *Node) Send(signer ledger.TxSigner, method ledger.Method, payload any) (ledger.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	acc, err := n.state.GetAccount(signer.Address())
	if err != nil {
		return ledger.Receipt{}, err
	}
	tx, err := ledger.NewTransaction(n.chainID, n.contract, method, acc.Nonce, payload)
	if err != nil {
		return ledger.Receipt{}, err
	}
	if err := tx.Sign(signer); err != nil {
		return ledger.Receipt{}, err
	}
	return n.execute(tx)
}

// execute runs tx in a new block. n.mu must be held.
func (n *Node) execute(tx *ledger.Transaction) (ledger.Receipt, error) {
	if tx.ChainID != n.chainID {
		return ledger.Receipt{}, errors.Newf("wrong chain id: expected %d got %d", n.chainID, tx.ChainID)
	}
	if tx.To != n.contract {
		return ledger.Receipt{}, errors.Newf("no contract at %s", tx.To)
	}

	block := Block{Height: n.height + 1, Timestamp: n.clock().Unix()}
	value, err := n.exec.ExecuteTx(block, tx)
	if err != nil {
		n.log.Warn("transaction reverted", "method", tx.Method, "from", tx.From, "error", err)
		return ledger.Receipt{}, err
	}
	if err := n.state.Commit(); err != nil {
		return ledger.Receipt{}, err
	}
	n.height = block.Height
	if err := n.db.Set([]byte(keyHeight), binary.BigEndian.AppendUint64(nil, uint64(n.height))); err != nil {
		return ledger.Receipt{}, errors.Wrap(err, "store height")
	}
	n.log.Info("transaction executed", "method", tx.Method, "from", tx.From, "height", n.height)
	return ledger.Receipt{TxID: tx.ID, BlockHeight: block.Height, Method: tx.Method, Value: value}, nil
}

// ---- views ----

func (n *Node) GameSession(id uint64) (ledger.GameSession, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, err := n.state.GetSession(id)
	if err != nil {
		return ledger.GameSession{}, err
	}
	return *s, nil
}

func (n *Node) PlayerStats(addr crypto.Address) (ledger.PlayerStats, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return viewPlayerStats(n.state, addr)
}

// PlayerGameCount is the number of completed sessions of addr.
func (n *Node) PlayerGameCount(addr crypto.Address) (uint64, error) {
	st, err := n.PlayerStats(addr)
	return st.GamesPlayed, err
}

func (n *Node) Players(offset, limit uint64) ([]crypto.Address, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return viewPlayers(n.state, offset, limit)
}

func (n *Node) GlobalAverages() (fhe.Handle, fhe.Handle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return viewGlobalAverages(n.state)
}

// Globals returns a copy of the contract counters.
func (n *Node) Globals() (Globals, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	g, err := n.state.GetGlobals()
	if err != nil {
		return Globals{}, err
	}
	return *g, nil
}

// Plaintext exposes the value behind h. It exists for tests and operator
// tooling; clients never call it.
func (n *Node) Plaintext(h fhe.Handle) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fhe.Value(h)
}

// Bind returns the contract bound to signer.
func (n *Node) Bind(signer ledger.TxSigner) *Binding {
	return &Binding{node: n, signer: signer}
}
