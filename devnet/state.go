package devnet

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/ledger"
	"github.com/tolelom/fhe2048/storage"
)

// registerPrefix records a state-key prefix into statePrefixes so that
// ComputeRoot() always covers it.
func registerPrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

var statePrefixes []string

var (
	prefixAccount    = registerPrefix("acct:")
	prefixSession    = registerPrefix("sess:")
	prefixPlayer     = registerPrefix("player:")
	prefixPlayerList = registerPrefix("plist:")
	prefixCiphertext = registerPrefix("ct:")
	prefixACL        = registerPrefix("acl:")
	keyGlobals       = registerPrefix("globals")
	keyHandleNonce   = registerPrefix("hnonce")
)

// keyNetwork holds the network key pair; it is node configuration, not
// contract state, so it stays out of the root.
const keyNetwork = "net:key"

// Account is a sender's replay-protection nonce.
type Account struct {
	Address crypto.Address `json:"address"`
	Nonce   uint64         `json:"nonce"`
}

// Player is the contract's per-player record.
type Player struct {
	Address     crypto.Address `json:"address"`
	GameIDs     []uint64       `json:"game_ids"`
	GamesPlayed uint64         `json:"games_played"`
	BestScore   fhe.Handle     `json:"best_score"`
}

// Globals are the contract-wide counters and encrypted aggregates.
type Globals struct {
	GameIDCounter uint64     `json:"game_id_counter"`
	TotalGames    uint64     `json:"total_games"`
	TotalPlayers  uint64     `json:"total_players"`
	SumScore      fhe.Handle `json:"sum_score"`
	SumMoves      fhe.Handle `json:"sum_moves"`
	AvgScore      fhe.Handle `json:"avg_score"`
	AvgMoves      fhe.Handle `json:"avg_moves"`
}

// storedCiphertext is what the mock coprocessor keeps per handle.
type storedCiphertext struct {
	Type  fhe.Type `json:"type"`
	Value uint64   `json:"value"`
}

type stateSnapshot struct {
	dirty   map[string][]byte
	deleted map[string]bool
}

// StateDB is the contract's world state on top of a storage.DB, with an
// in-memory write buffer, snapshot/rollback and a deterministic root.
type StateDB struct {
	db        storage.DB
	dirty     map[string][]byte
	deleted   map[string]bool
	snapshots []stateSnapshot
}

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db storage.DB) *StateDB {
	return &StateDB{
		db:      db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// ---- internal helpers ----

func (s *StateDB) get(key string) ([]byte, error) {
	if s.deleted[key] {
		return nil, storage.ErrNotFound
	}
	if v, ok := s.dirty[key]; ok {
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *StateDB) set(key string, val []byte) {
	delete(s.deleted, key)
	s.dirty[key] = val
}

func (s *StateDB) getJSON(key string, v any) error {
	data, err := s.get(key)
	if err != nil {
		return err
	}
	return errors.Wrapf(json.Unmarshal(data, v), "decode %s", key)
}

func (s *StateDB) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	s.set(key, data)
	return nil
}

func sessionKey(id uint64) string { return fmt.Sprintf("%s%020d", prefixSession, id) }

func playerListKey(i uint64) string { return fmt.Sprintf("%s%020d", prefixPlayerList, i) }

func aclKey(h fhe.Handle, a crypto.Address) string { return prefixACL + h.Hex() + ":" + a.String() }

// ---- Account ----

func (s *StateDB) GetAccount(addr crypto.Address) (*Account, error) {
	var acc Account
	err := s.getJSON(prefixAccount+addr.String(), &acc)
	if errors.Is(err, storage.ErrNotFound) {
		return &Account{Address: addr}, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *StateDB) SetAccount(acc *Account) error {
	return s.setJSON(prefixAccount+acc.Address.String(), acc)
}

// ---- Session ----

func (s *StateDB) GetSession(id uint64) (*ledger.GameSession, error) {
	var sess ledger.GameSession
	err := s.getJSON(sessionKey(id), &sess)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errors.Wrapf(ledger.ErrGameNotFound, "session %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *StateDB) SetSession(sess *ledger.GameSession) error {
	return s.setJSON(sessionKey(sess.ID), sess)
}

// ---- Player ----

// GetPlayer returns the player's record, or a zero record if the address
// has never played.
func (s *StateDB) GetPlayer(addr crypto.Address) (*Player, error) {
	var p Player
	err := s.getJSON(prefixPlayer+addr.String(), &p)
	if errors.Is(err, storage.ErrNotFound) {
		return &Player{Address: addr}, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *StateDB) SetPlayer(p *Player) error {
	return s.setJSON(prefixPlayer+p.Address.String(), p)
}

// AppendPlayer stores addr at index i of the player list.
func (s *StateDB) AppendPlayer(i uint64, addr crypto.Address) {
	s.set(playerListKey(i), []byte(addr))
}

// PlayerAt returns the i-th player in registration order.
func (s *StateDB) PlayerAt(i uint64) (crypto.Address, error) {
	v, err := s.get(playerListKey(i))
	if err != nil {
		return "", err
	}
	return crypto.Address(v), nil
}

// ---- Globals ----

func (s *StateDB) GetGlobals() (*Globals, error) {
	var g Globals
	err := s.getJSON(keyGlobals, &g)
	if errors.Is(err, storage.ErrNotFound) {
		return &g, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *StateDB) SetGlobals(g *Globals) error {
	return s.setJSON(keyGlobals, g)
}

// ---- Ciphertexts and ACL ----

func (s *StateDB) getCiphertext(h fhe.Handle) (storedCiphertext, error) {
	var ct storedCiphertext
	err := s.getJSON(prefixCiphertext+h.Hex(), &ct)
	return ct, err
}

func (s *StateDB) setCiphertext(h fhe.Handle, ct storedCiphertext) error {
	return s.setJSON(prefixCiphertext+h.Hex(), ct)
}

// nextHandleNonce returns a fresh counter value for computed handles.
func (s *StateDB) nextHandleNonce() uint64 {
	var n uint64
	if v, err := s.get(keyHandleNonce); err == nil && len(v) == 8 {
		n = binary.BigEndian.Uint64(v)
	}
	s.set(keyHandleNonce, binary.BigEndian.AppendUint64(nil, n+1))
	return n
}

func (s *StateDB) allow(h fhe.Handle, a crypto.Address) {
	s.set(aclKey(h, a), []byte{1})
}

func (s *StateDB) isAllowed(h fhe.Handle, a crypto.Address) bool {
	_, err := s.get(aclKey(h, a))
	return err == nil
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot saves the current write buffer and returns a snapshot ID.
func (s *StateDB) Snapshot() int {
	snap := stateSnapshot{
		dirty:   make(map[string][]byte, len(s.dirty)),
		deleted: make(map[string]bool, len(s.deleted)),
	}
	for k, v := range s.dirty {
		snap.dirty[k] = bytes.Clone(v)
	}
	for k, v := range s.deleted {
		snap.deleted[k] = v
	}
	s.snapshots = append(s.snapshots, snap)
	return len(s.snapshots) - 1
}

// RevertToSnapshot restores the write buffer to a previously saved snapshot.
func (s *StateDB) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(s.snapshots) {
		return errors.Newf("invalid snapshot id %d", id)
	}
	snap := s.snapshots[id]

	dirty := make(map[string][]byte, len(snap.dirty))
	for k, v := range snap.dirty {
		dirty[k] = bytes.Clone(v)
	}
	deleted := make(map[string]bool, len(snap.deleted))
	for k, v := range snap.deleted {
		deleted[k] = v
	}

	s.dirty = dirty
	s.deleted = deleted
	s.snapshots = s.snapshots[:id]
	return nil
}

// ComputeRoot returns the keccak hash of the complete contract state: all
// persisted entries under the registered prefixes merged with the write
// buffer, sorted and length-prefix encoded. It does not flush.
func (s *StateDB) ComputeRoot() string {
	merged := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		it := s.db.NewIterator([]byte(prefix))
		for it.Next() {
			merged[string(it.Key())] = bytes.Clone(it.Value())
		}
		it.Release()
	}
	for k, v := range s.dirty {
		if hasStatePrefix(k) {
			merged[k] = v
		}
	}
	for k := range s.deleted {
		delete(merged, k)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, k := range keys {
		v := merged[k]
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(k)))
		buf.Write(lenBuf[:])
		buf.WriteString(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		buf.Write(v)
	}
	return crypto.Keccak256Hex(buf.Bytes())
}

func hasStatePrefix(k string) bool {
	for _, p := range statePrefixes {
		if len(k) >= len(p) && k[:len(p)] == p {
			return true
		}
	}
	return false
}

// Commit atomically flushes the write buffer to the underlying DB.
func (s *StateDB) Commit() error {
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range s.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "commit state")
	}
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	s.snapshots = nil
	return nil
}
