package ledger

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
)

// Method names a state-changing contract call.
type Method string

const (
	MethodStartGame                     Method = "startGame"
	MethodSubmitScore                   Method = "submitScore"
	MethodAllowScoreDecryption          Method = "allowScoreDecryption"
	MethodRefreshGlobalAverages         Method = "refreshGlobalAverages"
	MethodAllowGlobalAveragesDecryption Method = "allowGlobalAveragesDecryption"
)

// TxSigner signs transaction digests for one account. *wallet.Wallet
// satisfies it.
type TxSigner interface {
	Address() crypto.Address
	SignHash(digest []byte) ([]byte, error)
}

// Transaction is a signed contract call.
// Signature covers all fields except ID and Signature.
type Transaction struct {
	ID        string          `json:"id"`
	ChainID   uint64          `json:"chain_id"`
	To        crypto.Address  `json:"to"`
	Method    Method          `json:"method"`
	From      crypto.Address  `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// signingBody holds the fields that are covered by the signature.
type signingBody struct {
	ChainID   uint64          `json:"chain_id"`
	To        crypto.Address  `json:"to"`
	Method    Method          `json:"method"`
	From      crypto.Address  `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Hash returns the keccak-256 digest of the signing body.
func (tx *Transaction) Hash() []byte {
	data, err := json.Marshal(signingBody{
		ChainID:   tx.ChainID,
		To:        tx.To,
		Method:    tx.Method,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Timestamp: tx.Timestamp,
		Payload:   tx.Payload,
	})
	if err != nil {
		// Every field is a plain value or pre-encoded JSON.
		panic(err)
	}
	return crypto.Keccak256(data)
}

// Sign sets From, Signature and ID using s.
func (tx *Transaction) Sign(s TxSigner) error {
	tx.From = s.Address()
	digest := tx.Hash()
	sig, err := s.SignHash(digest)
	if err != nil {
		return errors.Wrap(err, "sign transaction")
	}
	tx.Signature = crypto.SignatureHex(sig)
	tx.ID = "0x" + hex.EncodeToString(digest)
	return nil
}

// Verify checks that the signature recovers to From.
func (tx *Transaction) Verify() error {
	if tx.From.IsZero() {
		return errors.New("missing from field")
	}
	sig, err := crypto.SignatureFromHex(tx.Signature)
	if err != nil {
		return err
	}
	return crypto.Verify(tx.From, tx.Hash(), sig)
}

// NewTransaction creates an unsigned transaction with the current timestamp.
func NewTransaction(chainID uint64, to crypto.Address, method Method, nonce uint64, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}
	return &Transaction{
		ChainID:   chainID,
		To:        to,
		Method:    method,
		Nonce:     nonce,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// ---- Payload types ----

// SubmitScorePayload finalises a session with two encrypted inputs.
type SubmitScorePayload struct {
	SessionID  uint64     `json:"session_id"`
	Score      fhe.Handle `json:"score"`
	ScoreProof []byte     `json:"score_proof"`
	Moves      fhe.Handle `json:"moves"`
	MovesProof []byte     `json:"moves_proof"`
}

// SessionPayload addresses one session.
type SessionPayload struct {
	SessionID uint64 `json:"session_id"`
}

// Empty is the payload of calls without arguments.
type Empty struct{}
