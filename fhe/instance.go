package fhe

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/nacl/box"

	"github.com/tolelom/fhe2048/crypto"
)

// Errors reported by the key management service on user decryption.
var (
	ErrPermitExpired      = errors.New("decryption permit expired or not yet valid")
	ErrPermitSigner       = errors.New("decryption permit not signed by user")
	ErrPermitChain        = errors.New("decryption permit signed for another chain")
	ErrContractNotAllowed = errors.New("contract not covered by decryption permit")
	ErrNotAllowed         = errors.New("handle not allowed for decryption")
)

// ErrOpen is returned when a re-encrypted value cannot be opened with the
// ephemeral key.
var ErrOpen = errors.New("cannot open re-encrypted value")

// Keypair is an ephemeral x25519 key pair used to receive re-encrypted values.
type Keypair struct {
	PublicKey  []byte `json:"public_key"`
	PrivateKey []byte `json:"private_key"`
}

// GenerateKeypair creates a fresh ephemeral key pair from r (crypto/rand if nil).
func GenerateKeypair(r io.Reader) (Keypair, error) {
	if r == nil {
		r = rand.Reader
	}
	pub, priv, err := box.GenerateKey(r)
	if err != nil {
		return Keypair{}, errors.Wrap(err, "generate keypair")
	}
	return Keypair{PublicKey: pub[:], PrivateKey: priv[:]}, nil
}

// HandleContractPair scopes a handle to the contract it was created under.
type HandleContractPair struct {
	Handle          Handle         `json:"handle"`
	ContractAddress crypto.Address `json:"contract_address"`
}

// UserDecryptRequest is what the relayer forwards to the key management
// service. The ephemeral private key is never part of it.
type UserDecryptRequest struct {
	Handles     []HandleContractPair `json:"handles"`
	Permit      Permit               `json:"permit"`
	Signature   []byte               `json:"signature"`
	UserAddress crypto.Address       `json:"user_address"`
}

// Relayer is the transport to the network: it serves the network public
// key and returns plaintexts sealed to the permit's public key.
type Relayer interface {
	NetworkPublicKey(ctx context.Context) ([]byte, error)
	UserDecrypt(ctx context.Context, req UserDecryptRequest) (map[Handle][]byte, error)
}

// Instance is an initialised encryption context.
type Instance interface {
	ChainID() uint64
	CreateEncryptedInput(contract, user crypto.Address) *InputBuilder
	GenerateKeypair() (Keypair, error)
	// UserDecrypt returns the plaintext of every handle the network released.
	// Handles without a value are absent from the map.
	UserDecrypt(ctx context.Context, handles []HandleContractPair, kp Keypair, permit Permit, signature []byte, user crypto.Address) (map[Handle]uint64, error)
}

// Client is the relayer-backed Instance.
type Client struct {
	relayer Relayer
	chainID uint64
	netKey  [32]byte
	rand    io.Reader
}

var _ Instance = (*Client)(nil)

// NewClient fetches the network key and returns a ready Instance.
func NewClient(ctx context.Context, relayer Relayer, chainID uint64) (*Client, error) {
	key, err := relayer.NetworkPublicKey(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch network public key")
	}
	if len(key) != 32 {
		return nil, errors.Newf("network public key must be 32 bytes, got %d", len(key))
	}
	c := &Client{relayer: relayer, chainID: chainID, rand: rand.Reader}
	copy(c.netKey[:], key)
	return c, nil
}

func (c *Client) ChainID() uint64 { return c.chainID }

func (c *Client) CreateEncryptedInput(contract, user crypto.Address) *InputBuilder {
	return newInputBuilder(contract, user, &c.netKey, c.rand)
}

func (c *Client) GenerateKeypair() (Keypair, error) {
	return GenerateKeypair(c.rand)
}

func (c *Client) UserDecrypt(ctx context.Context, handles []HandleContractPair, kp Keypair, permit Permit, signature []byte, user crypto.Address) (map[Handle]uint64, error) {
	if len(kp.PublicKey) != 32 || len(kp.PrivateKey) != 32 {
		return nil, errors.New("ephemeral keypair must be 32-byte x25519 keys")
	}
	if !bytes.Equal(kp.PublicKey, permit.PublicKey) {
		return nil, errors.New("permit public key does not match keypair")
	}
	sealed, err := c.relayer.UserDecrypt(ctx, UserDecryptRequest{
		Handles:     handles,
		Permit:      permit,
		Signature:   signature,
		UserAddress: user,
	})
	if err != nil {
		return nil, err
	}

	var pub, priv [32]byte
	copy(pub[:], kp.PublicKey)
	copy(priv[:], kp.PrivateKey)

	out := make(map[Handle]uint64, len(sealed))
	for h, ct := range sealed {
		pt, ok := box.OpenAnonymous(nil, ct, &pub, &priv)
		if !ok {
			return nil, errors.Wrapf(ErrOpen, "handle %s", h)
		}
		_, v, err := DecodePlaintext(pt)
		if err != nil {
			return nil, errors.Wrapf(err, "handle %s", h)
		}
		out[h] = v
	}
	return out, nil
}
