package crypto

import (
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// AddressLength is the byte length of an account address.
const AddressLength = 20

// Address is a 0x-prefixed, lowercase hex account address derived from a
// secp256k1 public key.
type Address string

// ZeroAddress is the all-zero address; it never identifies a deployment.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates and normalises s.
func ParseAddress(s string) (Address, error) {
	raw := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return "", errors.Wrapf(err, "invalid address %q", s)
	}
	if len(b) != AddressLength {
		return "", errors.Newf("address must be %d bytes, got %d", AddressLength, len(b))
	}
	return Address("0x" + raw), nil
}

// MustAddress is ParseAddress for constants and tests.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Bytes returns the raw 20 address bytes, or nil if a is malformed.
func (a Address) Bytes() []byte {
	b, err := hex.DecodeString(strings.TrimPrefix(string(a), "0x"))
	if err != nil || len(b) != AddressLength {
		return nil
	}
	return b
}

func (a Address) String() string { return string(a) }

// IsZero reports whether a is empty or the zero address.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

// PrivateKey is a secp256k1 identity key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a fresh random identity key.
func GenerateKey() (*PrivateKey, error) {
	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate secp256k1 key")
	}
	return &PrivateKey{key: k}, nil
}

// PrivKeyFromBytes wraps a 32-byte scalar.
func PrivKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != secp256k1.PrivKeyBytesLen {
		return nil, errors.Newf("privkey must be %d bytes, got %d", secp256k1.PrivKeyBytesLen, len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// PrivKeyFromHex decodes a hex-encoded private key.
func PrivKeyFromHex(s string) (*PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid privkey hex")
	}
	return PrivKeyFromBytes(b)
}

// Bytes returns the 32-byte scalar. Handle with care.
func (p *PrivateKey) Bytes() []byte {
	return p.key.Serialize()
}

// Hex returns the hex-encoded private key.
func (p *PrivateKey) Hex() string {
	return hex.EncodeToString(p.Bytes())
}

// Address derives the account address: the last 20 bytes of
// Keccak256(uncompressed pubkey without the 0x04 prefix).
func (p *PrivateKey) Address() Address {
	return pubKeyToAddress(p.key.PubKey())
}

func pubKeyToAddress(pub *secp256k1.PublicKey) Address {
	h := Keccak256(pub.SerializeUncompressed()[1:])
	return Address("0x" + hex.EncodeToString(h[12:]))
}
