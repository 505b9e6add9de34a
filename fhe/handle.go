// Package fhe is the client side of the encryption primitive: opaque
// ciphertext handles, encrypted inputs with their integrity proofs, the
// user-decryption permit and a relayer-backed Instance that seals values
// to the network key and opens re-encrypted results with an ephemeral key.
package fhe

import (
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"
)

// HandleLength is the byte width of a ciphertext handle.
const HandleLength = 32

// handleVersion is stored in the last handle byte.
const handleVersion = 0

// Type identifies the encrypted value type carried in a handle.
type Type uint8

const (
	TypeBool   Type = 0
	TypeUint32 Type = 4
)

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "ebool"
	case TypeUint32:
		return "euint32"
	default:
		return "unknown"
	}
}

// Handle is an opaque reference to a ciphertext held by the ledger.
type Handle [HandleLength]byte

// ZeroHandle references no ciphertext. Uninitialised encrypted fields
// read back as ZeroHandle.
var ZeroHandle Handle

// NewHandle derives a handle from a 32-byte digest, stamping type and version
// into the two trailing bytes.
func NewHandle(digest []byte, typ Type) Handle {
	var h Handle
	copy(h[:], digest)
	h[30] = byte(typ)
	h[31] = handleVersion
	return h
}

// ParseHandle decodes a 0x-prefixed hex handle.
func ParseHandle(s string) (Handle, error) {
	var h Handle
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return h, errors.Wrapf(err, "invalid handle %q", s)
	}
	if len(b) != HandleLength {
		return h, errors.Newf("handle must be %d bytes, got %d", HandleLength, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Type returns the encrypted type stamped into h.
func (h Handle) Type() Type { return Type(h[30]) }

// IsZero reports whether h references nothing.
func (h Handle) IsZero() bool { return h == ZeroHandle }

// Hex returns h as 0x-prefixed hex.
func (h Handle) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Handle) String() string { return h.Hex() }

// MarshalText implements encoding.TextMarshaler so handles can be JSON
// strings and map keys.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(b []byte) error {
	parsed, err := ParseHandle(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
