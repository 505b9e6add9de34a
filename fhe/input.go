package fhe

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/nacl/box"

	"github.com/tolelom/fhe2048/crypto"
)

const proofVersion = 1

// ErrInvalidProof is returned when an input proof cannot be parsed or does
// not bind its ciphertexts to the expected handles.
var ErrInvalidProof = errors.New("invalid input proof")

// EncryptedInput is the result of InputBuilder.Encrypt: one handle per added
// value plus a single proof covering all of them.
type EncryptedInput struct {
	Handles    []Handle `json:"handles"`
	InputProof []byte   `json:"input_proof"`
}

// InputBuilder collects plaintexts bound to one (contract, user) pair.
type InputBuilder struct {
	contract crypto.Address
	user     crypto.Address
	netKey   *[32]byte
	rand     io.Reader
	types    []Type
	values   []uint64
}

func newInputBuilder(contract, user crypto.Address, netKey *[32]byte, r io.Reader) *InputBuilder {
	if r == nil {
		r = rand.Reader
	}
	return &InputBuilder{contract: contract, user: user, netKey: netKey, rand: r}
}

// Add32 appends an encrypted uint32.
func (b *InputBuilder) Add32(v uint32) *InputBuilder {
	b.types = append(b.types, TypeUint32)
	b.values = append(b.values, uint64(v))
	return b
}

// AddBool appends an encrypted bool.
func (b *InputBuilder) AddBool(v bool) *InputBuilder {
	b.types = append(b.types, TypeBool)
	b.values = append(b.values, boolValue(v))
	return b
}

// Encrypt seals every value to the network key and derives the handles.
func (b *InputBuilder) Encrypt() (EncryptedInput, error) {
	if len(b.values) == 0 {
		return EncryptedInput{}, errors.New("encrypted input is empty")
	}
	if len(b.values) > 255 {
		return EncryptedInput{}, errors.Newf("too many values in one input: %d", len(b.values))
	}
	cts := make([][]byte, len(b.values))
	for i, v := range b.values {
		ct, err := box.SealAnonymous(nil, EncodePlaintext(b.types[i], v), b.netKey, b.rand)
		if err != nil {
			return EncryptedInput{}, errors.Wrap(err, "seal input")
		}
		cts[i] = ct
	}
	out := EncryptedInput{InputProof: encodeProof(cts)}
	for i, ct := range cts {
		out.Handles = append(out.Handles, InputHandle(ct, b.contract, b.user, i, b.types[i]))
	}
	return out, nil
}

// InputHandle binds a ciphertext to its contract, user and position.
func InputHandle(ct []byte, contract, user crypto.Address, index int, typ Type) Handle {
	return NewHandle(crypto.Keccak256(ct, contract.Bytes(), user.Bytes(), []byte{byte(index)}), typ)
}

// Ciphertext is one proof entry after verification.
type Ciphertext struct {
	Handle Handle
	Data   []byte
}

// VerifyProof checks that h is bound to one of the proof's ciphertexts under
// (contract, user) and returns that ciphertext.
func VerifyProof(h Handle, proof []byte, contract, user crypto.Address) (Ciphertext, error) {
	cts, err := decodeProof(proof)
	if err != nil {
		return Ciphertext{}, err
	}
	for i, ct := range cts {
		if InputHandle(ct, contract, user, i, h.Type()) == h {
			return Ciphertext{Handle: h, Data: ct}, nil
		}
	}
	return Ciphertext{}, errors.Wrapf(ErrInvalidProof, "handle %s not bound to %s/%s", h, contract, user)
}

// proof layout: version | count | count x (uint16 length | ciphertext)
func encodeProof(cts [][]byte) []byte {
	out := []byte{proofVersion, byte(len(cts))}
	for _, ct := range cts {
		out = binary.BigEndian.AppendUint16(out, uint16(len(ct)))
		out = append(out, ct...)
	}
	return out
}

func decodeProof(p []byte) ([][]byte, error) {
	if len(p) < 2 || p[0] != proofVersion {
		return nil, errors.Wrap(ErrInvalidProof, "bad header")
	}
	n := int(p[1])
	p = p[2:]
	cts := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		if len(p) < 2 {
			return nil, errors.Wrap(ErrInvalidProof, "truncated")
		}
		l := int(binary.BigEndian.Uint16(p))
		p = p[2:]
		if len(p) < l {
			return nil, errors.Wrap(ErrInvalidProof, "truncated")
		}
		cts = append(cts, p[:l])
		p = p[l:]
	}
	if len(p) != 0 {
		return nil, errors.Wrap(ErrInvalidProof, "trailing bytes")
	}
	return cts, nil
}

// EncodePlaintext lays out a sealed value as type | uint64 big-endian.
func EncodePlaintext(t Type, v uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte{byte(t)}, v)
}

// DecodePlaintext is the inverse of the sealed plaintext encoding.
func DecodePlaintext(b []byte) (Type, uint64, error) {
	if len(b) != 9 {
		return 0, 0, errors.Newf("plaintext must be 9 bytes, got %d", len(b))
	}
	return Type(b[0]), binary.BigEndian.Uint64(b[1:]), nil
}

func boolValue(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
