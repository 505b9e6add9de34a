package devnet

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/nacl/box"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/ledger"
)

// Coprocessor is a mock FHE executor. It keeps every ciphertext's
// plaintext in state and derives fresh handles for computed values, so
// contract code sees only handles while tests can inspect values.
type Coprocessor struct {
	state   *StateDB
	netPriv *[32]byte
	netPub  *[32]byte
}

func newCoprocessor(state *StateDB, pub, priv *[32]byte) *Coprocessor {
	return &Coprocessor{state: state, netPub: pub, netPriv: priv}
}

// VerifyInput checks h against proof for (contract, user), opens the
// ciphertext with the network key and registers the plaintext.
func (c *Coprocessor) VerifyInput(h fhe.Handle, proof []byte, contract, user crypto.Address) (fhe.Handle, error) {
	ct, err := fhe.VerifyProof(h, proof, contract, user)
	if err != nil {
		return fhe.ZeroHandle, errors.Mark(err, ledger.ErrInvalidInputProof)
	}
	pt, ok := box.OpenAnonymous(nil, ct.Data, c.netPub, c.netPriv)
	if !ok {
		return fhe.ZeroHandle, errors.Wrap(ledger.ErrInvalidInputProof, "ciphertext not sealed to network key")
	}
	typ, v, err := fhe.DecodePlaintext(pt)
	if err != nil {
		return fhe.ZeroHandle, errors.Mark(err, ledger.ErrInvalidInputProof)
	}
	if typ != h.Type() {
		return fhe.ZeroHandle, errors.Wrapf(ledger.ErrInvalidInputProof, "handle type %s, ciphertext type %s", h.Type(), typ)
	}
	if err := c.state.setCiphertext(h, storedCiphertext{Type: typ, Value: v}); err != nil {
		return fhe.ZeroHandle, err
	}
	return h, nil
}

// Value returns the plaintext behind h. The zero handle reads as 0.
func (c *Coprocessor) Value(h fhe.Handle) (uint64, error) {
	if h.IsZero() {
		return 0, nil
	}
	ct, err := c.state.getCiphertext(h)
	if err != nil {
		return 0, errors.Wrapf(err, "ciphertext %s", h)
	}
	return ct.Value, nil
}

func (c *Coprocessor) compute(op string, typ fhe.Type, v uint64, operands ...fhe.Handle) (fhe.Handle, error) {
	seed := [][]byte{[]byte(op), binary.BigEndian.AppendUint64(nil, c.state.nextHandleNonce())}
	for _, o := range operands {
		seed = append(seed, o[:])
	}
	h := fhe.NewHandle(crypto.Keccak256(seed...), typ)
	if err := c.state.setCiphertext(h, storedCiphertext{Type: typ, Value: v}); err != nil {
		return fhe.ZeroHandle, err
	}
	return h, nil
}

func (c *Coprocessor) apply2(op string, a, b fhe.Handle, f func(x, y uint64) uint64) (fhe.Handle, error) {
	x, err := c.Value(a)
	if err != nil {
		return fhe.ZeroHandle, err
	}
	y, err := c.Value(b)
	if err != nil {
		return fhe.ZeroHandle, err
	}
	return c.compute(op, fhe.TypeUint32, f(x, y), a, b)
}

// Add returns a+b, wrapping at 32 bits like euint32.
func (c *Coprocessor) Add(a, b fhe.Handle) (fhe.Handle, error) {
	return c.apply2("add", a, b, func(x, y uint64) uint64 { return uint64(uint32(x + y)) })
}

// Max returns max(a, b).
func (c *Coprocessor) Max(a, b fhe.Handle) (fhe.Handle, error) {
	return c.apply2("max", a, b, func(x, y uint64) uint64 { return max(x, y) })
}

// DivScalar returns a / d (integer division). d must be non-zero.
func (c *Coprocessor) DivScalar(a fhe.Handle, d uint64) (fhe.Handle, error) {
	if d == 0 {
		return fhe.ZeroHandle, errors.New("division by zero")
	}
	x, err := c.Value(a)
	if err != nil {
		return fhe.ZeroHandle, err
	}
	return c.compute("div", fhe.TypeUint32, x/d, a)
}

// GeScalar returns the encrypted bool a >= v.
func (c *Coprocessor) GeScalar(a fhe.Handle, v uint64) (fhe.Handle, error) {
	x, err := c.Value(a)
	if err != nil {
		return fhe.ZeroHandle, err
	}
	var b uint64
	if x >= v {
		b = 1
	}
	return c.compute("ge", fhe.TypeBool, b, a)
}

// Allow grants addr decryption rights on h.
func (c *Coprocessor) Allow(h fhe.Handle, addr crypto.Address) {
	c.state.allow(h, addr)
}

// IsAllowed reports whether addr may use h.
func (c *Coprocessor) IsAllowed(h fhe.Handle, addr crypto.Address) bool {
	return c.state.isAllowed(h, addr)
}
