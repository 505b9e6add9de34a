package crypto

import (
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// SignatureLength is the size of a compact recoverable signature.
const SignatureLength = 65

// ErrSignatureMismatch is returned when a signature recovers to a
// different address than expected.
var ErrSignatureMismatch = errors.New("signature verification failed")

// Sign produces a 65-byte compact recoverable signature over a 32-byte digest.
func Sign(priv *PrivateKey, digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, errors.Newf("digest must be 32 bytes, got %d", len(digest))
	}
	return ecdsa.SignCompact(priv.key, digest, false), nil
}

// RecoverAddress returns the address whose key produced sig over digest.
func RecoverAddress(digest, sig []byte) (Address, error) {
	if len(sig) != SignatureLength {
		return "", errors.Newf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}
	pub, _, err := ecdsa.RecoverCompact(sig, digest)
	if err != nil {
		return "", errors.Wrap(err, "recover signer")
	}
	return pubKeyToAddress(pub), nil
}

// Verify checks that sig over digest was produced by addr.
func Verify(addr Address, digest, sig []byte) error {
	got, err := RecoverAddress(digest, sig)
	if err != nil {
		return err
	}
	if got != addr {
		return errors.Wrapf(ErrSignatureMismatch, "recovered %s, want %s", got, addr)
	}
	return nil
}

// SignatureHex encodes sig as 0x-prefixed hex.
func SignatureHex(sig []byte) string {
	return "0x" + hex.EncodeToString(sig)
}

// SignatureFromHex decodes a 0x-prefixed hex signature.
func SignatureFromHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid signature hex")
	}
	return b, nil
}
