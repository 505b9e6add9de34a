package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Keccak256 returns the legacy Keccak-256 digest of the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

// Keccak256Hex returns Keccak256 as a 0x-prefixed lowercase hex string.
func Keccak256Hex(data ...[]byte) string {
	return "0x" + hex.EncodeToString(Keccak256(data...))
}
