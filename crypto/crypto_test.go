package crypto

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKeyGenAndAddress verifies that key generation and address derivation work.
func TestKeyGenAndAddress(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	addr := priv.Address()
	assert.Len(t, string(addr), 42)
	assert.True(t, strings.HasPrefix(string(addr), "0x"))

	// Roundtrip through hex keeps the same address.
	again, err := PrivKeyFromHex(priv.Hex())
	require.NoError(t, err)
	assert.Equal(t, addr, again.Address())
}

// TestKnownAddress checks derivation against the well-known key 0x...01.
func TestKnownAddress(t *testing.T) {
	priv, err := PrivKeyFromHex("0000000000000000000000000000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, Address("0x7e5f4552091a69125d5dfcb7b8c2659029395bdf"), priv.Address())
}

// TestSignRecover ensures Sign/RecoverAddress round-trips and tampering is caught.
func TestSignRecover(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	digest := Keccak256([]byte("hello fhe2048"))
	sig, err := Sign(priv, digest)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)

	require.NoError(t, Verify(priv.Address(), digest, sig))

	other := Keccak256([]byte("tampered"))
	err = Verify(priv.Address(), other, sig)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSignatureMismatch))
}

func TestSignRejectsShortDigest(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	_, err = Sign(priv, []byte("short"))
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	require.NoError(t, err)
	assert.Equal(t, Address("0x7e5f4552091a69125d5dfcb7b8c2659029395bdf"), a)
	assert.Len(t, a.Bytes(), AddressLength)

	_, err = ParseAddress("0x1234")
	assert.Error(t, err)
	_, err = ParseAddress("not-hex")
	assert.Error(t, err)

	assert.True(t, ZeroAddress.IsZero())
	assert.True(t, Address("").IsZero())
	assert.False(t, a.IsZero())
}
