package ledger

import (
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
)

type keySigner struct{ k *crypto.PrivateKey }

func (s keySigner) Address() crypto.Address             { return s.k.Address() }
func (s keySigner) SignHash(d []byte) ([]byte, error) { return crypto.Sign(s.k, d) }

var contract = crypto.MustAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")

func TestTransactionSignVerify(t *testing.T) {
	k, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx, err := NewTransaction(31337, contract, MethodAllowScoreDecryption, 3, SessionPayload{SessionID: 7})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(keySigner{k}))

	assert.Equal(t, k.Address(), tx.From)
	assert.NotEmpty(t, tx.ID)
	require.NoError(t, tx.Verify())

	tampered := *tx
	tampered.Nonce = 4
	assert.True(t, errors.Is(tampered.Verify(), crypto.ErrSignatureMismatch))

	tampered = *tx
	tampered.From = crypto.ZeroAddress
	assert.Error(t, tampered.Verify())
}

func TestRevertRoundTrip(t *testing.T) {
	for _, sentinel := range []error{
		ErrGameAlreadyCompleted, ErrUnauthorizedAccess, ErrNoGamesPlayed,
		ErrGameNotFound, ErrAveragesNotComputed, fhe.ErrPermitExpired, fhe.ErrNotAllowed,
	} {
		wrapped := errors.Wrapf(sentinel, "session %d", 0)
		name := RevertName(wrapped)
		require.NotEmpty(t, name, sentinel.Error())

		back := RevertError(name, wrapped.Error())
		assert.True(t, errors.Is(back, sentinel), name)
		assert.Equal(t, wrapped.Error(), back.Error())
	}

	assert.Empty(t, RevertName(errors.New("boom")))
	assert.False(t, errors.Is(RevertError("Unknown", "boom"), ErrGameNotFound))
}

func TestAddressBook(t *testing.T) {
	b := AddressBook{}
	b.Set(Deployment{Address: contract, ChainID: 31337, ChainName: "devnet"})
	b.Set(Deployment{Address: crypto.ZeroAddress, ChainID: 11155111, ChainName: "sepolia"})

	path := filepath.Join(t.TempDir(), "addresses.json")
	require.NoError(t, b.Save(path))
	loaded, err := LoadAddressBook(path)
	require.NoError(t, err)

	addr, err := loaded.Lookup(31337)
	require.NoError(t, err)
	assert.Equal(t, contract, addr)

	_, err = loaded.Lookup(11155111)
	assert.True(t, errors.Is(err, ErrNotDeployed))
	_, err = loaded.Lookup(1)
	assert.True(t, errors.Is(err, ErrNotDeployed))
}
