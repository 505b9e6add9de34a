package wallet

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/events"
)

type note string

func (n note) Digest() []byte  { return crypto.Keccak256([]byte(n)) }
func (n note) Summary() string { return string(n) }

func TestKeystoreRoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.json")

	require.NoError(t, SaveKey(path, "hunter2", priv))

	got, err := LoadKey(path, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, priv.Address(), got.Address())

	_, err = LoadKey(path, "wrong")
	assert.True(t, errors.Is(err, ErrWrongPassword))
}

func TestSignTypedData(t *testing.T) {
	w, err := Generate(31337)
	require.NoError(t, err)

	sig, err := w.SignTypedData(context.Background(), note("hello"))
	require.NoError(t, err)
	require.NoError(t, crypto.Verify(w.Address(), note("hello").Digest(), sig))
}

func TestSignTypedDataConfirmation(t *testing.T) {
	var shown []string
	approve := true
	w, err := Generate(1, WithConfirm(func(_ context.Context, summary string) (bool, error) {
		shown = append(shown, summary)
		return approve, nil
	}))
	require.NoError(t, err)

	_, err = w.SignTypedData(context.Background(), note("first"))
	require.NoError(t, err)

	approve = false
	_, err = w.SignTypedData(context.Background(), note("second"))
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Equal(t, []string{"first", "second"}, shown)
}

func TestDisconnected(t *testing.T) {
	w := New(nil, 1)
	assert.False(t, w.Connected())
	assert.True(t, w.Address().IsZero())

	_, err := w.SignTypedData(context.Background(), note("x"))
	assert.True(t, errors.Is(err, ErrNotConnected))
	_, err = w.SignHash(make([]byte, 32))
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestChangeNotifications(t *testing.T) {
	em := events.NewEmitter()
	w, err := Generate(1, WithEmitter(em))
	require.NoError(t, err)

	var got []events.Event
	em.SubscribeAll(func(ev events.Event) { got = append(got, ev) })

	w.SwitchChain(11155111)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	w.SwitchAccount(other)
	w.Disconnect()

	require.Len(t, got, 3)
	assert.Equal(t, events.EventChainChanged, got[0].Type)
	assert.Equal(t, uint64(11155111), got[0].Data["chain_id"])
	assert.Equal(t, uint64(11155111), w.ChainID())
	assert.Equal(t, other.Address().String(), got[1].Data["address"])
	assert.Equal(t, crypto.ZeroAddress.String(), got[2].Data["address"])
}
