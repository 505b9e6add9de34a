package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/fhe2048/devnet"
	"github.com/tolelom/fhe2048/internal/testutil"
	"github.com/tolelom/fhe2048/ledger"
)

func TestRecordDeployment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.json")
	other := ledger.AddressBook{}
	other.Set(ledger.Deployment{Address: devnet.ContractAddressFor(1), ChainID: 1})
	require.NoError(t, other.Save(path))

	node, err := devnet.NewNode(testutil.NewMemDB(), devnet.Config{ChainID: 8009})
	require.NoError(t, err)
	require.NoError(t, recordDeployment(path, node))

	book, err := ledger.LoadAddressBook(path)
	require.NoError(t, err)
	addr, err := book.Lookup(8009)
	require.NoError(t, err)
	assert.Equal(t, node.ContractAddress(), addr)

	// Other chains are kept.
	addr, err = book.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, devnet.ContractAddressFor(1), addr)
}

func TestRecordDeploymentCreatesBook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.json")
	node, err := devnet.NewNode(testutil.NewMemDB(), devnet.Config{})
	require.NoError(t, err)
	require.NoError(t, recordDeployment(path, node))

	book, err := ledger.LoadAddressBook(path)
	require.NoError(t, err)
	_, err = book.Lookup(devnet.DefaultChainID)
	assert.NoError(t, err)
}
