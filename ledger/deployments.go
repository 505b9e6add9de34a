package ledger

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/crypto"
)

// Deployment is one contract deployment.
type Deployment struct {
	Address   crypto.Address `json:"address"`
	ChainID   uint64         `json:"chainId"`
	ChainName string         `json:"chainName"`
}

// AddressBook maps a decimal chain id to its deployment.
type AddressBook map[string]Deployment

// LoadAddressBook reads a JSON address book.
func LoadAddressBook(path string) (AddressBook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read address book %s", path)
	}
	var b AddressBook
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, errors.Wrap(err, "decode address book")
	}
	return b, nil
}

// Save writes b to path as formatted JSON.
func (b AddressBook) Save(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode address book")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write address book %s", path)
}

// Set records a deployment.
func (b AddressBook) Set(d Deployment) {
	b[strconv.FormatUint(d.ChainID, 10)] = d
}

// Lookup returns the contract for chainID. A missing or zero address is
// ErrNotDeployed.
func (b AddressBook) Lookup(chainID uint64) (crypto.Address, error) {
	d, ok := b[strconv.FormatUint(chainID, 10)]
	if !ok || d.Address.IsZero() {
		return "", errors.Wrapf(ErrNotDeployed, "chain %d", chainID)
	}
	return d.Address, nil
}
