// Package decryptsig manages the time-bounded decryption capability: an
// ephemeral key pair plus the user's signature over a permit that binds
// the public key to a contract set on one chain. One capability is kept per
// (user, chain, contract set) and reused from durable storage until it expires.
package decryptsig

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
)

// DecryptionSignature is the persisted capability.
type DecryptionSignature struct {
	PublicKey         []byte           `json:"public_key"`
	PrivateKey        []byte           `json:"private_key"`
	Signature         []byte           `json:"signature"`
	ContractAddresses []crypto.Address `json:"contract_addresses"`
	UserAddress       crypto.Address   `json:"user_address"`
	StartTimestamp    int64            `json:"start_timestamp"`
	DurationDays      int64            `json:"duration_days"`
	ChainID           uint64           `json:"chain_id"`
}

// Permit reconstructs the signed typed message.
func (s *DecryptionSignature) Permit() fhe.Permit {
	return fhe.Permit{
		PublicKey:         s.PublicKey,
		ContractAddresses: s.ContractAddresses,
		StartTimestamp:    s.StartTimestamp,
		DurationDays:      s.DurationDays,
		ChainID:           s.ChainID,
	}
}

// Keypair returns the ephemeral key pair.
func (s *DecryptionSignature) Keypair() fhe.Keypair {
	return fhe.Keypair{PublicKey: s.PublicKey, PrivateKey: s.PrivateKey}
}

// ExpiresAt is start + durationDays.
func (s *DecryptionSignature) ExpiresAt() time.Time {
	return s.Permit().ExpiresAt()
}

// ValidAt reports whether now < start + durationDays.
func (s *DecryptionSignature) ValidAt(now time.Time) bool {
	return now.Before(s.ExpiresAt())
}

// Matches reports whether s was issued for exactly (user, chainID, contracts).
func (s *DecryptionSignature) Matches(user crypto.Address, chainID uint64, contracts []crypto.Address) bool {
	return s.UserAddress == user && s.ChainID == chainID &&
		slices.Equal(s.ContractAddresses, fhe.SortedContracts(contracts))
}

// Key is the storage key for (user, chainID, contracts). The contract set is
// sorted so the same set in any order maps to one record.
func Key(user crypto.Address, chainID uint64, contracts []crypto.Address) string {
	sorted := fhe.SortedContracts(contracts)
	parts := make([]string, len(sorted))
	for i, a := range sorted {
		parts[i] = a.String()
	}
	return strconv.FormatUint(chainID, 10) + ":" + user.String() + ":" + strings.Join(parts, ",")
}

func encode(s *DecryptionSignature) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", errors.Wrap(err, "encode decryption signature")
	}
	return string(b), nil
}

func decode(v string) (*DecryptionSignature, error) {
	var s DecryptionSignature
	if err := json.Unmarshal([]byte(v), &s); err != nil {
		return nil, errors.Wrap(err, "decode decryption signature")
	}
	return &s, nil
}
