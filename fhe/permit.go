package fhe

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tolelom/fhe2048/crypto"
)

const (
	permitDomainName    = "FHE2048Decryption"
	permitDomainVersion = "1"
	permitTypeString    = "UserDecryptRequest(bytes publicKey,address[] contractAddresses,uint256 startTimestamp,uint256 durationDays)"
)

// Day is the unit of a permit's validity window.
const Day = 24 * time.Hour

// Permit is the typed message a user signs to authorise re-encryption of
// handles under ContractAddresses to PublicKey, valid from StartTimestamp
// (unix seconds) for DurationDays.
type Permit struct {
	PublicKey         []byte           `json:"public_key"`
	ContractAddresses []crypto.Address `json:"contract_addresses"`
	StartTimestamp    int64            `json:"start_timestamp"`
	DurationDays      int64            `json:"duration_days"`
	ChainID           uint64           `json:"chain_id"`
}

// NewPermit builds a permit with a sorted, de-duplicated contract set.
func NewPermit(chainID uint64, publicKey []byte, contracts []crypto.Address, start time.Time, days int64) Permit {
	return Permit{
		PublicKey:         publicKey,
		ContractAddresses: SortedContracts(contracts),
		StartTimestamp:    start.Unix(),
		DurationDays:      days,
		ChainID:           chainID,
	}
}

// SortedContracts returns a sorted copy of addrs without duplicates.
func SortedContracts(addrs []crypto.Address) []crypto.Address {
	out := slices.Clone(addrs)
	slices.Sort(out)
	return slices.Compact(out)
}

// ExpiresAt is the first instant at which the permit is no longer valid.
func (p Permit) ExpiresAt() time.Time {
	return time.Unix(p.StartTimestamp, 0).Add(time.Duration(p.DurationDays) * Day)
}

// ValidAt reports whether now lies in [start, start+days).
func (p Permit) ValidAt(now time.Time) bool {
	return now.Unix() >= p.StartTimestamp && now.Before(p.ExpiresAt())
}

// Covers reports whether contract is in the permit's contract set.
func (p Permit) Covers(contract crypto.Address) bool {
	return slices.Contains(p.ContractAddresses, contract)
}

// Digest is keccak256(0x1901 | domainSeparator | structHash).
func (p Permit) Digest() []byte {
	domain := crypto.Keccak256(
		crypto.Keccak256([]byte(permitDomainName)),
		crypto.Keccak256([]byte(permitDomainVersion)),
		u64(p.ChainID),
	)
	var contracts []byte
	for _, a := range SortedContracts(p.ContractAddresses) {
		contracts = append(contracts, a.Bytes()...)
	}
	structHash := crypto.Keccak256(
		crypto.Keccak256([]byte(permitTypeString)),
		crypto.Keccak256(p.PublicKey),
		crypto.Keccak256(contracts),
		u64(uint64(p.StartTimestamp)),
		u64(uint64(p.DurationDays)),
	)
	return crypto.Keccak256([]byte{0x19, 0x01}, domain, structHash)
}

// Summary is shown to the user before signing.
func (p Permit) Summary() string {
	addrs := make([]string, len(p.ContractAddresses))
	for i, a := range p.ContractAddresses {
		addrs[i] = a.String()
	}
	return fmt.Sprintf("Allow decryption of your values in %s for %d day(s) starting %s (chain %d)",
		strings.Join(addrs, ", "), p.DurationDays, time.Unix(p.StartTimestamp, 0).UTC().Format(time.RFC3339), p.ChainID)
}

func u64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}
