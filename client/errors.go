package client

import (
	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/decryptsig"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/ledger"
	"github.com/tolelom/fhe2048/wallet"
)

// Failure categories. Every error returned by GameClient matches exactly
// one of them through errors.Is; the message of the underlying error is
// kept verbatim.
var (
	ErrConnectivity  = errors.New("connectivity")
	ErrProtocolState = errors.New("protocol state")
	ErrCapability    = errors.New("capability")
	ErrDecryption    = errors.New("decryption")
)

// Client-side failures.
var (
	ErrNotOwner          = errors.New("you can only decrypt your own score")
	ErrSessionIncomplete = errors.New("session not completed")
	ErrNoValue           = errors.New("no value returned for handle")
)

// Kind is a failure category.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnectivity
	KindProtocolState
	KindCapability
	KindDecryption
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindProtocolState:
		return "protocol-state"
	case KindCapability:
		return "capability"
	case KindDecryption:
		return "decryption"
	default:
		return "unknown"
	}
}

var kinds = []struct {
	kind   Kind
	marker error
	causes []error
}{
	{KindConnectivity, ErrConnectivity, []error{
		wallet.ErrNotConnected, ledger.ErrNotDeployed, fhe.ErrNotLoaded, fhe.ErrLoadAborted,
	}},
	{KindProtocolState, ErrProtocolState, []error{
		ledger.ErrGameAlreadyCompleted, ledger.ErrUnauthorizedAccess, ledger.ErrNoGamesPlayed,
		ledger.ErrGameNotFound, ledger.ErrInvalidInputProof, ledger.ErrAveragesNotComputed,
		ErrSessionIncomplete,
	}},
	{KindCapability, ErrCapability, []error{
		decryptsig.ErrSignatureRejected, decryptsig.ErrSignerUnavailable,
		fhe.ErrPermitExpired, fhe.ErrPermitSigner, fhe.ErrPermitChain, fhe.ErrContractNotAllowed,
		fhe.ErrNotAllowed,
		ErrNotOwner,
	}},
	{KindDecryption, ErrDecryption, []error{fhe.ErrOpen, ErrNoValue}},
}

// KindOf returns the category of err.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			return k.kind
		}
	}
	return KindUnknown
}

// classify marks err with its category. Errors that match none keep
// KindUnknown.
func classify(err error) error {
	if err == nil || KindOf(err) != KindUnknown {
		return err
	}
	for _, k := range kinds {
		for _, c := range k.causes {
			if errors.Is(err, c) {
				return errors.Mark(err, k.marker)
			}
		}
	}
	return err
}
