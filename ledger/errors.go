package ledger

import (
	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/fhe"
)

// Contract reverts.
var (
	ErrGameAlreadyCompleted = errors.New("game already completed")
	ErrUnauthorizedAccess   = errors.New("unauthorized access: caller is not the session owner")
	ErrNoGamesPlayed        = errors.New("no games played")
	ErrGameNotFound         = errors.New("game not found")
	ErrInvalidInputProof    = errors.New("invalid input proof")
	ErrAveragesNotComputed  = errors.New("global averages not computed")
)

// ErrNotDeployed means the address book has no contract for the chain.
var ErrNotDeployed = errors.New("contract not deployed on current chain")

// revertNames is the wire name of every error that crosses the node
// boundary, ledger reverts first.
var revertNames = []struct {
	name string
	err  error
}{
	{"GameAlreadyCompleted", ErrGameAlreadyCompleted},
	{"UnauthorizedAccess", ErrUnauthorizedAccess},
	{"NoGamesPlayed", ErrNoGamesPlayed},
	{"GameNotFound", ErrGameNotFound},
	{"InvalidInputProof", ErrInvalidInputProof},
	{"AveragesNotComputed", ErrAveragesNotComputed},
	{"PermitExpired", fhe.ErrPermitExpired},
	{"PermitSigner", fhe.ErrPermitSigner},
	{"PermitChain", fhe.ErrPermitChain},
	{"ContractNotAllowed", fhe.ErrContractNotAllowed},
	{"NotAllowed", fhe.ErrNotAllowed},
}

// RevertName returns the wire name of the known error err matches, or "".
func RevertName(err error) string {
	for _, r := range revertNames {
		if errors.Is(err, r.err) {
			return r.name
		}
	}
	return ""
}

// RevertError rebuilds an error received from the node: the message is kept
// verbatim and the error matches the sentinel named by name.
func RevertError(name, msg string) error {
	err := errors.New(msg)
	for _, r := range revertNames {
		if r.name == name {
			return errors.Mark(err, r.err)
		}
	}
	return err
}
