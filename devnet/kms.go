package devnet

import (
	"context"
	"crypto/rand"
	"slices"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/nacl/box"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
)

// NetworkPublicKey returns the key inputs are encrypted to.
func (n *Node) NetworkPublicKey(context.Context) ([]byte, error) {
	return slices.Clone(n.netPub[:]), nil
}

// UserDecrypt re-encrypts the requested handles to the permit's public key.
// The whole request fails if any handle is not covered.
func (n *Node) UserDecrypt(ctx context.Context, req fhe.UserDecryptRequest) (map[fhe.Handle][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := req.Permit
	if p.ChainID != n.chainID {
		return nil, errors.Wrapf(fhe.ErrPermitChain, "permit for chain %d on chain %d", p.ChainID, n.chainID)
	}
	if err := crypto.Verify(req.UserAddress, p.Digest(), req.Signature); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "permit signature"), fhe.ErrPermitSigner)
	}
	if !p.ValidAt(n.clock()) {
		return nil, errors.Wrapf(fhe.ErrPermitExpired, "window ends %s", p.ExpiresAt().UTC())
	}
	if len(p.PublicKey) != 32 {
		return nil, errors.Newf("permit public key must be 32 bytes, got %d", len(p.PublicKey))
	}
	var pub [32]byte
	copy(pub[:], p.PublicKey)

	n.mu.Lock()
	defer n.mu.Unlock()

	out := make(map[fhe.Handle][]byte, len(req.Handles))
	for _, pair := range req.Handles {
		if pair.ContractAddress != n.contract || !p.Covers(pair.ContractAddress) {
			return nil, errors.Wrapf(fhe.ErrContractNotAllowed, "%s", pair.ContractAddress)
		}
		if !n.fhe.IsAllowed(pair.Handle, req.UserAddress) || !n.fhe.IsAllowed(pair.Handle, n.contract) {
			return nil, errors.Wrapf(fhe.ErrNotAllowed, "%s for %s", pair.Handle, req.UserAddress)
		}
		ct, err := n.state.getCiphertext(pair.Handle)
		if err != nil {
			return nil, errors.Wrapf(err, "ciphertext %s", pair.Handle)
		}
		sealed, err := box.SealAnonymous(nil, fhe.EncodePlaintext(ct.Type, ct.Value), &pub, rand.Reader)
		if err != nil {
			return nil, errors.Wrap(err, "re-encrypt")
		}
		out[pair.Handle] = sealed
	}
	n.log.Debug("user decrypt", "user", req.UserAddress, "handles", len(out))
	return out, nil
}
