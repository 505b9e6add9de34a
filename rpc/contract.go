package rpc

import (
	"context"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/ledger"
)

// Contract is the remote game contract bound to one signer.
type Contract struct {
	c       *Client
	address crypto.Address
	chainID uint64
	signer  ledger.TxSigner
}

var _ ledger.Ledger = (*Contract)(nil)

func (k *Contract) ContractAddress() crypto.Address { return k.address }

func (k *Contract) send(ctx context.Context, method ledger.Method, payload any) (ledger.Receipt, error) {
	l := k.c.sender(k.signer.Address())
	l.Lock()
	defer l.Unlock()

	nonce, err := k.c.Nonce(ctx, k.signer.Address())
	if err != nil {
		return ledger.Receipt{}, err
	}
	tx, err := ledger.NewTransaction(k.chainID, k.address, method, nonce, payload)
	if err != nil {
		return ledger.Receipt{}, err
	}
	if err := tx.Sign(k.signer); err != nil {
		return ledger.Receipt{}, err
	}
	return k.c.SendTransaction(ctx, tx)
}

func (k *Contract) StartGame(ctx context.Context) (uint64, ledger.Receipt, error) {
	r, err := k.send(ctx, ledger.MethodStartGame, ledger.Empty{})
	if err != nil {
		return 0, ledger.Receipt{}, err
	}
	return r.Value, r, nil
}

func (k *Contract) SubmitScore(ctx context.Context, sessionID uint64, score fhe.Handle, scoreProof []byte, moves fhe.Handle, movesProof []byte) (ledger.Receipt, error) {
	return k.send(ctx, ledger.MethodSubmitScore, ledger.SubmitScorePayload{
		SessionID:  sessionID,
		Score:      score,
		ScoreProof: scoreProof,
		Moves:      moves,
		MovesProof: movesProof,
	})
}

func (k *Contract) AllowScoreDecryption(ctx context.Context, sessionID uint64) (ledger.Receipt, error) {
	return k.send(ctx, ledger.MethodAllowScoreDecryption, ledger.SessionPayload{SessionID: sessionID})
}

func (k *Contract) RefreshGlobalAverages(ctx context.Context) (ledger.Receipt, error) {
	return k.send(ctx, ledger.MethodRefreshGlobalAverages, ledger.Empty{})
}

func (k *Contract) AllowGlobalAveragesDecryption(ctx context.Context) (ledger.Receipt, error) {
	return k.send(ctx, ledger.MethodAllowGlobalAveragesDecryption, ledger.Empty{})
}

func (k *Contract) GetGameSession(ctx context.Context, id uint64) (ledger.GameSession, error) {
	var s ledger.GameSession
	err := k.c.Call(ctx, MethodGetGameSession, SessionParams{SessionID: id}, &s)
	return s, err
}

func (k *Contract) GetPlayerStats(ctx context.Context, player crypto.Address) (ledger.PlayerStats, error) {
	var s ledger.PlayerStats
	err := k.c.Call(ctx, MethodGetPlayerStats, AddressParams{Address: player}, &s)
	return s, err
}

func (k *Contract) GetPlayers(ctx context.Context, offset, limit uint64) ([]crypto.Address, error) {
	var out []crypto.Address
	err := k.c.Call(ctx, MethodGetPlayers, PageParams{Offset: offset, Limit: limit}, &out)
	return out, err
}

func (k *Contract) PlayersCount(ctx context.Context) (uint64, error) {
	return k.count(ctx, MethodGetPlayersCount)
}

func (k *Contract) GetGlobalAverages(ctx context.Context) (fhe.Handle, fhe.Handle, error) {
	var r AveragesResult
	if err := k.c.Call(ctx, MethodGetGlobalAverages, nil, &r); err != nil {
		return fhe.ZeroHandle, fhe.ZeroHandle, err
	}
	return r.AvgScore, r.AvgMoves, nil
}

func (k *Contract) GameIDCounter(ctx context.Context) (uint64, error) {
	return k.count(ctx, MethodGameIDCounter)
}

func (k *Contract) TotalGames(ctx context.Context) (uint64, error) {
	return k.count(ctx, MethodTotalGames)
}

func (k *Contract) TotalPlayers(ctx context.Context) (uint64, error) {
	return k.count(ctx, MethodTotalPlayers)
}

func (k *Contract) count(ctx context.Context, method string) (uint64, error) {
	var n uint64
	err := k.c.Call(ctx, method, nil, &n)
	return n, err
}
