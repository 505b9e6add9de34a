package devnet

import (
	"context"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/ledger"
)

// Binding is the game contract on a Node as seen by one signer. It
// implements ledger.Ledger.
type Binding struct {
	node   *Node
	signer ledger.TxSigner
}

var _ ledger.Ledger = (*Binding)(nil)

func (b *Binding) ContractAddress() crypto.Address { return b.node.contract }

func (b *Binding) send(ctx context.Context, method ledger.Method, payload any) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	return b.node.Send(b.signer, method, payload)
}

func (b *Binding) StartGame(ctx context.Context) (uint64, ledger.Receipt, error) {
	r, err := b.send(ctx, ledger.MethodStartGame, ledger.Empty{})
	if err != nil {
		return 0, ledger.Receipt{}, err
	}
	return r.Value, r, nil
}

func (b *Binding) SubmitScore(ctx context.Context, sessionID uint64, score fhe.Handle, scoreProof []byte, moves fhe.Handle, movesProof []byte) (ledger.Receipt, error) {
	return b.send(ctx, ledger.MethodSubmitScore, ledger.SubmitScorePayload{
		SessionID:  sessionID,
		Score:      score,
		ScoreProof: scoreProof,
		Moves:      moves,
		MovesProof: movesProof,
	})
}

func (b *Binding) AllowScoreDecryption(ctx context.Context, sessionID uint64) (ledger.Receipt, error) {
	return b.send(ctx, ledger.MethodAllowScoreDecryption, ledger.SessionPayload{SessionID: sessionID})
}

func (b *Binding) RefreshGlobalAverages(ctx context.Context) (ledger.Receipt, error) {
	return b.send(ctx, ledger.MethodRefreshGlobalAverages, ledger.Empty{})
}

func (b *Binding) AllowGlobalAveragesDecryption(ctx context.Context) (ledger.Receipt, error) {
	return b.send(ctx, ledger.MethodAllowGlobalAveragesDecryption, ledger.Empty{})
}

func (b *Binding) GetGameSession(ctx context.Context, id uint64) (ledger.GameSession, error) {
	if err := ctx.Err(); err != nil {
		return ledger.GameSession{}, err
	}
	return b.node.GameSession(id)
}

func (b *Binding) GetPlayerStats(ctx context.Context, player crypto.Address) (ledger.PlayerStats, error) {
	if err := ctx.Err(); err != nil {
		return ledger.PlayerStats{}, err
	}
	return b.node.PlayerStats(player)
}

func (b *Binding) GetPlayers(ctx context.Context, offset, limit uint64) ([]crypto.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.node.Players(offset, limit)
}

func (b *Binding) PlayersCount(ctx context.Context) (uint64, error) {
	g, err := b.globals(ctx)
	return g.TotalPlayers, err
}

func (b *Binding) GetGlobalAverages(ctx context.Context) (fhe.Handle, fhe.Handle, error) {
	if err := ctx.Err(); err != nil {
		return fhe.ZeroHandle, fhe.ZeroHandle, err
	}
	return b.node.GlobalAverages()
}

func (b *Binding) GameIDCounter(ctx context.Context) (uint64, error) {
	g, err := b.globals(ctx)
	return g.GameIDCounter, err
}

func (b *Binding) TotalGames(ctx context.Context) (uint64, error) {
	g, err := b.globals(ctx)
	return g.TotalGames, err
}

func (b *Binding) TotalPlayers(ctx context.Context) (uint64, error) {
	g, err := b.globals(ctx)
	return g.TotalPlayers, err
}

func (b *Binding) globals(ctx context.Context) (Globals, error) {
	if err := ctx.Err(); err != nil {
		return Globals{}, err
	}
	return b.node.Globals()
}
