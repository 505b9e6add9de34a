// Package ledger is the client's view of the FHE2048 game contract: the
// operations it exposes, the records it returns, the revert reasons it can
// raise and the signed transaction envelope that carries state-changing
// calls. Implementations live in devnet (in process) and rpc (over JSON-RPC).
package ledger

import (
	"context"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
)

//go:generate go tool mockgen -destination=./mocks/ledger_mock.go -package=mocks . Ledger

// Ledger is the game contract bound to one sending account. Write methods
// return once the transaction has been executed.
type Ledger interface {
	// ContractAddress is the deployed contract; handles are scoped to it.
	ContractAddress() crypto.Address

	StartGame(ctx context.Context) (uint64, Receipt, error)
	SubmitScore(ctx context.Context, sessionID uint64, score fhe.Handle, scoreProof []byte, moves fhe.Handle, movesProof []byte) (Receipt, error)
	AllowScoreDecryption(ctx context.Context, sessionID uint64) (Receipt, error)
	RefreshGlobalAverages(ctx context.Context) (Receipt, error)
	AllowGlobalAveragesDecryption(ctx context.Context) (Receipt, error)

	GetGameSession(ctx context.Context, sessionID uint64) (GameSession, error)
	GetPlayerStats(ctx context.Context, player crypto.Address) (PlayerStats, error)
	GetPlayers(ctx context.Context, offset, limit uint64) ([]crypto.Address, error)
	PlayersCount(ctx context.Context) (uint64, error)
	GetGlobalAverages(ctx context.Context) (avgScore, avgMoves fhe.Handle, err error)
	GameIDCounter(ctx context.Context) (uint64, error)
	TotalGames(ctx context.Context) (uint64, error)
	TotalPlayers(ctx context.Context) (uint64, error)
}
