package ledger

import (
	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
)

// GameSession is one play-through as recorded by the contract. Score, Moves
// and Won are zero handles until the session is completed.
type GameSession struct {
	ID        uint64         `json:"id"`
	Player    crypto.Address `json:"player"`
	Score     fhe.Handle     `json:"score"`
	Moves     fhe.Handle     `json:"moves"`
	StartTime int64          `json:"start_time"`
	EndTime   int64          `json:"end_time"`
	Completed bool           `json:"completed"`
	Won       fhe.Handle     `json:"won"`
}

// PlayerStats is the per-player summary. BestScore is an encrypted running
// maximum and is zero before the first completed game.
type PlayerStats struct {
	GameIDs     []uint64   `json:"game_ids"`
	GamesPlayed uint64     `json:"games_played"`
	BestScore   fhe.Handle `json:"best_score"`
}

// Receipt describes an executed transaction. Value carries the call's return
// value where it has one (the new session id for StartGame).
type Receipt struct {
	TxID        string `json:"tx_id"`
	BlockHeight int64  `json:"block_height"`
	Method      Method `json:"method"`
	Value       uint64 `json:"value,omitempty"`
}
