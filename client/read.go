package client

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/ledger"
)

// SessionValues are the decrypted fields of a completed session.
type SessionValues struct {
	Score uint64   `json:"score"`
	Moves uint64   `json:"moves"`
	Won   TriState `json:"won"`
}

// TotalStats are the contract's public counters.
type TotalStats struct {
	TotalGames   uint64 `json:"total_games"`
	TotalPlayers uint64 `json:"total_players"`
}

// LeaderboardEntry is one player with their encrypted best score.
type LeaderboardEntry struct {
	Player      crypto.Address `json:"player"`
	GamesPlayed uint64         `json:"games_played"`
	BestScore   fhe.Handle     `json:"best_score"`
}

// GetGameSession reads a session. Handles are returned as-is.
func (c *GameClient) GetGameSession(ctx context.Context, id uint64) (ledger.GameSession, error) {
	l, err := c.reader()
	if err != nil {
		return ledger.GameSession{}, err
	}
	s, err := l.GetGameSession(ctx, id)
	return s, classify(err)
}

// GetPlayerStats reads a player's summary. The best score stays encrypted.
func (c *GameClient) GetPlayerStats(ctx context.Context, player crypto.Address) (ledger.PlayerStats, error) {
	l, err := c.reader()
	if err != nil {
		return ledger.PlayerStats{}, err
	}
	st, err := l.GetPlayerStats(ctx, player)
	return st, classify(err)
}

// GetTotalStats reads the game and player counters.
func (c *GameClient) GetTotalStats(ctx context.Context) (TotalStats, error) {
	l, err := c.reader()
	if err != nil {
		return TotalStats{}, err
	}
	games, err := l.TotalGames(ctx)
	if err != nil {
		return TotalStats{}, classify(err)
	}
	players, err := l.TotalPlayers(ctx)
	if err != nil {
		return TotalStats{}, classify(err)
	}
	return TotalStats{TotalGames: games, TotalPlayers: players}, nil
}

// GetPlayers lists players in first-game order.
func (c *GameClient) GetPlayers(ctx context.Context, offset, limit uint64) ([]crypto.Address, error) {
	l, err := c.reader()
	if err != nil {
		return nil, err
	}
	p, err := l.GetPlayers(ctx, offset, limit)
	return p, classify(err)
}

// PlayersCount is the number of distinct players.
func (c *GameClient) PlayersCount(ctx context.Context) (uint64, error) {
	l, err := c.reader()
	if err != nil {
		return 0, err
	}
	n, err := l.PlayersCount(ctx)
	return n, classify(err)
}

// Leaderboard lists a page of players with their encrypted best scores.
// Nothing is decrypted.
func (c *GameClient) Leaderboard(ctx context.Context, offset, limit uint64) ([]LeaderboardEntry, error) {
	l, err := c.reader()
	if err != nil {
		return nil, err
	}
	players, err := l.GetPlayers(ctx, offset, limit)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		st, err := l.GetPlayerStats(ctx, p)
		if err != nil {
			return nil, classify(errors.Wrapf(err, "stats of %s", p))
		}
		out = append(out, LeaderboardEntry{Player: p, GamesPlayed: st.GamesPlayed, BestScore: st.BestScore})
	}
	return out, nil
}

// DecryptValue decrypts h, which must have been created under the bound
// contract. A zero plaintext is a valid result.
func (c *GameClient) DecryptValue(ctx context.Context, h fhe.Handle) (v uint64, err error) {
	l, end, err := c.begin(actDecrypt)
	defer end(&err)
	if err != nil {
		return 0, err
	}
	vals, err := c.decrypt(ctx, l.ContractAddress(), h)
	if err != nil {
		return 0, err
	}
	return vals[h], nil
}

// DecryptBool decrypts an encrypted flag. Any failure yields Unknown
// together with the error.
func (c *GameClient) DecryptBool(ctx context.Context, h fhe.Handle) (TriState, error) {
	v, err := c.DecryptValue(ctx, h)
	if err != nil {
		return Unknown, err
	}
	return TriStateOf(v), nil
}

// DecryptSession decrypts a completed session's score and moves, and its
// won flag as a tri-state, concurrently. Failing to decrypt won leaves it
// Unknown without failing the call.
func (c *GameClient) DecryptSession(ctx context.Context, id uint64) (SessionValues, error) {
	sess, err := c.GetGameSession(ctx, id)
	if err != nil {
		return SessionValues{}, err
	}
	if !sess.Completed {
		return SessionValues{}, classify(errors.Wrapf(ErrSessionIncomplete, "session %d", id))
	}

	var out SessionValues
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := c.DecryptValue(gctx, sess.Score)
		out.Score = v
		return errors.Wrap(err, "score")
	})
	g.Go(func() error {
		v, err := c.DecryptValue(gctx, sess.Moves)
		out.Moves = v
		return errors.Wrap(err, "moves")
	})
	g.Go(func() error {
		won, err := c.DecryptBool(gctx, sess.Won)
		if err != nil {
			c.log.Warn("won flag not decrypted", "session_id", id, "error", err)
		}
		out.Won = won
		return nil
	})
	if err := g.Wait(); err != nil {
		return SessionValues{}, err
	}
	return out, nil
}

// DecryptBestScore decrypts player's best score. Only the connected
// identity's own score can be decrypted.
func (c *GameClient) DecryptBestScore(ctx context.Context, player crypto.Address) (uint64, error) {
	if player != c.id.Address() {
		return 0, classify(errors.Wrapf(ErrNotOwner, "requested %s", player))
	}
	st, err := c.GetPlayerStats(ctx, player)
	if err != nil {
		return 0, err
	}
	if st.GamesPlayed == 0 {
		return 0, classify(ledger.ErrNoGamesPlayed)
	}
	return c.DecryptValue(ctx, st.BestScore)
}

// decrypt obtains the capability for contract and decrypts handles in one
// request. Every handle must come back.
func (c *GameClient) decrypt(ctx context.Context, contract crypto.Address, handles ...fhe.Handle) (map[fhe.Handle]uint64, error) {
	inst, err := c.inst.Load(ctx)
	if err != nil {
		return nil, err
	}
	contracts := []crypto.Address{contract}
	sig, err := c.sigs.LoadOrSign(ctx, inst, contracts, c.id)
	if err != nil {
		return nil, err
	}
	pairs := make([]fhe.HandleContractPair, len(handles))
	for i, h := range handles {
		pairs[i] = fhe.HandleContractPair{Handle: h, ContractAddress: contract}
	}
	vals, err := inst.UserDecrypt(ctx, pairs, sig.Keypair(), sig.Permit(), sig.Signature, sig.UserAddress)
	if err != nil {
		return nil, err
	}
	for _, h := range handles {
		if _, ok := vals[h]; !ok {
			return nil, errors.Wrapf(ErrNoValue, "%s", h)
		}
	}
	return vals, nil
}

// reader returns the bound contract for read-only calls, which need no
// connected identity.
func (c *GameClient) reader() (ledger.Ledger, error) {
	c.mu.Lock()
	l := c.ledger
	c.mu.Unlock()
	if l == nil {
		return nil, classify(ledger.ErrNotDeployed)
	}
	return l, nil
}
