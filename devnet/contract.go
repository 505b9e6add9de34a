package devnet

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/events"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/ledger"
)

// DefaultWinScore is the score from which a session's encrypted won flag
// is true.
const DefaultWinScore = 20000

// registerContract installs the FHE2048 game methods into r.
func registerContract(r *Registry) {
	r.Register(ledger.MethodStartGame, handleStartGame)
	r.Register(ledger.MethodSubmitScore, handleSubmitScore)
	r.Register(ledger.MethodAllowScoreDecryption, handleAllowScoreDecryption)
	r.Register(ledger.MethodRefreshGlobalAverages, handleRefreshGlobalAverages)
	r.Register(ledger.MethodAllowGlobalAveragesDecryption, handleAllowGlobalAveragesDecryption)
}

func handleStartGame(ctx *Context, _ json.RawMessage) (uint64, error) {
	g, err := ctx.State.GetGlobals()
	if err != nil {
		return 0, err
	}
	id := g.GameIDCounter
	g.GameIDCounter++

	player := ctx.Tx.From
	p, err := ctx.State.GetPlayer(player)
	if err != nil {
		return 0, err
	}
	if len(p.GameIDs) == 0 {
		ctx.State.AppendPlayer(g.TotalPlayers, player)
		g.TotalPlayers++
	}
	p.GameIDs = append(p.GameIDs, id)

	sess := &ledger.GameSession{
		ID:        id,
		Player:    player,
		StartTime: ctx.Block.Timestamp,
	}
	if err := ctx.State.SetSession(sess); err != nil {
		return 0, err
	}
	if err := ctx.State.SetPlayer(p); err != nil {
		return 0, err
	}
	if err := ctx.State.SetGlobals(g); err != nil {
		return 0, err
	}

	ctx.emit(events.EventSessionStarted, map[string]any{"session_id": id, "player": player.String()})
	return id, nil
}

func handleSubmitScore(ctx *Context, payload json.RawMessage) (uint64, error) {
	var p ledger.SubmitScorePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return 0, errors.Wrap(err, "decode submitScore payload")
	}

	sess, err := ctx.State.GetSession(p.SessionID)
	if err != nil {
		return 0, err
	}
	sender := ctx.Tx.From
	if sess.Player != sender {
		return 0, errors.Wrapf(ledger.ErrUnauthorizedAccess, "session %d belongs to %s", sess.ID, sess.Player)
	}
	if sess.Completed {
		return 0, errors.Wrapf(ledger.ErrGameAlreadyCompleted, "session %d", sess.ID)
	}

	contract := ctx.Tx.To
	score, err := ctx.FHE.VerifyInput(p.Score, p.ScoreProof, contract, sender)
	if err != nil {
		return 0, errors.Wrap(err, "score")
	}
	moves, err := ctx.FHE.VerifyInput(p.Moves, p.MovesProof, contract, sender)
	if err != nil {
		return 0, errors.Wrap(err, "moves")
	}
	won, err := ctx.FHE.GeScalar(score, ctx.WinScore)
	if err != nil {
		return 0, err
	}

	sess.Score, sess.Moves, sess.Won = score, moves, won
	sess.Completed = true
	sess.EndTime = ctx.Block.Timestamp
	if err := ctx.State.SetSession(sess); err != nil {
		return 0, err
	}

	player, err := ctx.State.GetPlayer(sender)
	if err != nil {
		return 0, err
	}
	best, err := ctx.FHE.Max(player.BestScore, score)
	if err != nil {
		return 0, err
	}
	player.BestScore = best
	player.GamesPlayed++
	if err := ctx.State.SetPlayer(player); err != nil {
		return 0, err
	}

	g, err := ctx.State.GetGlobals()
	if err != nil {
		return 0, err
	}
	if g.SumScore, err = ctx.FHE.Add(g.SumScore, score); err != nil {
		return 0, err
	}
	if g.SumMoves, err = ctx.FHE.Add(g.SumMoves, moves); err != nil {
		return 0, err
	}
	g.TotalGames++
	if err := ctx.State.SetGlobals(g); err != nil {
		return 0, err
	}

	for _, h := range []fhe.Handle{score, moves, won, best} {
		ctx.FHE.Allow(h, contract)
		ctx.FHE.Allow(h, sender)
	}
	ctx.FHE.Allow(g.SumScore, contract)
	ctx.FHE.Allow(g.SumMoves, contract)

	ctx.emit(events.EventSessionCompleted, map[string]any{"session_id": sess.ID, "player": sender.String()})
	return 0, nil
}

func handleAllowScoreDecryption(ctx *Context, payload json.RawMessage) (uint64, error) {
	var p ledger.SessionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return 0, errors.Wrap(err, "decode allowScoreDecryption payload")
	}
	sess, err := ctx.State.GetSession(p.SessionID)
	if err != nil {
		return 0, err
	}
	if sess.Player != ctx.Tx.From {
		return 0, errors.Wrapf(ledger.ErrUnauthorizedAccess, "session %d belongs to %s", sess.ID, sess.Player)
	}
	if !sess.Score.IsZero() {
		ctx.FHE.Allow(sess.Score, ctx.Tx.From)
	}
	ctx.emit(events.EventDecryptionAllowed, map[string]any{"session_id": sess.ID, "grantee": ctx.Tx.From.String()})
	return 0, nil
}

func handleRefreshGlobalAverages(ctx *Context, _ json.RawMessage) (uint64, error) {
	g, err := ctx.State.GetGlobals()
	if err != nil {
		return 0, err
	}
	if g.TotalGames == 0 {
		return 0, ledger.ErrNoGamesPlayed
	}
	if g.AvgScore, err = ctx.FHE.DivScalar(g.SumScore, g.TotalGames); err != nil {
		return 0, err
	}
	if g.AvgMoves, err = ctx.FHE.DivScalar(g.SumMoves, g.TotalGames); err != nil {
		return 0, err
	}
	if err := ctx.State.SetGlobals(g); err != nil {
		return 0, err
	}
	ctx.FHE.Allow(g.AvgScore, ctx.Tx.To)
	ctx.FHE.Allow(g.AvgMoves, ctx.Tx.To)

	ctx.emit(events.EventAveragesRefreshed, map[string]any{"total_games": g.TotalGames})
	return 0, nil
}

func handleAllowGlobalAveragesDecryption(ctx *Context, _ json.RawMessage) (uint64, error) {
	g, err := ctx.State.GetGlobals()
	if err != nil {
		return 0, err
	}
	if g.TotalGames == 0 {
		return 0, ledger.ErrNoGamesPlayed
	}
	if g.AvgScore.IsZero() || g.AvgMoves.IsZero() {
		return 0, ledger.ErrAveragesNotComputed
	}
	ctx.FHE.Allow(g.AvgScore, ctx.Tx.From)
	ctx.FHE.Allow(g.AvgMoves, ctx.Tx.From)

	ctx.emit(events.EventDecryptionAllowed, map[string]any{"aggregate": true, "grantee": ctx.Tx.From.String()})
	return 0, nil
}

// ---- views ----

func viewPlayers(s *StateDB, offset, limit uint64) ([]crypto.Address, error) {
	g, err := s.GetGlobals()
	if err != nil {
		return nil, err
	}
	if offset >= g.TotalPlayers {
		return []crypto.Address{}, nil
	}
	end := min(offset+limit, g.TotalPlayers)
	if offset+limit < offset { // overflow
		end = g.TotalPlayers
	}
	out := make([]crypto.Address, 0, end-offset)
	for i := offset; i < end; i++ {
		a, err := s.PlayerAt(i)
		if err != nil {
			return nil, errors.Wrapf(err, "player %d", i)
		}
		out = append(out, a)
	}
	return out, nil
}

func viewPlayerStats(s *StateDB, addr crypto.Address) (ledger.PlayerStats, error) {
	p, err := s.GetPlayer(addr)
	if err != nil {
		return ledger.PlayerStats{}, err
	}
	ids := p.GameIDs
	if ids == nil {
		ids = []uint64{}
	}
	return ledger.PlayerStats{GameIDs: ids, GamesPlayed: p.GamesPlayed, BestScore: p.BestScore}, nil
}

func viewGlobalAverages(s *StateDB) (fhe.Handle, fhe.Handle, error) {
	g, err := s.GetGlobals()
	if err != nil {
		return fhe.ZeroHandle, fhe.ZeroHandle, err
	}
	if g.TotalGames == 0 {
		return fhe.ZeroHandle, fhe.ZeroHandle, ledger.ErrNoGamesPlayed
	}
	return g.AvgScore, g.AvgMoves, nil
}
