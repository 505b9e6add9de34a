package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/client"
	"github.com/tolelom/fhe2048/config"
	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/events"
	"github.com/tolelom/fhe2048/game"
	"github.com/tolelom/fhe2048/wallet"
	"github.com/tolelom/fhe2048/watcher"
)

func cmdGenKey(_ context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("genkey", flag.ExitOnError)
	keyPath := fs.String("key", e.cfg.Client.KeyPath, "path to write the keystore")
	_ = fs.Parse(args)

	priv, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	if err := wallet.SaveKey(*keyPath, passwordFromEnv(e), priv); err != nil {
		return err
	}
	fmt.Printf("Generated key. Address: %s\n", priv.Address())
	fmt.Printf("Saved to: %s\n", *keyPath)
	return nil
}

func cmdStart(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	keyPath, yes := identityFlags(fs, e.cfg)
	_ = fs.Parse(args)

	gc, err := e.client(ctx, *keyPath, *yes)
	if err != nil {
		return err
	}
	id, err := gc.StartGame(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Started session %d\n", id)
	return nil
}

func cmdSubmit(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	keyPath, yes := identityFlags(fs, e.cfg)
	session := fs.Uint64("session", 0, "session id")
	score := fs.Uint("score", 0, "final score")
	moves := fs.Uint("moves", 0, "number of moves")
	_ = fs.Parse(args)

	gc, err := e.client(ctx, *keyPath, *yes)
	if err != nil {
		return err
	}
	rcpt, err := gc.SubmitScore(ctx, *session, uint32(*score), uint32(*moves))
	if err != nil {
		return err
	}
	fmt.Printf("Submitted session %d in block %d (tx %s)\n", *session, rcpt.BlockHeight, rcpt.TxID)
	return nil
}

func cmdPlay(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	keyPath, yes := identityFlags(fs, e.cfg)
	seed := fs.Uint64("seed", 0, "tile seed; 0 picks one at random")
	auto := fs.Bool("auto", false, "play random moves until the game is over")
	reveal := fs.Bool("reveal", false, "decrypt the submitted session afterwards")
	_ = fs.Parse(args)

	gc, err := e.client(ctx, *keyPath, *yes)
	if err != nil {
		return err
	}
	id, err := gc.StartGame(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Session %d. Move with w/a/s/d or up/down/left/right, q to finish.\n", id)

	s1 := *seed
	if s1 == 0 {
		s1 = rand.Uint64()
	}
	eng := game.NewSeededEngine(s1, s1^0x9e3779b97f4a7c15)
	st := eng.NewGame()
	dirs := []game.Direction{game.Up, game.Down, game.Left, game.Right}

	for !st.GameOver && ctx.Err() == nil {
		fmt.Printf("\nscore %d  moves %d\n%s", st.Score, st.Moves, st.Grid)
		var d game.Direction
		if *auto {
			d = dirs[rand.IntN(len(dirs))]
		} else {
			fmt.Print("> ")
			line, err := e.in.ReadString('\n')
			if errors.Is(err, io.EOF) && line == "" {
				break
			}
			if strings.TrimSpace(line) == "q" {
				break
			}
			var ok bool
			if d, ok = game.ParseDirection(line); !ok {
				fmt.Println("unknown direction")
				continue
			}
		}
		st = eng.Move(st, d)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	fmt.Printf("\nFinal score %d in %d moves", st.Score, st.Moves)
	if st.Won {
		fmt.Print(" (2048 reached)")
	}
	fmt.Println()

	if _, err := gc.SubmitGame(ctx, id, st); err != nil {
		return err
	}
	fmt.Printf("Submitted session %d encrypted\n", id)
	if !*reveal {
		return nil
	}
	vals, err := gc.DecryptSession(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(vals)
}

func cmdSession(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("session", flag.ExitOnError)
	keyPath, yes := identityFlags(fs, e.cfg)
	id := fs.Uint64("id", 0, "session id")
	decrypt := fs.Bool("decrypt", false, "decrypt score, moves and won")
	_ = fs.Parse(args)

	gc, err := e.client(ctx, *keyPath, *yes)
	if err != nil {
		return err
	}
	s, err := gc.GetGameSession(ctx, *id)
	if err != nil {
		return err
	}
	if !*decrypt {
		return printJSON(s)
	}
	vals, err := gc.DecryptSession(ctx, *id)
	if err != nil {
		return err
	}
	return printJSON(struct {
		Player    crypto.Address       `json:"player"`
		Completed bool                 `json:"completed"`
		Values    client.SessionValues `json:"values"`
	}{s.Player, s.Completed, vals})
}

func cmdStats(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	keyPath, yes := identityFlags(fs, e.cfg)
	player := fs.String("player", "", "player address; defaults to the key's")
	decrypt := fs.Bool("decrypt", false, "decrypt the best score (own stats only)")
	_ = fs.Parse(args)

	gc, err := e.client(ctx, *keyPath, *yes)
	if err != nil {
		return err
	}
	addr := gc.Status().Account
	if *player != "" {
		if addr, err = crypto.ParseAddress(*player); err != nil {
			return err
		}
	}
	st, err := gc.GetPlayerStats(ctx, addr)
	if err != nil {
		return err
	}
	if !*decrypt {
		return printJSON(st)
	}
	best, err := gc.DecryptBestScore(ctx, addr)
	if err != nil {
		return err
	}
	return printJSON(struct {
		GamesPlayed uint64 `json:"games_played"`
		BestScore   uint64 `json:"best_score"`
	}{st.GamesPlayed, best})
}

func cmdAverages(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("averages", flag.ExitOnError)
	keyPath, yes := identityFlags(fs, e.cfg)
	retries := fs.Int("retries", 0, "times to resume a run that failed on connectivity")
	_ = fs.Parse(args)

	gc, err := e.client(ctx, *keyPath, *yes)
	if err != nil {
		return err
	}
	agg := gc.NewAggregation()
	agg.OnStep(func(s client.Step) { fmt.Printf("... %s\n", s) })
	avg, err := agg.Run(ctx)
	for i := 0; i < *retries && resumable(ctx, err); i++ {
		fmt.Printf("failed at %s: %v; resuming\n", agg.FailedAt(), err)
		avg, err = agg.Resume(ctx)
	}
	if err != nil {
		return err
	}
	return printJSON(avg)
}

// resumable reports whether a failed aggregation may be resumed without
// asking the user again. Rejected signatures and contract reverts may not.
func resumable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch client.KindOf(err) {
	case client.KindCapability, client.KindProtocolState:
		return false
	}
	return true
}

func cmdLeaderboard(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("leaderboard", flag.ExitOnError)
	keyPath, yes := identityFlags(fs, e.cfg)
	offset := fs.Uint64("offset", 0, "first player index")
	limit := fs.Uint64("limit", 20, "number of players")
	_ = fs.Parse(args)

	gc, err := e.client(ctx, *keyPath, *yes)
	if err != nil {
		return err
	}
	rows, err := gc.Leaderboard(ctx, *offset, *limit)
	if err != nil {
		return err
	}
	for i, r := range rows {
		fmt.Printf("%4d  %s  games=%d  best=%s\n", *offset+uint64(i), r.Player, r.GamesPlayed, r.BestScore)
	}
	return nil
}

func cmdPlayers(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("players", flag.ExitOnError)
	keyPath, yes := identityFlags(fs, e.cfg)
	list := fs.Bool("list", false, "list every player address")
	_ = fs.Parse(args)

	gc, err := e.client(ctx, *keyPath, *yes)
	if err != nil {
		return err
	}
	totals, err := gc.GetTotalStats(ctx)
	if err != nil {
		return err
	}
	if !*list {
		return printJSON(totals)
	}
	players, err := gc.GetPlayers(ctx, 0, totals.TotalPlayers)
	if err != nil {
		return err
	}
	return printJSON(struct {
		client.TotalStats
		Players []crypto.Address `json:"players"`
	}{totals, players})
}

func cmdWatch(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	_ = fs.Parse(args)

	em := events.NewEmitter()
	em.SubscribeAll(func(ev events.Event) {
		if err := printJSON(ev); err != nil {
			e.log.Warn("print event", "error", err)
		}
	})
	node, err := e.node()
	if err != nil {
		return err
	}
	return watcher.New(node, em, e.log).Run(ctx)
}

func passwordFromEnv(e *env) string {
	pw := config.GetEnvDefault(config.EnvPassword, "")
	if pw == "" {
		e.log.Warn(config.EnvPassword + " not set; keystore uses an empty password")
	}
	return pw
}
