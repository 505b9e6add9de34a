package devnet_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"pgregory.net/rapid"

	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/devnet"
	"github.com/tolelom/fhe2048/events"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/internal/testutil"
	"github.com/tolelom/fhe2048/ledger"
	"github.com/tolelom/fhe2048/wallet"
)

type fixture struct {
	db   *testutil.MemDB
	node *devnet.Node
	inst *fhe.Client
	now  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: testutil.NewMemDB(), now: time.Unix(1_700_000_000, 0)}
	f.open(t)
	return f
}

func (f *fixture) open(t *testing.T) {
	t.Helper()
	node, err := devnet.NewNode(f.db, devnet.Config{Clock: func() time.Time { return f.now }})
	require.NoError(t, err)
	inst, err := fhe.NewClient(context.Background(), node, node.ChainID())
	require.NoError(t, err)
	f.node, f.inst = node, inst
}

func (f *fixture) player(t *testing.T) (*wallet.Wallet, *devnet.Binding) {
	t.Helper()
	w, err := wallet.Generate(f.node.ChainID())
	require.NoError(t, err)
	return w, f.node.Bind(w)
}

func (f *fixture) submit(t *testing.T, b *devnet.Binding, user crypto.Address, id uint64, score, moves uint32) error {
	t.Helper()
	s, err := f.inst.CreateEncryptedInput(b.ContractAddress(), user).Add32(score).Encrypt()
	require.NoError(t, err)
	m, err := f.inst.CreateEncryptedInput(b.ContractAddress(), user).Add32(moves).Encrypt()
	require.NoError(t, err)
	_, err = b.SubmitScore(context.Background(), id, s.Handles[0], s.InputProof, m.Handles[0], m.InputProof)
	return err
}

func (f *fixture) plaintext(t *testing.T, h fhe.Handle) uint64 {
	t.Helper()
	v, err := f.node.Plaintext(h)
	require.NoError(t, err)
	return v
}

func TestStartGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w1, p1 := f.player(t)
	_, p2 := f.player(t)

	id, rcpt, err := p1.StartGame(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
	assert.Equal(t, int64(1), rcpt.BlockHeight)
	assert.Equal(t, ledger.MethodStartGame, rcpt.Method)

	counter, _ := p1.GameIDCounter(ctx)
	players, _ := p1.TotalPlayers(ctx)
	assert.Equal(t, uint64(1), counter)
	assert.Equal(t, uint64(1), players)

	sess, err := p1.GetGameSession(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, w1.Address(), sess.Player)
	assert.False(t, sess.Completed)
	assert.True(t, sess.Score.IsZero())
	assert.Equal(t, f.now.Unix(), sess.StartTime)

	// A second game by the same player does not add a player.
	id, _, err = p1.StartGame(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	players, _ = p1.TotalPlayers(ctx)
	assert.Equal(t, uint64(1), players)

	id, _, err = p2.StartGame(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)
	players, _ = p1.TotalPlayers(ctx)
	assert.Equal(t, uint64(2), players)

	st, err := p1.GetPlayerStats(ctx, w1.Address())
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1}, st.GameIDs)
	assert.Zero(t, st.GamesPlayed)
}

func TestGetGameSessionUnknown(t *testing.T) {
	f := newFixture(t)
	_, p := f.player(t)
	_, err := p.GetGameSession(context.Background(), 7)
	assert.True(t, errors.Is(err, ledger.ErrGameNotFound))
}

func TestSubmitScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w, p := f.player(t)

	var got []events.EventType
	f.node.Events().SubscribeAll(func(ev events.Event) { got = append(got, ev.Type) })

	id, _, err := p.StartGame(ctx)
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	require.NoError(t, f.submit(t, p, w.Address(), id, 20480, 950))

	sess, err := p.GetGameSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, sess.Completed)
	assert.Equal(t, f.now.Unix(), sess.EndTime)
	assert.Equal(t, uint64(20480), f.plaintext(t, sess.Score))
	assert.Equal(t, uint64(950), f.plaintext(t, sess.Moves))
	assert.Equal(t, fhe.TypeBool, sess.Won.Type())
	assert.Equal(t, uint64(1), f.plaintext(t, sess.Won))

	st, err := p.GetPlayerStats(ctx, w.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.GamesPlayed)
	assert.Equal(t, uint64(20480), f.plaintext(t, st.BestScore))

	total, _ := p.TotalGames(ctx)
	assert.Equal(t, uint64(1), total)

	assert.Equal(t, []events.EventType{
		events.EventSessionStarted, events.EventTxExecuted,
		events.EventSessionCompleted, events.EventTxExecuted,
	}, got)
}

func TestWonFlagBelowThreshold(t *testing.T) {
	f := newFixture(t)
	w, p := f.player(t)
	id, _, err := p.StartGame(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.submit(t, p, w.Address(), id, 19999, 10))

	sess, err := p.GetGameSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), f.plaintext(t, sess.Won))
}

func TestSubmitTwiceReverts(t *testing.T) {
	f := newFixture(t)
	w, p := f.player(t)
	id, _, err := p.StartGame(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.submit(t, p, w.Address(), id, 100, 10))

	err = f.submit(t, p, w.Address(), id, 200, 20)
	assert.True(t, errors.Is(err, ledger.ErrGameAlreadyCompleted))
	assert.Equal(t, "GameAlreadyCompleted", ledger.RevertName(err))
}

func TestResubmitAlwaysRevertsAndKeepsFirstScore(t *testing.T) {
	f := newFixture(t)
	w, p := f.player(t)
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		first := rapid.Uint32().Draw(rt, "first")
		second := rapid.Uint32().Draw(rt, "second")

		id, _, err := p.StartGame(ctx)
		if err != nil {
			rt.Fatalf("start: %v", err)
		}
		if err := f.submit(t, p, w.Address(), id, first, 1); err != nil {
			rt.Fatalf("first submit: %v", err)
		}
		err = f.submit(t, p, w.Address(), id, second, 2)
		if !errors.Is(err, ledger.ErrGameAlreadyCompleted) {
			rt.Fatalf("second submit: got %v", err)
		}
		s, err := f.node.GameSession(id)
		if err != nil {
			rt.Fatalf("session: %v", err)
		}
		if got, _ := f.node.Plaintext(s.Score); got != uint64(first) {
			rt.Fatalf("score %d overwritten with %d", first, got)
		}
	})
}

func TestSubmitForeignSessionReverts(t *testing.T) {
	f := newFixture(t)
	_, p1 := f.player(t)
	w2, p2 := f.player(t)
	id, _, err := p1.StartGame(context.Background())
	require.NoError(t, err)

	err = f.submit(t, p2, w2.Address(), id, 100, 10)
	assert.True(t, errors.Is(err, ledger.ErrUnauthorizedAccess))
}

func TestBestScoreIsRunningMax(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w, p := f.player(t)

	var prev fhe.Handle
	for _, c := range []struct {
		score uint32
		best  uint64
	}{{100, 100}, {50, 100}, {300, 300}} {
		id, _, err := p.StartGame(ctx)
		require.NoError(t, err)
		require.NoError(t, f.submit(t, p, w.Address(), id, c.score, 1))

		st, err := p.GetPlayerStats(ctx, w.Address())
		require.NoError(t, err)
		assert.NotEqual(t, prev, st.BestScore, "best score handle is recomputed on every submission")
		assert.Equal(t, c.best, f.plaintext(t, st.BestScore))
		prev = st.BestScore
	}
}

func TestGlobalAverages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w1, p1 := f.player(t)
	w2, p2 := f.player(t)

	_, err := p1.RefreshGlobalAverages(ctx)
	assert.True(t, errors.Is(err, ledger.ErrNoGamesPlayed))
	_, _, err = p1.GetGlobalAverages(ctx)
	assert.True(t, errors.Is(err, ledger.ErrNoGamesPlayed))

	id, _, err := p1.StartGame(ctx)
	require.NoError(t, err)
	require.NoError(t, f.submit(t, p1, w1.Address(), id, 100, 50))
	id, _, err = p2.StartGame(ctx)
	require.NoError(t, err)
	require.NoError(t, f.submit(t, p2, w2.Address(), id, 301, 71))

	_, err = p1.AllowGlobalAveragesDecryption(ctx)
	assert.True(t, errors.Is(err, ledger.ErrAveragesNotComputed))

	_, err = p1.RefreshGlobalAverages(ctx)
	require.NoError(t, err)
	avgScore, avgMoves, err := p1.GetGlobalAverages(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), f.plaintext(t, avgScore))
	assert.Equal(t, uint64(60), f.plaintext(t, avgMoves))

	_, err = p2.AllowGlobalAveragesDecryption(ctx)
	require.NoError(t, err)
}

func TestAllowScoreDecryptionOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w1, p1 := f.player(t)
	_, p2 := f.player(t)
	id, _, err := p1.StartGame(ctx)
	require.NoError(t, err)
	require.NoError(t, f.submit(t, p1, w1.Address(), id, 100, 10))

	_, err = p2.AllowScoreDecryption(ctx, id)
	assert.True(t, errors.Is(err, ledger.ErrUnauthorizedAccess))
	_, err = p1.AllowScoreDecryption(ctx, id)
	require.NoError(t, err)
}

func TestFailedTransactionRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w1, p1 := f.player(t)
	w2, _ := f.player(t)
	id, _, err := p1.StartGame(ctx)
	require.NoError(t, err)

	root := f.node.StateRoot()
	height := f.node.Height()
	nonce, _ := f.node.Nonce(w1.Address())
	var emitted int
	f.node.Events().SubscribeAll(func(events.Event) { emitted++ })

	// Proof bound to another user.
	s, err := f.inst.CreateEncryptedInput(p1.ContractAddress(), w2.Address()).Add32(10).Encrypt()
	require.NoError(t, err)
	_, err = p1.SubmitScore(ctx, id, s.Handles[0], s.InputProof, s.Handles[0], s.InputProof)
	assert.True(t, errors.Is(err, ledger.ErrInvalidInputProof))

	assert.Equal(t, root, f.node.StateRoot())
	assert.Equal(t, height, f.node.Height())
	after, _ := f.node.Nonce(w1.Address())
	assert.Equal(t, nonce, after)
	assert.Zero(t, emitted)

	sess, err := p1.GetGameSession(ctx, id)
	require.NoError(t, err)
	assert.False(t, sess.Completed)
}

func TestTransactionChecks(t *testing.T) {
	f := newFixture(t)
	w, _ := f.player(t)

	tx, err := ledger.NewTransaction(f.node.ChainID(), f.node.ContractAddress(), ledger.MethodStartGame, 5, ledger.Empty{})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(w))
	_, err = f.node.SendTransaction(tx)
	assert.ErrorContains(t, err, "invalid nonce")

	tx, err = ledger.NewTransaction(f.node.ChainID()+1, f.node.ContractAddress(), ledger.MethodStartGame, 0, ledger.Empty{})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(w))
	_, err = f.node.SendTransaction(tx)
	assert.ErrorContains(t, err, "wrong chain id")

	tx, err = ledger.NewTransaction(f.node.ChainID(), f.node.ContractAddress(), ledger.MethodStartGame, 0, ledger.Empty{})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(w))
	tx.Nonce = 1
	_, err = f.node.SendTransaction(tx)
	assert.ErrorContains(t, err, "signature")

	tx, err = ledger.NewTransaction(f.node.ChainID(), f.node.ContractAddress(), "selfDestruct", 0, ledger.Empty{})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(w))
	_, err = f.node.SendTransaction(tx)
	assert.ErrorContains(t, err, "no handler")
}

func TestConcurrentCallsBySameSigner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w, p := f.player(t)
	done, _, err := p.StartGame(ctx)
	require.NoError(t, err)
	require.NoError(t, f.submit(t, p, w.Address(), done, 64, 8))

	const n = 40
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, _, err := p.StartGame(ctx)
			return err
		})
		g.Go(func() error {
			_, err := p.AllowScoreDecryption(ctx, done)
			return err
		})
	}
	require.NoError(t, g.Wait())

	nonce, err := f.node.Nonce(w.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(2+2*n), nonce)
	counter, err := p.GameIDCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1+n), counter)
}

func TestGetPlayersPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var want []crypto.Address
	for range 5 {
		w, p := f.player(t)
		_, _, err := p.StartGame(ctx)
		require.NoError(t, err)
		want = append(want, w.Address())
	}
	_, p := f.player(t)

	got, err := p.GetPlayers(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, want[:2], got)
	got, err = p.GetPlayers(ctx, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, want[3:], got)
	got, err = p.GetPlayers(ctx, 9, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = p.GetPlayers(ctx, 1, ^uint64(0))
	require.NoError(t, err)
	assert.Equal(t, want[1:], got)

	n, err := p.PlayersCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
}

func TestRestartKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w, p := f.player(t)
	id, _, err := p.StartGame(ctx)
	require.NoError(t, err)
	require.NoError(t, f.submit(t, p, w.Address(), id, 64, 8))

	key, _ := f.node.NetworkPublicKey(ctx)
	root := f.node.StateRoot()

	f.open(t)
	key2, _ := f.node.NetworkPublicKey(ctx)
	assert.Equal(t, key, key2)
	assert.Equal(t, root, f.node.StateRoot())
	assert.Equal(t, int64(2), f.node.Height())

	p = f.node.Bind(w)
	id, _, err = p.StartGame(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestStateRootDeterministic(t *testing.T) {
	a, b := newFixture(t), newFixture(t)
	assert.Equal(t, a.node.StateRoot(), b.node.StateRoot())

	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	for _, f := range []*fixture{a, b} {
		_, _, err := f.node.Bind(wallet.New(priv, f.node.ChainID())).StartGame(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, a.node.StateRoot(), b.node.StateRoot())
}

// ---- key management ----

func signPermit(t *testing.T, w *wallet.Wallet, p fhe.Permit) []byte {
	t.Helper()
	sig, err := w.SignTypedData(context.Background(), p)
	require.NoError(t, err)
	return sig
}

func TestUserDecrypt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w1, p1 := f.player(t)
	w2, p2 := f.player(t)
	contract := f.node.ContractAddress()

	id1, _, err := p1.StartGame(ctx)
	require.NoError(t, err)
	require.NoError(t, f.submit(t, p1, w1.Address(), id1, 2048, 300))
	id2, _, err := p2.StartGame(ctx)
	require.NoError(t, err)
	require.NoError(t, f.submit(t, p2, w2.Address(), id2, 512, 90))

	s1, _ := p1.GetGameSession(ctx, id1)
	s2, _ := p1.GetGameSession(ctx, id2)

	kp, err := f.inst.GenerateKeypair()
	require.NoError(t, err)
	permit := fhe.NewPermit(f.node.ChainID(), kp.PublicKey, []crypto.Address{contract}, f.now, 1)
	sig := signPermit(t, w1, permit)

	pairs := []fhe.HandleContractPair{{Handle: s1.Score, ContractAddress: contract}, {Handle: s1.Won, ContractAddress: contract}}
	vals, err := f.inst.UserDecrypt(ctx, pairs, kp, permit, sig, w1.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(2048), vals[s1.Score])
	assert.Equal(t, uint64(0), vals[s1.Won])

	t.Run("other player's handle", func(t *testing.T) {
		_, err := f.inst.UserDecrypt(ctx, []fhe.HandleContractPair{{Handle: s2.Score, ContractAddress: contract}}, kp, permit, sig, w1.Address())
		assert.True(t, errors.Is(err, fhe.ErrNotAllowed))
	})
	t.Run("signer mismatch", func(t *testing.T) {
		_, err := f.inst.UserDecrypt(ctx, pairs, kp, permit, sig, w2.Address())
		assert.True(t, errors.Is(err, fhe.ErrPermitSigner))
	})
	t.Run("permit for another chain", func(t *testing.T) {
		foreign := fhe.NewPermit(f.node.ChainID()+1, kp.PublicKey, []crypto.Address{contract}, f.now, 1)
		_, err := f.inst.UserDecrypt(ctx, pairs, kp, foreign, signPermit(t, w1, foreign), w1.Address())
		assert.True(t, errors.Is(err, fhe.ErrPermitChain))
		assert.False(t, errors.Is(err, fhe.ErrPermitSigner))
	})
	t.Run("contract outside permit", func(t *testing.T) {
		other := crypto.MustAddress("0x1000000000000000000000000000000000000001")
		_, err := f.inst.UserDecrypt(ctx, []fhe.HandleContractPair{{Handle: s1.Score, ContractAddress: other}}, kp, permit, sig, w1.Address())
		assert.True(t, errors.Is(err, fhe.ErrContractNotAllowed))
	})
	t.Run("expired", func(t *testing.T) {
		saved := f.now
		f.now = f.now.Add(fhe.Day)
		defer func() { f.now = saved }()
		_, err := f.inst.UserDecrypt(ctx, pairs, kp, permit, sig, w1.Address())
		assert.True(t, errors.Is(err, fhe.ErrPermitExpired))
	})
	t.Run("averages need a grant", func(t *testing.T) {
		_, err := p1.RefreshGlobalAverages(ctx)
		require.NoError(t, err)
		avg, _, err := p1.GetGlobalAverages(ctx)
		require.NoError(t, err)
		avgPair := []fhe.HandleContractPair{{Handle: avg, ContractAddress: contract}}

		_, err = f.inst.UserDecrypt(ctx, avgPair, kp, permit, sig, w1.Address())
		assert.True(t, errors.Is(err, fhe.ErrNotAllowed))

		_, err = p1.AllowGlobalAveragesDecryption(ctx)
		require.NoError(t, err)
		vals, err := f.inst.UserDecrypt(ctx, avgPair, kp, permit, sig, w1.Address())
		require.NoError(t, err)
		assert.Equal(t, uint64(1280), vals[avg])
	})
}
