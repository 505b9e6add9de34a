package devnet

import (
	"math"

	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/events"
	"github.com/tolelom/fhe2048/ledger"
)

// Block is the execution context of one transaction: every transaction is
// sealed in its own block.
type Block struct {
	Height    int64
	Timestamp int64
}

// Context is passed to every Handler.
type Context struct {
	State   *StateDB
	FHE     *Coprocessor
	Block   Block
	Tx      *ledger.Transaction
	Emitter *events.Emitter
	// WinScore is the score from which a session counts as won.
	WinScore uint64
}

// emit publishes a contract event tagged with the current transaction.
func (c *Context) emit(typ events.EventType, data map[string]any) {
	if c.Emitter == nil {
		return
	}
	c.Emitter.Emit(events.Event{
		Type:        typ,
		TxID:        c.Tx.ID,
		BlockHeight: c.Block.Height,
		Data:        data,
	})
}

// Executor applies transactions to the state using a Registry.
type Executor struct {
	state    *StateDB
	fhe      *Coprocessor
	registry *Registry
	emitter  *events.Emitter
	winScore uint64
}

// NewExecutor creates an Executor.
func NewExecutor(state *StateDB, fhe *Coprocessor, registry *Registry, emitter *events.Emitter, winScore uint64) *Executor {
	return &Executor{state: state, fhe: fhe, registry: registry, emitter: emitter, winScore: winScore}
}

// ExecuteTx verifies and executes a single transaction with
// snapshot/rollback. Contract events are delivered only for transactions
// that succeed.
func (e *Executor) ExecuteTx(block Block, tx *ledger.Transaction) (uint64, error) {
	if err := tx.Verify(); err != nil {
		return 0, errors.Wrap(err, "signature")
	}

	buffered := events.NewEmitter()
	var pending []events.Event
	buffered.SubscribeAll(func(ev events.Event) { pending = append(pending, ev) })

	snapID := e.state.Snapshot()
	value, err := e.applyTx(block, tx, buffered)
	if err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return 0, errors.CombineErrors(err, errors.Wrap(revertErr, "revert snapshot after tx failure"))
		}
		return 0, err
	}

	if e.emitter != nil {
		for _, ev := range pending {
			e.emitter.Emit(ev)
		}
		e.emitter.Emit(events.Event{
			Type:        events.EventTxExecuted,
			TxID:        tx.ID,
			BlockHeight: block.Height,
			Data:        map[string]any{"method": string(tx.Method), "from": tx.From.String()},
		})
	}
	return value, nil
}

// applyTx increments the nonce, then dispatches to the handler.
func (e *Executor) applyTx(block Block, tx *ledger.Transaction, emitter *events.Emitter) (uint64, error) {
	acc, err := e.state.GetAccount(tx.From)
	if err != nil {
		return 0, errors.Wrap(err, "get account")
	}
	if acc.Nonce != tx.Nonce {
		return 0, errors.Newf("invalid nonce: expected %d got %d", acc.Nonce, tx.Nonce)
	}
	if acc.Nonce == math.MaxUint64 {
		return 0, errors.Newf("nonce overflow for account %s", tx.From)
	}
	acc.Nonce++
	if err := e.state.SetAccount(acc); err != nil {
		return 0, err
	}

	ctx := &Context{
		State:    e.state,
		FHE:      e.fhe,
		Block:    block,
		Tx:       tx,
		Emitter:  emitter,
		WinScore: e.winScore,
	}
	return e.registry.Execute(tx.Method, ctx, tx.Payload)
}
