package vm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/fox-one/pkg/logger"
	"github.com/sirupsen/logrus"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/ledger"
)

// Executor applies transactions to the state one at a time. Each
// transaction runs inside a state snapshot: a failing handler leaves no
// trace in state, in the ledger or on the event bus.
type Executor struct {
	mu       sync.Mutex
	state    core.State
	ledger   *ledger.Ledger
	emitter  *events.Emitter
	registry *Registry
}

// NewExecutor creates an Executor over state using the global registry.
func NewExecutor(state core.State, emitter *events.Emitter) *Executor {
	return &Executor{
		state:    state,
		ledger:   ledger.New(state),
		emitter:  emitter,
		registry: globalRegistry,
	}
}

// Ledger returns the ledger view over the executor's state.
func (e *Executor) Ledger() *ledger.Ledger {
	return e.ledger
}

// BlockResult is the outcome of ExecuteBlock.
type BlockResult struct {
	// Included holds the transactions that succeeded, in block order.
	Included []*core.Transaction
	// Receipts holds one receipt per input transaction, failed ones included.
	Receipts []*core.Receipt
	// Events are held back until the block is stored; see Publish.
	Events []events.Event
}

// ExecuteBlock applies every transaction in block in order. Failing
// transactions are rolled back and reported with a failed receipt; they do
// not abort the block. Nothing is emitted: the caller passes res.Events to
// Publish once the block and its state are committed.
func (e *Executor) ExecuteBlock(ctx context.Context, block *core.Block) *BlockResult {
	res := &BlockResult{}
	for _, tx := range block.Transactions {
		receipt, evs, err := e.execute(ctx, block, tx)
		if err != nil {
			receipt = core.NewFailedReceipt(tx, block.Header.Height, err)
			evs = []events.Event{{
				Type:        events.EventTxFailed,
				TxID:        tx.ID,
				BlockHeight: block.Header.Height,
				Data:        map[string]any{"receipt": receipt},
			}}
		} else {
			res.Included = append(res.Included, tx)
		}
		res.Receipts = append(res.Receipts, receipt)
		res.Events = append(res.Events, evs...)
	}
	return res
}

// ExecuteTx verifies and applies tx and emits its events straight away. On
// error the state is restored to what it was before the call.
func (e *Executor) ExecuteTx(ctx context.Context, block *core.Block, tx *core.Transaction) (*core.Receipt, error) {
	receipt, evs, err := e.execute(ctx, block, tx)
	if err != nil {
		return nil, err
	}
	e.Publish(evs)
	return receipt, nil
}

// Publish emits evs in order.
func (e *Executor) Publish(evs []events.Event) {
	if e.emitter == nil {
		return
	}
	for _, ev := range evs {
		e.emitter.Emit(ev)
	}
}

func (e *Executor) execute(ctx context.Context, block *core.Block, tx *core.Transaction) (*core.Receipt, []events.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"tx":     tx.ID,
		"type":   tx.Type,
		"height": block.Header.Height,
	})

	if err := tx.Verify(); err != nil {
		return nil, nil, fmt.Errorf("signature: %v: %w", err, core.ErrUnauthorized)
	}

	snapID, err := e.state.Snapshot()
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: %w", err)
	}

	vctx, err := e.applyTx(block, tx, log)
	if err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			log.WithError(revertErr).Error("vm: revert failed")
			return nil, nil, fmt.Errorf("revert snapshot after tx failure: %w (revert: %v)", err, revertErr)
		}
		log.WithError(err).WithField("kind", core.KindOf(err)).Debug("vm: tx rejected")
		return nil, nil, err
	}

	receipt := &core.Receipt{
		TxID:        tx.ID,
		Type:        tx.Type,
		From:        tx.From,
		BlockHeight: block.Header.Height,
		Status:      core.ReceiptSuccess,
	}
	if vctx.result != nil {
		if receipt.Result, err = json.Marshal(vctx.result); err != nil {
			log.WithError(err).Warn("vm: encode result")
		}
	}

	evs := append(vctx.events, events.Event{
		Type:        events.EventTxExecuted,
		TxID:        tx.ID,
		BlockHeight: block.Header.Height,
		Data:        map[string]any{"receipt": receipt},
	})
	log.Debug("vm: tx applied")
	return receipt, evs, nil
}

// applyTx deducts the fee, increments the nonce, then dispatches to the handler.
func (e *Executor) applyTx(block *core.Block, tx *core.Transaction, log *logrus.Entry) (*Context, error) {
	h, err := e.registry.Lookup(tx.Type)
	if err != nil {
		return nil, err
	}
	acc, err := e.state.GetAccount(tx.From)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if acc.Nonce != tx.Nonce {
		return nil, fmt.Errorf("invalid nonce: expected %d got %d: %w", acc.Nonce, tx.Nonce, core.ErrInvalidArguments)
	}
	if acc.Balance < tx.Fee {
		return nil, fmt.Errorf("insufficient balance for fee: have %d need %d: %w", acc.Balance, tx.Fee, core.ErrInvalidArguments)
	}
	if acc.Nonce == math.MaxUint64 {
		return nil, fmt.Errorf("nonce overflow for account %s: %w", tx.From, core.ErrArithmeticOverflow)
	}
	acc.Balance -= tx.Fee
	acc.Nonce++
	if err := e.state.SetAccount(acc); err != nil {
		return nil, err
	}

	vctx := &Context{
		State:  e.state,
		Ledger: e.ledger,
		Block:  block,
		Tx:     tx,
		Log:    log,
	}
	if err := h(vctx); err != nil {
		return nil, err
	}
	return vctx, nil
}
