// Package consensus implements Proof-of-Authority block production.
// Validators propose blocks in round-robin order and sign them.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fox-one/pkg/logger"

	"github.com/tolelom/indiechain/config"
	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/crypto"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/vm"
)

// ErrNotProposer is returned by ProduceBlock outside this node's turn.
var ErrNotProposer = errors.New("not the proposer for this round")

// Node bundles the chain components a validator drives.
type Node struct {
	Chain   *core.Blockchain
	State   core.State
	Mempool *core.Mempool
	Exec    *vm.Executor
	Emitter *events.Emitter
}

// PoA seals blocks for one validator key.
type PoA struct {
	Node
	cfg  *config.Config
	key  crypto.PrivateKey
	self string
}

// New returns the engine for the validator holding key.
func New(cfg *config.Config, key crypto.PrivateKey, node Node) *PoA {
	return &PoA{Node: node, cfg: cfg, key: key, self: key.Public().Hex()}
}

// proposerAt returns the validator whose turn it is at height.
func (p *PoA) proposerAt(height int64) (string, bool) {
	n := int64(len(p.cfg.Validators))
	if n == 0 {
		return "", false
	}
	return p.cfg.Validators[height%n], true
}

// IsProposer reports whether this node proposes the next block.
func (p *PoA) IsProposer() bool {
	want, ok := p.proposerAt(p.Chain.Height() + 1)
	return ok && want == p.self
}

// ProduceBlock executes pending transactions, then signs and commits the
// block. Transactions that fail are left out of the block; their failed
// receipts are still published once the block is committed.
func (p *PoA) ProduceBlock(ctx context.Context) (*core.Block, error) {
	if !p.IsProposer() {
		return nil, ErrNotProposer
	}
	log := logger.FromContext(ctx).WithField("worker", "consensus")

	limit := p.cfg.MaxBlockTxs
	if limit <= 0 {
		limit = 500
	}
	pending := p.Mempool.Pending(limit)

	prevHash, height := config.GenesisHash, int64(0)
	if tip := p.Chain.Tip(); tip != nil {
		prevHash, height = tip.Hash, tip.Header.Height+1
	}

	block := core.NewBlock(height, prevHash, p.self, pending)
	res := p.Exec.ExecuteBlock(ctx, block)
	block.SetTransactions(res.Included)

	// Root is taken from the write buffer before flushing so a failed
	// AddBlock leaves nothing persisted.
	block.Header.StateRoot = p.State.ComputeRoot()
	block.Sign(p.key)

	if err := p.Chain.AddBlock(block); err != nil {
		p.State.Discard()
		return nil, fmt.Errorf("add block: %w", err)
	}
	if err := p.State.Commit(); err != nil {
		log.WithError(err).Fatalf("block %d stored but state commit failed", block.Header.Height)
	}
	// tx events describe committed state only; a discarded block emits none
	p.Exec.Publish(res.Events)

	p.Emitter.Emit(events.Event{
		Type:        events.EventBlockCommit,
		BlockHeight: block.Header.Height,
		Data: map[string]any{
			"hash":    block.Hash,
			"txs":     len(block.Transactions),
			"dropped": len(pending) - len(block.Transactions),
		},
	})

	ids := make([]string, len(pending))
	for i, tx := range pending {
		ids[i] = tx.ID
	}
	p.Mempool.Remove(ids)

	log.WithField("height", block.Header.Height).
		WithField("txs", len(block.Transactions)).
		Debug("block committed")
	return block, nil
}

// ValidateBlock checks that block is sealed by the validator whose turn it
// is and links to the stored block one height below it.
func (p *PoA) ValidateBlock(block *core.Block) error {
	want, ok := p.proposerAt(block.Header.Height)
	if !ok {
		return errors.New("no validators configured")
	}
	if block.Header.Proposer != want {
		return fmt.Errorf("block %d proposed by %s, want %s", block.Header.Height, block.Header.Proposer, want)
	}
	if err := block.Verify(); err != nil {
		return fmt.Errorf("block %d: %w", block.Header.Height, err)
	}

	h := block.Header.Height
	if h == 0 {
		if !config.IsGenesisHash(block.Header.PrevHash) {
			return errors.New("genesis block must reference the genesis prev-hash")
		}
		return nil
	}
	parent, err := p.Chain.GetBlockByHeight(h - 1)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w: no block at height %d", core.ErrHeightGap, h-1)
	}
	if err != nil {
		return fmt.Errorf("load parent of block %d: %w", h, err)
	}
	if block.Header.PrevHash != parent.Hash {
		return fmt.Errorf("%w: parent %s, have %s", core.ErrParentMismatch, block.Header.PrevHash, parent.Hash)
	}
	return nil
}

// Run produces a block every interval while this node is the proposer. It
// returns when ctx is cancelled.
func (p *PoA) Run(ctx context.Context, interval time.Duration) error {
	log := logger.FromContext(ctx).WithField("worker", "consensus")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !p.IsProposer() {
				continue
			}
			if _, err := p.ProduceBlock(ctx); err != nil {
				log.WithError(err).Error("produce block")
			}
		}
	}
}
