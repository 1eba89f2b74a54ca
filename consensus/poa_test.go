package consensus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/indiechain/config"
	"github.com/tolelom/indiechain/consensus"
	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/internal/testutil"
	"github.com/tolelom/indiechain/storage"
	"github.com/tolelom/indiechain/vm"
	"github.com/tolelom/indiechain/wallet"
)

type node struct {
	cfg       *config.Config
	state     *storage.StateDB
	bc        *core.Blockchain
	mempool   *core.Mempool
	poa       *consensus.PoA
	validator *wallet.Wallet
	store     *flakyStore
	failed    []*core.Receipt
	games     []string
}

// flakyStore fails CommitBlock while fail is set.
type flakyStore struct {
	*storage.BlockStore
	fail bool
}

func (s *flakyStore) CommitBlock(b *core.Block) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.BlockStore.CommitBlock(b)
}

func newNode(t *testing.T) *node {
	t.Helper()
	cfg := config.DefaultConfig()
	validator, err := wallet.Generate(cfg.Genesis.ChainID)
	require.NoError(t, err)
	cfg.Validators = []string{validator.PubKey()}

	state := testutil.NewStateDB()
	store := &flakyStore{BlockStore: testutil.NewBlockStore()}
	bc := core.NewBlockchain(store)
	require.NoError(t, bc.Init())
	genesis, err := config.CreateGenesisBlock(cfg, state, validator.PrivKey())
	require.NoError(t, err)
	require.NoError(t, bc.AddBlock(genesis))

	n := &node{cfg: cfg, state: state, bc: bc, validator: validator, store: store}
	emitter := events.NewEmitter()
	emitter.Subscribe(events.EventGameRegistered, func(ev events.Event) {
		n.games = append(n.games, ev.TxID)
	})
	emitter.Subscribe(events.EventTxFailed, func(ev events.Event) {
		n.failed = append(n.failed, ev.Data["receipt"].(*core.Receipt))
	})
	n.mempool = core.NewMempool(cfg.Genesis.ChainID)
	exec := vm.NewExecutor(state, emitter)
	n.poa = consensus.New(cfg, validator.PrivKey(), consensus.Node{
		Chain: bc, State: state, Mempool: n.mempool, Exec: exec, Emitter: emitter,
	})
	return n
}

func TestProduceBlockDropsFailingTx(t *testing.T) {
	n := newNode(t)
	alice, err := wallet.Generate(n.cfg.Genesis.ChainID)
	require.NoError(t, err)

	good, err := alice.RegisterGame(0, "RPG", "a game")
	require.NoError(t, err)
	// alice is not the credit issuer
	bad, err := alice.CreditMint(1, alice.PubKey(), 10)
	require.NoError(t, err)
	require.NoError(t, n.mempool.Add(good))
	require.NoError(t, n.mempool.Add(bad))

	block, err := n.poa.ProduceBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), block.Header.Height)
	require.Len(t, block.Transactions, 1)
	assert.Equal(t, good.ID, block.Transactions[0].ID)
	assert.Equal(t, core.ComputeTxRoot(block.Transactions), block.Header.TxRoot)
	assert.Equal(t, n.state.ComputeRoot(), block.Header.StateRoot)
	assert.Zero(t, n.mempool.Size())

	require.Len(t, n.failed, 1)
	assert.Equal(t, bad.ID, n.failed[0].TxID)
	assert.Equal(t, core.ReceiptFailed, n.failed[0].Status)
	assert.Equal(t, core.ErrUnauthorized.String(), n.failed[0].Kind)

	_, err = n.state.GetGame(core.GameKey(alice.PubKey(), "RPG"))
	assert.NoError(t, err)
	assert.NoError(t, n.poa.ValidateBlock(block))
	assert.Equal(t, int64(1), n.bc.Height())
}

func TestProduceBlockRequiresProposer(t *testing.T) {
	n := newNode(t)
	other, err := wallet.Generate(n.cfg.Genesis.ChainID)
	require.NoError(t, err)
	n.cfg.Validators = []string{other.PubKey()}

	_, err = n.poa.ProduceBlock(context.Background())
	assert.ErrorIs(t, err, consensus.ErrNotProposer)
}

func TestValidateBlockRejectsWrongParent(t *testing.T) {
	n := newNode(t)
	block := core.NewBlock(1, "deadbeef", n.validator.PubKey(), nil)
	block.Sign(n.validator.PrivKey())
	assert.Error(t, n.poa.ValidateBlock(block))
}

func TestFailedCommitEmitsNothing(t *testing.T) {
	n := newNode(t)
	alice, err := wallet.Generate(n.cfg.Genesis.ChainID)
	require.NoError(t, err)
	tx, err := alice.RegisterGame(0, "RPG", "a game")
	require.NoError(t, err)
	require.NoError(t, n.mempool.Add(tx))

	n.store.fail = true
	_, err = n.poa.ProduceBlock(context.Background())
	require.Error(t, err)
	assert.Empty(t, n.games)
	assert.Equal(t, 1, n.mempool.Size())
	_, err = n.state.GetGame(core.GameKey(alice.PubKey(), "RPG"))
	assert.ErrorIs(t, err, core.ErrNotFound)

	n.store.fail = false
	block, err := n.poa.ProduceBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), block.Header.Height)
	assert.Equal(t, []string{tx.ID}, n.games)
}
