package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/indiechain/config"
	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/ledger"
	"github.com/tolelom/indiechain/storage"
	"github.com/tolelom/indiechain/vm"
	"github.com/tolelom/indiechain/vm/modules/credit"
	"github.com/tolelom/indiechain/wallet"

	_ "github.com/tolelom/indiechain/vm/modules/asset"
	_ "github.com/tolelom/indiechain/vm/modules/authority"
	_ "github.com/tolelom/indiechain/vm/modules/game"
	_ "github.com/tolelom/indiechain/vm/modules/market"
	_ "github.com/tolelom/indiechain/vm/modules/mint"
	_ "github.com/tolelom/indiechain/vm/modules/transfer"
)

// ChainID is the chain id used by the harness.
const ChainID = "indiechain-test"

// Chain is an in-process chain: genesis state, an executor and an issuer
// wallet that controls the credit currency. Every Send runs in its own block
// and commits on success.
type Chain struct {
	t       testing.TB
	DB      *storage.LevelDB
	State   *storage.StateDB
	Emitter *events.Emitter
	Exec    *vm.Executor
	Issuer  *wallet.Wallet

	height int64
}

type chainOptions struct {
	skipMarketplace bool
	subscribe       func(*events.Emitter)
}

// Option customises NewChain.
type Option func(*chainOptions)

// WithoutMarketplace leaves the marketplace singleton out of genesis.
func WithoutMarketplace() Option {
	return func(o *chainOptions) { o.skipMarketplace = true }
}

// WithEmitter lets the caller subscribe to the emitter before genesis.
func WithEmitter(fn func(*events.Emitter)) Option {
	return func(o *chainOptions) { o.subscribe = fn }
}

// NewChain builds a chain with genesis applied and committed.
func NewChain(t testing.TB, opts ...Option) *Chain {
	t.Helper()
	var o chainOptions
	for _, opt := range opts {
		opt(&o)
	}

	issuer, err := wallet.Generate(ChainID)
	require.NoError(t, err)

	db := NewMemDB()
	state := storage.NewStateDB(db)
	if o.skipMarketplace {
		require.NoError(t, credit.Bootstrap(ledger.New(state), issuer.PubKey()))
	} else {
		cfg := config.DefaultConfig()
		cfg.Genesis.ChainID = ChainID
		cfg.Genesis.CreditIssuer = issuer.PubKey()
		require.NoError(t, config.ApplyGenesis(cfg, state))
	}
	require.NoError(t, state.Commit())

	emitter := events.NewEmitter()
	if o.subscribe != nil {
		o.subscribe(emitter)
	}
	return &Chain{
		t:       t,
		DB:      db,
		State:   state,
		Emitter: emitter,
		Exec:    vm.NewExecutor(state, emitter),
		Issuer:  issuer,
	}
}

// Wallet returns a fresh wallet for this chain.
func (c *Chain) Wallet() *wallet.Wallet {
	c.t.Helper()
	w, err := wallet.Generate(ChainID)
	require.NoError(c.t, err)
	return w
}

// Nonce returns the next nonce for w.
func (c *Chain) Nonce(w *wallet.Wallet) uint64 {
	c.t.Helper()
	acc, err := c.State.GetAccount(w.PubKey())
	require.NoError(c.t, err)
	return acc.Nonce
}

// Send signs typ with payload from w and executes it in a new block.
func (c *Chain) Send(w *wallet.Wallet, typ core.TxType, payload any) (*core.Receipt, error) {
	c.t.Helper()
	tx, err := w.NewTx(typ, c.Nonce(w), 0, payload)
	require.NoError(c.t, err)
	return c.Apply(tx)
}

// Apply executes a signed transaction in a new block and commits on success.
func (c *Chain) Apply(tx *core.Transaction) (*core.Receipt, error) {
	c.t.Helper()
	c.height++
	block := core.NewBlock(c.height, "", c.Issuer.PubKey(), []*core.Transaction{tx})
	receipt, err := c.Exec.ExecuteTx(context.Background(), block, tx)
	if err != nil {
		return nil, err
	}
	require.NoError(c.t, c.State.Commit())
	return receipt, nil
}

// Must is Send that fails the test on error.
func (c *Chain) Must(w *wallet.Wallet, typ core.TxType, payload any) *core.Receipt {
	c.t.Helper()
	r, err := c.Send(w, typ, payload)
	require.NoError(c.t, err)
	return r
}

// Ledger returns a ledger view over the chain state.
func (c *Chain) Ledger() *ledger.Ledger {
	return c.Exec.Ledger()
}

// AssetBalance returns holder's balance of asset.
func (c *Chain) AssetBalance(asset, holder string) uint64 {
	c.t.Helper()
	a, err := c.State.GetAsset(asset)
	require.NoError(c.t, err)
	bal, err := c.Ledger().BalanceOf(a.Token, core.AccountKey(a.Token, holder))
	require.NoError(c.t, err)
	return bal
}

// CreditBalance returns owner's credit balance.
func (c *Chain) CreditBalance(owner string) uint64 {
	c.t.Helper()
	bal, err := c.Ledger().BalanceOf(core.CreditToken, core.CreditAccountKey(owner))
	require.NoError(c.t, err)
	return bal
}

// Fund mints credits from the issuer to owner.
func (c *Chain) Fund(owner string, amount uint64) {
	c.t.Helper()
	c.Must(c.Issuer, core.TxCreditMint, core.CreditMintPayload{To: owner, Amount: amount})
}

// Fixture is a registered game with one asset.
type Fixture struct {
	Owner *wallet.Wallet
	Game  *core.Game
	Asset *core.Asset
}

// RegisterGame registers a game named name owned by owner.
func (c *Chain) RegisterGame(owner *wallet.Wallet, name string) *core.Game {
	c.t.Helper()
	c.Must(owner, core.TxRegisterGame, core.RegisterGamePayload{Name: name, Description: "desc"})
	g, err := c.State.GetGame(core.GameKey(owner.PubKey(), name))
	require.NoError(c.t, err)
	return g
}

// RegisterAsset registers an asset under game from p, filling in the game key.
func (c *Chain) RegisterAsset(owner *wallet.Wallet, game *core.Game, p core.RegisterAssetPayload) *core.Asset {
	c.t.Helper()
	p.Game = game.Key
	c.Must(owner, core.TxRegisterAsset, p)
	a, err := c.State.GetAsset(core.AssetKey(game.Key, p.Name))
	require.NoError(c.t, err)
	return a
}

// NewFixture registers game "RPG" and a tradable asset "Sword" priced 100.
func (c *Chain) NewFixture() *Fixture {
	c.t.Helper()
	owner := c.Wallet()
	g := c.RegisterGame(owner, "RPG")
	a := c.RegisterAsset(owner, g, core.RegisterAssetPayload{
		Name:         "Sword",
		Symbol:       "SWD",
		URI:          "ipfs://sword",
		Price:        100,
		TradeEnabled: true,
	})
	return &Fixture{Owner: owner, Game: g, Asset: a}
}
