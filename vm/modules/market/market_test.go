package market_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/internal/testutil"
	"github.com/tolelom/indiechain/wallet"
)

type market struct {
	*testutil.Chain
	fx  *testutil.Fixture
	bob *wallet.Wallet
}

// newMarket mints 50 swords to bob.
func newMarket(t *testing.T) *market {
	chain := testutil.NewChain(t)
	fx := chain.NewFixture()
	bob := chain.Wallet()
	chain.Must(fx.Owner, core.TxMintAsset, core.MintAssetPayload{Asset: fx.Asset.Key, Amount: 50, Recipient: bob.PubKey()})
	return &market{Chain: chain, fx: fx, bob: bob}
}

func (m *market) list(t *testing.T, price, amount uint64) *core.Sale {
	t.Helper()
	r := m.Must(m.bob, core.TxListMarket, core.ListMarketPayload{Asset: m.fx.Asset.Key, Price: price, Amount: amount})
	var sale core.Sale
	require.NoError(t, json.Unmarshal(r.Result, &sale))
	return &sale
}

func TestListAndBuy(t *testing.T) {
	m := newMarket(t)
	carol := m.Wallet()
	m.Fund(carol.PubKey(), 100)

	sale := m.list(t, 20, 5)
	assert.Equal(t, uint64(0), sale.ListingID)
	assert.Equal(t, core.SaleOpen, sale.State)
	assert.Equal(t, uint64(45), m.AssetBalance(m.fx.Asset.Key, m.bob.PubKey()))
	escrow, err := m.Ledger().BalanceOf(m.fx.Asset.Token, sale.Escrow)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), escrow)

	r := m.Must(carol, core.TxBuyMarket, core.BuyMarketPayload{ListingID: sale.ListingID})
	var receipt core.SettlementReceipt
	require.NoError(t, json.Unmarshal(r.Result, &receipt))
	assert.Equal(t, uint64(20), receipt.Paid)
	assert.Equal(t, uint64(5), receipt.Delivered)

	assert.Equal(t, uint64(5), m.AssetBalance(m.fx.Asset.Key, carol.PubKey()))
	assert.Equal(t, uint64(80), m.CreditBalance(carol.PubKey()))
	assert.Equal(t, uint64(20), m.CreditBalance(m.bob.PubKey()))
	escrow, err = m.Ledger().BalanceOf(m.fx.Asset.Token, sale.Escrow)
	require.NoError(t, err)
	assert.Zero(t, escrow)

	settled, err := m.State.GetSale(sale.Key)
	require.NoError(t, err)
	assert.Equal(t, core.SaleSettled, settled.State)
	assert.Equal(t, carol.PubKey(), settled.Buyer)

	_, err = m.Send(carol, core.TxBuyMarket, core.BuyMarketPayload{ListingID: sale.ListingID})
	assert.ErrorIs(t, err, core.ErrAlreadySettled)
	assert.Equal(t, uint64(80), m.CreditBalance(carol.PubKey()))
}

func TestListingIDsIncrease(t *testing.T) {
	m := newMarket(t)

	assert.Equal(t, uint64(0), m.list(t, 10, 1).ListingID)
	assert.Equal(t, uint64(1), m.list(t, 10, 1).ListingID)

	// a failed listing leaves the counter untouched
	_, err := m.Send(m.bob, core.TxListMarket, core.ListMarketPayload{Asset: m.fx.Asset.Key, Price: 10, Amount: 1_000})
	assert.ErrorIs(t, err, core.ErrTransferFailed)
	mp, err := m.State.GetMarketplace()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), mp.NextListingID)
	_, err = m.State.GetSale(core.SaleKey(2))
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Equal(t, uint64(2), m.list(t, 10, 1).ListingID)
}

func TestBuyWithoutCreditsRollsBack(t *testing.T) {
	m := newMarket(t)
	carol := m.Wallet()
	m.Fund(carol.PubKey(), 10)
	sale := m.list(t, 20, 5)

	_, err := m.Send(carol, core.TxBuyMarket, core.BuyMarketPayload{ListingID: sale.ListingID})
	assert.ErrorIs(t, err, core.ErrPaymentFailed)

	open, err := m.State.GetSale(sale.Key)
	require.NoError(t, err)
	assert.Equal(t, core.SaleOpen, open.State)
	assert.Empty(t, open.Buyer)
	assert.Equal(t, uint64(10), m.CreditBalance(carol.PubKey()))
	assert.Zero(t, m.AssetBalance(m.fx.Asset.Key, carol.PubKey()))

	// the listing can still be bought once carol is funded
	m.Fund(carol.PubKey(), 10)
	m.Must(carol, core.TxBuyMarket, core.BuyMarketPayload{ListingID: sale.ListingID})
	assert.Equal(t, uint64(5), m.AssetBalance(m.fx.Asset.Key, carol.PubKey()))
}

func TestBuyErrors(t *testing.T) {
	m := newMarket(t)
	carol := m.Wallet()

	_, err := m.Send(carol, core.TxBuyMarket, core.BuyMarketPayload{ListingID: 42})
	assert.ErrorIs(t, err, core.ErrSaleNotFound)

	sale := m.list(t, 20, 5)
	_, err = m.Send(m.bob, core.TxBuyMarket, core.BuyMarketPayload{ListingID: sale.ListingID})
	assert.ErrorIs(t, err, core.ErrInvalidArguments)
}

func TestListErrors(t *testing.T) {
	m := newMarket(t)
	carol := m.Wallet()

	_, err := m.Send(m.bob, core.TxListMarket, core.ListMarketPayload{Asset: m.fx.Asset.Key, Price: 0, Amount: 1})
	assert.ErrorIs(t, err, core.ErrInvalidArguments)

	_, err = m.Send(carol, core.TxListMarket, core.ListMarketPayload{
		Asset:     m.fx.Asset.Key,
		Authority: core.HolderAuthorityKey(core.AccountKey(m.fx.Asset.Token, m.bob.PubKey())),
		Price:     10,
		Amount:    1,
	})
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	g := m.RegisterGame(m.fx.Owner, "Racer")
	locked := m.RegisterAsset(m.fx.Owner, g, core.RegisterAssetPayload{Name: "Trophy", Price: 1})
	m.Must(m.fx.Owner, core.TxMintAsset, core.MintAssetPayload{Asset: locked.Key, Amount: 1, Recipient: m.bob.PubKey()})
	_, err = m.Send(m.bob, core.TxListMarket, core.ListMarketPayload{Asset: locked.Key, Price: 10, Amount: 1})
	assert.ErrorIs(t, err, core.ErrTransferRestricted)
}

func TestListWithoutMarketplace(t *testing.T) {
	chain := testutil.NewChain(t, testutil.WithoutMarketplace())
	fx := chain.NewFixture()
	bob := chain.Wallet()
	chain.Must(fx.Owner, core.TxMintAsset, core.MintAssetPayload{Asset: fx.Asset.Key, Amount: 5, Recipient: bob.PubKey()})

	_, err := chain.Send(bob, core.TxListMarket, core.ListMarketPayload{Asset: fx.Asset.Key, Price: 10, Amount: 1})
	assert.ErrorIs(t, err, core.ErrMarketplaceNotInitialized)
	assert.Equal(t, uint64(5), chain.AssetBalance(fx.Asset.Key, bob.PubKey()))
}

func TestBuyRollsBackPaymentWhenDeliveryFails(t *testing.T) {
	m := newMarket(t)
	carol := m.Wallet()
	m.Fund(carol.PubKey(), 100)
	sale := m.list(t, 20, 5)

	// empty the escrow behind the marketplace's back so delivery cannot succeed
	escrow, err := m.Ledger().Account(sale.Escrow)
	require.NoError(t, err)
	escrow.Amount = 0
	require.NoError(t, m.State.SetTokenAccount(escrow))
	require.NoError(t, m.State.Commit())

	_, err = m.Send(carol, core.TxBuyMarket, core.BuyMarketPayload{ListingID: sale.ListingID})
	assert.ErrorIs(t, err, core.ErrSettlementFailed)

	assert.Equal(t, uint64(100), m.CreditBalance(carol.PubKey()))
	assert.Zero(t, m.CreditBalance(m.bob.PubKey()))
	assert.Equal(t, uint64(0), m.Nonce(carol))
	open, err := m.State.GetSale(sale.Key)
	require.NoError(t, err)
	assert.Equal(t, core.SaleOpen, open.State)
	assert.Empty(t, open.Buyer)
}
