package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/indexer"
	"github.com/tolelom/indiechain/internal/testutil"
)

type fixture struct {
	chain   *testutil.Chain
	fx      *testutil.Fixture
	handler *Handler
}

func newFixture(t *testing.T) *fixture {
	var idx *indexer.Indexer
	chain := testutil.NewChain(t, testutil.WithEmitter(func(em *events.Emitter) {
		idx = indexer.New(testutil.NewMemDB(), em)
	}))
	bc := core.NewBlockchain(testutil.NewBlockStore())
	require.NoError(t, bc.Init())
	h := NewHandler(bc, core.NewMempool(testutil.ChainID), chain.State, idx, testutil.ChainID)
	return &fixture{chain: chain, fx: chain.NewFixture(), handler: h}
}

func (f *fixture) call(t *testing.T, method string, params any) Response {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return f.handler.Dispatch(context.Background(), Request{JSONRPC: "2.0", ID: 1, Method: method, Params: raw})
}

func TestGetGame(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, "getGame", map[string]string{"owner": f.fx.Owner.PubKey(), "name": "RPG"})
	require.Nil(t, resp.Error)
	assert.Equal(t, f.fx.Game.Key, resp.Result.(*core.Game).Key)

	resp = f.call(t, "getGame", map[string]string{"key": "missing"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotFound, resp.Error.Code)
	assert.Equal(t, "not_found", resp.Error.Data.Kind)

	resp = f.call(t, "getGame", map[string]string{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestQuoteCollateral(t *testing.T) {
	f := newFixture(t)
	a := f.chain.RegisterAsset(f.fx.Owner, f.fx.Game, core.RegisterAssetPayload{
		Name:              "Shield",
		Price:             100,
		CollateralEnabled: true,
		CollateralRatio:   50,
	})

	resp := f.call(t, "quoteCollateral", map[string]any{"asset": a.Key, "amount": 10})
	require.Nil(t, resp.Error)
	q := resp.Result.(*CollateralQuote)
	assert.Equal(t, uint64(500), q.Due)
	assert.Equal(t, "0.000500", q.Display)

	// assets without collateral quote zero
	resp = f.call(t, "quoteCollateral", map[string]any{"asset": f.fx.Asset.Key, "amount": 10})
	require.Nil(t, resp.Error)
	assert.Zero(t, resp.Result.(*CollateralQuote).Due)
}

func TestBalances(t *testing.T) {
	f := newFixture(t)
	bob := f.chain.Wallet()
	f.chain.Fund(bob.PubKey(), 1_500_000)
	f.chain.Must(f.fx.Owner, core.TxMintAsset, core.MintAssetPayload{Asset: f.fx.Asset.Key, Amount: 3, Recipient: bob.PubKey()})

	resp := f.call(t, "getCreditBalance", map[string]string{"owner": bob.PubKey()})
	require.Nil(t, resp.Error)
	b := resp.Result.(*Balance)
	assert.Equal(t, uint64(1_500_000), b.Amount)
	assert.Equal(t, "1.500000", b.Display)

	resp = f.call(t, "getAssetBalance", map[string]string{"asset": f.fx.Asset.Key, "holder": bob.PubKey()})
	require.Nil(t, resp.Error)
	assert.Equal(t, uint64(3), resp.Result.(*Balance).Amount)
	assert.Equal(t, "3", resp.Result.(*Balance).Display)
}

func TestMarketplaceAndIndexes(t *testing.T) {
	f := newFixture(t)
	bob := f.chain.Wallet()
	f.chain.Must(f.fx.Owner, core.TxMintAsset, core.MintAssetPayload{Asset: f.fx.Asset.Key, Amount: 5, Recipient: bob.PubKey()})
	f.chain.Must(bob, core.TxListMarket, core.ListMarketPayload{Asset: f.fx.Asset.Key, Price: 20, Amount: 5})

	resp := f.call(t, "getMarketplace", nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, uint64(1), resp.Result.(*core.Marketplace).NextListingID)

	resp = f.call(t, "getSale", map[string]any{"listing_id": 0})
	require.Nil(t, resp.Error)
	assert.Equal(t, bob.PubKey(), resp.Result.(*core.Sale).Seller)

	resp = f.call(t, "getSale", map[string]any{"listing_id": 9})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotFound, resp.Error.Code)

	resp = f.call(t, "getOpenListings", nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, []uint64{0}, resp.Result)

	resp = f.call(t, "getAssetsByHolder", map[string]string{"holder": bob.PubKey()})
	require.Nil(t, resp.Error)
	assert.Equal(t, []string{f.fx.Asset.Key}, resp.Result)
}

func TestSendTx(t *testing.T) {
	f := newFixture(t)
	alice := f.chain.Wallet()
	tx, err := alice.RegisterGame(0, "RPG", "")
	require.NoError(t, err)

	resp := f.call(t, "sendTx", tx)
	require.Nil(t, resp.Error)
	assert.Equal(t, map[string]string{"tx_id": tx.ID}, resp.Result)

	resp = f.call(t, "sendTx", tx)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeTxRejected, resp.Error.Code)

	tx.ChainID = "other"
	resp = f.call(t, "sendTx", tx)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestUnknownMethod(t *testing.T) {
	f := newFixture(t)
	resp := f.call(t, "mintEverything", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestServer(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(":0", f.handler, nil, "test")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/hc")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	body := `{"jsonrpc":"2.0","id":7,"method":"getBlockHeight"}`
	res, err = http.Post(ts.URL+"/", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	var resp struct {
		ID     int   `json:"id"`
		Result int64 `json:"result"`
		Error  *Error
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	assert.Nil(t, resp.Error)
	assert.Equal(t, 7, resp.ID)
	assert.Equal(t, int64(0), resp.Result)
}
