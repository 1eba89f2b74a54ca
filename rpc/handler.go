package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/indexer"
	"github.com/tolelom/indiechain/ledger"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	bc      *core.Blockchain
	mempool *core.Mempool
	state   core.State
	ledger  *ledger.Ledger
	indexer *indexer.Indexer
	records *recordCache
	chainID string
}

// NewHandler creates an RPC Handler.
func NewHandler(bc *core.Blockchain, mempool *core.Mempool, state core.State, idx *indexer.Indexer, chainID string) *Handler {
	return &Handler{
		bc:      bc,
		mempool: mempool,
		state:   state,
		ledger:  ledger.New(state),
		indexer: idx,
		records: newRecordCache(state.Committed(), 4096),
		chainID: chainID,
	}
}

type method func(h *Handler, req Request) Response

var methods = map[string]method{
	"getBlockHeight": func(h *Handler, req Request) Response { return okResponse(req.ID, h.bc.Height()) },
	"getMempoolSize": func(h *Handler, req Request) Response { return okResponse(req.ID, h.mempool.Size()) },
	"getBlock":       (*Handler).getBlock,
	"getAccount":     (*Handler).getAccount,
	"sendTx":         (*Handler).sendTx,
	"getReceipt":     (*Handler).getReceipt,

	"getGame":            (*Handler).getGame,
	"getAsset":           (*Handler).getAsset,
	"getMintAuthority":   (*Handler).getMintAuthority,
	"getHolderAuthority": (*Handler).getHolderAuthority,
	"getMarketplace":     (*Handler).getMarketplace,
	"getSale":            (*Handler).getSale,

	"getBalance":       (*Handler).getBalance,
	"getAssetBalance":  (*Handler).getAssetBalance,
	"getCreditBalance": (*Handler).getCreditBalance,
	"quoteCollateral":  (*Handler).quoteCollateral,

	"getOpenListings":     (*Handler).getOpenListings,
	"getListingsBySeller": (*Handler).getListingsBySeller,
	"getAssetsByHolder":   (*Handler).getAssetsByHolder,
	"getGamesByOwner":     (*Handler).getGamesByOwner,
	"getAssetsByGame":     (*Handler).getAssetsByGame,
	"getTxsByAccount":     (*Handler).getTxsByAccount,
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(ctx context.Context, req Request) Response {
	m, ok := methods[req.Method]
	if !ok {
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
	resp := m(h, req)
	if resp.Error != nil {
		logger.FromContext(ctx).WithField("method", req.Method).
			WithField("code", resp.Error.Code).
			Debug("rpc: " + resp.Error.Message)
	}
	return resp
}

// ---- helpers ----

func parse(req Request, v any) *Response {
	if len(req.Params) == 0 {
		req.Params = []byte("{}")
	}
	if err := json.Unmarshal(req.Params, v); err != nil {
		resp := errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
		return &resp
	}
	return nil
}

func required(req Request, fields map[string]string) *Response {
	for name, value := range fields {
		if value == "" {
			resp := errResponse(req.ID, CodeInvalidParams, name+" is required")
			return &resp
		}
	}
	return nil
}

// failure maps a chain error onto a JSON-RPC error with its kind attached.
func failure(id any, err error) Response {
	code := CodeInternalError
	kind := core.KindOf(err)
	if errors.Is(err, core.ErrNotFound) {
		code, kind = CodeNotFound, core.ErrNotFound
	}
	resp := errResponse(id, code, err.Error())
	resp.Error.Data = &ErrorData{Kind: kind.String()}
	return resp
}

// display renders amount base units with decimals places.
func display(amount uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).
		StringFixed(int32(decimals))
}

// ---- chain ----

func (h *Handler) getBlock(req Request) Response {
	var params struct {
		Hash   string `json:"hash"`
		Height *int64 `json:"height"`
	}
	if resp := parse(req, &params); resp != nil {
		return *resp
	}

	var block *core.Block
	var err error
	switch {
	case params.Hash != "":
		block, err = h.bc.GetBlock(params.Hash)
	case params.Height != nil:
		block, err = h.bc.GetBlockByHeight(*params.Height)
	default:
		block = h.bc.Tip()
	}
	if err != nil {
		return failure(req.ID, err)
	}
	if block == nil {
		return failure(req.ID, fmt.Errorf("no blocks yet: %w", core.ErrNotFound))
	}
	return okResponse(req.ID, block)
}

func (h *Handler) getAccount(req Request) Response {
	var params struct {
		Address string `json:"address"`
	}
	if resp := parse(req, &params); resp != nil {
		return *resp
	}
	if resp := required(req, map[string]string{"address": params.Address}); resp != nil {
		return *resp
	}
	acc, err := h.state.GetAccount(params.Address)
	if err != nil {
		return failure(req.ID, err)
	}
	return okResponse(req.ID, acc)
}

func (h *Handler) sendTx(req Request) Response {
	var tx core.Transaction
	if err := json.Unmarshal(req.Params, &tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if tx.ChainID != h.chainID {
		return errResponse(req.ID, CodeInvalidParams,
			fmt.Sprintf("chain ID mismatch: got %q want %q", tx.ChainID, h.chainID))
	}
	if err := h.mempool.Add(&tx); err != nil {
		return errResponse(req.ID, CodeTxRejected, err.Error())
	}
	return okResponse(req.ID, map[string]string{"tx_id": tx.ID})
}

func (h *Handler) getReceipt(req Request) Response {
	var params struct {
		TxID string `json:"tx_id"`
	}
	if resp := parse(req, &params); resp != nil {
		return *resp
	}
	if resp := required(req, map[string]string{"tx_id": params.TxID}); resp != nil {
		return *resp
	}
	r, err := h.indexer.Receipt(params.TxID)
	if err != nil {
		return failure(req.ID, fmt.Errorf("receipt %s: %w", params.TxID, err))
	}
	return okResponse(req.ID, r)
}

// ---- records ----

func (h *Handler) getGame(req Request) Response {
	var params struct {
		Key   string `json:"key"`
		Owner string `json:"owner"`
		Name  string `json:"name"`
	}
	if resp := parse(req, &params); resp != nil {
		return *resp
	}
	if params.Key == "" && params.Owner != "" {
		params.Key = core.GameKey(params.Owner, params.Name)
	}
	if resp := required(req, map[string]string{"key": params.Key}); resp != nil {
		return *resp
	}
	g, err := h.records.Game(params.Key)
	if err != nil {
		return failure(req.ID, fmt.Errorf("game %s: %w", params.Key, err))
	}
	return okResponse(req.ID, g)
}

func (h *Handler) getAsset(req Request) Response {
	var params struct {
		Key  string `json:"key"`
		Game string `json:"game"`
		Name string `json:"name"`
	}
	if resp := parse(req, &params); resp != nil {
		return *resp
	}
	if params.Key == "" && params.Game != "" {
		params.Key = core.AssetKey(params.Game, params.Name)
	}
	if resp := required(req, map[string]string{"key": params.Key}); resp != nil {
		return *resp
	}
	a, err := h.records.Asset(params.Key)
	if err != nil {
		return failure(req.ID, fmt.Errorf("asset %s: %w", params.Key, err))
	}
	return okResponse(req.ID, a)
}

func (h *Handler) getMintAuthority(req Request) Response {
	var params struct {
		Asset    string `json:"asset"`
		Game     string `json:"game"`
		Delegate string `json:"delegate"`
	}
	if resp := parse(req, &params); resp != nil {
		return *resp
	}
	if resp := required(req, map[string]string{
		"asset":    params.Asset,
		"game":     params.Game,
		"delegate": params.Delegate,
	}); resp != nil {
		return *resp
	}
	m, err := h.records.MintAuthority(core.MintAuthorityKey(params.Asset, params.Game, params.Delegate))
	if err != nil {
		return failure(req.ID, fmt.Errorf("mint authority: %w", err))
	}
	return okResponse(req.ID, m)
}

func (h *Handler) getHolderAuthority(req Request) Response {
	var params struct {
		Key     string `json:"key"`
		Account string `json:"account"`
	}
	if resp := parse(req, &params); resp != nil {
		return *resp
	}
	if params.Key == "" && params.Account != "" {
		params.Key = core.HolderAuthorityKey(params.Account)
	}
	if resp := required(req, map[string]string{"key": params.Key}); resp != nil {
		return *resp
	}
	ha, err := h.records.HolderAuthority(params.Key)
	if err != nil {
		return failure(req.ID, fmt.Errorf("holder authority %s: %w", params.Key, err))
	}
	return okResponse(req.ID, ha)
}

func (h *Handler) getMarketplace(req Request) Response {
	m, err := h.state.GetMarketplace()
	if errors.Is(err, core.ErrNotFound) {
		return failure(req.ID, core.ErrMarketplaceNotInitialized)
	}
	if err != nil {
		return failure(req.ID, err)
	}
	return okResponse(req.ID, m)
}

func (h *Handler) getSale(req Request) Response {
	var params struct {
		ListingID *uint64 `json:"listing_id"`
	}
	if resp := parse(req, &params); resp != nil {
		return *resp
	}
	if params.ListingID == nil {
		return errResponse(req.ID, CodeInvalidParams, "listing_id is required")
	}
	sale, err := h.state.GetSale(core.SaleKey(*params.ListingID))
	if err != nil {
		return failure(req.ID, fmt.Errorf("listing %d: %w", *params.ListingID, err))
	}
	return okResponse(req.ID, sale)
}

// ---- balances ----

func (h *Handler) tokenBalance(id any, token, account string) Response {
	tok, err := h.ledger.Token(token)
	if err != nil {
		return failure(id, fmt.Errorf("%w: %w", core.ErrNotFound, err))
	}
	amount, err := h.ledger.BalanceOf(token, account)
	if err != nil {
		return failure(id, err)
	}
	return okResponse(id, &Balance{
		Token:    token,
		Account:  account,
		Amount:   amount,
		Decimals: tok.Decimals,
		Display:  display(amount, tok.Decimals),
	})
}

func (h *Handler) getBalance(req Request) Response {
	var params struct {
		Token   string `json:"token"`
		Account string `json:"account"`
	}
	if resp := parse(req, &params); resp != nil {
		return *resp
	}
	if resp := required(req, map[string]string{"token": params.Token, "account": params.Account}); resp != nil {
		return *resp
	}
	return h.tokenBalance(req.ID, params.Token, params.Account)
}

func (h *Handler) getAssetBalance(req Request) Response {
	var params struct {
		Asset  string `json:"asset"`
		Holder string `json:"holder"`
	}
	if resp := parse(req, &params); resp != nil {
		return *resp
	}
	if resp := required(req, map[string]string{"asset": params.Asset, "holder": params.Holder}); resp != nil {
		return *resp
	}
	a, err := h.records.Asset(params.Asset)
	if err != nil {
		return failure(req.ID, fmt.Errorf("asset %s: %w", params.Asset, err))
	}
	return h.tokenBalance(req.ID, a.Token, core.AccountKey(a.Token, params.Holder))
}

func (h *Handler) getCreditBalance(req Request) Response {
	var params struct {
		Owner   string `json:"owner"`
		Account string `json:"account"`
	}
	if resp := parse(req, &params); resp != nil {
		return *resp
	}
	if params.Account == "" && params.Owner != "" {
		params.Account = core.CreditAccountKey(params.Owner)
	}
	if resp := required(req, map[string]string{"owner": params.Account}); resp != nil {
		return *resp
	}
	return h.tokenBalance(req.ID, core.CreditToken, params.Account)
}

func (h *Handler) quoteCollateral(req Request) Response {
	var params struct {
		Asset  string `json:"asset"`
		Amount uint64 `json:"amount"`
	}
	if resp := parse(req, &params); resp != nil {
		return *resp
	}
	if resp := required(req, map[string]string{"asset": params.Asset}); resp != nil {
		return *resp
	}
	a, err := h.records.Asset(params.Asset)
	if err != nil {
		return failure(req.ID, fmt.Errorf("asset %s: %w", params.Asset, err))
	}
	q := &CollateralQuote{Asset: a.Key, Amount: params.Amount, Ratio: a.CollateralRatio}
	if a.CollateralEnabled {
		if q.Due, err = core.CollateralDue(a.CollateralRatio, params.Amount, a.Price); err != nil {
			return failure(req.ID, err)
		}
	}
	q.Display = display(q.Due, core.CreditDecimals)
	return okResponse(req.ID, q)
}

// ---- indexes ----

func (h *Handler) getOpenListings(req Request) Response {
	ids, err := h.indexer.OpenListings()
	if err != nil {
		return failure(req.ID, err)
	}
	return okResponse(req.ID, ids)
}

func (h *Handler) indexLookup(req Request, field string, lookup func(string) (any, error)) Response {
	var params map[string]string
	if resp := parse(req, &params); resp != nil {
		return *resp
	}
	if resp := required(req, map[string]string{field: params[field]}); resp != nil {
		return *resp
	}
	v, err := lookup(params[field])
	if err != nil {
		return failure(req.ID, err)
	}
	return okResponse(req.ID, v)
}

func (h *Handler) getListingsBySeller(req Request) Response {
	return h.indexLookup(req, "seller", func(s string) (any, error) { return h.indexer.ListingsBySeller(s) })
}

func (h *Handler) getAssetsByHolder(req Request) Response {
	return h.indexLookup(req, "holder", func(s string) (any, error) { return h.indexer.AssetsByHolder(s) })
}

func (h *Handler) getGamesByOwner(req Request) Response {
	return h.indexLookup(req, "owner", func(s string) (any, error) { return h.indexer.GamesByOwner(s) })
}

func (h *Handler) getAssetsByGame(req Request) Response {
	return h.indexLookup(req, "game", func(s string) (any, error) { return h.indexer.AssetsByGame(s) })
}

func (h *Handler) getTxsByAccount(req Request) Response {
	return h.indexLookup(req, "account", func(s string) (any, error) { return h.indexer.TxsByAccount(s) })
}
