// Package market runs the escrow marketplace. Listing moves the seller's
// asset units into a per-sale escrow account held by the marketplace;
// buying pays the seller in credits and releases the escrow to the buyer.
// Both run inside the executor's transaction snapshot, so a failure in any
// step leaves neither the sale, the counter nor any balance changed.
package market

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/vm"
	"github.com/tolelom/indiechain/vm/modules/asset"
	"github.com/tolelom/indiechain/vm/modules/authority"
	"github.com/tolelom/indiechain/vm/modules/credit"
	"github.com/tolelom/indiechain/vm/modules/transfer"
)

func init() {
	vm.Register(core.TxListMarket, handleListMarket)
	vm.Register(core.TxBuyMarket, handleBuyMarket)
}

func handleListMarket(ctx *vm.Context) error {
	var p core.ListMarketPayload
	if err := ctx.Tx.DecodePayload(&p); err != nil {
		return err
	}
	if p.Price == 0 || p.Amount == 0 {
		return fmt.Errorf("price and amount must be positive: %w", core.ErrInvalidArguments)
	}

	a, _, err := asset.Load(ctx.State, p.Asset)
	if err != nil {
		return err
	}
	if !a.TradeEnabled {
		return fmt.Errorf("list %s: %w", a.Key, core.ErrTransferRestricted)
	}
	m, err := ctx.State.GetMarketplace()
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrMarketplaceNotInitialized
	}
	if err != nil {
		return err
	}

	caller := ctx.Caller()
	src, err := transfer.SourceAuthority(ctx, a, p.Authority)
	if err != nil {
		return err
	}
	creditAccount, err := sellerCreditAccount(ctx, p.CreditAccount)
	if err != nil {
		return err
	}

	if m.NextListingID == math.MaxUint64 {
		return fmt.Errorf("listing counter: %w", core.ErrArithmeticOverflow)
	}
	id := m.NextListingID
	m.NextListingID++
	if err := ctx.State.UpdateMarketplace(m); err != nil {
		return err
	}

	saleKey := core.SaleKey(id)
	escrow := core.EscrowAccountKey(saleKey)
	if err := authority.OpenBoundAccount(ctx.State, ctx.Ledger, a.Token, escrow, core.MarketplaceKey); err != nil {
		return err
	}
	if err := ctx.Ledger.Transfer(a.Token, src.Account, escrow, p.Amount, src.Key); err != nil {
		return fmt.Errorf("escrow %d %s: %w: %w", p.Amount, a.Name, core.ErrTransferFailed, err)
	}

	sale := &core.Sale{
		Key:           saleKey,
		ListingID:     id,
		Asset:         a.Key,
		Token:         a.Token,
		Seller:        caller,
		Price:         p.Price,
		SaleAmount:    p.Amount,
		State:         core.SaleOpen,
		CreditAccount: creditAccount,
		Escrow:        escrow,
		CreatedAt:     ctx.Now(),
	}
	if err := ctx.State.CreateSale(sale); err != nil {
		return err
	}

	ctx.Log.WithFields(logrus.Fields{
		"listing": id,
		"asset":   a.Key,
		"price":   p.Price,
		"amount":  p.Amount,
	}).Info("listing opened")
	ctx.Emit(events.EventMarketList, map[string]any{
		"listing_id": id,
		"sale":       saleKey,
		"asset":      a.Key,
		"seller":     caller,
		"price":      p.Price,
		"amount":     p.Amount,
	})
	ctx.SetResult(sale)
	return nil
}

func handleBuyMarket(ctx *vm.Context) error {
	var p core.BuyMarketPayload
	if err := ctx.Tx.DecodePayload(&p); err != nil {
		return err
	}

	sale, err := ctx.State.GetSale(core.SaleKey(p.ListingID))
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("listing %d: %w", p.ListingID, core.ErrSaleNotFound)
	}
	if err != nil {
		return err
	}
	if sale.State != core.SaleOpen {
		return fmt.Errorf("listing %d: %w", p.ListingID, core.ErrAlreadySettled)
	}
	buyer := ctx.Caller()
	if buyer == sale.Seller {
		return fmt.Errorf("seller cannot buy listing %d: %w", p.ListingID, core.ErrInvalidArguments)
	}

	a, err := ctx.State.GetAsset(sale.Asset)
	if err != nil {
		return fmt.Errorf("sale asset %s: %w", sale.Asset, err)
	}
	if a.Token != sale.Token {
		return fmt.Errorf("sale token %s, asset token %s: %w", sale.Token, a.Token, core.ErrRelationMismatch)
	}
	creditAccount := p.CreditAccount
	if creditAccount == "" {
		creditAccount = core.CreditAccountKey(buyer)
	}
	assetAccount, err := buyerAssetAccount(ctx, a, p.AssetAccount)
	if err != nil {
		return err
	}
	escrowAuth, err := authority.Authorize(ctx.State, core.HolderAuthorityKey(sale.Escrow), core.MarketplaceKey)
	if err != nil {
		return err
	}

	sale.State = core.SaleSettled
	sale.Buyer = buyer
	sale.SettledAt = ctx.Now()
	if err := ctx.State.UpdateSale(sale); err != nil {
		return err
	}

	if err := ctx.Ledger.Transfer(core.CreditToken, creditAccount, sale.CreditAccount, sale.Price, buyer); err != nil {
		return fmt.Errorf("pay listing %d: %w: %w", sale.ListingID, core.ErrPaymentFailed, err)
	}
	if err := ctx.Ledger.Transfer(sale.Token, sale.Escrow, assetAccount, sale.SaleAmount, escrowAuth.Key); err != nil {
		return fmt.Errorf("deliver listing %d: %w: %w", sale.ListingID, core.ErrSettlementFailed, err)
	}

	ctx.Log.WithFields(logrus.Fields{
		"listing": sale.ListingID,
		"buyer":   buyer,
	}).Info("listing settled")
	ctx.Emit(events.EventMarketBuy, map[string]any{
		"listing_id": sale.ListingID,
		"sale":       sale.Key,
		"asset":      sale.Asset,
		"seller":     sale.Seller,
		"buyer":      buyer,
		"price":      sale.Price,
		"amount":     sale.SaleAmount,
	})
	ctx.SetResult(&core.SettlementReceipt{
		ListingID:    sale.ListingID,
		Sale:         sale.Key,
		Buyer:        buyer,
		Paid:         sale.Price,
		Delivered:    sale.SaleAmount,
		AssetAccount: assetAccount,
	})
	return nil
}

// sellerCreditAccount resolves where a sale's proceeds go. The caller's own
// credit account is opened on demand; any other account must already hold
// credits.
func sellerCreditAccount(ctx *vm.Context, account string) (string, error) {
	if account == "" {
		return credit.OpenAccount(ctx.Ledger, ctx.Caller())
	}
	acct, err := ctx.Ledger.Account(account)
	if err != nil {
		return "", fmt.Errorf("credit account: %w: %w", core.ErrNotFound, err)
	}
	if acct.Token != core.CreditToken {
		return "", fmt.Errorf("credit account %s holds %s: %w", account, acct.Token, core.ErrRelationMismatch)
	}
	return account, nil
}

// buyerAssetAccount resolves where the escrowed units are delivered. An
// explicit account must be bound to the buyer and hold the asset's token.
func buyerAssetAccount(ctx *vm.Context, a *core.Asset, account string) (string, error) {
	if account == "" {
		return authority.OpenHolderAccount(ctx.State, ctx.Ledger, a.Token, ctx.Caller())
	}
	h, err := transfer.SourceAuthority(ctx, a, core.HolderAuthorityKey(account))
	if err != nil {
		return "", err
	}
	return h.Account, nil
}
