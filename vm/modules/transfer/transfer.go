// Package transfer moves asset balances between holders. The source balance
// is named by its holder authority, which must be held by the caller and
// signs the ledger transfer.
package transfer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/vm"
	"github.com/tolelom/indiechain/vm/modules/asset"
	"github.com/tolelom/indiechain/vm/modules/authority"
)

func init() {
	vm.Register(core.TxTransferAsset, handleTransferAsset)
}

func handleTransferAsset(ctx *vm.Context) error {
	var p core.TransferAssetPayload
	if err := ctx.Tx.DecodePayload(&p); err != nil {
		return err
	}
	if p.Amount == 0 {
		return fmt.Errorf("transfer amount must be positive: %w", core.ErrInvalidArguments)
	}
	if err := authority.ValidPrincipal("to", p.To); err != nil {
		return err
	}

	a, _, err := asset.Load(ctx.State, p.Asset)
	if err != nil {
		return err
	}
	if !a.TradeEnabled {
		return fmt.Errorf("transfer %s: %w", a.Key, core.ErrTransferRestricted)
	}

	caller := ctx.Caller()
	src, err := SourceAuthority(ctx, a, p.Authority)
	if err != nil {
		return err
	}

	to, err := authority.OpenHolderAccount(ctx.State, ctx.Ledger, a.Token, p.To)
	if err != nil {
		return err
	}
	if err := ctx.Ledger.Transfer(a.Token, src.Account, to, p.Amount, src.Key); err != nil {
		return fmt.Errorf("transfer %d %s: %w: %w", p.Amount, a.Name, core.ErrTransferFailed, err)
	}

	ctx.Log.WithFields(logrus.Fields{
		"asset":  a.Key,
		"from":   caller,
		"to":     p.To,
		"amount": p.Amount,
	}).Info("asset transferred")
	ctx.Emit(events.EventAssetTransfer, map[string]any{
		"asset":        a.Key,
		"from":         caller,
		"from_account": src.Account,
		"to":           p.To,
		"to_account":   to,
		"amount":       p.Amount,
	})
	ctx.SetResult(&core.TransferReceipt{
		Asset:  a.Key,
		From:   src.Account,
		To:     to,
		Amount: p.Amount,
	})
	return nil
}

// SourceAuthority resolves the holder authority a caller moves a of. An
// empty key selects the caller's own account. The authority must be held by
// the caller and control an account of a's token.
func SourceAuthority(ctx *vm.Context, a *core.Asset, key string) (*core.HolderAuthority, error) {
	if key == "" {
		key = core.HolderAuthorityKey(core.AccountKey(a.Token, ctx.Caller()))
	}
	h, err := authority.Authorize(ctx.State, key, ctx.Caller())
	if err != nil {
		return nil, err
	}
	acct, err := ctx.Ledger.Account(h.Account)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrNotFound, err)
	}
	if acct.Token != a.Token {
		return nil, fmt.Errorf("authority %s controls a %s account, not %s: %w", key, acct.Token, a.Key, core.ErrRelationMismatch)
	}
	return h, nil
}
