// Package mint issues asset units to holders. Minting is open to the game
// owner and to delegates holding a mint grant, and optionally locks credit
// collateral in the vault.
package mint

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
	vm.Register(core.TxMintAsset, handleMintAsset)
}

func handleMintAsset(ctx *vm.Context) error {
	var p core.MintAssetPayload
	if err := ctx.Tx.DecodePayload(&p); err != nil {
		return err
	}
	if p.Amount == 0 {
		return fmt.Errorf("mint amount must be positive: %w", core.ErrInvalidArguments)
	}
	if err := authority.ValidPrincipal("recipient", p.Recipient); err != nil {
		return err
	}

	a, g, err := asset.Load(ctx.State, p.Asset)
	if err != nil {
		return err
	}
	caller := ctx.Caller()
	if err := authority.CheckMint(ctx.State, a, g, caller); err != nil {
		return err
	}

	account, err := authority.OpenHolderAccount(ctx.State, ctx.Ledger, a.Token, p.Recipient)
	if err != nil {
		return err
	}
	if err := ctx.Ledger.Mint(a.Token, account, p.Amount, a.Token); err != nil {
		return fmt.Errorf("mint %d %s: %w: %w", p.Amount, a.Name, core.ErrMintFailed, err)
	}

	var collateral uint64
	if a.CollateralEnabled {
		if collateral, err = core.CollateralDue(a.CollateralRatio, p.Amount, a.Price); err != nil {
			return err
		}
		if collateral > 0 {
			from := core.CreditAccountKey(caller)
			if err := ctx.Ledger.Transfer(core.CreditToken, from, core.CollateralVaultKey, collateral, caller); err != nil {
				return fmt.Errorf("lock collateral %d: %w: %w", collateral, core.ErrMintFailed, err)
			}
			ctx.Emit(events.EventCollateral, map[string]any{
				"asset":  a.Key,
				"payer":  caller,
				"amount": collateral,
			})
		}
	}

	ctx.Log.WithFields(logrus.Fields{
		"asset":      a.Key,
		"recipient":  p.Recipient,
		"amount":     p.Amount,
		"collateral": collateral,
	}).Info("asset minted")
	ctx.Emit(events.EventAssetMinted, map[string]any{
		"asset":   a.Key,
		"holder":  p.Recipient,
		"account": account,
		"amount":  p.Amount,
	})
	ctx.SetResult(&core.MintReceipt{
		Asset:      a.Key,
		Recipient:  p.Recipient,
		Account:    account,
		Amount:     p.Amount,
		Collateral: collateral,
	})
	return nil
}
