// Package credit runs the credit currency used for purchases and collateral.
// The issuer named at genesis is the only principal that can mint credits.
package credit

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/ledger"
	"github.com/tolelom/indiechain/vm"
	"github.com/tolelom/indiechain/vm/modules/authority"
)

func init() {
	vm.Register(core.TxCreditMint, handleCreditMint)
	vm.Register(core.TxCreditTransfer, handleCreditTransfer)
}

// Bootstrap creates the credit token with issuer as mint authority and the
// collateral vault account.
func Bootstrap(l *ledger.Ledger, issuer string) error {
	if _, err := l.CreateToken(core.CreditToken, issuer, core.CreditDecimals); err != nil {
		return fmt.Errorf("create credit token: %w", err)
	}
	if _, err := l.OpenAccount(core.CollateralVaultKey, core.CreditToken, core.VaultAuthorityKey); err != nil {
		return fmt.Errorf("open collateral vault: %w", err)
	}
	return nil
}

// OpenAccount returns owner's credit account, opening it if needed.
func OpenAccount(l *ledger.Ledger, owner string) (string, error) {
	account := core.CreditAccountKey(owner)
	if _, err := l.EnsureAccount(account, core.CreditToken, owner); err != nil {
		if errors.Is(err, ledger.ErrUnknownToken) {
			return "", fmt.Errorf("credit token: %w", core.ErrNotFound)
		}
		return "", err
	}
	return account, nil
}

func handleCreditMint(ctx *vm.Context) error {
	var p core.CreditMintPayload
	if err := ctx.Tx.DecodePayload(&p); err != nil {
		return err
	}
	if p.Amount == 0 {
		return fmt.Errorf("credit amount must be positive: %w", core.ErrInvalidArguments)
	}
	if err := authority.ValidPrincipal("to", p.To); err != nil {
		return err
	}
	tok, err := ctx.Ledger.Token(core.CreditToken)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrNotFound, err)
	}
	if tok.Authority != ctx.Caller() {
		return fmt.Errorf("credit mint by %s: %w", ctx.Caller(), core.ErrUnauthorized)
	}
	account, err := OpenAccount(ctx.Ledger, p.To)
	if err != nil {
		return err
	}
	if err := ctx.Ledger.Mint(core.CreditToken, account, p.Amount, ctx.Caller()); err != nil {
		return fmt.Errorf("mint %d credits: %w: %w", p.Amount, core.ErrMintFailed, err)
	}
	balance, err := ctx.Ledger.BalanceOf(core.CreditToken, account)
	if err != nil {
		return err
	}

	ctx.Log.WithFields(logrus.Fields{
		"to":     p.To,
		"amount": p.Amount,
	}).Info("credits minted")
	ctx.Emit(events.EventCreditMinted, map[string]any{
		"to":     p.To,
		"amount": p.Amount,
	})
	ctx.SetResult(&core.CreditReceipt{To: p.To, Account: account, Amount: p.Amount, Balance: balance})
	return nil
}

func handleCreditTransfer(ctx *vm.Context) error {
	var p core.CreditTransferPayload
	if err := ctx.Tx.DecodePayload(&p); err != nil {
		return err
	}
	if p.Amount == 0 {
		return fmt.Errorf("credit amount must be positive: %w", core.ErrInvalidArguments)
	}
	if err := authority.ValidPrincipal("to", p.To); err != nil {
		return err
	}
	to, err := OpenAccount(ctx.Ledger, p.To)
	if err != nil {
		return err
	}
	from := core.CreditAccountKey(ctx.Caller())
	if err := ctx.Ledger.Transfer(core.CreditToken, from, to, p.Amount, ctx.Caller()); err != nil {
		return fmt.Errorf("transfer %d credits: %w: %w", p.Amount, core.ErrTransferFailed, err)
	}
	balance, err := ctx.Ledger.BalanceOf(core.CreditToken, to)
	if err != nil {
		return err
	}

	ctx.Log.WithFields(logrus.Fields{
		"to":     p.To,
		"amount": p.Amount,
	}).Info("credits transferred")
	ctx.Emit(events.EventCreditTransfer, map[string]any{
		"from":   ctx.Caller(),
		"to":     p.To,
		"amount": p.Amount,
	})
	ctx.SetResult(&core.CreditReceipt{From: ctx.Caller(), To: p.To, Account: to, Amount: p.Amount, Balance: balance})
	return nil
}
