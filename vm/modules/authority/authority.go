// Package authority keeps the capability records that decide who may mint
// an asset and who may move a balance.
//
// A MintAuthority lets a delegate mint one asset of one game. A
// HolderAuthority binds a balance account to the principal allowed to move
// it; the account's ledger authority is the holder-authority address, so
// every ledger call on the account is signed with that capability after the
// holder has been checked against the caller.
package authority

import (
	"errors"
	"fmt"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/crypto"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/ledger"
	"github.com/tolelom/indiechain/vm"
	"github.com/tolelom/indiechain/vm/modules/game"
)

func init() {
	vm.Register(core.TxGrantMintAuthority, handleGrantMintAuthority)
	vm.Register(core.TxBindHolder, handleBindHolder)
}

func handleGrantMintAuthority(ctx *vm.Context) error {
	var p core.GrantMintAuthorityPayload
	if err := ctx.Tx.DecodePayload(&p); err != nil {
		return err
	}
	m, err := GrantMint(ctx.State, ctx.Caller(), p.Asset, p.Game, p.Delegate, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Emit(events.EventMintGranted, map[string]any{
		"authority": m.Key,
		"asset":     m.Asset,
		"game":      m.Game,
		"delegate":  m.Delegate,
	})
	ctx.SetResult(m)
	return nil
}

func handleBindHolder(ctx *vm.Context) error {
	var p core.BindHolderPayload
	if err := ctx.Tx.DecodePayload(&p); err != nil {
		return err
	}
	if p.Holder != ctx.Caller() {
		return fmt.Errorf("bind holder %s: %w", p.Holder, core.ErrUnauthorized)
	}
	a, err := ctx.State.GetAsset(p.Asset)
	if err != nil {
		return fmt.Errorf("asset %s: %w", p.Asset, err)
	}
	account, err := OpenHolderAccount(ctx.State, ctx.Ledger, a.Token, p.Holder)
	if err != nil {
		return err
	}
	h, err := ctx.State.GetHolderAuthority(core.HolderAuthorityKey(account))
	if err != nil {
		return err
	}
	ctx.Emit(events.EventHolderBound, map[string]any{
		"authority": h.Key,
		"account":   h.Account,
		"holder":    h.Holder,
		"asset":     a.Key,
	})
	ctx.SetResult(h)
	return nil
}

// ValidPrincipal reports a malformed principal id as ErrInvalidArguments.
func ValidPrincipal(field, id string) error {
	if _, err := crypto.PubKeyFromHex(id); err != nil {
		return fmt.Errorf("%s %q is not a public key: %w", field, id, core.ErrInvalidArguments)
	}
	return nil
}

// GrantMint records that delegate may mint assetKey of gameKey. Only the
// game's owner may grant, and the asset must belong to that game.
func GrantMint(state core.State, caller, assetKey, gameKey, delegate string, now int64) (*core.MintAuthority, error) {
	if err := ValidPrincipal("delegate", delegate); err != nil {
		return nil, err
	}
	g, err := game.Load(state, gameKey)
	if err != nil {
		return nil, err
	}
	if g.Owner != caller {
		return nil, fmt.Errorf("grant on game %s: %w", gameKey, core.ErrUnauthorized)
	}
	a, err := state.GetAsset(assetKey)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", assetKey, err)
	}
	if a.Game != gameKey {
		return nil, fmt.Errorf("asset %s belongs to game %s, not %s: %w", assetKey, a.Game, gameKey, core.ErrRelationMismatch)
	}

	key := core.MintAuthorityKey(assetKey, gameKey, delegate)
	if _, err := state.GetMintAuthority(key); err == nil {
		return nil, fmt.Errorf("mint authority for %s: %w", delegate, core.ErrAlreadyExists)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	m := &core.MintAuthority{
		Key:       key,
		Asset:     assetKey,
		Game:      gameKey,
		Delegate:  delegate,
		GrantedBy: caller,
		CreatedAt: now,
	}
	if err := state.SetMintAuthority(m); err != nil {
		return nil, err
	}
	return m, nil
}

// CheckMint returns nil if caller owns the asset's game or holds a mint
// grant for exactly (asset, asset.Game).
func CheckMint(state core.State, a *core.Asset, g *core.Game, caller string) error {
	if g.Owner == caller {
		return nil
	}
	_, err := state.GetMintAuthority(core.MintAuthorityKey(a.Key, a.Game, caller))
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("mint %s by %s: %w", a.Key, caller, core.ErrUnauthorized)
	}
	return err
}

// BindHolder binds account to holder. Binding an already bound account to
// the same holder is a no-op; a different holder fails with ErrAlreadyBound.
func BindHolder(state core.State, account, holder string) (*core.HolderAuthority, error) {
	key := core.HolderAuthorityKey(account)
	h, err := state.GetHolderAuthority(key)
	switch {
	case err == nil:
		if h.Holder != holder {
			return nil, fmt.Errorf("account %s held by %s: %w", account, h.Holder, core.ErrAlreadyBound)
		}
		return h, nil
	case !errors.Is(err, core.ErrNotFound):
		return nil, err
	}
	h = &core.HolderAuthority{Key: key, Account: account, Holder: holder}
	if err := state.SetHolderAuthority(h); err != nil {
		return nil, err
	}
	return h, nil
}

// OpenHolderAccount returns owner's canonical balance account for token,
// binding it to owner and opening it on the ledger if needed.
func OpenHolderAccount(state core.State, l *ledger.Ledger, token, owner string) (string, error) {
	account := core.AccountKey(token, owner)
	if err := OpenBoundAccount(state, l, token, account, owner); err != nil {
		return "", err
	}
	return account, nil
}

// OpenBoundAccount binds account to holder and opens it for token with the
// holder-authority address as its ledger authority.
func OpenBoundAccount(state core.State, l *ledger.Ledger, token, account, holder string) error {
	h, err := BindHolder(state, account, holder)
	if err != nil {
		return err
	}
	if _, err := l.EnsureAccount(account, token, h.Key); err != nil {
		if errors.Is(err, ledger.ErrTokenMismatch) {
			return fmt.Errorf("open account %s: %w: %w", account, core.ErrRelationMismatch, err)
		}
		return fmt.Errorf("open account %s: %w", account, err)
	}
	return nil
}

// Authorize loads the holder authority at key and checks that caller is its
// holder.
func Authorize(state core.State, key, caller string) (*core.HolderAuthority, error) {
	h, err := state.GetHolderAuthority(key)
	if err != nil {
		return nil, fmt.Errorf("holder authority %s: %w", key, err)
	}
	if h.Holder != caller {
		return nil, fmt.Errorf("account %s is held by %s: %w", h.Account, h.Holder, core.ErrUnauthorized)
	}
	return h, nil
}
