// Package asset registers asset types under a game and provisions the
// ledger token that backs each one.
package asset

import (
	"errors"
	"fmt"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/ledger"
	"github.com/tolelom/indiechain/vm"
	"github.com/tolelom/indiechain/vm/modules/game"
)

func init() {
	vm.Register(core.TxRegisterAsset, handleRegisterAsset)
}

func handleRegisterAsset(ctx *vm.Context) error {
	var p core.RegisterAssetPayload
	if err := ctx.Tx.DecodePayload(&p); err != nil {
		return err
	}
	if err := core.ValidateAsset(p.Name, p.Symbol, p.URI); err != nil {
		return err
	}

	g, err := game.Load(ctx.State, p.Game)
	if err != nil {
		return err
	}
	if g.Owner != ctx.Caller() {
		return fmt.Errorf("register asset under game %s: %w", g.Key, core.ErrUnauthorized)
	}

	key := core.AssetKey(g.Key, p.Name)
	if _, err := ctx.State.GetAsset(key); err == nil {
		return fmt.Errorf("asset %q in game %s: %w", p.Name, g.Key, core.ErrAlreadyExists)
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	a := &core.Asset{
		Key:               key,
		Game:              g.Key,
		Name:              p.Name,
		Symbol:            p.Symbol,
		URI:               p.URI,
		Price:             p.Price,
		Score:             p.Score,
		TradeEnabled:      p.TradeEnabled,
		CollateralEnabled: p.CollateralEnabled,
		CollateralRatio:   p.CollateralRatio,
		Token:             core.TokenKey(g.Key, key),
		CreatedAt:         ctx.Now(),
	}
	// The token mints only under its own address, which only the registry
	// signs for.
	if _, err := ctx.Ledger.CreateToken(a.Token, a.Token, 0); err != nil {
		if errors.Is(err, ledger.ErrTokenExists) {
			return fmt.Errorf("token for asset %q: %w", p.Name, core.ErrAlreadyExists)
		}
		return err
	}
	if err := ctx.State.SetAsset(a); err != nil {
		return err
	}

	ctx.Log.WithField("asset", a.Key).Info("asset registered")
	ctx.Emit(events.EventAssetRegistered, map[string]any{
		"asset": a.Key,
		"game":  a.Game,
		"name":  a.Name,
		"token": a.Token,
	})
	ctx.SetResult(a)
	return nil
}

// Load returns the asset at key together with its game. A game key on the
// asset that resolves to nothing is a RelationMismatch.
func Load(state core.State, key string) (*core.Asset, *core.Game, error) {
	a, err := state.GetAsset(key)
	if err != nil {
		return nil, nil, fmt.Errorf("asset %s: %w", key, err)
	}
	g, err := state.GetGame(a.Game)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil, fmt.Errorf("asset %s references game %s: %w", key, a.Game, core.ErrRelationMismatch)
	}
	if err != nil {
		return nil, nil, err
	}
	return a, g, nil
}
