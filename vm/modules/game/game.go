// Package game registers games. A game is keyed by (owner, name) and owns
// the assets registered under it.
package game

import (
	"errors"
	"fmt"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/vm"
)

func init() {
	vm.Register(core.TxRegisterGame, handleRegisterGame)
}

func handleRegisterGame(ctx *vm.Context) error {
	var p core.RegisterGamePayload
	if err := ctx.Tx.DecodePayload(&p); err != nil {
		return err
	}
	g, err := Register(ctx.State, ctx.Caller(), p.Name, p.Description, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Emit(events.EventGameRegistered, map[string]any{
		"game":  g.Key,
		"owner": g.Owner,
		"name":  g.Name,
	})
	ctx.SetResult(g)
	return nil
}

// Register creates the game (owner, name).
func Register(state core.State, owner, name, description string, now int64) (*core.Game, error) {
	if err := core.ValidateGame(name, description); err != nil {
		return nil, err
	}
	key := core.GameKey(owner, name)
	if _, err := state.GetGame(key); err == nil {
		return nil, fmt.Errorf("game %q of %s: %w", name, owner, core.ErrAlreadyExists)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	g := &core.Game{
		Key:         key,
		Owner:       owner,
		Name:        name,
		Description: description,
		CreatedAt:   now,
	}
	if err := state.SetGame(g); err != nil {
		return nil, err
	}
	return g, nil
}

// Load returns the game at key, reporting a missing record as ErrNotFound.
func Load(state core.State, key string) (*core.Game, error) {
	g, err := state.GetGame(key)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", key, err)
	}
	return g, nil
}
