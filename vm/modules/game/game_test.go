package game_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/internal/testutil"
)

func TestRegisterGame(t *testing.T) {
	chain := testutil.NewChain(t)
	alice := chain.Wallet()

	g := chain.RegisterGame(alice, "RPG")
	assert.Equal(t, alice.PubKey(), g.Owner)
	assert.Equal(t, "RPG", g.Name)
	assert.Equal(t, "desc", g.Description)
	assert.Equal(t, core.GameKey(alice.PubKey(), "RPG"), g.Key)
}

func TestRegisterGameKeyIsUnique(t *testing.T) {
	chain := testutil.NewChain(t)
	alice := chain.Wallet()
	bob := chain.Wallet()
	chain.RegisterGame(alice, "RPG")

	_, err := chain.Send(alice, core.TxRegisterGame, core.RegisterGamePayload{Name: "RPG", Description: "other"})
	assert.ErrorIs(t, err, core.ErrAlreadyExists)

	// the same name under another owner is a different key
	chain.RegisterGame(bob, "RPG")
}

func TestRegisterGameLengthLimits(t *testing.T) {
	chain := testutil.NewChain(t)
	alice := chain.Wallet()

	for _, p := range []core.RegisterGamePayload{
		{Name: "", Description: "desc"},
		{Name: "ElevenChars", Description: "desc"},
		{Name: "RPG", Description: strings.Repeat("x", 51)},
	} {
		_, err := chain.Send(alice, core.TxRegisterGame, p)
		assert.ErrorIs(t, err, core.ErrInvalidArguments, "payload %+v", p)
	}

	_, err := chain.Send(alice, core.TxRegisterGame, core.RegisterGamePayload{
		Name:        "TenChars!!",
		Description: strings.Repeat("x", 50),
	})
	require.NoError(t, err)
}
