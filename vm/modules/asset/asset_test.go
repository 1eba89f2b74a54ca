package asset_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/internal/testutil"
)

func TestRegisterAssetProvisionsToken(t *testing.T) {
	chain := testutil.NewChain(t)
	fx := chain.NewFixture()

	assert.Equal(t, fx.Game.Key, fx.Asset.Game)
	assert.Equal(t, uint64(100), fx.Asset.Price)
	assert.True(t, fx.Asset.TradeEnabled)
	assert.Equal(t, core.TokenKey(fx.Game.Key, fx.Asset.Key), fx.Asset.Token)

	tok, err := chain.Ledger().Token(fx.Asset.Token)
	require.NoError(t, err)
	assert.Equal(t, fx.Asset.Token, tok.Authority)
	assert.Zero(t, tok.Supply)
}

func TestRegisterAssetRequiresGameOwner(t *testing.T) {
	chain := testutil.NewChain(t)
	fx := chain.NewFixture()
	mallory := chain.Wallet()

	_, err := chain.Send(mallory, core.TxRegisterAsset, core.RegisterAssetPayload{Game: fx.Game.Key, Name: "Axe"})
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = chain.Send(mallory, core.TxRegisterAsset, core.RegisterAssetPayload{Game: "missing", Name: "Axe"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRegisterAssetValidation(t *testing.T) {
	chain := testutil.NewChain(t)
	fx := chain.NewFixture()

	_, err := chain.Send(fx.Owner, core.TxRegisterAsset, core.RegisterAssetPayload{Game: fx.Game.Key, Name: "Sword"})
	assert.ErrorIs(t, err, core.ErrAlreadyExists)

	for _, p := range []core.RegisterAssetPayload{
		{Name: strings.Repeat("n", 20)},
		{Name: "Bow", Symbol: "ABCDE"},
		{Name: "Bow", URI: strings.Repeat("u", 20)},
	} {
		p.Game = fx.Game.Key
		_, err := chain.Send(fx.Owner, core.TxRegisterAsset, p)
		assert.ErrorIs(t, err, core.ErrInvalidArguments, "payload %+v", p)
	}
}
