package transfer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/internal/testutil"
)

func TestTransferAsset(t *testing.T) {
	chain := testutil.NewChain(t)
	fx := chain.NewFixture()
	bob := chain.Wallet()
	carol := chain.Wallet()
	chain.Must(fx.Owner, core.TxMintAsset, core.MintAssetPayload{Asset: fx.Asset.Key, Amount: 50, Recipient: bob.PubKey()})

	chain.Must(bob, core.TxTransferAsset, core.TransferAssetPayload{Asset: fx.Asset.Key, To: carol.PubKey(), Amount: 20})
	assert.Equal(t, uint64(30), chain.AssetBalance(fx.Asset.Key, bob.PubKey()))
	assert.Equal(t, uint64(20), chain.AssetBalance(fx.Asset.Key, carol.PubKey()))

	// carol can now move what she received
	chain.Must(carol, core.TxTransferAsset, core.TransferAssetPayload{Asset: fx.Asset.Key, To: bob.PubKey(), Amount: 20})
	assert.Equal(t, uint64(50), chain.AssetBalance(fx.Asset.Key, bob.PubKey()))
}

func TestTransferInsufficientBalance(t *testing.T) {
	chain := testutil.NewChain(t)
	fx := chain.NewFixture()
	bob := chain.Wallet()
	carol := chain.Wallet()
	chain.Must(fx.Owner, core.TxMintAsset, core.MintAssetPayload{Asset: fx.Asset.Key, Amount: 5, Recipient: bob.PubKey()})

	_, err := chain.Send(bob, core.TxTransferAsset, core.TransferAssetPayload{Asset: fx.Asset.Key, To: carol.PubKey(), Amount: 6})
	assert.ErrorIs(t, err, core.ErrTransferFailed)
	assert.Equal(t, uint64(5), chain.AssetBalance(fx.Asset.Key, bob.PubKey()))
	assert.Zero(t, chain.AssetBalance(fx.Asset.Key, carol.PubKey()))
}

func TestTransferRequiresHolder(t *testing.T) {
	chain := testutil.NewChain(t)
	fx := chain.NewFixture()
	bob := chain.Wallet()
	mallory := chain.Wallet()
	chain.Must(fx.Owner, core.TxMintAsset, core.MintAssetPayload{Asset: fx.Asset.Key, Amount: 5, Recipient: bob.PubKey()})

	bobAuth := core.HolderAuthorityKey(core.AccountKey(fx.Asset.Token, bob.PubKey()))
	_, err := chain.Send(mallory, core.TxTransferAsset, core.TransferAssetPayload{
		Asset:     fx.Asset.Key,
		Authority: bobAuth,
		To:        mallory.PubKey(),
		Amount:    5,
	})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	assert.Equal(t, uint64(5), chain.AssetBalance(fx.Asset.Key, bob.PubKey()))

	// no account of her own yet
	_, err = chain.Send(mallory, core.TxTransferAsset, core.TransferAssetPayload{Asset: fx.Asset.Key, To: bob.PubKey(), Amount: 1})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestTransferRestricted(t *testing.T) {
	chain := testutil.NewChain(t)
	owner := chain.Wallet()
	bob := chain.Wallet()
	g := chain.RegisterGame(owner, "RPG")
	a := chain.RegisterAsset(owner, g, core.RegisterAssetPayload{Name: "Soulbound", Price: 1})
	chain.Must(owner, core.TxMintAsset, core.MintAssetPayload{Asset: a.Key, Amount: 5, Recipient: owner.PubKey()})

	_, err := chain.Send(owner, core.TxTransferAsset, core.TransferAssetPayload{Asset: a.Key, To: bob.PubKey(), Amount: 1})
	assert.ErrorIs(t, err, core.ErrTransferRestricted)
	assert.Equal(t, uint64(5), chain.AssetBalance(a.Key, owner.PubKey()))
}
