package core

import (
	"encoding/binary"

	"github.com/tolelom/indiechain/crypto"
)

// Fixed singleton addresses.
var (
	MarketplaceKey     = crypto.DeriveStrings("marketplace")
	CreditToken        = crypto.DeriveStrings("credit", "mint")
	CollateralVaultKey = crypto.DeriveStrings("credit", "token_vault")
	VaultAuthorityKey  = crypto.DeriveStrings("credit", "vault_authority")
)

// CreditDecimals is the display precision of the credit currency.
const CreditDecimals = 6

// GameKey identifies the game named name owned by owner.
func GameKey(owner, name string) string {
	return crypto.DeriveStrings("game", owner, name)
}

// AssetKey identifies an asset by name within a game.
func AssetKey(gameKey, name string) string {
	return crypto.DeriveStrings("asset", name, gameKey)
}

// TokenKey is the ledger token backing an asset.
func TokenKey(gameKey, assetKey string) string {
	return crypto.DeriveStrings("token", gameKey, assetKey)
}

// AccountKey is owner's canonical balance account for token.
func AccountKey(token, owner string) string {
	return crypto.DeriveStrings("account", token, owner)
}

// CreditAccountKey is owner's canonical credit balance account.
func CreditAccountKey(owner string) string {
	return AccountKey(CreditToken, owner)
}

// HolderAuthorityKey is the capability address that signs for account.
func HolderAuthorityKey(account string) string {
	return crypto.DeriveStrings("holder", account)
}

// MintAuthorityKey identifies a mint grant for delegate on (asset, game).
func MintAuthorityKey(assetKey, gameKey, delegate string) string {
	return crypto.DeriveStrings("mint_authority", assetKey, gameKey, delegate)
}

// SaleKey identifies the sale created for listingID.
func SaleKey(listingID uint64) string {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], listingID)
	return crypto.Derive([]byte("sale"), le[:])
}

// EscrowAccountKey is the marketplace-custodied balance for a sale.
func EscrowAccountKey(saleKey string) string {
	return crypto.DeriveStrings("escrow", saleKey)
}
