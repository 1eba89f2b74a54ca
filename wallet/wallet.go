package wallet

import (
	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/crypto"
)

// Wallet holds a key pair bound to one chain and builds signed transactions.
type Wallet struct {
	chainID string
	priv    crypto.PrivateKey
	pub     crypto.PublicKey
}

// New creates a Wallet for chainID from an existing private key.
func New(chainID string, priv crypto.PrivateKey) *Wallet {
	return &Wallet{chainID: chainID, priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate(chainID string) (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(chainID, priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the hex-encoded public key, the principal id on chain.
func (w *Wallet) PubKey() string {
	return w.pub.Hex()
}

// Address returns the short human-readable address.
func (w *Wallet) Address() string {
	return w.pub.Address()
}

// NewTx creates a signed transaction. nonce should match the account's
// current nonce.
func (w *Wallet) NewTx(typ core.TxType, nonce, fee uint64, payload any) (*core.Transaction, error) {
	tx, err := core.NewTransaction(w.chainID, typ, w.pub.Hex(), nonce, fee, payload)
	if err != nil {
		return nil, err
	}
	tx.Sign(w.priv)
	return tx, nil
}

// RegisterGame builds a register_game transaction owned by this wallet.
func (w *Wallet) RegisterGame(nonce uint64, name, description string) (*core.Transaction, error) {
	return w.NewTx(core.TxRegisterGame, nonce, 0, core.RegisterGamePayload{
		Name:        name,
		Description: description,
	})
}

// RegisterAsset builds a register_asset transaction.
func (w *Wallet) RegisterAsset(nonce uint64, p core.RegisterAssetPayload) (*core.Transaction, error) {
	return w.NewTx(core.TxRegisterAsset, nonce, 0, p)
}

// GrantMint builds a grant_mint_authority transaction.
func (w *Wallet) GrantMint(nonce uint64, asset, game, delegate string) (*core.Transaction, error) {
	return w.NewTx(core.TxGrantMintAuthority, nonce, 0, core.GrantMintAuthorityPayload{
		Asset:    asset,
		Game:     game,
		Delegate: delegate,
	})
}

// BindHolder builds a bind_holder transaction for this wallet's own account.
func (w *Wallet) BindHolder(nonce uint64, asset string) (*core.Transaction, error) {
	return w.NewTx(core.TxBindHolder, nonce, 0, core.BindHolderPayload{
		Asset:  asset,
		Holder: w.PubKey(),
	})
}

// Mint builds a mint_asset transaction.
func (w *Wallet) Mint(nonce uint64, asset string, amount uint64, recipient string) (*core.Transaction, error) {
	return w.NewTx(core.TxMintAsset, nonce, 0, core.MintAssetPayload{
		Asset:     asset,
		Amount:    amount,
		Recipient: recipient,
	})
}

// TransferAsset builds a transfer_asset transaction from this wallet's own
// account.
func (w *Wallet) TransferAsset(nonce uint64, asset, to string, amount uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxTransferAsset, nonce, 0, core.TransferAssetPayload{
		Asset:  asset,
		To:     to,
		Amount: amount,
	})
}

// List builds a list_market transaction paying proceeds to this wallet's
// credit account.
func (w *Wallet) List(nonce uint64, asset string, price, amount uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxListMarket, nonce, 0, core.ListMarketPayload{
		Asset:  asset,
		Price:  price,
		Amount: amount,
	})
}

// Buy builds a buy_market transaction settling into this wallet's accounts.
func (w *Wallet) Buy(nonce, listingID uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxBuyMarket, nonce, 0, core.BuyMarketPayload{ListingID: listingID})
}

// CreditMint builds a credit_mint transaction. Only the issuer's wallet can
// get it applied.
func (w *Wallet) CreditMint(nonce uint64, to string, amount uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxCreditMint, nonce, 0, core.CreditMintPayload{To: to, Amount: amount})
}

// CreditTransfer builds a credit_transfer transaction.
func (w *Wallet) CreditTransfer(nonce uint64, to string, amount uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxCreditTransfer, nonce, 0, core.CreditTransferPayload{To: to, Amount: amount})
}
