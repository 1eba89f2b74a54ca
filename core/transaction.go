package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tolelom/indiechain/crypto"
)

// TxType identifies the kind of operation a transaction performs.
type TxType string

const (
	TxRegisterGame       TxType = "register_game"
	TxRegisterAsset      TxType = "register_asset"
	TxGrantMintAuthority TxType = "grant_mint_authority"
	TxBindHolder         TxType = "bind_holder"
	TxMintAsset          TxType = "mint_asset"
	TxTransferAsset      TxType = "transfer_asset"
	TxListMarket         TxType = "list_market"
	TxBuyMarket          TxType = "buy_market"
	TxCreditMint         TxType = "credit_mint"
	TxCreditTransfer     TxType = "credit_transfer"
)

// Transaction is the atomic unit of work on the chain.
// From holds the caller's hex-encoded ed25519 public key and is the verified
// principal every handler authorizes against.
type Transaction struct {
	ID        string          `json:"id"`
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// signedFields is every field the signature covers, in wire order.
type signedFields struct {
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Hash is the digest of the signed fields. It doubles as the tx ID. A
// payload that is not valid JSON hashes to "".
func (tx *Transaction) Hash() string {
	data, err := json.Marshal(signedFields{
		tx.ChainID, tx.Type, tx.From, tx.Nonce, tx.Fee, tx.Timestamp, tx.Payload,
	})
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign sets ID and Signature.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	tx.ID = tx.Hash()
	tx.Signature = crypto.Sign(priv, []byte(tx.ID))
}

// Verify checks that ID is the body hash and that From signed it.
func (tx *Transaction) Verify() error {
	pub, err := crypto.PubKeyFromHex(tx.From)
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if want := tx.Hash(); want == "" || tx.ID != want {
		return fmt.Errorf("tx id %q does not match body hash %q", tx.ID, want)
	}
	return crypto.Verify(pub, []byte(tx.ID), tx.Signature)
}

// DecodePayload unmarshals the payload into v, reporting malformed input as
// ErrInvalidArguments.
func (tx *Transaction) DecodePayload(v any) error {
	if err := json.Unmarshal(tx.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", tx.Type, err, ErrInvalidArguments)
	}
	return nil
}

// NewTransaction creates an unsigned transaction with the current timestamp.
func NewTransaction(chainID string, typ TxType, from string, nonce, fee uint64, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Transaction{
		ChainID:   chainID,
		Type:      typ,
		From:      from,
		Nonce:     nonce,
		Fee:       fee,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// ---- Payload types ----

// RegisterGamePayload creates a game owned by the caller.
type RegisterGamePayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RegisterAssetPayload creates an asset under a game the caller owns.
// CollateralRatio is a percentage applied to amount*price on mint.
type RegisterAssetPayload struct {
	Game              string `json:"game"`
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	URI               string `json:"uri"`
	Price             uint64 `json:"price"`
	Score             uint8  `json:"score"`
	TradeEnabled      bool   `json:"trade_enabled"`
	CollateralEnabled bool   `json:"collateral_enabled"`
	CollateralRatio   uint64 `json:"collateral_ratio"`
}

// GrantMintAuthorityPayload lets Delegate mint Asset of Game.
type GrantMintAuthorityPayload struct {
	Asset    string `json:"asset"`
	Game     string `json:"game"`
	Delegate string `json:"delegate"`
}

// BindHolderPayload binds Holder's balance account for Asset.
type BindHolderPayload struct {
	Asset  string `json:"asset"`
	Holder string `json:"holder"`
}

// MintAssetPayload mints Amount units of Asset to Recipient.
type MintAssetPayload struct {
	Asset     string `json:"asset"`
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
}

// TransferAssetPayload moves Amount units of Asset out of the balance that
// Authority (a holder-authority address) controls. An empty Authority means
// the caller's own account.
type TransferAssetPayload struct {
	Asset     string `json:"asset"`
	Authority string `json:"authority,omitempty"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`
}

// ListMarketPayload escrows Amount units of Asset for sale at Price credits.
// Authority defaults to the caller's own holder authority and CreditAccount
// to the caller's credit account.
type ListMarketPayload struct {
	Asset         string `json:"asset"`
	Authority     string `json:"authority,omitempty"`
	Price         uint64 `json:"price"`
	Amount        uint64 `json:"amount"`
	CreditAccount string `json:"credit_account,omitempty"`
}

// BuyMarketPayload settles an open sale. Empty account fields default to the
// caller's canonical credit and asset accounts.
type BuyMarketPayload struct {
	ListingID     uint64 `json:"listing_id"`
	CreditAccount string `json:"credit_account,omitempty"`
	AssetAccount  string `json:"asset_account,omitempty"`
}

// CreditMintPayload issues credits to To. Only the credit issuer may send it.
type CreditMintPayload struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// CreditTransferPayload moves credits from the caller to To.
type CreditTransferPayload struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}
