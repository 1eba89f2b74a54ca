package core

import "encoding/json"

// ReceiptStatus reports whether a transaction was applied.
type ReceiptStatus string

const (
	ReceiptSuccess ReceiptStatus = "success"
	ReceiptFailed  ReceiptStatus = "failed"
)

// Receipt records the outcome of one transaction. Failed receipts carry the
// error kind so clients can tell a permission problem from a state-machine
// violation without parsing messages.
type Receipt struct {
	TxID        string          `json:"tx_id"`
	Type        TxType          `json:"type"`
	From        string          `json:"from"`
	BlockHeight int64           `json:"block_height"`
	Status      ReceiptStatus   `json:"status"`
	Kind        string          `json:"kind,omitempty"`
	Error       string          `json:"error,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// NewFailedReceipt builds a receipt for tx that failed with err.
func NewFailedReceipt(tx *Transaction, height int64, err error) *Receipt {
	return &Receipt{
		TxID:        tx.ID,
		Type:        tx.Type,
		From:        tx.From,
		BlockHeight: height,
		Status:      ReceiptFailed,
		Kind:        KindOf(err).String(),
		Error:       err.Error(),
	}
}

// MintReceipt is the result of a successful mint_asset.
type MintReceipt struct {
	Asset      string `json:"asset"`
	Recipient  string `json:"recipient"`
	Account    string `json:"account"`
	Amount     uint64 `json:"amount"`
	Collateral uint64 `json:"collateral"`
}

// TransferReceipt is the result of a successful transfer_asset.
type TransferReceipt struct {
	Asset  string `json:"asset"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// SettlementReceipt is the result of a successful buy_market.
type SettlementReceipt struct {
	ListingID    uint64 `json:"listing_id"`
	Sale         string `json:"sale"`
	Buyer        string `json:"buyer"`
	Paid         uint64 `json:"paid"`
	Delivered    uint64 `json:"delivered"`
	AssetAccount string `json:"asset_account"`
}

// CreditReceipt is the result of credit_mint and credit_transfer. From is
// empty for a mint; Balance is the receiving account's balance afterwards.
type CreditReceipt struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
	Balance uint64 `json:"balance"`
}
