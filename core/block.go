package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tolelom/indiechain/crypto"
)

// BlockHeader is the hashed and signed part of a block.
type BlockHeader struct {
	Height    int64  `json:"height"`
	PrevHash  string `json:"prev_hash"`
	StateRoot string `json:"state_root"` // state after the block's transactions
	TxRoot    string `json:"tx_root"`
	Timestamp int64  `json:"timestamp"`
	Proposer  string `json:"proposer"` // validator principal id
}

// Block holds the transactions that succeeded in one round. Transactions
// that failed are not part of the block; only their receipts survive.
type Block struct {
	Header       BlockHeader    `json:"header"`
	Transactions []*Transaction `json:"transactions"`
	Hash         string         `json:"hash"`
	Signature    string         `json:"signature"`
}

// NewBlock creates an unsigned block at height on top of prevHash.
func NewBlock(height int64, prevHash, proposer string, txs []*Transaction) *Block {
	b := &Block{
		Header: BlockHeader{
			Height:    height,
			PrevHash:  prevHash,
			Timestamp: time.Now().UnixNano(),
			Proposer:  proposer,
		},
	}
	b.SetTransactions(txs)
	return b
}

// SetTransactions replaces the block body and its tx root.
func (b *Block) SetTransactions(txs []*Transaction) {
	b.Transactions = txs
	b.Header.TxRoot = ComputeTxRoot(txs)
}

// ComputeHash hashes the JSON-encoded header.
func (b *Block) ComputeHash() string {
	data, _ := json.Marshal(b.Header) // plain struct of strings and ints
	return crypto.Hash(data)
}

// Sign seals the header: it sets Hash and the proposer's signature over it.
func (b *Block) Sign(priv crypto.PrivateKey) {
	b.Hash = b.ComputeHash()
	b.Signature = crypto.Sign(priv, []byte(b.Hash))
}

// Verify checks that Hash matches the header and was signed by the
// header's proposer.
func (b *Block) Verify() error {
	if b.Hash != b.ComputeHash() {
		return errors.New("block hash does not match header")
	}
	pub, err := crypto.PubKeyFromHex(b.Header.Proposer)
	if err != nil {
		return fmt.Errorf("proposer: %w", err)
	}
	return crypto.Verify(pub, []byte(b.Hash), b.Signature)
}

// ComputeTxRoot commits to the ordered transaction ids.
func ComputeTxRoot(txs []*Transaction) string {
	ids := make([]string, 0, len(txs)+1)
	ids = append(ids, "txroot")
	for _, tx := range txs {
		ids = append(ids, tx.ID)
	}
	return crypto.DeriveStrings(ids...)
}
