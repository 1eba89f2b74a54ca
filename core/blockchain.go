package core

import (
	"errors"
	"fmt"
	"sync"
)

// Chain linkage errors returned by AddBlock.
var (
	ErrHeightGap      = errors.New("block does not follow the tip")
	ErrParentMismatch = errors.New("block does not reference the tip")
)

// BlockStore persists blocks and the tip pointer. Getters return ErrNotFound
// for unknown blocks.
type BlockStore interface {
	GetBlock(hash string) (*Block, error)
	GetBlockByHeight(height int64) (*Block, error)
	// GetTip returns the tip hash, or "" for a fresh chain.
	GetTip() (string, error)
	// CommitBlock stores the block, its height entry and the new tip
	// atomically.
	CommitBlock(block *Block) error
}

// Blockchain is the canonical chain over a BlockStore. The tip is cached;
// everything else is read through.
type Blockchain struct {
	store BlockStore

	mu  sync.RWMutex
	tip *Block
}

// NewBlockchain returns a Blockchain over store. Call Init before use on a
// store that may already hold blocks.
func NewBlockchain(store BlockStore) *Blockchain {
	return &Blockchain{store: store}
}

// Init loads the stored tip.
func (bc *Blockchain) Init() error {
	hash, err := bc.store.GetTip()
	if err != nil || hash == "" {
		return err
	}
	tip, err := bc.store.GetBlock(hash)
	if err != nil {
		return fmt.Errorf("load tip %s: %w", hash, err)
	}
	bc.mu.Lock()
	bc.tip = tip
	bc.mu.Unlock()
	return nil
}

// AddBlock appends block to the tip. The first block is the genesis block at
// height 0; each later block must sit one above the tip and name it as
// parent.
func (bc *Blockchain) AddBlock(block *Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	want := int64(0)
	if bc.tip != nil {
		want = bc.tip.Header.Height + 1
		if block.Header.PrevHash != bc.tip.Hash {
			return fmt.Errorf("%w: parent %s, tip %s", ErrParentMismatch, block.Header.PrevHash, bc.tip.Hash)
		}
	}
	if block.Header.Height != want {
		return fmt.Errorf("%w: height %d, want %d", ErrHeightGap, block.Header.Height, want)
	}

	if err := bc.store.CommitBlock(block); err != nil {
		return fmt.Errorf("commit block %d: %w", block.Header.Height, err)
	}
	bc.tip = block
	return nil
}

func (bc *Blockchain) GetBlock(hash string) (*Block, error) {
	return bc.store.GetBlock(hash)
}

func (bc *Blockchain) GetBlockByHeight(height int64) (*Block, error) {
	return bc.store.GetBlockByHeight(height)
}

// Tip returns the newest block, or nil before genesis.
func (bc *Blockchain) Tip() *Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.tip
}

// Height is the tip height; 0 before genesis as well as at genesis.
func (bc *Blockchain) Height() int64 {
	if tip := bc.Tip(); tip != nil {
		return tip.Header.Height
	}
	return 0
}
