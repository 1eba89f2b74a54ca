package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/indiechain/core"
)

var (
	blockPrefix  = []byte("b/")
	heightPrefix = []byte("h/")
	tipKey       = []byte("tip")
)

// BlockStore persists blocks by hash with a height index and tip pointer.
// It implements core.BlockStore on any DB.
type BlockStore struct {
	db DB
}

// NewBlockStore wraps db.
func NewBlockStore(db DB) *BlockStore {
	return &BlockStore{db: db}
}

func blockKey(hash string) []byte {
	return append(append([]byte(nil), blockPrefix...), hash...)
}

// byHeightKey encodes height big-endian so the index iterates in order.
func byHeightKey(height int64) []byte {
	k := make([]byte, len(heightPrefix)+8)
	copy(k, heightPrefix)
	binary.BigEndian.PutUint64(k[len(heightPrefix):], uint64(height))
	return k
}

func (s *BlockStore) GetBlock(hash string) (*core.Block, error) {
	raw, err := s.db.Get(blockKey(hash))
	if err != nil {
		return nil, err
	}
	b := new(core.Block)
	if err := json.Unmarshal(raw, b); err != nil {
		return nil, fmt.Errorf("decode block %s: %w", hash, err)
	}
	return b, nil
}

func (s *BlockStore) GetBlockByHeight(height int64) (*core.Block, error) {
	hash, err := s.db.Get(byHeightKey(height))
	if err != nil {
		return nil, err
	}
	return s.GetBlock(string(hash))
}

// GetTip returns the tip hash, or "" for an empty chain.
func (s *BlockStore) GetTip() (string, error) {
	hash, err := s.db.Get(tipKey)
	if errors.Is(err, core.ErrNotFound) {
		return "", nil
	}
	return string(hash), err
}

// CommitBlock stores block, indexes its height and moves the tip in one
// batch.
func (s *BlockStore) CommitBlock(block *core.Block) error {
	raw, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("encode block %d: %w", block.Header.Height, err)
	}
	batch := s.db.NewBatch()
	batch.Set(blockKey(block.Hash), raw)
	batch.Set(byHeightKey(block.Header.Height), []byte(block.Hash))
	batch.Set(tipKey, []byte(block.Hash))
	return batch.Write()
}
