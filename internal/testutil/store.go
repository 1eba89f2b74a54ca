// Package testutil provides in-memory stores and an in-process chain
// harness for tests. Never import this in production code.
package testutil

import "github.com/tolelom/indiechain/storage"

// NewMemDB returns an empty in-memory LevelDB.
func NewMemDB() *storage.LevelDB {
	return storage.NewMemLevelDB()
}

// NewBlockStore returns a block store over a fresh in-memory database.
func NewBlockStore() *storage.BlockStore {
	return storage.NewBlockStore(NewMemDB())
}

// NewStateDB returns a state database over a fresh in-memory database.
func NewStateDB() *storage.StateDB {
	return storage.NewStateDB(NewMemDB())
}
