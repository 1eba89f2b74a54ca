package storage

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/tolelom/indiechain/core"
)

// LevelDB is a DB on top of goleveldb, either file backed or in memory.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB opens the database directory at path, creating it if missing.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ErrorIfMissing: false})
	if err != nil {
		return nil, fmt.Errorf("open leveldb %q: %w", path, err)
	}
	return &LevelDB{db: db}, nil
}

// NewMemLevelDB opens an empty database that lives only in memory.
func NewMemLevelDB() *LevelDB {
	db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
	if err != nil {
		// memory storage cannot fail to open
		panic(err)
	}
	return &LevelDB{db: db}
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	val, err := l.db.Get(key, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return nil, core.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("leveldb get %q: %w", key, err)
	}
	return val, nil
}

func (l *LevelDB) Set(key, value []byte) error { return l.db.Put(key, value, nil) }

func (l *LevelDB) Delete(key []byte) error { return l.db.Delete(key, nil) }

// NewIterator walks keys with prefix in ascending order. Key and Value are
// only valid until the next call to Next.
func (l *LevelDB) NewIterator(prefix []byte) Iterator {
	return l.db.NewIterator(util.BytesPrefix(prefix), nil)
}

func (l *LevelDB) NewBatch() Batch { return &levelBatch{db: l.db} }

func (l *LevelDB) Close() error { return l.db.Close() }

type levelBatch struct {
	db *leveldb.DB
	b  leveldb.Batch
}

func (lb *levelBatch) Set(key, value []byte) { lb.b.Put(key, value) }
func (lb *levelBatch) Delete(key []byte)     { lb.b.Delete(key) }
func (lb *levelBatch) Reset()                { lb.b.Reset() }

func (lb *levelBatch) Write() error {
	if err := lb.db.Write(&lb.b, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("leveldb batch write: %w", err)
	}
	return nil
}
