package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tolelom/indiechain/core"
)

var statePrefixes []string

// statePrefix records p as part of the state that ComputeRoot hashes.
func statePrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

var (
	prefixAccount         = statePrefix("acct:")
	prefixGame            = statePrefix("game:")
	prefixAsset           = statePrefix("asset:")
	prefixHolderAuthority = statePrefix("hauth:")
	prefixMintAuthority   = statePrefix("mauth:")
	prefixSale            = statePrefix("sale:")
	prefixToken           = statePrefix("token:")
	prefixTokenAccount    = statePrefix("tacct:")
	keyMarketplace        = statePrefix("market")
)

// StateDB implements core.State. Writes land in an in-memory overlay that
// can be snapshotted and rolled back; Commit flushes it to the DB.
type StateDB struct {
	db DB

	mu  sync.RWMutex
	buf overlay
}

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db DB) *StateDB {
	return &StateDB{db: db, buf: newOverlay()}
}

// The helpers below expect the caller to hold mu.

func (s *StateDB) raw(key string) ([]byte, error) {
	if v, ok := s.buf.lookup(key); ok {
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *StateDB) decode(key string, v any) error {
	data, err := s.raw(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *StateDB) encode(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.buf.put(key, data)
	return nil
}

func (s *StateDB) has(key string) (bool, error) {
	switch _, err := s.raw(key); {
	case err == nil:
		return true, nil
	case errors.Is(err, core.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func load[T any](s *StateDB, key string) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := new(T)
	if err := s.decode(key, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *StateDB) store(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encode(key, v)
}

// compareAndSwap stores next at key if the stored version equals version,
// then bumps the caller's copy. version reads the stored record's version.
func compareAndSwap[T any](s *StateDB, key string, next *T, have uint64, version func(*T) uint64, bump func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := new(T)
	if err := s.decode(key, stored); err != nil {
		return err
	}
	if got := version(stored); got != have {
		return fmt.Errorf("%s at version %d, caller has %d: %w", key, got, have, core.ErrConflict)
	}
	bump()
	return s.encode(key, next)
}

// GetAccount returns a zero-value account for unknown addresses.
func (s *StateDB) GetAccount(address string) (*core.Account, error) {
	acc, err := load[core.Account](s, prefixAccount+address)
	if errors.Is(err, core.ErrNotFound) {
		return &core.Account{Address: address}, nil
	}
	return acc, err
}

func (s *StateDB) SetAccount(acc *core.Account) error {
	return s.store(prefixAccount+acc.Address, acc)
}

func (s *StateDB) GetGame(key string) (*core.Game, error) {
	return load[core.Game](s, prefixGame+key)
}

func (s *StateDB) SetGame(g *core.Game) error { return s.store(prefixGame+g.Key, g) }

func (s *StateDB) GetAsset(key string) (*core.Asset, error) {
	return load[core.Asset](s, prefixAsset+key)
}

func (s *StateDB) SetAsset(a *core.Asset) error { return s.store(prefixAsset+a.Key, a) }

func (s *StateDB) GetHolderAuthority(key string) (*core.HolderAuthority, error) {
	return load[core.HolderAuthority](s, prefixHolderAuthority+key)
}

func (s *StateDB) SetHolderAuthority(h *core.HolderAuthority) error {
	return s.store(prefixHolderAuthority+h.Key, h)
}

func (s *StateDB) GetMintAuthority(key string) (*core.MintAuthority, error) {
	return load[core.MintAuthority](s, prefixMintAuthority+key)
}

func (s *StateDB) SetMintAuthority(m *core.MintAuthority) error {
	return s.store(prefixMintAuthority+m.Key, m)
}

func (s *StateDB) GetMarketplace() (*core.Marketplace, error) {
	return load[core.Marketplace](s, keyMarketplace)
}

// InitMarketplace creates the singleton with a zero counter.
func (s *StateDB) InitMarketplace() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ok, err := s.has(keyMarketplace); {
	case err != nil:
		return err
	case ok:
		return fmt.Errorf("marketplace: %w", core.ErrAlreadyExists)
	}
	return s.encode(keyMarketplace, &core.Marketplace{})
}

// UpdateMarketplace stores m if nobody wrote the marketplace since m was
// read, and advances m.Version.
func (s *StateDB) UpdateMarketplace(m *core.Marketplace) error {
	return compareAndSwap(s, keyMarketplace, m, m.Version,
		func(v *core.Marketplace) uint64 { return v.Version },
		func() { m.Version++ })
}

func (s *StateDB) GetSale(key string) (*core.Sale, error) {
	return load[core.Sale](s, prefixSale+key)
}

// CreateSale stores a new sale at version 0.
func (s *StateDB) CreateSale(sale *core.Sale) error {
	key := prefixSale + sale.Key
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ok, err := s.has(key); {
	case err != nil:
		return err
	case ok:
		return fmt.Errorf("sale %d: %w", sale.ListingID, core.ErrAlreadyExists)
	}
	sale.Version = 0
	return s.encode(key, sale)
}

// UpdateSale is the sale counterpart of UpdateMarketplace.
func (s *StateDB) UpdateSale(sale *core.Sale) error {
	return compareAndSwap(s, prefixSale+sale.Key, sale, sale.Version,
		func(v *core.Sale) uint64 { return v.Version },
		func() { sale.Version++ })
}

func (s *StateDB) GetToken(key string) (*core.Token, error) {
	return load[core.Token](s, prefixToken+key)
}

func (s *StateDB) SetToken(t *core.Token) error { return s.store(prefixToken+t.Key, t) }

func (s *StateDB) GetTokenAccount(address string) (*core.TokenAccount, error) {
	return load[core.TokenAccount](s, prefixTokenAccount+address)
}

func (s *StateDB) SetTokenAccount(a *core.TokenAccount) error {
	return s.store(prefixTokenAccount+a.Address, a)
}

// Snapshot marks the current overlay so it can be restored later.
func (s *StateDB) Snapshot() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.snapshot(), nil
}

// RevertToSnapshot rolls the overlay back to snapshot id. The id and any
// later snapshots become invalid.
func (s *StateDB) RevertToSnapshot(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.revert(id)
}

// ComputeRoot hashes persisted state merged with the overlay, without
// flushing anything.
func (s *StateDB) ComputeRoot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := make(map[string][]byte)
	for _, p := range statePrefixes {
		it := s.db.NewIterator([]byte(p))
		for it.Next() {
			view[string(it.Key())] = append([]byte(nil), it.Value()...)
		}
		it.Release()
	}
	for k, v := range s.buf.dirty {
		view[k] = v
	}
	return hashState(view)
}

// Commit writes the overlay to the DB atomically and clears it. Take the
// root with ComputeRoot first; it is unchanged by Commit.
func (s *StateDB) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.db.NewBatch()
	for k, v := range s.buf.dirty {
		batch.Set([]byte(k), v)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	s.buf.reset()
	return nil
}

// Committed returns a view of the flushed records. It never sees the
// overlay, so nothing written by an open or rolled back transaction leaks
// through it.
func (s *StateDB) Committed() core.RecordReader {
	return &StateDB{db: s.db, buf: newOverlay()}
}

// Discard drops every uncommitted write.
func (s *StateDB) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.reset()
}
