package core

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	maxMempoolSize = 10_000
	maxTxAge       = time.Hour
	maxTxFuture    = 5 * time.Minute
)

// Mempool errors.
var (
	ErrMempoolFull  = errors.New("mempool full")
	ErrTxKnown      = errors.New("tx already in pool")
	ErrTxExpired    = errors.New("transaction expired")
	ErrTxFromFuture = errors.New("transaction timestamp too far in the future")
	ErrWrongChain   = errors.New("transaction for another chain")
)

// Mempool is a FIFO of signed transactions waiting for the next block.
type Mempool struct {
	chainID string
	now     func() time.Time

	mu    sync.RWMutex
	queue *list.List // of *Transaction
	byID  map[string]*list.Element
}

// NewMempool creates an empty mempool accepting transactions for chainID.
func NewMempool(chainID string) *Mempool {
	return &Mempool{
		chainID: chainID,
		now:     time.Now,
		queue:   list.New(),
		byID:    make(map[string]*list.Element),
	}
}

// admit runs the stateless checks. Business rules run at execution.
func (m *Mempool) admit(tx *Transaction) error {
	if tx.ChainID != m.chainID {
		return fmt.Errorf("%w: got %q want %q", ErrWrongChain, tx.ChainID, m.chainID)
	}
	if err := tx.Verify(); err != nil {
		return fmt.Errorf("invalid tx signature: %w", err)
	}
	age := m.now().Sub(time.Unix(0, tx.Timestamp))
	switch {
	case age > maxTxAge:
		return ErrTxExpired
	case -age > maxTxFuture:
		return ErrTxFromFuture
	}
	return nil
}

// Add verifies tx and appends it to the queue.
func (m *Mempool) Add(tx *Transaction) error {
	if err := m.admit(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byID[tx.ID]; dup {
		return ErrTxKnown
	}
	if m.queue.Len() >= maxMempoolSize {
		return ErrMempoolFull
	}
	m.byID[tx.ID] = m.queue.PushBack(tx)
	return nil
}

// Get looks up a queued transaction.
func (m *Mempool) Get(id string) (*Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if el, ok := m.byID[id]; ok {
		return el.Value.(*Transaction), true
	}
	return nil, false
}

// Pending returns up to n transactions, oldest first, without removing them.
func (m *Mempool) Pending(n int) []*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n > m.queue.Len() {
		n = m.queue.Len()
	}
	out := make([]*Transaction, 0, n)
	for el := m.queue.Front(); el != nil && len(out) < n; el = el.Next() {
		out = append(out, el.Value.(*Transaction))
	}
	return out
}

// Remove drops ids from the pool. Unknown ids are ignored.
func (m *Mempool) Remove(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if el, ok := m.byID[id]; ok {
			m.queue.Remove(el)
			delete(m.byID, id)
		}
	}
}

func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queue.Len()
}
