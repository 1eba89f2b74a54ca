package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/crypto"
)

func signedTx(t *testing.T, chainID string, nonce uint64, ts time.Time) *core.Transaction {
	t.Helper()
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	tx, err := core.NewTransaction(chainID, core.TxCreditTransfer, pub.Hex(), nonce, 0,
		core.CreditTransferPayload{To: "bob", Amount: 1})
	require.NoError(t, err)
	tx.Timestamp = ts.UnixNano()
	tx.Sign(priv)
	return tx
}

func TestMempoolOrderAndRemove(t *testing.T) {
	pool := core.NewMempool("test")
	now := time.Now()
	a := signedTx(t, "test", 0, now)
	b := signedTx(t, "test", 0, now)
	c := signedTx(t, "test", 0, now)
	for _, tx := range []*core.Transaction{a, b, c} {
		require.NoError(t, pool.Add(tx))
	}
	assert.ErrorIs(t, pool.Add(b), core.ErrTxKnown)

	pending := pool.Pending(2)
	require.Len(t, pending, 2)
	assert.Equal(t, a.ID, pending[0].ID)
	assert.Equal(t, b.ID, pending[1].ID)

	pool.Remove([]string{b.ID, "unknown"})
	assert.Equal(t, 2, pool.Size())
	_, ok := pool.Get(b.ID)
	assert.False(t, ok)

	pending = pool.Pending(10)
	require.Len(t, pending, 2)
	assert.Equal(t, c.ID, pending[1].ID)
}

func TestMempoolRejects(t *testing.T) {
	pool := core.NewMempool("test")
	now := time.Now()

	assert.ErrorIs(t, pool.Add(signedTx(t, "other", 0, now)), core.ErrWrongChain)
	assert.ErrorIs(t, pool.Add(signedTx(t, "test", 0, now.Add(-2*time.Hour))), core.ErrTxExpired)
	assert.ErrorIs(t, pool.Add(signedTx(t, "test", 0, now.Add(time.Hour))), core.ErrTxFromFuture)

	tampered := signedTx(t, "test", 0, now)
	tampered.Nonce++
	assert.Error(t, pool.Add(tampered))
	assert.Zero(t, pool.Size())
}
