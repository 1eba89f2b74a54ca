package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/internal/testutil"
	"github.com/tolelom/indiechain/storage"
)

func TestSnapshotRevert(t *testing.T) {
	s := testutil.NewStateDB()
	require.NoError(t, s.SetGame(&core.Game{Key: "g1", Owner: "alice", Name: "RPG"}))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	require.NoError(t, s.SetGame(&core.Game{Key: "g2", Owner: "bob", Name: "Racer"}))
	require.NoError(t, s.SetGame(&core.Game{Key: "g1", Owner: "mallory", Name: "RPG"}))
	require.NoError(t, s.RevertToSnapshot(snap))

	g, err := s.GetGame("g1")
	require.NoError(t, err)
	assert.Equal(t, "alice", g.Owner)
	_, err = s.GetGame("g2")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Error(t, s.RevertToSnapshot(snap))
}

func TestMarketplaceVersioning(t *testing.T) {
	s := testutil.NewStateDB()
	_, err := s.GetMarketplace()
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.InitMarketplace())
	assert.ErrorIs(t, s.InitMarketplace(), core.ErrAlreadyExists)

	first, err := s.GetMarketplace()
	require.NoError(t, err)
	stale, err := s.GetMarketplace()
	require.NoError(t, err)

	first.NextListingID++
	require.NoError(t, s.UpdateMarketplace(first))
	assert.Equal(t, uint64(1), first.Version)

	stale.NextListingID++
	assert.ErrorIs(t, s.UpdateMarketplace(stale), core.ErrConflict)

	m, err := s.GetMarketplace()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.NextListingID)
}

func TestSaleVersioning(t *testing.T) {
	s := testutil.NewStateDB()
	sale := &core.Sale{Key: core.SaleKey(0), State: core.SaleOpen, Price: 20, SaleAmount: 5}
	require.NoError(t, s.CreateSale(sale))
	assert.ErrorIs(t, s.CreateSale(sale), core.ErrAlreadyExists)

	a, err := s.GetSale(sale.Key)
	require.NoError(t, err)
	b, err := s.GetSale(sale.Key)
	require.NoError(t, err)

	a.State = core.SaleSettled
	a.Buyer = "carol"
	require.NoError(t, s.UpdateSale(a))

	b.State = core.SaleSettled
	b.Buyer = "dave"
	assert.ErrorIs(t, s.UpdateSale(b), core.ErrConflict)

	got, err := s.GetSale(sale.Key)
	require.NoError(t, err)
	assert.Equal(t, "carol", got.Buyer)
}

func TestComputeRootAndCommit(t *testing.T) {
	db := testutil.NewMemDB()
	s := storage.NewStateDB(db)
	empty := s.ComputeRoot()

	require.NoError(t, s.SetAsset(&core.Asset{Key: "a1", Game: "g1", Name: "Sword"}))
	require.NoError(t, s.SetGame(&core.Game{Key: "g1", Owner: "alice", Name: "RPG"}))
	pending := s.ComputeRoot()
	assert.NotEqual(t, empty, pending)

	// same writes in another order give the same root
	other := testutil.NewStateDB()
	require.NoError(t, other.SetGame(&core.Game{Key: "g1", Owner: "alice", Name: "RPG"}))
	require.NoError(t, other.SetAsset(&core.Asset{Key: "a1", Game: "g1", Name: "Sword"}))
	assert.Equal(t, pending, other.ComputeRoot())

	require.NoError(t, s.Commit())
	assert.Equal(t, pending, s.ComputeRoot())

	reopened := storage.NewStateDB(db)
	g, err := reopened.GetGame("g1")
	require.NoError(t, err)
	assert.Equal(t, "alice", g.Owner)
	assert.Equal(t, pending, reopened.ComputeRoot())
}

func TestDiscard(t *testing.T) {
	s := testutil.NewStateDB()
	require.NoError(t, s.SetGame(&core.Game{Key: "g1", Owner: "alice"}))
	s.Discard()
	_, err := s.GetGame("g1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAccountDefaultsToZero(t *testing.T) {
	s := testutil.NewStateDB()
	acc, err := s.GetAccount("nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", acc.Address)
	assert.Zero(t, acc.Nonce)
}

func TestNestedSnapshots(t *testing.T) {
	s := testutil.NewStateDB()
	outer, err := s.Snapshot()
	require.NoError(t, err)
	require.NoError(t, s.SetGame(&core.Game{Key: "g1", Owner: "alice"}))
	inner, err := s.Snapshot()
	require.NoError(t, err)
	require.NoError(t, s.SetGame(&core.Game{Key: "g1", Owner: "bob"}))

	require.NoError(t, s.RevertToSnapshot(inner))
	g, err := s.GetGame("g1")
	require.NoError(t, err)
	assert.Equal(t, "alice", g.Owner)

	require.NoError(t, s.RevertToSnapshot(outer))
	_, err = s.GetGame("g1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Error(t, s.RevertToSnapshot(inner))
}
