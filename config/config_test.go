package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/tolelom/indiechain/config"
	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/internal/testutil"
	"github.com/tolelom/indiechain/ledger"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, "indiechain-dev", cfg.Genesis.ChainID)
	assert.Equal(t, 8545, cfg.RPCPort)
	assert.Equal(t, int64(2000), cfg.BlockInterval().Milliseconds())

	cfg.BlockIntervalMs = 0
	assert.Equal(t, int64(2000), cfg.BlockInterval().Milliseconds())
}

func TestSaveWritesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "indiechain.yaml")
	cfg := config.DefaultConfig()
	cfg.Validators = []string{"v1"}
	cfg.Genesis.CreditAlloc["alice"] = 500
	require.NoError(t, config.Save(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got config.Config
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, []string{"v1"}, got.Validators)
	assert.Equal(t, uint64(500), got.Genesis.CreditAlloc["alice"])
	assert.Equal(t, cfg.RPCPort, got.RPCPort)
}

func TestApplyGenesis(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Validators = []string{"validator"}
	cfg.Genesis.Alloc["alice"] = 7
	cfg.Genesis.CreditAlloc["alice"] = 1_000
	state := testutil.NewStateDB()
	require.NoError(t, config.ApplyGenesis(cfg, state))

	acc, err := state.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), acc.Balance)

	l := ledger.New(state)
	tok, err := l.Token(core.CreditToken)
	require.NoError(t, err)
	assert.Equal(t, "validator", tok.Authority)
	assert.Equal(t, uint64(1_000), tok.Supply)
	bal, err := l.BalanceOf(core.CreditToken, core.CreditAccountKey("alice"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), bal)

	m, err := state.GetMarketplace()
	require.NoError(t, err)
	assert.Zero(t, m.NextListingID)

	// genesis cannot be applied twice
	assert.Error(t, config.ApplyGenesis(cfg, state))
}

func TestApplyGenesisNeedsIssuer(t *testing.T) {
	assert.Error(t, config.ApplyGenesis(config.DefaultConfig(), testutil.NewStateDB()))
}

func TestGenesisHash(t *testing.T) {
	assert.True(t, config.IsGenesisHash(config.GenesisHash))
	assert.False(t, config.IsGenesisHash("00"))
}
