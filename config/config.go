// Package config holds node configuration and genesis state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	configUtil "github.com/fox-one/pkg/config"
	"gopkg.in/yaml.v2"
)

// GenesisConfig describes the chain's initial state.
type GenesisConfig struct {
	ChainID string `json:"chain_id" yaml:"chain_id"`
	// Alloc is the native fee balance per public key.
	Alloc map[string]uint64 `json:"alloc" yaml:"alloc"`
	// CreditIssuer is the public key allowed to mint credits.
	CreditIssuer string `json:"credit_issuer" yaml:"credit_issuer"`
	// CreditAlloc is the initial credit balance per public key, in base units.
	CreditAlloc map[string]uint64 `json:"credit_alloc" yaml:"credit_alloc"`
}

// Config holds all node configuration.
type Config struct {
	NodeID  string `json:"node_id" yaml:"node_id"`
	DataDir string `json:"data_dir" yaml:"data_dir"`
	RPCPort int    `json:"rpc_port" yaml:"rpc_port"`
	// CORSOrigins lists browser origins allowed to call the RPC endpoint.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
	// BlockIntervalMs is the block production period; 0 means 2000.
	BlockIntervalMs int64         `json:"block_interval_ms" yaml:"block_interval_ms"`
	MaxBlockTxs     int           `json:"max_block_txs" yaml:"max_block_txs"`
	Validators      []string      `json:"validators" yaml:"validators"`
	Genesis         GenesisConfig `json:"genesis" yaml:"genesis"`
}

// BlockInterval returns the block production period.
func (c *Config) BlockInterval() time.Duration {
	if c.BlockIntervalMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.BlockIntervalMs) * time.Millisecond
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:          "node0",
		DataDir:         "./data",
		RPCPort:         8545,
		CORSOrigins:     []string{"*"},
		BlockIntervalMs: 2000,
		MaxBlockTxs:     500,
		Genesis: GenesisConfig{
			ChainID:     "indiechain-dev",
			Alloc:       map[string]uint64{},
			CreditAlloc: map[string]uint64{},
		},
	}
}

// Load fills cfg from the YAML file at path, with INDIECHAIN_* environment
// variables taking precedence. An empty path loads the environment only.
func Load(path string, cfg *Config) error {
	configUtil.AutomaticLoadEnv("INDIECHAIN")
	if path == "" {
		return nil
	}
	if err := configUtil.LoadYaml(path, cfg); err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	return nil
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
