package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/crypto"
	"github.com/tolelom/indiechain/ledger"
	"github.com/tolelom/indiechain/vm/modules/credit"
)

// GenesisHash is the all-zeros previous hash of the genesis block.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ApplyGenesis writes the initial state: native fee balances, the credit
// token and collateral vault, credit allocations and the marketplace
// singleton. It does not commit.
func ApplyGenesis(cfg *Config, state core.State) error {
	g := cfg.Genesis
	for _, pub := range sortedKeys(g.Alloc) {
		if err := state.SetAccount(&core.Account{Address: pub, Balance: g.Alloc[pub]}); err != nil {
			return err
		}
	}

	issuer := g.CreditIssuer
	if issuer == "" && len(cfg.Validators) > 0 {
		issuer = cfg.Validators[0]
	}
	if issuer == "" {
		return fmt.Errorf("genesis: no credit issuer and no validators")
	}
	l := ledger.New(state)
	if err := credit.Bootstrap(l, issuer); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	for _, pub := range sortedKeys(g.CreditAlloc) {
		account, err := credit.OpenAccount(l, pub)
		if err != nil {
			return fmt.Errorf("genesis credit account %s: %w", pub, err)
		}
		if amount := g.CreditAlloc[pub]; amount > 0 {
			if err := l.Mint(core.CreditToken, account, amount, issuer); err != nil {
				return fmt.Errorf("genesis credit alloc %s: %w", pub, err)
			}
		}
	}

	if err := state.InitMarketplace(); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	return nil
}

// CreateGenesisBlock applies genesis to state, commits it and returns the
// signed block #0.
func CreateGenesisBlock(cfg *Config, state core.State, proposerPriv crypto.PrivateKey) (*core.Block, error) {
	if err := ApplyGenesis(cfg, state); err != nil {
		return nil, err
	}
	stateRoot := state.ComputeRoot()
	if err := state.Commit(); err != nil {
		return nil, err
	}

	block := core.NewBlock(0, GenesisHash, proposerPriv.Public().Hex(), nil)
	block.Header.StateRoot = stateRoot
	block.Header.TxRoot = crypto.Hash([]byte(cfg.Genesis.ChainID))
	block.Sign(proposerPriv)
	return block, nil
}

// IsGenesisHash reports whether h is the canonical genesis prev-hash.
func IsGenesisHash(h string) bool {
	return len(h) == 64 && strings.Count(h, "0") == 64
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
