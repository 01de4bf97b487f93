package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/natefinch/atomic"

	"github.com/shardnet/go-shard/common/types"
)

// GenesisFileName is the name of the file that persists the genesis config in the data dir.
const GenesisFileName = "genesis.json"

// GenesisConfig is the initial state of the rollup.
type GenesisConfig struct {
	// Height is the DA height of the genesis state, ingestion starts at Height+1.
	Height types.Height `mapstructure:"height" json:"height"`
	// Accounts maps bech32 account ids to initial balances.
	Accounts map[string]uint64 `mapstructure:"accounts" json:"accounts"`
}

// DefaultGenesisConfig returns an empty genesis at height 0.
func DefaultGenesisConfig() GenesisConfig {
	return GenesisConfig{Accounts: map[string]uint64{}}
}

// Validate checks that every account id can be parsed.
func (g *GenesisConfig) Validate() error {
	_, err := g.Balances()
	return err
}

// Balances parses the genesis accounts.
func (g *GenesisConfig) Balances() (map[types.AccountID]uint64, error) {
	balances := make(map[types.AccountID]uint64, len(g.Accounts))
	ids := make([]string, 0, len(g.Accounts))
	for id := range g.Accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var errs []error
	for _, id := range ids {
		account, err := types.StringToAccountID(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("genesis account %s: %w", id, err))
			continue
		}
		balances[account] += g.Accounts[id]
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return balances, nil
}

// LoadFromFile loads genesis from the file, a missing file is reported with os.ErrNotExist.
func (g *GenesisConfig) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded GenesisConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("decode genesis from %s: %w", path, err)
	}
	*g = loaded
	return nil
}

// WriteToFile atomically replaces the file with the genesis config.
func (g *GenesisConfig) WriteToFile(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encode genesis: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write genesis to %s: %w", path, err)
	}
	return nil
}

// Diff returns a human readable difference between two genesis configs, empty when equal.
func (g *GenesisConfig) Diff(other *GenesisConfig) string {
	return cmp.Diff(g.normalized(), other.normalized())
}

func (g *GenesisConfig) normalized() GenesisConfig {
	rst := GenesisConfig{Height: g.Height, Accounts: map[string]uint64{}}
	for id, balance := range g.Accounts {
		rst.Accounts[id] = balance
	}
	return rst
}
