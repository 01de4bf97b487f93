// Package presets holds named configurations that overwrite the defaults.
package presets

import (
	"fmt"
	"sort"

	"github.com/shardnet/go-shard/config"
)

var presets = map[string]config.Config{}

func register(name string, preset config.Config) {
	if _, exist := presets[name]; exist {
		panic(fmt.Sprintf("preset with name %s already exists", name))
	}
	presets[name] = preset
}

// Options returns the names of registered presets.
func Options() []string {
	rst := make([]string, 0, len(presets))
	for name := range presets {
		rst = append(rst, name)
	}
	sort.Strings(rst)
	return rst
}

// Get returns the preset by name.
func Get(name string) (config.Config, error) {
	preset, exist := presets[name]
	if !exist {
		return config.Config{}, fmt.Errorf("preset %s is not registered. select one from the options %+s",
			name, Options())
	}
	accounts := make(map[string]uint64, len(preset.Genesis.Accounts))
	for id, balance := range preset.Genesis.Accounts {
		accounts[id] = balance
	}
	preset.Genesis.Accounts = accounts
	return preset, nil
}
