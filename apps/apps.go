// Package apps selects the application executed by the node.
package apps

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shardnet/go-shard/apps/tictactoe"
	"github.com/shardnet/go-shard/apps/transfer"
	"github.com/shardnet/go-shard/vm/core"
)

// ErrUnknownApp is returned for names that are not registered.
var ErrUnknownApp = errors.New("unknown application")

var registry = map[string]func() core.Application{
	transfer.Name:  func() core.Application { return transfer.New() },
	tictactoe.Name: func() core.Application { return tictactoe.New() },
}

// New creates the application by name.
func New(name string) (core.Application, error) {
	create, exist := registry[name]
	if !exist {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownApp, name, Names())
	}
	return create(), nil
}

// Names returns registered application names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
