package ingest

import (
	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/sql"
	"github.com/shardnet/go-shard/vm"
)

//go:generate mockgen -typed -package=mocks -destination=./mocks/mocks.go -source=./interface.go

// Applier executes transactions of a height. It is implemented by vm.VM.
type Applier interface {
	DecodeBlobs(blobs []types.Blob) []vm.Decoded
	Apply(db sql.Executor, height types.Height, prev types.Hash32, txs []vm.Decoded) (*vm.Result, error)
	ApplyGenesis(db sql.Executor, height types.Height, balances map[types.AccountID]uint64) (types.Hash32, error)
}
