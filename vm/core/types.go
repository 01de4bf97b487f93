package core

import (
	"github.com/spacemeshos/go-scale"
	"go.uber.org/zap"

	"github.com/shardnet/go-shard/common/types"
)

// Reader provides read access to the application state.
type Reader interface {
	// Get returns the value of the key. Missing keys are reported with found set to false.
	Get(key []byte) (value []byte, found bool, err error)
	// IteratePrefix visits live keys with the prefix in key order until fn returns false.
	IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error
}

// Writer provides read and write access to the application state.
type Writer interface {
	Reader
	Set(key, value []byte)
	Delete(key []byte)
}

// Tx is a decoded application transaction. Every application defines a closed
// set of variants and dispatches over them with a type switch.
type Tx interface {
	scale.Encodable
	Type() types.TxType
}

// Context carries the metadata of the transaction being verified or processed.
type Context struct {
	Sender types.AccountID
	Height types.Height
	TxID   types.TransactionID
	Index  int
	Logger *zap.Logger
}

// Application defines the business rules executed by the engine.
//
// Verify must not modify anything and must only depend on the arguments.
// Process is called only for verified transactions. Both must be deterministic:
// no wall clock, no randomness and no iteration over unordered collections.
type Application interface {
	// Name of the application.
	Name() string
	// Schema lists transaction types accepted by Parse.
	Schema() []TxSchema
	// Parse decodes the payload of the transaction type.
	Parse(types.TxType, []byte) (Tx, error)
	// Verify checks the transaction against the state.
	Verify(*Context, Reader, Tx) error
	// Process applies the transaction to the state.
	Process(*Context, Writer, Tx) error
	// Genesis writes the initial state.
	Genesis(Writer, map[types.AccountID]uint64) error
	// View renders the named view of the state for the argument.
	View(state Reader, view, arg string) (any, error)
}

// Knows returns true if the application declares the transaction type.
func Knows(app Application, tt types.TxType) bool {
	for _, schema := range app.Schema() {
		if schema.Type == tt {
			return true
		}
	}
	return false
}
