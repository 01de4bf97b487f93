package vm

import (
	"math"

	"github.com/spacemeshos/go-scale"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/hash"
	"github.com/shardnet/go-shard/sql/accounts"
	"github.com/shardnet/go-shard/vm/core"
)

// computeRoot commits to the previous root, the height, the ordered ids of applied
// transactions, the key ordered writes and the registry entries updated in the height.
//
// Inputs are framed with scale so that distinct inputs never produce the same stream.
// Writes to the hasher can't fail.
func computeRoot(
	prev types.Hash32,
	height types.Height,
	applied []types.TransactionID,
	changes []core.Change,
	touched []accounts.Account,
) types.Hash32 {
	hh := hash.GetHasher()
	defer hash.PutHasher(hh)
	enc := scale.NewEncoder(hh)

	scale.EncodeByteArray(enc, prev[:])
	scale.EncodeCompact64(enc, height.Uint64())
	scale.EncodeCompact64(enc, uint64(len(applied)))
	for _, id := range applied {
		scale.EncodeByteArray(enc, id[:])
	}
	scale.EncodeCompact64(enc, uint64(len(changes)))
	for _, change := range changes {
		scale.EncodeByteSliceWithLimit(enc, change.Key, math.MaxUint32)
		if change.Deleted {
			scale.EncodeByte(enc, 0)
		} else {
			scale.EncodeByte(enc, 1)
			scale.EncodeByteSliceWithLimit(enc, change.Value, math.MaxUint32)
		}
	}
	scale.EncodeCompact64(enc, uint64(len(touched)))
	for _, account := range touched {
		scale.EncodeByteArray(enc, account.ID[:])
		if account.PublicKey == nil {
			scale.EncodeByte(enc, 0)
		} else {
			scale.EncodeByte(enc, 1)
			scale.EncodeByteArray(enc, account.PublicKey[:])
		}
		scale.EncodeCompact64(enc, account.Nonce)
	}
	var root types.Hash32
	hh.Sum(root[:0])
	return root
}
