package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardnet/go-shard/apps/transfer"
	"github.com/shardnet/go-shard/codec"
	"github.com/shardnet/go-shard/common/types"
)

func TestDecodeTrailingBytes(t *testing.T) {
	tx := transfer.Transfer{To: types.AccountID{1, 2, 3}, Amount: 300}
	buf := codec.MustEncode(&tx)

	var decoded transfer.Transfer
	require.NoError(t, codec.Decode(buf, &decoded))
	require.Equal(t, tx, decoded)

	require.ErrorIs(t, codec.Decode(append(buf, 0), &decoded), codec.ErrTrailingBytes)
	require.Error(t, codec.Decode(buf[:len(buf)-1], &decoded))
}
