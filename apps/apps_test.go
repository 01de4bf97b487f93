package apps

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/vm/core"
)

func TestNew(t *testing.T) {
	require.Equal(t, []string{"tictactoe", "transfer"}, Names())
	for _, name := range Names() {
		app, err := New(name)
		require.NoError(t, err)
		require.Equal(t, name, app.Name())
		require.NotEmpty(t, app.Schema())
		require.False(t, core.Knows(app, types.TxType(200)))
	}
	_, err := New("poker")
	require.ErrorIs(t, err, ErrUnknownApp)
}
