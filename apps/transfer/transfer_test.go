package transfer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardnet/go-shard/codec"
	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/log/logtest"
	"github.com/shardnet/go-shard/sql"
	"github.com/shardnet/go-shard/vm/core"
)

var (
	alice = types.AccountID{1}
	bob   = types.AccountID{2}
)

func apply(tb testing.TB, app *App, state *core.StagedState, sender types.AccountID, tx core.Tx) error {
	tb.Helper()
	ctx := &core.Context{Sender: sender, Logger: logtest.New(tb)}
	if err := app.Verify(ctx, state, tx); err != nil {
		return err
	}
	return app.Process(ctx, state, tx)
}

func balanceOf(tb testing.TB, state core.Reader, id types.AccountID) uint64 {
	tb.Helper()
	value, err := Balance(state, id)
	require.NoError(tb, err)
	return value
}

func TestTransferScenario(t *testing.T) {
	app := New()
	state := core.NewStagedState(core.NewDBReader(sql.InMemory(), 0))
	require.NoError(t, app.Genesis(state, map[types.AccountID]uint64{alice: 100, bob: 0}))

	tx := &Transfer{To: bob, Amount: 30}
	require.NoError(t, apply(t, app, state, alice, tx))
	require.EqualValues(t, 70, balanceOf(t, state, alice))
	require.EqualValues(t, 30, balanceOf(t, state, bob))

	require.NoError(t, apply(t, app, state, alice, tx))
	require.EqualValues(t, 40, balanceOf(t, state, alice))
	require.EqualValues(t, 60, balanceOf(t, state, bob))

	t.Run("rejections", func(t *testing.T) {
		for _, tc := range []struct {
			name   string
			sender types.AccountID
			tx     *Transfer
			err    error
		}{
			{"zero", alice, &Transfer{To: bob}, errZeroAmount},
			{"self", alice, &Transfer{To: alice, Amount: 1}, errSelfTransfer},
			{"insufficient", alice, &Transfer{To: bob, Amount: 41}, errNoBalance},
			{"unknown sender", types.AccountID{9}, &Transfer{To: bob, Amount: 1}, errNoBalance},
		} {
			t.Run(tc.name, func(t *testing.T) {
				err := apply(t, app, state, tc.sender, tc.tx)
				require.ErrorIs(t, err, tc.err)
			})
		}
		require.ErrorContains(t, apply(t, app, state, alice, &Transfer{To: bob, Amount: 1000}), "insufficient balance")
		require.EqualValues(t, 40, balanceOf(t, state, alice))
	})
}

func TestSchemaMatchesEncoding(t *testing.T) {
	app := New()
	tx := &Transfer{To: bob, Amount: 12345}
	payload, err := app.Schema()[0].Encode([]string{bob.String(), "12345"})
	require.NoError(t, err)
	require.Equal(t, codec.MustEncode(tx), payload)

	parsed, err := app.Parse(TypeTransfer, payload)
	require.NoError(t, err)
	require.Equal(t, tx, parsed)

	_, err = app.Parse(1, payload)
	require.Error(t, err)
	_, err = app.Parse(TypeTransfer, append(payload, 0))
	require.ErrorIs(t, err, codec.ErrTrailingBytes)
}

func TestView(t *testing.T) {
	app := New()
	state := core.NewStagedState(core.NewDBReader(sql.InMemory(), 0))
	require.NoError(t, app.Genesis(state, map[types.AccountID]uint64{alice: 5}))

	view, err := app.View(state, "balance", alice.String())
	require.NoError(t, err)
	require.Equal(t, BalanceView{Account: alice, Balance: 5}, view)

	_, err = app.View(state, "balance", "nope")
	require.Error(t, err)
	_, err = app.View(state, "supply", "")
	require.ErrorIs(t, err, core.ErrUnknownView)
}
