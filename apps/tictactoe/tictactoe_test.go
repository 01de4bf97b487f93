package tictactoe

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
	carol = types.AccountID{3}
)

func apply(tb testing.TB, app *App, state *core.StagedState, sender types.AccountID, tx core.Tx) error {
	tb.Helper()
	ctx := &core.Context{Sender: sender, Logger: logtest.New(tb)}
	if err := app.Verify(ctx, state, tx); err != nil {
		return err
	}
	return app.Process(ctx, state, tx)
}

func newState() *core.StagedState {
	return core.NewStagedState(core.NewDBReader(sql.InMemory(), 0))
}

func TestGameScenario(t *testing.T) {
	app := New()
	state := newState()

	require.NoError(t, apply(t, app, state, alice, &CreateGame{GameID: "g1"}))
	require.ErrorContains(t, apply(t, app, state, bob, &CreateGame{GameID: "g1"}), "game already exists")
	require.ErrorContains(t, apply(t, app, state, alice, &Move{GameID: "g1", Position: 0}),
		"this game has not been joined yet")
	require.ErrorContains(t, apply(t, app, state, alice, &JoinGame{GameID: "g1"}), "you cannot join your own game")
	require.ErrorContains(t, apply(t, app, state, bob, &JoinGame{GameID: "g2"}), "game does not exist")

	require.NoError(t, apply(t, app, state, bob, &JoinGame{GameID: "g1"}))
	require.ErrorContains(t, apply(t, app, state, carol, &JoinGame{GameID: "g1"}), "already joined")

	require.ErrorContains(t, apply(t, app, state, carol, &Move{GameID: "g1", Position: 0}), "not a participant")
	require.ErrorContains(t, apply(t, app, state, bob, &Move{GameID: "g1", Position: 0}), "it is not your turn")
	require.ErrorContains(t, apply(t, app, state, alice, &Move{GameID: "g1", Position: 9}), "invalid position")

	// alice takes the top row, bob plays the middle row
	require.NoError(t, apply(t, app, state, alice, &Move{GameID: "g1", Position: 0}))
	require.ErrorContains(t, apply(t, app, state, bob, &Move{GameID: "g1", Position: 0}), "position already taken")
	require.NoError(t, apply(t, app, state, bob, &Move{GameID: "g1", Position: 3}))
	require.NoError(t, apply(t, app, state, alice, &Move{GameID: "g1", Position: 1}))
	require.NoError(t, apply(t, app, state, bob, &Move{GameID: "g1", Position: 4}))
	require.NoError(t, apply(t, app, state, alice, &Move{GameID: "g1", Position: 2}))

	require.ErrorContains(t, apply(t, app, state, bob, &Move{GameID: "g1", Position: 5}), "game has already been won")

	view, err := app.View(state, "game", "g1")
	require.NoError(t, err)
	game := view.(GameView)
	require.NotNil(t, game.Winner)
	require.Equal(t, alice, *game.Winner)
	require.Equal(t, [BoardSize]uint8{1, 1, 1, 2, 2, 0, 0, 0, 0}, game.Cells)
	require.EqualValues(t, 5, game.Turn)
	require.False(t, game.Full)
}

func TestDraw(t *testing.T) {
	app := New()
	state := newState()
	require.NoError(t, apply(t, app, state, alice, &CreateGame{GameID: "d"}))
	require.NoError(t, apply(t, app, state, bob, &JoinGame{GameID: "d"}))
	// x o x
	// x o o
	// o x x
	for i, pos := range []uint8{0, 1, 2, 4, 3, 5, 7, 6, 8} {
		sender := alice
		if i%2 == 1 {
			sender = bob
		}
		require.NoError(t, apply(t, app, state, sender, &Move{GameID: "d", Position: pos}), "move %d", i)
	}
	board, found, err := LoadBoard(state, "d")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, board.IsFull())
	require.Nil(t, board.WinnerAccount())
	require.ErrorContains(t, apply(t, app, state, bob, &Move{GameID: "d", Position: 0}), "game is a draw")
}

func TestBoard(t *testing.T) {
	board := &Board{Creator: alice}
	require.Equal(t, alice, board.NextPlayer())
	require.Equal(t, Creator, board.NextMark())
	require.False(t, board.IsParticipant(bob))

	board.Player = &bob
	board.Turn = 1
	require.Equal(t, bob, board.NextPlayer())
	require.Equal(t, Player, board.NextMark())
	require.True(t, board.IsParticipant(bob))

	board.Cells = [BoardSize]uint8{2, 0, 0, 0, 2, 0, 0, 0, 2}
	require.Equal(t, Player, board.Winner())
	require.Equal(t, &bob, board.WinnerAccount())

	var decoded Board
	require.NoError(t, codec.Decode(codec.MustEncode(board), &decoded))
	require.Equal(t, *board, decoded)
}

func TestSchemaMatchesEncoding(t *testing.T) {
	app := New()
	for _, tc := range []struct {
		name   string
		values []string
		tx     core.Tx
	}{
		{"create-game", []string{"g1"}, &CreateGame{GameID: "g1"}},
		{"join-game", []string{"g1"}, &JoinGame{GameID: "g1"}},
		{"move", []string{"g1", "4"}, &Move{GameID: "g1", Position: 4}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			schema, ok := core.Lookup(app.Schema(), tc.name)
			require.True(t, ok)
			require.Equal(t, tc.tx.Type(), schema.Type)
			payload, err := schema.Encode(tc.values)
			require.NoError(t, err)
			require.Equal(t, codec.MustEncode(tc.tx), payload)

			parsed, err := app.Parse(schema.Type, payload)
			require.NoError(t, err)
			require.Equal(t, tc.tx, parsed)
		})
	}
}
