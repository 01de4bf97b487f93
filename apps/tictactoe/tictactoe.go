// Package tictactoe implements two player tic-tac-toe games as a rollup application.
package tictactoe

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shardnet/go-shard/codec"
	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/vm/core"
)

// Name of the application.
const Name = "tictactoe"

// Transaction types.
const (
	TypeCreateGame types.TxType = 0
	TypeJoinGame   types.TxType = 1
	TypeMove       types.TxType = 2
)

var (
	errInvalidGameID   = errors.New("invalid game id")
	errGameExists      = errors.New("game already exists")
	errNoGame          = errors.New("game does not exist")
	errOwnGame         = errors.New("you cannot join your own game")
	errAlreadyJoined   = errors.New("game already joined by another player")
	errNotJoined       = errors.New("this game has not been joined yet")
	errNotParticipant  = errors.New("not a participant")
	errWon             = errors.New("game has already been won")
	errDraw            = errors.New("game is a draw")
	errInvalidPosition = errors.New("invalid position")
	errNotYourTurn     = errors.New("it is not your turn")
	errTaken           = errors.New("position already taken")
)

var gamePrefix = []byte("game/")

// GameKey is the state key of the game board.
func GameKey(id string) []byte {
	key := make([]byte, 0, len(gamePrefix)+len(id))
	key = append(key, gamePrefix...)
	return append(key, id...)
}

// LoadBoard reads the board of the game. found is false if the game doesn't exist.
func LoadBoard(state core.Reader, id string) (*Board, bool, error) {
	raw, found, err := state.Get(GameKey(id))
	if err != nil || !found {
		return nil, false, err
	}
	var board Board
	if err := codec.Decode(raw, &board); err != nil {
		return nil, false, fmt.Errorf("%w: board %s: %w", core.ErrInternal, id, err)
	}
	return &board, true, nil
}

func saveBoard(state core.Writer, id string, board *Board) {
	state.Set(GameKey(id), codec.MustEncode(board))
}

// App is the tic-tac-toe application.
type App struct{}

// New creates the application.
func New() *App {
	return &App{}
}

// Name implements core.Application.
func (*App) Name() string { return Name }

// Schema implements core.Application.
func (*App) Schema() []core.TxSchema {
	return []core.TxSchema{
		{
			Name:   "create-game",
			Type:   TypeCreateGame,
			Fields: []core.Field{{Name: "game-id", Kind: core.KindString}},
		},
		{
			Name:   "join-game",
			Type:   TypeJoinGame,
			Fields: []core.Field{{Name: "game-id", Kind: core.KindString}},
		},
		{
			Name: "move",
			Type: TypeMove,
			Fields: []core.Field{
				{Name: "game-id", Kind: core.KindString},
				{Name: "position", Kind: core.KindU8},
			},
		},
	}
}

// Parse implements core.Application.
func (*App) Parse(tt types.TxType, payload []byte) (core.Tx, error) {
	var tx Tx
	switch tt {
	case TypeCreateGame:
		tx = &CreateGame{}
	case TypeJoinGame:
		tx = &JoinGame{}
	case TypeMove:
		tx = &Move{}
	default:
		return nil, fmt.Errorf("unknown transaction type %d", tt)
	}
	if err := codec.Decode(payload, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Verify implements core.Application.
func (*App) Verify(ctx *core.Context, state core.Reader, tx core.Tx) error {
	switch tx := tx.(type) {
	case *CreateGame:
		if tx.GameID == "" {
			return errInvalidGameID
		}
		_, found, err := LoadBoard(state, tx.GameID)
		if err != nil {
			return err
		}
		if found {
			return errGameExists
		}
		return nil
	case *JoinGame:
		board, found, err := LoadBoard(state, tx.GameID)
		if err != nil {
			return err
		}
		switch {
		case !found:
			return errNoGame
		case board.Creator == ctx.Sender:
			return errOwnGame
		case board.Player != nil:
			return errAlreadyJoined
		}
		return nil
	case *Move:
		board, found, err := LoadBoard(state, tx.GameID)
		if err != nil {
			return err
		}
		switch {
		case !found:
			return errNoGame
		case board.Player == nil:
			return errNotJoined
		case !board.IsParticipant(ctx.Sender):
			return errNotParticipant
		case board.Winner() != 0:
			return errWon
		case board.IsFull():
			return errDraw
		case tx.Position >= BoardSize:
			return errInvalidPosition
		case board.NextPlayer() != ctx.Sender:
			return errNotYourTurn
		case board.Cells[tx.Position] != Empty:
			return errTaken
		}
		return nil
	default:
		return fmt.Errorf("%w: unexpected transaction %T", core.ErrInternal, tx)
	}
}

// Process implements core.Application.
func (*App) Process(ctx *core.Context, state core.Writer, tx core.Tx) error {
	switch tx := tx.(type) {
	case *CreateGame:
		saveBoard(state, tx.GameID, &Board{Creator: ctx.Sender})
		ctx.Logger.Debug("game created",
			zap.String("game", tx.GameID),
			zap.Stringer("creator", ctx.Sender),
		)
		return nil
	case *JoinGame:
		board, found, err := LoadBoard(state, tx.GameID)
		if err != nil {
			return err
		}
		if !found {
			return errNoGame
		}
		player := ctx.Sender
		board.Player = &player
		saveBoard(state, tx.GameID, board)
		ctx.Logger.Debug("game joined",
			zap.String("game", tx.GameID),
			zap.Stringer("player", ctx.Sender),
		)
		return nil
	case *Move:
		board, found, err := LoadBoard(state, tx.GameID)
		if err != nil {
			return err
		}
		if !found {
			return errNoGame
		}
		board.Cells[tx.Position] = board.NextMark()
		board.Turn++
		saveBoard(state, tx.GameID, board)
		if winner := board.WinnerAccount(); winner != nil {
			ctx.Logger.Info("game won",
				zap.String("game", tx.GameID),
				zap.Stringer("winner", *winner),
			)
		} else if board.IsFull() {
			ctx.Logger.Info("game is a draw", zap.String("game", tx.GameID))
		}
		return nil
	default:
		return fmt.Errorf("%w: unexpected transaction %T", core.ErrInternal, tx)
	}
}

// Genesis implements core.Application. Games don't have initial state.
func (*App) Genesis(core.Writer, map[types.AccountID]uint64) error {
	return nil
}

// GameView is returned by the game view.
type GameView struct {
	GameID  string           `json:"game_id"`
	Creator types.AccountID  `json:"creator"`
	Player  *types.AccountID `json:"player,omitempty"`
	Cells   [BoardSize]uint8 `json:"board"`
	Turn    uint64           `json:"turn"`
	Winner  *types.AccountID `json:"winner,omitempty"`
	Full    bool             `json:"full"`
}

// View implements core.Application. The only view is "game" with the game id as argument.
func (*App) View(state core.Reader, view, arg string) (any, error) {
	switch view {
	case "game":
		board, found, err := LoadBoard(state, arg)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errNoGame
		}
		return GameView{
			GameID:  arg,
			Creator: board.Creator,
			Player:  board.Player,
			Cells:   board.Cells,
			Turn:    board.Turn,
			Winner:  board.WinnerAccount(),
			Full:    board.IsFull(),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownView, view)
	}
}
