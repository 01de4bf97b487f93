package tictactoe

import (
	"github.com/spacemeshos/go-scale"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/vm/core"
)

// BoardSize is the number of cells on the board.
const BoardSize = 9

// Cell marks.
const (
	Empty   uint8 = 0
	Creator uint8 = 1
	Player  uint8 = 2
)

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Tx is the closed set of transactions of the application.
type Tx interface {
	core.Tx
	scale.Decodable
	tictactoeTx()
}

// CreateGame creates a game owned by the sender.
type CreateGame struct {
	GameID string
}

// JoinGame joins the sender as the second player.
type JoinGame struct {
	GameID string
}

// Move marks a cell. Positions are numbered row by row from 0 to 8.
type Move struct {
	GameID   string
	Position uint8
}

func (*CreateGame) tictactoeTx() {}
func (*JoinGame) tictactoeTx()   {}
func (*Move) tictactoeTx()       {}

// Type implements core.Tx.
func (*CreateGame) Type() types.TxType { return TypeCreateGame }

// Type implements core.Tx.
func (*JoinGame) Type() types.TxType { return TypeJoinGame }

// Type implements core.Tx.
func (*Move) Type() types.TxType { return TypeMove }

// EncodeScale implements scale codec interface.
func (t *CreateGame) EncodeScale(enc *scale.Encoder) (int, error) {
	return core.EncodeString(enc, t.GameID)
}

// DecodeScale implements scale codec interface.
func (t *CreateGame) DecodeScale(dec *scale.Decoder) (int, error) {
	field, n, err := core.DecodeString(dec)
	if err != nil {
		return n, err
	}
	t.GameID = field
	return n, nil
}

// EncodeScale implements scale codec interface.
func (t *JoinGame) EncodeScale(enc *scale.Encoder) (int, error) {
	return core.EncodeString(enc, t.GameID)
}

// DecodeScale implements scale codec interface.
func (t *JoinGame) DecodeScale(dec *scale.Decoder) (int, error) {
	field, n, err := core.DecodeString(dec)
	if err != nil {
		return n, err
	}
	t.GameID = field
	return n, nil
}

// EncodeScale implements scale codec interface.
func (t *Move) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := core.EncodeString(enc, t.GameID)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByte(enc, t.Position)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (t *Move) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := core.DecodeString(dec)
		if err != nil {
			return total, err
		}
		t.GameID = field
		total += n
	}
	{
		field, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		t.Position = field
		total += n
	}
	return total, nil
}

// Board is the stored state of a game.
type Board struct {
	Creator types.AccountID
	Player  *types.AccountID
	Cells   [BoardSize]uint8
	Turn    uint64
}

// IsParticipant returns true if the account plays the game.
func (b *Board) IsParticipant(id types.AccountID) bool {
	return b.Creator == id || (b.Player != nil && *b.Player == id)
}

// NextPlayer returns the account that makes the next move. The creator moves on even turns.
func (b *Board) NextPlayer() types.AccountID {
	if b.Turn%2 == 0 || b.Player == nil {
		return b.Creator
	}
	return *b.Player
}

// NextMark returns the mark placed by the next move.
func (b *Board) NextMark() uint8 {
	if b.Turn%2 == 0 {
		return Creator
	}
	return Player
}

// Winner returns the mark on a complete line or Empty.
func (b *Board) Winner() uint8 {
	for _, line := range lines {
		mark := b.Cells[line[0]]
		if mark != Empty && mark == b.Cells[line[1]] && mark == b.Cells[line[2]] {
			return mark
		}
	}
	return Empty
}

// WinnerAccount returns the account that won the game or nil.
func (b *Board) WinnerAccount() *types.AccountID {
	switch b.Winner() {
	case Creator:
		creator := b.Creator
		return &creator
	case Player:
		return b.Player
	}
	return nil
}

// IsFull returns true if every cell is marked.
func (b *Board) IsFull() bool {
	for _, cell := range b.Cells {
		if cell == Empty {
			return false
		}
	}
	return true
}

// EncodeScale implements scale codec interface.
func (b *Board) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := b.Creator.EncodeScale(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := core.EncodeBool(enc, b.Player != nil)
		if err != nil {
			return total, err
		}
		total += n
		if b.Player != nil {
			n, err := b.Player.EncodeScale(enc)
			if err != nil {
				return total, err
			}
			total += n
		}
	}
	{
		n, err := scale.EncodeByteArray(enc, b.Cells[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, b.Turn)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (b *Board) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		n, err := b.Creator.DecodeScale(dec)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		present, n, err := core.DecodeBool(dec)
		if err != nil {
			return total, err
		}
		total += n
		b.Player = nil
		if present {
			var player types.AccountID
			n, err := player.DecodeScale(dec)
			if err != nil {
				return total, err
			}
			total += n
			b.Player = &player
		}
	}
	{
		n, err := scale.DecodeByteArray(dec, b.Cells[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		b.Turn = field
		total += n
	}
	return total, nil
}
