// Package transfer implements an application that moves balances between accounts.
package transfer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/spacemeshos/go-scale"
	"go.uber.org/zap"

	"github.com/shardnet/go-shard/codec"
	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/vm/core"
)

// Name of the application.
const Name = "transfer"

// TypeTransfer is the transaction type of Transfer.
const TypeTransfer types.TxType = 0

var (
	errZeroAmount   = errors.New("amount must be positive")
	errSelfTransfer = errors.New("cannot transfer to self")
	errNoBalance    = errors.New("insufficient balance")
	errOverflow     = errors.New("balance overflow")
)

var balancePrefix = []byte("balance/")

// BalanceKey is the state key of the account balance.
func BalanceKey(id types.AccountID) []byte {
	key := make([]byte, 0, len(balancePrefix)+len(id))
	key = append(key, balancePrefix...)
	return append(key, id[:]...)
}

// Tx is the closed set of transactions of the application.
type Tx interface {
	core.Tx
	scale.Decodable
	transferTx()
}

// Transfer moves Amount from the sender to To.
type Transfer struct {
	To     types.AccountID
	Amount uint64
}

func (*Transfer) transferTx() {}

// Type implements core.Tx.
func (*Transfer) Type() types.TxType { return TypeTransfer }

// EncodeScale implements scale codec interface.
func (t *Transfer) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := t.To.EncodeScale(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, t.Amount)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (t *Transfer) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		n, err := t.To.DecodeScale(dec)
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
		t.Amount = field
		total += n
	}
	return total, nil
}

type balance uint64

func (b *balance) EncodeScale(enc *scale.Encoder) (int, error) {
	return scale.EncodeCompact64(enc, uint64(*b))
}

func (b *balance) DecodeScale(dec *scale.Decoder) (int, error) {
	value, n, err := scale.DecodeCompact64(dec)
	if err != nil {
		return n, err
	}
	*b = balance(value)
	return n, nil
}

// Balance reads the balance of the account. Unknown accounts have zero balance.
func Balance(state core.Reader, id types.AccountID) (uint64, error) {
	raw, found, err := state.Get(BalanceKey(id))
	if err != nil || !found {
		return 0, err
	}
	var b balance
	if err := codec.Decode(raw, &b); err != nil {
		return 0, fmt.Errorf("%w: balance of %s: %w", core.ErrInternal, id, err)
	}
	return uint64(b), nil
}

func setBalance(state core.Writer, id types.AccountID, value uint64) {
	b := balance(value)
	state.Set(BalanceKey(id), codec.MustEncode(&b))
}

// App is the transfer application.
type App struct{}

// New creates the application.
func New() *App {
	return &App{}
}

// Name implements core.Application.
func (*App) Name() string { return Name }

// Schema implements core.Application.
func (*App) Schema() []core.TxSchema {
	return []core.TxSchema{{
		Name: "transfer",
		Type: TypeTransfer,
		Fields: []core.Field{
			{Name: "to", Kind: core.KindAccount},
			{Name: "amount", Kind: core.KindU64},
		},
	}}
}

// Parse implements core.Application.
func (*App) Parse(tt types.TxType, payload []byte) (core.Tx, error) {
	switch tt {
	case TypeTransfer:
		var tx Transfer
		if err := codec.Decode(payload, &tx); err != nil {
			return nil, err
		}
		return &tx, nil
	default:
		return nil, fmt.Errorf("unknown transaction type %d", tt)
	}
}

// Verify implements core.Application.
func (*App) Verify(ctx *core.Context, state core.Reader, tx core.Tx) error {
	switch tx := tx.(type) {
	case *Transfer:
		if tx.Amount == 0 {
			return errZeroAmount
		}
		if tx.To == ctx.Sender {
			return errSelfTransfer
		}
		have, err := Balance(state, ctx.Sender)
		if err != nil {
			return err
		}
		if have < tx.Amount {
			return fmt.Errorf("%w: have %d, need %d", errNoBalance, have, tx.Amount)
		}
		return nil
	default:
		return fmt.Errorf("%w: unexpected transaction %T", core.ErrInternal, tx)
	}
}

// Process implements core.Application.
func (*App) Process(ctx *core.Context, state core.Writer, tx core.Tx) error {
	switch tx := tx.(type) {
	case *Transfer:
		from, err := Balance(state, ctx.Sender)
		if err != nil {
			return err
		}
		if from < tx.Amount {
			return fmt.Errorf("%w: have %d, need %d", errNoBalance, from, tx.Amount)
		}
		to, err := Balance(state, tx.To)
		if err != nil {
			return err
		}
		if to > math.MaxUint64-tx.Amount {
			return errOverflow
		}
		setBalance(state, ctx.Sender, from-tx.Amount)
		setBalance(state, tx.To, to+tx.Amount)
		ctx.Logger.Debug("transfer",
			zap.Stringer("from", ctx.Sender),
			zap.Stringer("to", tx.To),
			zap.Uint64("amount", tx.Amount),
		)
		return nil
	default:
		return fmt.Errorf("%w: unexpected transaction %T", core.ErrInternal, tx)
	}
}

// Genesis implements core.Application.
func (*App) Genesis(state core.Writer, balances map[types.AccountID]uint64) error {
	ids := make([]types.AccountID, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return string(ids[i][:]) < string(ids[j][:])
	})
	for _, id := range ids {
		setBalance(state, id, balances[id])
	}
	return nil
}

// BalanceView is returned by the balance view.
type BalanceView struct {
	Account types.AccountID `json:"account"`
	Balance uint64          `json:"balance"`
}

// View implements core.Application. The only view is "balance" with the bech32 account as argument.
func (*App) View(state core.Reader, view, arg string) (any, error) {
	switch view {
	case "balance":
		id, err := types.StringToAccountID(arg)
		if err != nil {
			return nil, err
		}
		value, err := Balance(state, id)
		if err != nil {
			return nil, err
		}
		return BalanceView{Account: id, Balance: value}, nil
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownView, view)
	}
}
