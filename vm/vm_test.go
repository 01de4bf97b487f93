package vm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardnet/go-shard/apps/transfer"
	"github.com/shardnet/go-shard/codec"
	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/log/logtest"
	"github.com/shardnet/go-shard/registry"
	"github.com/shardnet/go-shard/signing"
	"github.com/shardnet/go-shard/sql"
	"github.com/shardnet/go-shard/sql/dropped"
	"github.com/shardnet/go-shard/vm/core"
)

var errUnlucky = errors.New("unlucky amount")

// faultyApp fails processing of transfers with amounts 13 and 66.
type faultyApp struct {
	*transfer.App
}

func (a faultyApp) Process(ctx *core.Context, state core.Writer, tx core.Tx) error {
	state.Set([]byte("junk"), []byte{1})
	switch tx.(*transfer.Transfer).Amount {
	case 13:
		return errUnlucky
	case 66:
		return fmt.Errorf("%w: disk on fire", core.ErrInternal)
	}
	return a.App.Process(ctx, state, tx)
}

func testNamespace(tb testing.TB) types.Namespace {
	ns, err := types.NewNamespaceV0([]byte("test"))
	require.NoError(tb, err)
	return ns
}

func newSigners(tb testing.TB, n int) []*signing.EdSigner {
	tb.Helper()
	ns := testNamespace(tb)
	rst := make([]*signing.EdSigner, 0, n)
	for range n {
		signer, err := signing.NewEdSigner(signing.WithPrefix(ns.Bytes()))
		require.NoError(tb, err)
		rst = append(rst, signer)
	}
	return rst
}

type tester struct {
	tb     testing.TB
	db     *sql.Database
	vm     *VM
	height types.Height
	root   types.Hash32
}

func newTester(tb testing.TB, app core.Application, cfg Config, balances map[types.AccountID]uint64) *tester {
	tb.Helper()
	vm, err := New(app, testNamespace(tb),
		WithLogger(logtest.New(tb)),
		WithConfig(cfg),
	)
	require.NoError(tb, err)
	db := sql.InMemory()
	root, err := vm.ApplyGenesis(db, 0, balances)
	require.NoError(tb, err)
	return &tester{tb: tb, db: db, vm: vm, root: root}
}

func (t *tester) apply(blobs ...[]byte) *Result {
	t.tb.Helper()
	ordered := make([]types.Blob, 0, len(blobs))
	for i, blob := range blobs {
		ordered = append(ordered, types.Blob{Data: blob, Index: i})
	}
	return t.applyBlobs(ordered)
}

func (t *tester) applyBlobs(blobs []types.Blob) *Result {
	t.tb.Helper()
	var result *Result
	require.NoError(t.tb, t.db.WithTx(context.Background(), func(tx *sql.Tx) error {
		var err error
		result, err = t.vm.Apply(tx, t.height+1, t.root, t.vm.DecodeBlobs(blobs))
		return err
	}))
	t.height++
	t.root = result.Root
	return result
}

func (t *tester) balance(id types.AccountID) uint64 {
	t.tb.Helper()
	value, err := transfer.Balance(core.NewDBReader(t.db, t.height), id)
	require.NoError(t.tb, err)
	return value
}

func (t *tester) nonce(id types.AccountID) uint64 {
	t.tb.Helper()
	nonce, err := registry.New(t.db).CurrentNonce(id)
	require.NoError(t.tb, err)
	return nonce
}

func (t *tester) dropped() []dropped.Record {
	t.tb.Helper()
	records, err := dropped.List(t.db, t.height)
	require.NoError(t.tb, err)
	return records
}

func envelope(signer *signing.EdSigner, nonce uint64, to types.AccountID, amount uint64) *types.Envelope {
	env := &types.Envelope{
		TxType:  transfer.TypeTransfer,
		Payload: codec.MustEncode(&transfer.Transfer{To: to, Amount: amount}),
		Nonce:   &nonce,
	}
	signer.SignEnvelope(env)
	return env
}

func encode(tb testing.TB, env *types.Envelope) []byte {
	raw, err := types.EncodeEnvelope(env)
	require.NoError(tb, err)
	return raw
}

func spend(tb testing.TB, signer *signing.EdSigner, nonce uint64, to types.AccountID, amount uint64) []byte {
	return encode(tb, envelope(signer, nonce, to, amount))
}

func TestTransferScenario(t *testing.T) {
	signers := newSigners(t, 2)
	alice, bob := signers[0], signers[1]
	tt := newTester(t, transfer.New(), DefaultConfig(), map[types.AccountID]uint64{
		alice.AccountID(): 100,
		bob.AccountID():   0,
	})

	rst := tt.apply(spend(t, alice, 0, bob.AccountID(), 30))
	require.Len(t, rst.Applied, 1)
	require.Empty(t, rst.Dropped)
	require.EqualValues(t, 70, tt.balance(alice.AccountID()))
	require.EqualValues(t, 30, tt.balance(bob.AccountID()))

	tt.apply(spend(t, alice, 1, bob.AccountID(), 30))
	require.EqualValues(t, 40, tt.balance(alice.AccountID()))
	require.EqualValues(t, 60, tt.balance(bob.AccountID()))
	require.EqualValues(t, 2, tt.nonce(alice.AccountID()))
	require.EqualValues(t, 0, tt.nonce(bob.AccountID()))

	pk, found, err := registry.New(tt.db).Lookup(alice.AccountID())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, alice.PublicKey(), pk)

	rst = tt.apply(spend(t, alice, 2, bob.AccountID(), 41))
	require.Empty(t, rst.Applied)
	require.Len(t, rst.Dropped, 1)
	require.Equal(t, core.ReasonRejected, rst.Dropped[0].Reason)
	require.Contains(t, rst.Dropped[0].Message, "insufficient balance")
	require.Equal(t, rst.Dropped, tt.dropped())
	require.EqualValues(t, 40, tt.balance(alice.AccountID()))
	require.EqualValues(t, 2, tt.nonce(alice.AccountID()))
}

func TestVerificationFlags(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		cfg     Config
		applied bool
		nonce   uint64
	}{
		{"all checks", Config{VerifySignatures: true, EnforceNonces: true}, false, 0},
		{"signatures only", Config{VerifySignatures: true}, false, 0},
		{"nonces only", Config{EnforceNonces: true}, true, 1},
		{"no checks", Config{}, true, 0},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			signers := newSigners(t, 2)
			alice, bob := signers[0], signers[1]
			tt := newTester(t, transfer.New(), tc.cfg, map[types.AccountID]uint64{alice.AccountID(): 100})

			env := envelope(alice, 0, bob.AccountID(), 10)
			garbage := types.EdSignature{1, 2, 3}
			env.Signature = &garbage

			rst := tt.apply(encode(t, env))
			if tc.applied {
				require.Len(t, rst.Applied, 1)
				require.EqualValues(t, 90, tt.balance(alice.AccountID()))
			} else {
				require.Len(t, rst.Dropped, 1)
				require.Equal(t, core.ReasonSignature, rst.Dropped[0].Reason)
				require.Equal(t, alice.AccountID(), *rst.Dropped[0].Sender)
				require.EqualValues(t, 100, tt.balance(alice.AccountID()))
			}
			require.Equal(t, tc.nonce, tt.nonce(alice.AccountID()))
		})
	}
}

func TestSignatureFromOtherNamespace(t *testing.T) {
	ns, err := types.NewNamespaceV0([]byte("other"))
	require.NoError(t, err)
	other, err := signing.NewEdSigner(signing.WithPrefix(ns.Bytes()))
	require.NoError(t, err)
	tt := newTester(t, transfer.New(), DefaultConfig(), map[types.AccountID]uint64{other.AccountID(): 100})

	rst := tt.apply(spend(t, other, 0, types.AccountID{1}, 1))
	require.Len(t, rst.Dropped, 1)
	require.Equal(t, core.ReasonSignature, rst.Dropped[0].Reason)
}

func TestVerifyWithNamespacePrefix(t *testing.T) {
	ns := testNamespace(t)
	vm, err := New(transfer.New(), ns)
	require.NoError(t, err)

	signed := newSigners(t, 1)[0]
	unprefixed, err := signing.NewEdSigner()
	require.NoError(t, err)
	db := sql.InMemory()
	_, err = vm.ApplyGenesis(db, 0, map[types.AccountID]uint64{
		signed.AccountID():     100,
		unprefixed.AccountID(): 100,
	})
	require.NoError(t, err)

	snap := NewSnapshot(db, 0)
	require.NoError(t, vm.Verify(envelope(signed, 0, types.AccountID{1}, 1), snap))
	require.ErrorIs(t, vm.Verify(envelope(unprefixed, 0, types.AccountID{1}, 1), snap), core.ErrInvalidSignature)
}

func TestNonces(t *testing.T) {
	signers := newSigners(t, 2)
	alice, bob := signers[0], signers[1]
	tt := newTester(t, transfer.New(), DefaultConfig(), map[types.AccountID]uint64{alice.AccountID(): 100})

	rst := tt.apply(
		spend(t, alice, 1, bob.AccountID(), 1),
		spend(t, alice, 0, bob.AccountID(), 2),
		spend(t, alice, 0, bob.AccountID(), 3),
		spend(t, alice, 1, bob.AccountID(), 4),
	)
	require.Len(t, rst.Applied, 2)
	require.Len(t, rst.Dropped, 2)
	require.Equal(t, 0, rst.Dropped[0].Index)
	require.Equal(t, core.ReasonNonce, rst.Dropped[0].Reason)
	require.Contains(t, rst.Dropped[0].Message, "too high")
	require.Equal(t, 2, rst.Dropped[1].Index)
	require.Contains(t, rst.Dropped[1].Message, "too low")

	require.EqualValues(t, 2, tt.nonce(alice.AccountID()))
	require.EqualValues(t, 6, tt.balance(bob.AccountID()))

	missing := envelope(alice, 0, bob.AccountID(), 1)
	missing.Nonce = nil
	alice.SignEnvelope(missing)
	rst = tt.apply(encode(t, missing))
	require.Len(t, rst.Dropped, 1)
	require.Contains(t, rst.Dropped[0].Message, "missing nonce")
}

func TestMalformed(t *testing.T) {
	signers := newSigners(t, 1)
	tt := newTester(t, transfer.New(), DefaultConfig(), nil)

	unknown := &types.Envelope{TxType: 7, Payload: []byte{1}}
	signers[0].SignEnvelope(unknown)
	badPayload := &types.Envelope{TxType: transfer.TypeTransfer, Payload: []byte{1, 2}}
	signers[0].SignEnvelope(badPayload)

	rst := tt.apply([]byte{0xff, 0xff, 0xff}, encode(t, unknown), encode(t, badPayload))
	require.Empty(t, rst.Applied)
	require.Len(t, rst.Dropped, 3)
	for _, rec := range rst.Dropped {
		require.Equal(t, core.ReasonDecode, rec.Reason)
	}
	require.Nil(t, rst.Dropped[0].Sender)
	require.NotNil(t, rst.Dropped[2].Sender)
}

func TestApplicationError(t *testing.T) {
	signers := newSigners(t, 2)
	alice, bob := signers[0], signers[1]
	tt := newTester(t, faultyApp{transfer.New()}, DefaultConfig(), map[types.AccountID]uint64{alice.AccountID(): 100})

	rst := tt.apply(
		spend(t, alice, 0, bob.AccountID(), 13),
		spend(t, alice, 0, bob.AccountID(), 10),
	)
	require.Len(t, rst.Applied, 1)
	require.Len(t, rst.Dropped, 1)
	require.Equal(t, core.ReasonApplication, rst.Dropped[0].Reason)
	require.Contains(t, rst.Dropped[0].Message, errUnlucky.Error())
	require.EqualValues(t, 90, tt.balance(alice.AccountID()))
	require.EqualValues(t, 1, tt.nonce(alice.AccountID()))

	_, found, err := core.NewDBReader(tt.db, tt.height).Get([]byte("junk"))
	require.NoError(t, err)
	require.True(t, found, "written by the successful transfer")
}

func TestInternalErrorAbortsHeight(t *testing.T) {
	signers := newSigners(t, 2)
	alice, bob := signers[0], signers[1]
	tt := newTester(t, faultyApp{transfer.New()}, DefaultConfig(), map[types.AccountID]uint64{alice.AccountID(): 100})

	txs := tt.vm.DecodeBlobs([]types.Blob{
		{Data: spend(t, alice, 0, bob.AccountID(), 10), Index: 0},
		{Data: spend(t, alice, 1, bob.AccountID(), 66), Index: 1},
	})
	err := tt.db.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tt.vm.Apply(tx, 1, tt.root, txs)
		return err
	})
	require.ErrorIs(t, err, core.ErrInternal)

	require.EqualValues(t, 100, tt.balance(alice.AccountID()))
	require.EqualValues(t, 0, tt.nonce(alice.AccountID()))
	records, err := dropped.List(tt.db, 1)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestDeterministicRoots(t *testing.T) {
	signers := newSigners(t, 3)
	balances := map[types.AccountID]uint64{
		signers[0].AccountID(): 1000,
		signers[1].AccountID(): 500,
		signers[2].AccountID(): 1,
	}
	first := newTester(t, transfer.New(), DefaultConfig(), balances)
	second := newTester(t, transfer.New(), DefaultConfig(), balances)
	require.Equal(t, first.root, second.root)
	require.NotEqual(t, types.Hash32{}, first.root)

	heights := [][][]byte{
		{
			spend(t, signers[0], 0, signers[1].AccountID(), 10),
			spend(t, signers[1], 0, signers[2].AccountID(), 600),
			[]byte("garbage"),
		},
		{},
		{
			spend(t, signers[2], 0, signers[0].AccountID(), 1),
			spend(t, signers[0], 1, signers[2].AccountID(), 7),
		},
	}
	var roots []types.Hash32
	for i, blobs := range heights {
		r1 := first.apply(blobs...)
		roots = append(roots, r1.Root)
		r2 := second.apply(blobs...)
		require.Equal(t, r1.Root, r2.Root, "height %d", i+1)
		require.Equal(t, r1.Applied, r2.Applied)
	}

	third := newTester(t, transfer.New(), DefaultConfig(), balances)
	r3 := third.apply(spend(t, signers[0], 0, signers[1].AccountID(), 11))
	require.NotEqual(t, roots[0], r3.Root)
}

func TestEmptyHeightChangesRoot(t *testing.T) {
	tt := newTester(t, transfer.New(), DefaultConfig(), nil)
	genesis := tt.root
	rst := tt.apply()
	require.Empty(t, rst.Applied)
	require.NotEqual(t, genesis, rst.Root)
}

func TestReprocessAfterRollback(t *testing.T) {
	signers := newSigners(t, 2)
	alice, bob := signers[0], signers[1]
	tt := newTester(t, transfer.New(), DefaultConfig(), map[types.AccountID]uint64{alice.AccountID(): 100})
	blobs := []types.Blob{{Data: spend(t, alice, 0, bob.AccountID(), 30)}}

	errAbort := errors.New("abort")
	var aborted types.Hash32
	err := tt.db.WithTx(context.Background(), func(tx *sql.Tx) error {
		rst, err := tt.vm.Apply(tx, 1, tt.root, tt.vm.DecodeBlobs(blobs))
		require.NoError(t, err)
		aborted = rst.Root
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)
	require.EqualValues(t, 100, tt.balance(alice.AccountID()))

	rst := tt.applyBlobs(blobs)
	require.Equal(t, aborted, rst.Root)
	require.EqualValues(t, 70, tt.balance(alice.AccountID()))
	require.EqualValues(t, 30, tt.balance(bob.AccountID()))
	require.EqualValues(t, 1, tt.nonce(alice.AccountID()))
}

func TestBlobsOrderedByIndex(t *testing.T) {
	signers := newSigners(t, 2)
	alice, bob := signers[0], signers[1]
	tt := newTester(t, transfer.New(), DefaultConfig(), map[types.AccountID]uint64{alice.AccountID(): 100})

	blobs := []types.Blob{
		{Data: spend(t, alice, 2, bob.AccountID(), 3), Index: 2},
		{Data: spend(t, alice, 0, bob.AccountID(), 1), Index: 0},
		{Data: spend(t, alice, 1, bob.AccountID(), 2), Index: 1},
	}
	decoded := tt.vm.DecodeBlobs(blobs)
	for i, tx := range decoded {
		require.Equal(t, i, tx.Index)
	}
	rst := tt.applyBlobs(blobs)
	require.Empty(t, rst.Dropped)
	require.Equal(t, []types.TransactionID{
		types.CalcTransactionID(blobs[1].Data),
		types.CalcTransactionID(blobs[2].Data),
		types.CalcTransactionID(blobs[0].Data),
	}, rst.Applied)
	require.EqualValues(t, 6, tt.balance(bob.AccountID()))
	require.Equal(t, 2, blobs[0].Index, "input is not reordered")
}

func TestVerifyAgainstSnapshot(t *testing.T) {
	signers := newSigners(t, 2)
	alice, bob := signers[0], signers[1]
	tt := newTester(t, transfer.New(), DefaultConfig(), map[types.AccountID]uint64{alice.AccountID(): 100})

	snap := NewSnapshot(tt.db, tt.height)
	require.NoError(t, tt.vm.Verify(envelope(alice, 0, bob.AccountID(), 100), snap))
	require.ErrorIs(t, tt.vm.Verify(envelope(alice, 1, bob.AccountID(), 1), snap), core.ErrNonceMismatch)
	require.ErrorIs(t, tt.vm.Verify(envelope(alice, 0, bob.AccountID(), 101), snap), core.ErrApplicationRejected)
	require.ErrorIs(t, tt.vm.Verify(envelope(alice, 0, alice.AccountID(), 1), snap), core.ErrApplicationRejected)

	unsigned := envelope(alice, 0, bob.AccountID(), 1)
	unsigned.Signature = nil
	require.ErrorIs(t, tt.vm.Verify(unsigned, snap), core.ErrInvalidSignature)

	require.EqualValues(t, 0, tt.nonce(alice.AccountID()))
	require.EqualValues(t, 100, tt.balance(alice.AccountID()))
}

func TestGenesisRoot(t *testing.T) {
	a, b := types.AccountID{1}, types.AccountID{2}
	vm, err := New(transfer.New(), testNamespace(t))
	require.NoError(t, err)
	r1, err := vm.ApplyGenesis(sql.InMemory(), 0, map[types.AccountID]uint64{a: 1, b: 2})
	require.NoError(t, err)
	r2, err := vm.ApplyGenesis(sql.InMemory(), 0, map[types.AccountID]uint64{b: 2, a: 1})
	require.NoError(t, err)
	require.Equal(t, r1, r2)

	r3, err := vm.ApplyGenesis(sql.InMemory(), 0, map[types.AccountID]uint64{a: 2, b: 1})
	require.NoError(t, err)
	require.NotEqual(t, r1, r3)

	r4, err := vm.ApplyGenesis(sql.InMemory(), 5, map[types.AccountID]uint64{a: 1, b: 2})
	require.NoError(t, err)
	require.NotEqual(t, r1, r4)
}
