package snapshot_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/shardnet/go-shard/apps/transfer"
	"github.com/shardnet/go-shard/codec"
	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/log/logtest"
	"github.com/shardnet/go-shard/signing"
	"github.com/shardnet/go-shard/snapshot"
	"github.com/shardnet/go-shard/sql"
	"github.com/shardnet/go-shard/sql/accounts"
	"github.com/shardnet/go-shard/sql/checkpoint"
	"github.com/shardnet/go-shard/sql/state"
	"github.com/shardnet/go-shard/vm"
)

const dataDir = "/data"

type tester struct {
	meta   snapshot.Meta
	vm     *vm.VM
	alice  *signing.EdSigner
	bob    *signing.EdSigner
	signer func() *signing.EdSigner
}

func newTester(tb testing.TB) *tester {
	ns, err := types.NewNamespaceV0([]byte("snapshot"))
	require.NoError(tb, err)
	machine, err := vm.New(transfer.New(), ns, vm.WithLogger(logtest.New(tb)))
	require.NoError(tb, err)
	tt := &tester{
		meta: snapshot.Meta{Namespace: ns, App: transfer.Name},
		vm:   machine,
	}
	tt.signer = func() *signing.EdSigner {
		signer, err := signing.NewEdSigner(signing.WithPrefix(ns.Bytes()))
		require.NoError(tb, err)
		return signer
	}
	tt.alice = tt.signer()
	tt.bob = tt.signer()
	return tt
}

func (tt *tester) spend(tb testing.TB, from *signing.EdSigner, nonce uint64, to types.AccountID, amount uint64) types.Blob {
	env := &types.Envelope{
		TxType:  transfer.TypeTransfer,
		Payload: codec.MustEncode(&transfer.Transfer{To: to, Amount: amount}),
		Nonce:   &nonce,
	}
	from.SignEnvelope(env)
	raw, err := types.EncodeEnvelope(env)
	require.NoError(tb, err)
	return types.Blob{Data: raw}
}

// apply folds blobs at height on top of the last checkpoint, the way the ingest loop does.
func (tt *tester) apply(tb testing.TB, db *sql.Database, height types.Height, blobs ...types.Blob) types.Hash32 {
	var root types.Hash32
	require.NoError(tb, db.WithTx(context.Background(), func(tx *sql.Tx) error {
		last, err := checkpoint.Get(tx)
		if err != nil {
			return err
		}
		prev, err := checkpoint.GetHeight(tx, last)
		if err != nil {
			return err
		}
		for i := range blobs {
			blobs[i].Index = i
		}
		result, err := tt.vm.Apply(tx, height, prev.Root, tt.vm.DecodeBlobs(blobs))
		if err != nil {
			return err
		}
		root = result.Root
		if err := checkpoint.AddHeight(tx, checkpoint.Info{
			Height:  height,
			Root:    result.Root,
			Applied: len(result.Applied),
			Dropped: len(result.Dropped),
		}); err != nil {
			return err
		}
		return checkpoint.Set(tx, height)
	}))
	return root
}

func (tt *tester) genesis(tb testing.TB) *sql.Database {
	db := sql.InMemory()
	require.NoError(tb, db.WithTx(context.Background(), func(tx *sql.Tx) error {
		root, err := tt.vm.ApplyGenesis(tx, 0, map[types.AccountID]uint64{tt.alice.AccountID(): 100})
		if err != nil {
			return err
		}
		if err := checkpoint.AddHeight(tx, checkpoint.Info{Root: root}); err != nil {
			return err
		}
		return checkpoint.Set(tx, 0)
	}))
	return db
}

func TestRoundTrip(t *testing.T) {
	tt := newTester(t)
	fs := afero.NewMemMapFs()
	ctx := context.Background()

	db := tt.genesis(t)
	tt.apply(t, db, 1, tt.spend(t, tt.alice, 0, tt.bob.AccountID(), 30))
	tt.apply(t, db, 2, tt.spend(t, tt.bob, 0, tt.alice.AccountID(), 5))

	path, err := snapshot.Generate(ctx, fs, db, dataDir, tt.meta, 2)
	require.NoError(t, err)
	require.Equal(t, snapshot.Filename(dataDir, 2), path)

	recovered := sql.InMemory()
	height, err := snapshot.Recover(ctx, fs, recovered, path, tt.meta)
	require.NoError(t, err)
	require.EqualValues(t, 2, height)

	last, err := checkpoint.Get(recovered)
	require.NoError(t, err)
	require.EqualValues(t, 2, last)

	expected, err := state.All(db, 2)
	require.NoError(t, err)
	got, err := state.All(recovered, 2)
	require.NoError(t, err)
	require.Equal(t, expected, got)

	expectedAccounts, err := accounts.Snapshot(db, 2)
	require.NoError(t, err)
	gotAccounts, err := accounts.Snapshot(recovered, 2)
	require.NoError(t, err)
	require.Len(t, gotAccounts, len(expectedAccounts))
	for i := range expectedAccounts {
		require.Equal(t, expectedAccounts[i].ID, gotAccounts[i].ID)
		require.Equal(t, expectedAccounts[i].PublicKey, gotAccounts[i].PublicKey)
		require.Equal(t, expectedAccounts[i].Nonce, gotAccounts[i].Nonce)
	}

	// both databases produce the same root for the next height
	next := tt.spend(t, tt.alice, 1, tt.bob.AccountID(), 10)
	require.Equal(t, tt.apply(t, db, 3, next), tt.apply(t, recovered, 3, next))
}

func TestGenerateEarlierHeight(t *testing.T) {
	tt := newTester(t)
	fs := afero.NewMemMapFs()
	ctx := context.Background()

	db := tt.genesis(t)
	root := tt.apply(t, db, 1, tt.spend(t, tt.alice, 0, tt.bob.AccountID(), 30))
	tt.apply(t, db, 2, tt.spend(t, tt.alice, 1, tt.bob.AccountID(), 30))

	path, err := snapshot.Generate(ctx, fs, db, dataDir, tt.meta, 1)
	require.NoError(t, err)
	data, err := snapshot.Read(fs, path)
	require.NoError(t, err)
	require.Equal(t, "snapshot-1", data.Data.ID)
	require.Equal(t, root, data.Data.Root)
	require.Len(t, data.Data.Accounts, 1)
	require.EqualValues(t, 1, data.Data.Accounts[0].Nonce)

	_, err = snapshot.Generate(ctx, fs, db, dataDir, tt.meta, 3)
	require.ErrorIs(t, err, snapshot.ErrNotProcessed)
}

func TestGenerateEmpty(t *testing.T) {
	tt := newTester(t)
	_, err := snapshot.Generate(context.Background(), afero.NewMemMapFs(), sql.InMemory(), dataDir, tt.meta, 0)
	require.ErrorIs(t, err, sql.ErrNotFound)
}

func TestRecoverNotEmpty(t *testing.T) {
	tt := newTester(t)
	fs := afero.NewMemMapFs()
	ctx := context.Background()

	db := tt.genesis(t)
	path, err := snapshot.Generate(ctx, fs, db, dataDir, tt.meta, 0)
	require.NoError(t, err)
	_, err = snapshot.Recover(ctx, fs, db, path, tt.meta)
	require.ErrorIs(t, err, snapshot.ErrNotEmpty)
}

func TestRecoverMismatch(t *testing.T) {
	tt := newTester(t)
	fs := afero.NewMemMapFs()
	ctx := context.Background()

	db := tt.genesis(t)
	path, err := snapshot.Generate(ctx, fs, db, dataDir, tt.meta, 0)
	require.NoError(t, err)

	other, err := types.NewNamespaceV0([]byte("other"))
	require.NoError(t, err)
	for _, meta := range []snapshot.Meta{
		{Namespace: other, App: tt.meta.App},
		{Namespace: tt.meta.Namespace, App: "tictactoe"},
	} {
		_, err = snapshot.Recover(ctx, fs, sql.InMemory(), path, meta)
		require.ErrorIs(t, err, snapshot.ErrMismatch)
	}
}

func TestRecoverInvalid(t *testing.T) {
	tt := newTester(t)
	fs := afero.NewMemMapFs()
	ctx := context.Background()

	db := tt.genesis(t)
	path, err := snapshot.Generate(ctx, fs, db, dataDir, tt.meta, 0)
	require.NoError(t, err)
	valid, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	mutate := func(fn func(data map[string]any)) []byte {
		var parsed map[string]any
		require.NoError(t, json.Unmarshal(valid, &parsed))
		fn(parsed)
		out, err := json.Marshal(parsed)
		require.NoError(t, err)
		return out
	}
	for _, tc := range []struct {
		desc string
		data []byte
	}{
		{"not json", []byte("{")},
		{"missing data", mutate(func(data map[string]any) { delete(data, "data") })},
		{"wrong version", mutate(func(data map[string]any) { data["version"] = "1.0" })},
		{"short root", mutate(func(data map[string]any) {
			data["data"].(map[string]any)["root"] = "00"
		})},
		{"odd state key", mutate(func(data map[string]any) {
			data["data"].(map[string]any)["state"] = []any{map[string]any{"key": "abc", "value": ""}}
		})},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			file := "/tmp/" + tc.desc
			require.NoError(t, afero.WriteFile(fs, file, tc.data, 0o600))
			_, err := snapshot.Recover(ctx, fs, sql.InMemory(), file, tt.meta)
			require.Error(t, err)
		})
	}
}

func TestValidateSchema(t *testing.T) {
	require.NoError(t, snapshot.ValidateSchema([]byte(`{
		"version": "v",
		"data": {
			"id": "snapshot-0",
			"height": 0,
			"root": "`+types.Hash32{1}.Hex()+`",
			"namespace": "`+types.Namespace{}.String()+`",
			"app": "transfer",
			"accounts": [{"account": "acc", "public_key": null, "nonce": 0}],
			"state": [{"key": "00", "value": ""}]
		}
	}`)))
	require.Error(t, snapshot.ValidateSchema([]byte(`{"version": "v", "data": {}}`)))
}
