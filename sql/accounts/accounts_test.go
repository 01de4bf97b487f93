package accounts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/sql"
)

func TestUpdateGet(t *testing.T) {
	db := sql.InMemory()
	id := types.AccountID{1}
	pk := &types.PublicKey{2}

	_, err := Latest(db, id)
	require.ErrorIs(t, err, sql.ErrNotFound)

	require.NoError(t, Update(db, Account{ID: id, PublicKey: pk, Nonce: 1, Height: 3}))
	require.NoError(t, Update(db, Account{ID: id, PublicKey: pk, Nonce: 2, Height: 5}))

	latest, err := Latest(db, id)
	require.NoError(t, err)
	require.Equal(t, Account{ID: id, PublicKey: pk, Nonce: 2, Height: 5}, latest)

	at4, err := Get(db, id, 4)
	require.NoError(t, err)
	require.EqualValues(t, 1, at4.Nonce)

	_, err = Get(db, id, 2)
	require.ErrorIs(t, err, sql.ErrNotFound)
}

func TestSnapshot(t *testing.T) {
	db := sql.InMemory()
	for i := byte(3); i > 0; i-- {
		require.NoError(t, Update(db, Account{ID: types.AccountID{i}, Nonce: 1, Height: types.Height(i)}))
	}
	require.NoError(t, Update(db, Account{ID: types.AccountID{1}, Nonce: 7, Height: 10}))

	snap, err := Snapshot(db, 2)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	require.Equal(t, types.AccountID{1}, snap[0].ID)
	require.EqualValues(t, 1, snap[0].Nonce)
	require.Equal(t, types.AccountID{2}, snap[1].ID)

	require.Nil(t, snap[0].PublicKey)

	snap, err = Snapshot(db, 10)
	require.NoError(t, err)
	require.Len(t, snap, 3)
	require.EqualValues(t, 7, snap[0].Nonce)
}
