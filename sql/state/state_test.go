package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/sql"
)

func TestPutGet(t *testing.T) {
	db := sql.InMemory()
	key := []byte("balance/a")

	_, err := Get(db, key, 10)
	require.ErrorIs(t, err, sql.ErrNotFound)

	require.NoError(t, Put(db, key, []byte{1}, 2))
	require.NoError(t, Put(db, key, []byte{2}, 5))

	for _, tc := range []struct {
		height types.Height
		value  []byte
	}{
		{height: 2, value: []byte{1}},
		{height: 4, value: []byte{1}},
		{height: 5, value: []byte{2}},
		{height: 100, value: []byte{2}},
	} {
		got, err := Get(db, key, tc.height)
		require.NoError(t, err)
		require.Equal(t, tc.value, got, "height %d", tc.height)
	}
	_, err = Get(db, key, 1)
	require.ErrorIs(t, err, sql.ErrNotFound)

	require.NoError(t, Put(db, key, []byte{3}, 5))
	got, err := Get(db, key, 5)
	require.NoError(t, err)
	require.Equal(t, []byte{3}, got, "same height overwrites")
}

func TestDelete(t *testing.T) {
	db := sql.InMemory()
	key := []byte("k")
	require.NoError(t, Put(db, key, []byte("v"), 1))
	require.NoError(t, Delete(db, key, 3))

	got, err := Get(db, key, 2)
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	_, err = Get(db, key, 3)
	require.ErrorIs(t, err, sql.ErrNotFound)

	require.NoError(t, Put(db, key, []byte("w"), 4))
	got, err = Get(db, key, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("w"), got)
}

func TestIteratePrefix(t *testing.T) {
	db := sql.InMemory()
	require.NoError(t, Put(db, []byte("b/2"), []byte("2"), 1))
	require.NoError(t, Put(db, []byte("b/1"), []byte("1"), 1))
	require.NoError(t, Put(db, []byte("a/1"), []byte("x"), 1))
	require.NoError(t, Put(db, []byte("b/3"), []byte("3"), 2))
	require.NoError(t, Put(db, []byte("b/1"), []byte("11"), 3))
	require.NoError(t, Delete(db, []byte("b/2"), 3))

	collect := func(height types.Height) []KV {
		var rst []KV
		require.NoError(t, IteratePrefix(db, []byte("b/"), height, func(key, value []byte) bool {
			rst = append(rst, KV{Key: key, Value: value})
			return true
		}))
		return rst
	}
	require.Equal(t, []KV{
		{Key: []byte("b/1"), Value: []byte("1")},
		{Key: []byte("b/2"), Value: []byte("2")},
	}, collect(1))
	require.Equal(t, []KV{
		{Key: []byte("b/1"), Value: []byte("11")},
		{Key: []byte("b/3"), Value: []byte("3")},
	}, collect(3))

	var visited int
	require.NoError(t, IteratePrefix(db, []byte("b/"), 3, func([]byte, []byte) bool {
		visited++
		return false
	}))
	require.Equal(t, 1, visited)

	all, err := All(db, 3)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []byte("a/1"), all[0].Key)
}

func TestSnapshot(t *testing.T) {
	db := sql.InMemory()
	require.NoError(t, Put(db, []byte("k"), []byte("old"), 1))
	snap := NewSnapshot(db, 1)
	require.NoError(t, Put(db, []byte("k"), []byte("new"), 2))

	got, err := snap.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("old"), got)
	require.EqualValues(t, 1, snap.Height())
}
