package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/sql"
)

func TestCheckpoint(t *testing.T) {
	db := sql.InMemory()

	_, err := Get(db)
	require.ErrorIs(t, err, sql.ErrNotFound)

	require.NoError(t, Set(db, 10))
	height, err := Get(db)
	require.NoError(t, err)
	require.EqualValues(t, 10, height)

	require.NoError(t, Set(db, 11))
	height, err = Get(db)
	require.NoError(t, err)
	require.EqualValues(t, 11, height)
}

func TestHeights(t *testing.T) {
	db := sql.InMemory()

	_, err := GetHeight(db, 1)
	require.ErrorIs(t, err, sql.ErrNotFound)

	for i := 1; i <= 5; i++ {
		require.NoError(t, AddHeight(db, Info{
			Height:  types.Height(i),
			Root:    types.CalcHash32([]byte{byte(i)}),
			Applied: i,
			Dropped: 5 - i,
		}))
	}
	info, err := GetHeight(db, 3)
	require.NoError(t, err)
	require.Equal(t, Info{Height: 3, Root: types.CalcHash32([]byte{3}), Applied: 3, Dropped: 2}, info)

	roots, err := Roots(db, 2, 4)
	require.NoError(t, err)
	require.Len(t, roots, 3)
	require.EqualValues(t, 2, roots[0].Height)
	require.EqualValues(t, 4, roots[2].Height)
}
