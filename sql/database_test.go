package sql

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testTables(db Executor) error {
	if _, err := db.Exec(`create table testing1 (
		id varchar primary key,
		field int
	)`, nil, nil); err != nil {
		return err
	}
	return nil
}

func testURI(tb testing.TB) string {
	tb.Helper()
	return "file:" + filepath.Join(tb.TempDir(), "state.sql")
}

func TestWithTxRollback(t *testing.T) {
	db := InMemory(WithMigrations(testTables))
	failure := errors.New("test")

	err := db.WithTx(context.Background(), func(tx *Tx) error {
		_, err := tx.Exec("insert into testing1(id, field) values ('a', 1)", nil, nil)
		require.NoError(t, err)
		rows, err := tx.Exec("select 1 from testing1 where id = ?1", func(stmt *Statement) {
			stmt.BindText(1, "a")
		}, nil)
		require.NoError(t, err)
		require.Equal(t, 1, rows)
		return failure
	})
	require.ErrorIs(t, err, failure)

	rows, err := db.Exec("select 1 from testing1", nil, nil)
	require.NoError(t, err)
	require.Zero(t, rows)

	require.NoError(t, db.WithTx(context.Background(), func(tx *Tx) error {
		_, err := tx.Exec("insert into testing1(id, field) values ('a', 1)", nil, nil)
		return err
	}))
	rows, err = db.Exec("select 1 from testing1", nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, rows)
}

func TestObjectExists(t *testing.T) {
	db := InMemory(WithMigrations(testTables))
	_, err := db.Exec("insert into testing1(id, field) values ('a', 1)", nil, nil)
	require.NoError(t, err)
	_, err = db.Exec("insert into testing1(id, field) values ('a', 2)", nil, nil)
	require.ErrorIs(t, err, ErrObjectExists)
}

func TestPersistentDatabase(t *testing.T) {
	uri := testURI(t)
	db, err := Open(uri)
	require.NoError(t, err)
	_, err = db.Exec("insert into checkpoint (id, height) values (1, 7)", nil, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	db, err = Open(uri)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	var height int64
	rows, err := db.Exec("select height from checkpoint", nil, func(stmt *Statement) bool {
		height = stmt.ColumnInt64(0)
		return true
	})
	require.NoError(t, err)
	require.Equal(t, 1, rows)
	require.EqualValues(t, 7, height)
}

func TestIsCorruption(t *testing.T) {
	require.False(t, IsCorruption(nil))
	require.False(t, IsCorruption(errors.New("test")))

	path := filepath.Join(t.TempDir(), "state.sql")
	garbage := make([]byte, 4096)
	for i := range garbage {
		garbage[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, garbage, 0o600))
	_, err := Open("file:" + path)
	require.Error(t, err)
	require.True(t, IsCorruption(err), "error: %v", err)
}
