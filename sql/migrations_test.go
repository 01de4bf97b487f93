package sql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func latestVersion() (int, error) {
	migrations, err := loadMigrations(embedded, "migrations")
	if err != nil {
		return 0, err
	}
	if len(migrations) == 0 {
		return 0, nil
	}
	return migrations[len(migrations)-1].order, nil
}

func TestMigrationsAppliedOnce(t *testing.T) {
	uri := testURI(t)
	db, err := Open(uri)
	require.NoError(t, err)

	latest, err := latestVersion()
	require.NoError(t, err)
	require.Positive(t, latest)

	current, err := version(db)
	require.NoError(t, err)
	require.Equal(t, latest, current)
	require.NoError(t, db.Close())

	db, err = Open(uri)
	require.NoError(t, err)
	defer db.Close()
	current, err = version(db)
	require.NoError(t, err)
	require.Equal(t, latest, current)
}

func TestMigrationsTooNew(t *testing.T) {
	uri := testURI(t)
	db, err := Open(uri)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 1000;", nil, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(uri)
	require.ErrorIs(t, err, ErrTooNew)
}
