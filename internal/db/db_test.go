package db

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestOpen_AppliesPragmasAndSchema(t *testing.T) {
	database := openTestDB(t)

	var journal string
	require.NoError(t, database.QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	var fk int
	require.NoError(t, database.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	for _, table := range []string{"sweeps", "sweep_results"} {
		var name string
		err := database.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	version, dirty, err := database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	version, _, err := second.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestMigrateDown(t *testing.T) {
	database := openTestDB(t)

	require.NoError(t, database.MigrateDown(MigrationsFS()))

	var count int
	require.NoError(t, database.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='sweeps'`).Scan(&count))
	assert.Zero(t, count)

	version, _, err := database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, database.MigrateUp(MigrationsFS()))
}

func TestMigrateUp_CustomFS(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "custom.db"))
	require.NoError(t, err)
	defer database.Close()

	migrations := fstest.MapFS{
		"000001_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
		"000001_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
	}
	require.NoError(t, database.MigrateUp(migrations))
	// Already at latest.
	require.NoError(t, database.MigrateUp(migrations))

	_, err = database.Exec(`INSERT INTO widgets (id) VALUES (1)`)
	assert.NoError(t, err)
}

func TestMigrateVersion_Fresh(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer database.Close()

	version, dirty, err := database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)
}
