package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWithMigrations(t *testing.T) {
	t.Run("opens database and runs migrations", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		db, err := OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		// All schema tables exist after migration
		for _, table := range []string{
			"schema_migrations", "locations", "trackables", "presence",
			"persons", "vehicles", "assets", "facilities", "activity_logs",
		} {
			var exists int
			err = db.QueryRow(
				"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
			).Scan(&exists)
			require.NoError(t, err)
			assert.Equal(t, 1, exists, "table %s should exist after migrations", table)
		}
	})
}

func TestMigrate(t *testing.T) {
	t.Run("records applied versions", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		db, err := Open(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		err = Migrate(db, nil)
		require.NoError(t, err)

		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, 5)
	})

	t.Run("is idempotent", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		db, err := Open(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, Migrate(db, nil))
		require.NoError(t, Migrate(db, nil))

		var first int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&first))

		require.NoError(t, Migrate(db, nil))
		var second int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&second))
		assert.Equal(t, first, second)
	})

	t.Run("fails on closed database", func(t *testing.T) {
		tmpDir := t.TempDir()
		db, err := Open(filepath.Join(tmpDir, "test.db"), nil)
		require.NoError(t, err)
		db.Close()

		err = Migrate(db, nil)
		require.Error(t, err)
	})

	t.Run("enforces presence exclusivity check", func(t *testing.T) {
		tmpDir := t.TempDir()
		db, err := OpenWithMigrations(filepath.Join(tmpDir, "test.db"), nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Exec("INSERT INTO trackables (uuid, instance_type) VALUES ('u1', 'persons')")
		require.NoError(t, err)
		_, err = db.Exec("INSERT INTO locations (name) VALUES ('hq')")
		require.NoError(t, err)

		// A record cannot assert both an absolute location and an interlock
		_, err = db.Exec(`INSERT INTO presence (track_id, timestamp, location_id, interlock_type, interlock_id)
			VALUES (1, '2024-01-01T00:00:00Z', 1, 'persons', 1)`)
		require.Error(t, err)
	})
}
