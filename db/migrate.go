package db

import (
	"database/sql"
	"embed"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/crisisops/sitrack/errors"
)

//go:embed sqlite/migrations/*.sql
var migrationFS embed.FS

const migrationDir = "sqlite/migrations"

// Migrate applies every pending schema migration in version order. Each
// script runs inside its own transaction and records its version in
// schema_migrations, which migration 000 itself creates. A nil logger
// applies migrations silently.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	names, err := migrationNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		version := strings.SplitN(name, "_", 2)[0]

		switch applied, err := migrationApplied(db, version); {
		case err != nil:
			// schema_migrations is missing on a bare database; only 000
			// may run before it exists.
			if version != "000" {
				return errors.Newf("schema_migrations table missing, but migration is not 000: %s", name)
			}
		case applied:
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)",
					"migration", name,
					"version", version)
			}
			continue
		}

		script, err := migrationFS.ReadFile(filepath.Join(migrationDir, name))
		if err != nil {
			return errors.Wrapf(err, "read %s", name)
		}

		if logger != nil {
			logger.Infow("Applying migration",
				"migration", name,
				"version", version)
		}
		if err := applyMigration(db, version, string(script)); err != nil {
			return errors.Wrapf(err, "apply %s", name)
		}
	}

	if logger != nil {
		logger.Infow("Migrations complete",
			"total_migrations", len(names))
	}
	return nil
}

// migrationNames lists the embedded migration scripts sorted by their
// numeric filename prefix.
func migrationNames() ([]string, error) {
	entries, err := migrationFS.ReadDir(migrationDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func migrationApplied(db *sql.DB, version string) (bool, error) {
	var exists bool
	err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
	return exists, err
}

// applyMigration executes one script and records its version in the same
// transaction, so a failed script leaves no trace of itself.
func applyMigration(db *sql.DB, version, script string) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	if _, err := tx.Exec(script); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "execute")
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "record version")
	}
	return tx.Commit()
}
