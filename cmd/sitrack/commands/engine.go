package commands

import (
	"database/sql"

	"github.com/crisisops/sitrack/config"
	"github.com/crisisops/sitrack/db"
	"github.com/crisisops/sitrack/domain"
	"github.com/crisisops/sitrack/errors"
	"github.com/crisisops/sitrack/logger"
	"github.com/crisisops/sitrack/track"
	"github.com/crisisops/sitrack/track/storage"
)

// engine bundles the tracker and its stores for command use.
type engine struct {
	db        *sql.DB
	tracker   *track.Tracker
	store     *domain.Store
	locations *storage.LocationStore
	cfg       *config.Config
}

// openDatabase opens and migrates a database. An empty path falls back to
// the configured one.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load configuration")
		}
		dbPath = cfg.GetDatabasePath()
	}

	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}

// openEngine builds a fully wired tracker over the configured database.
func openEngine(dbPath string) (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	database, err := openDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	reg := track.NewRegistry()
	if err := domain.RegisterTypes(reg); err != nil {
		database.Close()
		return nil, err
	}

	locations := storage.NewLocationStore(database, logger.Logger)
	tracker := track.New(reg,
		storage.NewPresenceStore(database, logger.Logger),
		storage.NewInstanceStore(database, logger.Logger),
		locations, logger.Logger)
	if cfg.Tracking.MaxChainDepth > 0 {
		tracker.SetMaxChainDepth(cfg.Tracking.MaxChainDepth)
	}

	return &engine{
		db:        database,
		tracker:   tracker,
		store:     domain.NewStore(database, logger.Logger),
		locations: locations,
		cfg:       cfg,
	}, nil
}

func (e *engine) Close() error {
	return e.db.Close()
}
