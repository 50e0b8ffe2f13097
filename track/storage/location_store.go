package storage

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/crisisops/sitrack/errors"
	"github.com/crisisops/sitrack/track"
)

const (
	getLocationQuery    = `SELECT id, name, lat, lon FROM locations WHERE id = ?`
	insertLocationQuery = `INSERT INTO locations (name, lat, lon) VALUES (?, ?, ?)`
)

// LocationStore implements track.LocationStore on the locations table.
type LocationStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewLocationStore creates a location store.
func NewLocationStore(db *sql.DB, logger *zap.SugaredLogger) *LocationStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LocationStore{db: db, logger: logger}
}

// Get returns a location by id, or nil when it does not exist.
func (s *LocationStore) Get(ctx context.Context, id track.LocationID) (*track.Location, error) {
	row := s.db.QueryRowContext(ctx, getLocationQuery, int64(id))
	loc, err := scanLocation(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "query location %d", id)
	}
	return loc, nil
}

// GetBatch returns the locations for the given ids, keyed by id. Missing ids
// are simply absent from the result.
func (s *LocationStore) GetBatch(ctx context.Context, ids []track.LocationID) (map[track.LocationID]*track.Location, error) {
	out := make(map[track.LocationID]*track.Location, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := fmt.Sprintf("SELECT id, name, lat, lon FROM locations WHERE id IN (%s)",
		placeholders(len(ids)))
	rows, err := s.db.QueryContext(ctx, query, locationIDArgs(ids)...)
	if err != nil {
		return nil, errors.Wrap(err, "query locations")
	}
	defer rows.Close()

	for rows.Next() {
		loc, err := scanLocation(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(err, "scan location")
		}
		out[loc.ID] = loc
	}
	return out, rows.Err()
}

// Create inserts a location row and returns its id.
func (s *LocationStore) Create(ctx context.Context, loc *track.Location) (track.LocationID, error) {
	var name *string
	if loc.Name != "" {
		name = &loc.Name
	}
	res, err := s.db.ExecContext(ctx, insertLocationQuery, name, loc.Lat, loc.Lon)
	if err != nil {
		return 0, errors.Wrap(err, "insert location")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "read location id")
	}
	loc.ID = track.LocationID(id)
	return loc.ID, nil
}

func scanLocation(scan func(dest ...interface{}) error) (*track.Location, error) {
	var (
		loc  track.Location
		id   int64
		name sql.NullString
	)
	if err := scan(&id, &name, &loc.Lat, &loc.Lon); err != nil {
		return nil, err
	}
	loc.ID = track.LocationID(id)
	loc.Name = name.String
	return &loc, nil
}
