package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crisisops/sitrack/errors"
	"github.com/crisisops/sitrack/track"
)

const (
	superRowsQuery       = `SELECT track_id, uuid, instance_type FROM trackables`
	headerByTrackIDQuery = `SELECT track_id, uuid, instance_type FROM trackables WHERE track_id = ?`
	touchTrackQuery      = `UPDATE trackables SET track_timestamp = ? WHERE track_id = ?`
)

// InstanceStore implements track.InstanceStore over the super-entity header
// table and the registered concrete instance tables. Column sets vary per
// type, so the concrete-table SQL is assembled from the TypeInfo
// capabilities instead of being hardcoded per table.
type InstanceStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewInstanceStore creates an instance store.
func NewInstanceStore(db *sql.DB, logger *zap.SugaredLogger) *InstanceStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &InstanceStore{db: db, logger: logger}
}

// Fetch returns descriptors for the given ids, ascending. Nil ids fetches
// the whole table.
func (s *InstanceStore) Fetch(ctx context.Context, info track.TypeInfo, ids []track.RecordID) ([]track.Descriptor, error) {
	query := selectDescriptors(info)
	var args []interface{}
	if ids != nil {
		query += fmt.Sprintf(" WHERE id IN (%s)", placeholders(len(ids)))
		args = recordIDArgs(ids)
	}
	query += " ORDER BY id"
	return s.queryDescriptors(ctx, info, query, args...)
}

// FetchFilter returns descriptors for rows matching the filter predicate.
func (s *InstanceStore) FetchFilter(ctx context.Context, info track.TypeInfo, filter track.Filter) ([]track.Descriptor, error) {
	if filter.Where == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "empty filter")
	}
	query := selectDescriptors(info) + " WHERE (" + filter.Where + ") ORDER BY id"
	return s.queryDescriptors(ctx, info, query, filter.Args...)
}

// SuperRows returns header rows for the given track ids, ascending. Nil ids
// fetches the whole table.
func (s *InstanceStore) SuperRows(ctx context.Context, ids []track.TrackID) ([]track.SuperRow, error) {
	query := superRowsQuery
	var args []interface{}
	if ids != nil {
		query += fmt.Sprintf(" WHERE track_id IN (%s)", placeholders(len(ids)))
		args = trackIDArgs(ids)
	}
	query += " ORDER BY track_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query trackable headers")
	}
	defer rows.Close()

	var out []track.SuperRow
	for rows.Next() {
		var (
			row     track.SuperRow
			trackID int64
		)
		if err := rows.Scan(&trackID, &row.UUID, &row.EntityType); err != nil {
			return nil, errors.Wrap(err, "scan trackable header")
		}
		row.TrackID = track.TrackID(trackID)
		out = append(out, row)
	}
	return out, rows.Err()
}

// HeaderByTrackID returns the header row for a track id, or nil.
func (s *InstanceStore) HeaderByTrackID(ctx context.Context, trackID track.TrackID) (*track.SuperRow, error) {
	var (
		row track.SuperRow
		id  int64
	)
	err := s.db.QueryRowContext(ctx, headerByTrackIDQuery, int64(trackID)).
		Scan(&id, &row.UUID, &row.EntityType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "query trackable header")
	}
	row.TrackID = track.TrackID(id)
	return &row, nil
}

// ConcreteByUUID returns the concrete instance row with the given unique
// key, or nil when no such row exists.
func (s *InstanceStore) ConcreteByUUID(ctx context.Context, info track.TypeInfo, uuid string) (*track.Descriptor, error) {
	query := selectDescriptors(info) + " WHERE uuid = ?"
	descs, err := s.queryDescriptors(ctx, info, query, uuid)
	if err != nil {
		return nil, err
	}
	if len(descs) == 0 {
		return nil, nil
	}
	return &descs[0], nil
}

// UpdateBaseLocations sets location_id for the given rows of one type.
func (s *InstanceStore) UpdateBaseLocations(ctx context.Context, info track.TypeInfo, ids []track.RecordID, loc track.LocationID) error {
	if !info.HasBaseLocation {
		return errors.NewNotTrackableError("type %q has no base location", info.Name)
	}
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf("UPDATE %s SET location_id = ? WHERE id IN (%s)",
		info.Name, placeholders(len(ids)))
	args := append([]interface{}{int64(loc)}, recordIDArgs(ids)...)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "update %s base locations", info.Name)
	}
	return nil
}

// TouchTrackTimestamp records the time of the latest ledger write on the
// header row.
func (s *InstanceStore) TouchTrackTimestamp(ctx context.Context, trackID track.TrackID, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, touchTrackQuery, at.UTC(), int64(trackID)); err != nil {
		return errors.Wrapf(err, "touch track %d", trackID)
	}
	return nil
}

// selectDescriptors assembles the SELECT list for a concrete instance table.
// Missing capability columns are selected as NULL so every row scans the
// same way.
func selectDescriptors(info track.TypeInfo) string {
	trackCol := "NULL"
	if info.HasTrackID {
		trackCol = "track_id"
	}
	locCol := "NULL"
	if info.HasBaseLocation {
		locCol = "location_id"
	}
	return fmt.Sprintf("SELECT id, uuid, %s, %s FROM %s", trackCol, locCol, info.Name)
}

func (s *InstanceStore) queryDescriptors(ctx context.Context, info track.TypeInfo, query string, args ...interface{}) ([]track.Descriptor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s rows", info.Name)
	}
	defer rows.Close()

	var out []track.Descriptor
	for rows.Next() {
		var (
			id      int64
			uuid    string
			trackID sql.NullInt64
			locID   sql.NullInt64
		)
		if err := rows.Scan(&id, &uuid, &trackID, &locID); err != nil {
			return nil, errors.Wrapf(err, "scan %s row", info.Name)
		}
		desc := track.Descriptor{Type: info.Name, RecordID: track.RecordID(id), UUID: uuid}
		if trackID.Valid {
			v := track.TrackID(trackID.Int64)
			desc.TrackID = &v
		}
		if locID.Valid {
			v := track.LocationID(locID.Int64)
			desc.BaseLocationID = &v
		}
		out = append(out, desc)
	}
	return out, rows.Err()
}
