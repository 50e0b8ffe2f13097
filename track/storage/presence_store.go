package storage

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/crisisops/sitrack/errors"
	"github.com/crisisops/sitrack/track"
)

const (
	insertPresenceQuery = `
		INSERT INTO presence (track_id, timestamp, location_id, interlock_type, interlock_id)
		VALUES (?, ?, ?, ?, ?)`

	latestPresenceQuery = `
		SELECT id, track_id, timestamp, location_id, interlock_type, interlock_id, deleted
		FROM presence
		WHERE track_id = ? AND deleted = 0 AND timestamp <= ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`

	checkedInQuery = `
		SELECT p.track_id
		FROM presence p
		WHERE p.deleted = 0
		  AND p.interlock_type = ? AND p.interlock_id = ?
		  AND p.id = (
			SELECT p2.id FROM presence p2
			WHERE p2.track_id = p.track_id AND p2.deleted = 0 AND p2.timestamp <= ?
			ORDER BY p2.timestamp DESC, p2.id DESC
			LIMIT 1)
		ORDER BY p.track_id`

	markDeletedQuery = `UPDATE presence SET deleted = 1 WHERE id = ?`
)

// PresenceStore implements track.Ledger on the presence table. The table is
// append-only; the only UPDATE it ever issues flips the soft-delete flag.
type PresenceStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewPresenceStore creates a presence ledger store.
func NewPresenceStore(db *sql.DB, logger *zap.SugaredLogger) *PresenceStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &PresenceStore{db: db, logger: logger}
}

// Append inserts a presence record and fills in its insertion-order id.
func (s *PresenceStore) Append(ctx context.Context, rec *track.PresenceRecord) error {
	var locID *int64
	if rec.LocationID != nil {
		v := int64(*rec.LocationID)
		locID = &v
	}
	var ilType *string
	var ilID *int64
	if rec.Interlock != nil {
		t := rec.Interlock.Type
		v := int64(rec.Interlock.ID)
		ilType, ilID = &t, &v
	}

	res, err := s.db.ExecContext(ctx, insertPresenceQuery,
		int64(rec.TrackID), rec.Timestamp.UTC(), locID, ilType, ilID)
	if err != nil {
		return errors.Wrap(err, "insert presence record")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "read presence record id")
	}
	rec.ID = id
	return nil
}

// LatestAtOrBefore returns the effective record at the given time, or nil.
func (s *PresenceStore) LatestAtOrBefore(ctx context.Context, trackID track.TrackID, at time.Time) (*track.PresenceRecord, error) {
	row := s.db.QueryRowContext(ctx, latestPresenceQuery, int64(trackID), at.UTC())
	rec, err := scanPresence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "query latest presence record")
	}
	return rec, nil
}

// LatestInterlockMatching returns the effective record at the given time
// only if it is an interlock to the given target.
func (s *PresenceStore) LatestInterlockMatching(ctx context.Context, trackID track.TrackID, il track.Interlock, at time.Time) (*track.PresenceRecord, error) {
	rec, err := s.LatestAtOrBefore(ctx, trackID, at)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Interlock == nil || !rec.Interlock.Equal(il) {
		return nil, nil
	}
	return rec, nil
}

// CheckedIn returns the track ids whose effective record at the given time
// is an interlock to the given target.
func (s *PresenceStore) CheckedIn(ctx context.Context, il track.Interlock, at time.Time) ([]track.TrackID, error) {
	rows, err := s.db.QueryContext(ctx, checkedInQuery, il.Type, int64(il.ID), at.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "query checked-in track ids")
	}
	defer rows.Close()

	var ids []track.TrackID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan track id")
		}
		ids = append(ids, track.TrackID(id))
	}
	return ids, rows.Err()
}

// MarkDeleted soft-deletes a presence record.
func (s *PresenceStore) MarkDeleted(ctx context.Context, recordID int64) error {
	res, err := s.db.ExecContext(ctx, markDeletedQuery, recordID)
	if err != nil {
		return errors.Wrap(err, "soft-delete presence record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "check soft-delete result")
	}
	if n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "presence record %d", recordID)
	}
	return nil
}

func scanPresence(row *sql.Row) (*track.PresenceRecord, error) {
	var (
		rec     track.PresenceRecord
		trackID int64
		locID   sql.NullInt64
		ilType  sql.NullString
		ilID    sql.NullInt64
		deleted int
	)
	err := row.Scan(&rec.ID, &trackID, &rec.Timestamp, &locID, &ilType, &ilID, &deleted)
	if err != nil {
		return nil, err
	}
	rec.TrackID = track.TrackID(trackID)
	rec.Timestamp = rec.Timestamp.UTC()
	rec.Deleted = deleted != 0
	if locID.Valid {
		v := track.LocationID(locID.Int64)
		rec.LocationID = &v
	}
	if ilType.Valid {
		rec.Interlock = &track.Interlock{Type: ilType.String, ID: track.RecordID(ilID.Int64)}
	}
	return &rec, nil
}
