package domain

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crisisops/sitrack/errors"
	"github.com/crisisops/sitrack/track"
)

// Compile-time capability checks for the registered types.
var (
	_ track.Record          = (*Person)(nil)
	_ track.HasTrackID      = (*Person)(nil)
	_ track.HasBaseLocation = (*Person)(nil)
	_ track.Record          = (*Vehicle)(nil)
	_ track.HasTrackID      = (*Vehicle)(nil)
	_ track.HasBaseLocation = (*Vehicle)(nil)
	_ track.Record          = (*Asset)(nil)
	_ track.HasTrackID      = (*Asset)(nil)
	_ track.HasBaseLocation = (*Asset)(nil)
	_ track.Record          = (*Facility)(nil)
	_ track.HasBaseLocation = (*Facility)(nil)
	_ track.Record          = (*ActivityLog)(nil)
	_ track.HasTrackID      = (*ActivityLog)(nil)
)

const insertHeaderQuery = `INSERT INTO trackables (uuid, instance_type) VALUES (?, ?)`

// Store creates and fetches concrete instance rows. Creating a ledger-tracked
// instance also allocates its super-entity header row; the two inserts share
// a transaction so a header never exists without its concrete row.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewStore creates a domain store.
func NewStore(db *sql.DB, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{db: db, logger: logger}
}

// CreatePerson inserts a responder with an optional base location.
func (s *Store) CreatePerson(ctx context.Context, fullName string, baseLoc *track.LocationID) (*Person, error) {
	p := &Person{UUID: uuid.NewString(), FullName: fullName, Location: baseLoc}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		trackID, err := s.insertHeader(ctx, tx, p.UUID, TypePerson)
		if err != nil {
			return err
		}
		p.Track = &trackID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO persons (uuid, track_id, location_id, full_name) VALUES (?, ?, ?, ?)`,
			p.UUID, int64(trackID), locArg(baseLoc), fullName)
		if err != nil {
			return errors.Wrap(err, "insert person")
		}
		p.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debugw("person created", "id", p.ID, "track_id", *p.Track)
	return p, nil
}

// CreateVehicle inserts a vehicle with an optional base location.
func (s *Store) CreateVehicle(ctx context.Context, callSign, vehicleType string, baseLoc *track.LocationID) (*Vehicle, error) {
	v := &Vehicle{UUID: uuid.NewString(), CallSign: callSign, VehicleType: vehicleType, Location: baseLoc}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		trackID, err := s.insertHeader(ctx, tx, v.UUID, TypeVehicle)
		if err != nil {
			return err
		}
		v.Track = &trackID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO vehicles (uuid, track_id, location_id, call_sign, vehicle_type) VALUES (?, ?, ?, ?, ?)`,
			v.UUID, int64(trackID), locArg(baseLoc), callSign, nullableString(vehicleType))
		if err != nil {
			return errors.Wrap(err, "insert vehicle")
		}
		v.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debugw("vehicle created", "id", v.ID, "track_id", *v.Track)
	return v, nil
}

// CreateAsset inserts an asset with an optional base location.
func (s *Store) CreateAsset(ctx context.Context, label string, baseLoc *track.LocationID) (*Asset, error) {
	a := &Asset{UUID: uuid.NewString(), Label: label, Location: baseLoc}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		trackID, err := s.insertHeader(ctx, tx, a.UUID, TypeAsset)
		if err != nil {
			return err
		}
		a.Track = &trackID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO assets (uuid, track_id, location_id, label) VALUES (?, ?, ?, ?)`,
			a.UUID, int64(trackID), locArg(baseLoc), label)
		if err != nil {
			return errors.Wrap(err, "insert asset")
		}
		a.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debugw("asset created", "id", a.ID, "track_id", *a.Track)
	return a, nil
}

// CreateFacility inserts a fixed site. Facilities are not ledger-tracked, so
// no header row is allocated.
func (s *Store) CreateFacility(ctx context.Context, name string, baseLoc *track.LocationID) (*Facility, error) {
	f := &Facility{UUID: uuid.NewString(), Name: name, Location: baseLoc}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO facilities (uuid, location_id, name) VALUES (?, ?, ?)`,
		f.UUID, locArg(baseLoc), name)
	if err != nil {
		return nil, errors.Wrap(err, "insert facility")
	}
	f.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	s.logger.Debugw("facility created", "id", f.ID)
	return f, nil
}

// CreateActivityLog inserts an incident report.
func (s *Store) CreateActivityLog(ctx context.Context, summary string) (*ActivityLog, error) {
	l := &ActivityLog{UUID: uuid.NewString(), Summary: summary}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		trackID, err := s.insertHeader(ctx, tx, l.UUID, TypeActivityLog)
		if err != nil {
			return err
		}
		l.Track = &trackID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO activity_logs (uuid, track_id, summary) VALUES (?, ?, ?)`,
			l.UUID, int64(trackID), nullableString(summary))
		if err != nil {
			return errors.Wrap(err, "insert activity log")
		}
		l.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debugw("activity log created", "id", l.ID, "track_id", *l.Track)
	return l, nil
}

// GetPerson fetches a responder by id, or nil.
func (s *Store) GetPerson(ctx context.Context, id int64) (*Person, error) {
	var (
		p       Person
		trackID sql.NullInt64
		locID   sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, uuid, track_id, location_id, full_name, created_at FROM persons WHERE id = ?`, id).
		Scan(&p.ID, &p.UUID, &trackID, &locID, &p.FullName, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "query person %d", id)
	}
	if trackID.Valid {
		v := track.TrackID(trackID.Int64)
		p.Track = &v
	}
	if locID.Valid {
		v := track.LocationID(locID.Int64)
		p.Location = &v
	}
	return &p, nil
}

// GetVehicle fetches a vehicle by id, or nil.
func (s *Store) GetVehicle(ctx context.Context, id int64) (*Vehicle, error) {
	var (
		v       Vehicle
		trackID sql.NullInt64
		locID   sql.NullInt64
		vtype   sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, uuid, track_id, location_id, call_sign, vehicle_type, created_at FROM vehicles WHERE id = ?`, id).
		Scan(&v.ID, &v.UUID, &trackID, &locID, &v.CallSign, &vtype, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "query vehicle %d", id)
	}
	if trackID.Valid {
		t := track.TrackID(trackID.Int64)
		v.Track = &t
	}
	if locID.Valid {
		l := track.LocationID(locID.Int64)
		v.Location = &l
	}
	v.VehicleType = vtype.String
	return &v, nil
}

func (s *Store) insertHeader(ctx context.Context, tx *sql.Tx, uuid, instanceType string) (track.TrackID, error) {
	res, err := tx.ExecContext(ctx, insertHeaderQuery, uuid, instanceType)
	if err != nil {
		return 0, errors.Wrap(err, "insert trackable header")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "read track id")
	}
	return track.TrackID(id), nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Errorw("rollback failed", "error", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

func locArg(id *track.LocationID) interface{} {
	if id == nil {
		return nil
	}
	return int64(*id)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
