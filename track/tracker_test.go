package track_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crisisops/sitrack/db"
	"github.com/crisisops/sitrack/domain"
	"github.com/crisisops/sitrack/errors"
	itesting "github.com/crisisops/sitrack/internal/testing"
	"github.com/crisisops/sitrack/track"
	"github.com/crisisops/sitrack/track/storage"
)

// harness wires a tracker to real stores on an in-memory database, with the
// deployment's instance types registered.
type harness struct {
	db        *sql.DB
	tracker   *track.Tracker
	store     *domain.Store
	locations *storage.LocationStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := itesting.CreateTestDB(t)
	log := zaptest.NewLogger(t).Sugar()
	require.NoError(t, db.Migrate(conn, log))

	reg := track.NewRegistry()
	require.NoError(t, domain.RegisterTypes(reg))

	locations := storage.NewLocationStore(conn, log)
	tracker := track.New(reg,
		storage.NewPresenceStore(conn, log),
		storage.NewInstanceStore(conn, log),
		locations, log)

	return &harness{
		db:        conn,
		tracker:   tracker,
		store:     domain.NewStore(conn, log),
		locations: locations,
	}
}

func (h *harness) location(t *testing.T, name string) track.LocationID {
	t.Helper()
	id, err := h.locations.Create(context.Background(), &track.Location{Name: name})
	require.NoError(t, err)
	return id
}

func (h *harness) presenceCount(t *testing.T, trackID track.TrackID) int {
	t.Helper()
	var n int
	err := h.db.QueryRow(`SELECT COUNT(*) FROM presence WHERE track_id = ?`, int64(trackID)).Scan(&n)
	require.NoError(t, err)
	return n
}

var t0 = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func at(offset time.Duration) time.Time { return t0.Add(offset) }

func TestByID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	base := h.location(t, "HQ")
	p, err := h.store.CreatePerson(ctx, "Dana Reyes", &base)
	require.NoError(t, err)

	tb, err := h.tracker.ByID(ctx, domain.TypePerson, track.RecordID(p.ID))
	require.NoError(t, err)
	require.Equal(t, 1, tb.Len())

	desc := tb.Descriptors()[0]
	assert.Equal(t, domain.TypePerson, desc.Type)
	assert.Equal(t, track.RecordID(p.ID), desc.RecordID)
	require.NotNil(t, desc.TrackID)
	assert.Equal(t, *p.Track, *desc.TrackID)
	require.NotNil(t, desc.BaseLocationID)
	assert.Equal(t, base, *desc.BaseLocationID)
}

func TestByID_UnregisteredType(t *testing.T) {
	h := newHarness(t)

	_, err := h.tracker.ByID(context.Background(), "ghosts", 1)
	require.Error(t, err)
	assert.True(t, errors.IsNotTrackableError(err))
}

func TestByIDs_MissingRowsOmitted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p1, err := h.store.CreatePerson(ctx, "A", nil)
	require.NoError(t, err)
	p2, err := h.store.CreatePerson(ctx, "B", nil)
	require.NoError(t, err)

	tb, err := h.tracker.ByIDs(ctx, domain.TypePerson,
		[]track.RecordID{track.RecordID(p1.ID), 9999, track.RecordID(p2.ID)})
	require.NoError(t, err)
	assert.Equal(t, 2, tb.Len())
}

func TestByFilter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.store.CreateVehicle(ctx, "ALPHA-1", "ambulance", nil)
	require.NoError(t, err)
	_, err = h.store.CreateVehicle(ctx, "BRAVO-2", "pumper", nil)
	require.NoError(t, err)

	tb, err := h.tracker.ByFilter(ctx, domain.TypeVehicle,
		track.Filter{Where: "vehicle_type = ?", Args: []interface{}{"ambulance"}})
	require.NoError(t, err)
	require.Equal(t, 1, tb.Len())
	assert.Equal(t, track.RecordID(1), tb.Descriptors()[0].RecordID)
}

func TestByFilter_SuperEntityRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.tracker.ByFilter(context.Background(), track.SuperEntityType,
		track.Filter{Where: "1 = 1"})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestSuperEntityRedirection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	base := h.location(t, "Depot")
	v, err := h.store.CreateVehicle(ctx, "ALPHA-1", "", &base)
	require.NoError(t, err)

	// Referencing the header table resolves to the concrete vehicle row.
	tb, err := h.tracker.ByID(ctx, track.SuperEntityType, track.RecordID(*v.Track))
	require.NoError(t, err)
	require.Equal(t, 1, tb.Len())
	desc := tb.Descriptors()[0]
	assert.Equal(t, domain.TypeVehicle, desc.Type)
	assert.Equal(t, track.RecordID(v.ID), desc.RecordID)
}

func TestSuperEntityRedirection_OrphanedHeaderDropped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.db.Exec(`INSERT INTO trackables (uuid, instance_type) VALUES ('orphan-uuid', 'persons')`)
	require.NoError(t, err)
	var trackID int64
	require.NoError(t, h.db.QueryRow(`SELECT track_id FROM trackables WHERE uuid = 'orphan-uuid'`).Scan(&trackID))

	tb, err := h.tracker.ByID(ctx, track.SuperEntityType, track.RecordID(trackID))
	require.NoError(t, err)
	assert.Equal(t, 0, tb.Len())
}

func TestFromRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	loc := h.location(t, "Staging")
	p, err := h.store.CreatePerson(ctx, "Dana Reyes", nil)
	require.NoError(t, err)

	tb, err := h.tracker.FromRecord(ctx, p)
	require.NoError(t, err)
	require.NoError(t, tb.SetLocation(ctx, track.AtLocation(loc), at(0)))

	locs, err := tb.GetLocation(ctx, at(time.Minute))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	require.NotNil(t, locs[0])
	assert.Equal(t, loc, locs[0].ID)
}

func TestFromRecords_HeaderRowRedirected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.store.CreatePerson(ctx, "Dana Reyes", nil)
	require.NoError(t, err)

	header := &track.SuperRow{TrackID: *p.Track, UUID: p.UUID, EntityType: domain.TypePerson}
	tb, err := h.tracker.FromRecords(ctx, []track.Record{header})
	require.NoError(t, err)
	require.Equal(t, 1, tb.Len())
	assert.Equal(t, domain.TypePerson, tb.Descriptors()[0].Type)
}

func TestGetCheckedIn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	v, err := h.store.CreateVehicle(ctx, "ALPHA-1", "", nil)
	require.NoError(t, err)
	p1, err := h.store.CreatePerson(ctx, "A", nil)
	require.NoError(t, err)
	p2, err := h.store.CreatePerson(ctx, "B", nil)
	require.NoError(t, err)

	for _, p := range []*domain.Person{p1, p2} {
		tb, err := h.tracker.ByID(ctx, domain.TypePerson, track.RecordID(p.ID))
		require.NoError(t, err)
		require.NoError(t, tb.CheckIn(ctx, domain.TypeVehicle, track.RecordID(v.ID), at(0)))
	}

	rows, err := h.tracker.GetCheckedIn(ctx, domain.TypeVehicle, track.RecordID(v.ID), at(time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// One occupant leaves; only the other remains bound.
	tb, err := h.tracker.ByID(ctx, domain.TypePerson, track.RecordID(p1.ID))
	require.NoError(t, err)
	require.NoError(t, tb.CheckOut(ctx, nil, at(time.Minute)))

	rows, err = h.tracker.GetCheckedIn(ctx, domain.TypeVehicle, track.RecordID(v.ID), at(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, *p2.Track, rows[0].TrackID)
}
