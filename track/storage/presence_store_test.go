package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crisisops/sitrack/db"
	"github.com/crisisops/sitrack/errors"
	itesting "github.com/crisisops/sitrack/internal/testing"
	"github.com/crisisops/sitrack/track"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn := itesting.CreateTestDB(t)
	require.NoError(t, db.Migrate(conn, zaptest.NewLogger(t).Sugar()))
	return conn
}

// newTrack allocates a header row directly; these tests exercise the ledger
// in isolation.
func newTrack(t *testing.T, conn *sql.DB, uuid string) track.TrackID {
	t.Helper()
	res, err := conn.Exec(`INSERT INTO trackables (uuid, instance_type) VALUES (?, 'persons')`, uuid)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return track.TrackID(id)
}

func newLocation(t *testing.T, conn *sql.DB) track.LocationID {
	t.Helper()
	res, err := conn.Exec(`INSERT INTO locations (name) VALUES ('somewhere')`)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return track.LocationID(id)
}

var base = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func TestPresenceStore_AppendAndLatest(t *testing.T) {
	conn := newTestDB(t)
	store := NewPresenceStore(conn, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	trackID := newTrack(t, conn, "u1")
	locID := newLocation(t, conn)

	rec := &track.PresenceRecord{TrackID: trackID, Timestamp: base, LocationID: &locID}
	require.NoError(t, store.Append(ctx, rec))
	assert.NotZero(t, rec.ID)

	got, err := store.LatestAtOrBefore(ctx, trackID, base.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, trackID, got.TrackID)
	require.NotNil(t, got.LocationID)
	assert.Equal(t, locID, *got.LocationID)
	assert.Nil(t, got.Interlock)
	assert.True(t, got.Timestamp.Equal(base))
}

func TestPresenceStore_LatestAtOrBefore_Ordering(t *testing.T) {
	conn := newTestDB(t)
	store := NewPresenceStore(conn, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	trackID := newTrack(t, conn, "u1")
	il := track.Interlock{Type: "vehicles", ID: 7}

	early := &track.PresenceRecord{TrackID: trackID, Timestamp: base, Interlock: &il}
	late := &track.PresenceRecord{TrackID: trackID, Timestamp: base.Add(time.Hour)}
	require.NoError(t, store.Append(ctx, late))
	require.NoError(t, store.Append(ctx, early))

	t.Run("before any record", func(t *testing.T) {
		got, err := store.LatestAtOrBefore(ctx, trackID, base.Add(-time.Second))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("between records", func(t *testing.T) {
		got, err := store.LatestAtOrBefore(ctx, trackID, base.Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, early.ID, got.ID)
		require.NotNil(t, got.Interlock)
		assert.True(t, got.Interlock.Equal(il))
	})

	t.Run("after all records", func(t *testing.T) {
		got, err := store.LatestAtOrBefore(ctx, trackID, base.Add(2*time.Hour))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, late.ID, got.ID)
		assert.Nil(t, got.Interlock)
		assert.Nil(t, got.LocationID)
	})

	t.Run("tie broken by insertion order", func(t *testing.T) {
		second := &track.PresenceRecord{TrackID: trackID, Timestamp: base}
		require.NoError(t, store.Append(ctx, second))
		got, err := store.LatestAtOrBefore(ctx, trackID, base)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, second.ID, got.ID)
	})
}

func TestPresenceStore_LatestInterlockMatching(t *testing.T) {
	conn := newTestDB(t)
	store := NewPresenceStore(conn, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	trackID := newTrack(t, conn, "u1")
	il := track.Interlock{Type: "vehicles", ID: 7}
	require.NoError(t, store.Append(ctx, &track.PresenceRecord{TrackID: trackID, Timestamp: base, Interlock: &il}))

	got, err := store.LatestInterlockMatching(ctx, trackID, il, base.Add(time.Minute))
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = store.LatestInterlockMatching(ctx, trackID, track.Interlock{Type: "vehicles", ID: 8}, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, got)

	// A newer absolute record shadows the interlock.
	locID := newLocation(t, conn)
	require.NoError(t, store.Append(ctx, &track.PresenceRecord{TrackID: trackID, Timestamp: base.Add(2 * time.Minute), LocationID: &locID}))
	got, err = store.LatestInterlockMatching(ctx, trackID, il, base.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPresenceStore_CheckedIn(t *testing.T) {
	conn := newTestDB(t)
	store := NewPresenceStore(conn, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	il := track.Interlock{Type: "vehicles", ID: 7}
	a := newTrack(t, conn, "a")
	b := newTrack(t, conn, "b")
	c := newTrack(t, conn, "c")

	require.NoError(t, store.Append(ctx, &track.PresenceRecord{TrackID: a, Timestamp: base, Interlock: &il}))
	require.NoError(t, store.Append(ctx, &track.PresenceRecord{TrackID: b, Timestamp: base, Interlock: &il}))
	// c was aboard but has since reported an absolute position.
	require.NoError(t, store.Append(ctx, &track.PresenceRecord{TrackID: c, Timestamp: base, Interlock: &il}))
	locID := newLocation(t, conn)
	require.NoError(t, store.Append(ctx, &track.PresenceRecord{TrackID: c, Timestamp: base.Add(time.Minute), LocationID: &locID}))

	ids, err := store.CheckedIn(ctx, il, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []track.TrackID{a, b}, ids)

	// Before c left, all three were bound.
	ids, err = store.CheckedIn(ctx, il, base.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, []track.TrackID{a, b, c}, ids)
}

func TestPresenceStore_MarkDeleted(t *testing.T) {
	conn := newTestDB(t)
	store := NewPresenceStore(conn, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	trackID := newTrack(t, conn, "u1")
	locID := newLocation(t, conn)
	rec := &track.PresenceRecord{TrackID: trackID, Timestamp: base, LocationID: &locID}
	require.NoError(t, store.Append(ctx, rec))

	require.NoError(t, store.MarkDeleted(ctx, rec.ID))

	got, err := store.LatestAtOrBefore(ctx, trackID, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, got)

	err = store.MarkDeleted(ctx, 9999)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestPresenceStore_AppendError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec("INSERT INTO presence").
		WillReturnError(errors.New("disk I/O error"))

	store := NewPresenceStore(mockDB, zaptest.NewLogger(t).Sugar())
	appendErr := store.Append(context.Background(), &track.PresenceRecord{TrackID: 1, Timestamp: base})
	require.Error(t, appendErr)
	assert.Contains(t, appendErr.Error(), "insert presence record")
	assert.NoError(t, mock.ExpectationsWereMet())
}
