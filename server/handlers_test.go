package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crisisops/sitrack/config"
	"github.com/crisisops/sitrack/db"
	"github.com/crisisops/sitrack/domain"
	itesting "github.com/crisisops/sitrack/internal/testing"
	"github.com/crisisops/sitrack/server"
	"github.com/crisisops/sitrack/track"
	"github.com/crisisops/sitrack/track/storage"
)

type apiHarness struct {
	srv       *httptest.Server
	store     *domain.Store
	locations *storage.LocationStore
}

func newAPIHarness(t *testing.T) *apiHarness {
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
	store := domain.NewStore(conn, log)

	s := server.New(conn, tracker, store, locations, &config.Config{}, log)
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)

	return &apiHarness{srv: ts, store: store, locations: locations}
}

func (h *apiHarness) post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(h.srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func (h *apiHarness) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(h.srv.URL + path)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestLocationRoundTrip(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()

	p, err := h.store.CreatePerson(ctx, "Dana Reyes", nil)
	require.NoError(t, err)
	loc, err := h.locations.Create(ctx, &track.Location{Name: "Shelter North"})
	require.NoError(t, err)

	resp := h.post(t, "/api/v1/location", server.SetLocationRequest{
		Type: domain.TypePerson, ID: p.ID, LocationID: ptr(int64(loc)),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.get(t, fmt.Sprintf("/api/v1/location?type=%s&id=%d", domain.TypePerson, p.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got server.LocationResponse
	decode(t, resp, &got)
	require.NotNil(t, got.Location)
	assert.Equal(t, track.LocationID(loc), got.Location.ID)
	assert.Equal(t, "Shelter North", got.Location.Name)
}

func TestLocationPost_CreatesFromCoordinates(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()

	p, err := h.store.CreatePerson(ctx, "Avery Cole", nil)
	require.NoError(t, err)

	lat, lon := 14.5995, 120.9842
	resp := h.post(t, "/api/v1/location", server.SetLocationRequest{
		Type: domain.TypePerson, ID: p.ID, Name: "Field Camp", Lat: &lat, Lon: &lon,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.get(t, fmt.Sprintf("/api/v1/location?type=%s&id=%d", domain.TypePerson, p.ID))
	var got server.LocationResponse
	decode(t, resp, &got)
	require.NotNil(t, got.Location)
	assert.Equal(t, "Field Camp", got.Location.Name)
	require.NotNil(t, got.Location.Lat)
	assert.InDelta(t, lat, *got.Location.Lat, 1e-9)
}

func TestLocationGet_UnknownEntity(t *testing.T) {
	h := newAPIHarness(t)
	resp := h.get(t, "/api/v1/location?type=persons&id=999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestLocationGet_BadParams(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.get(t, "/api/v1/location?id=1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = h.get(t, "/api/v1/location?type=persons&id=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = h.get(t, "/api/v1/location?type=persons&id=1&at=not-a-time")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCheckInAndCheckedIn(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()

	p, err := h.store.CreatePerson(ctx, "Morgan Sy", nil)
	require.NoError(t, err)
	v, err := h.store.CreateVehicle(ctx, "AMB-7", "ambulance", nil)
	require.NoError(t, err)

	resp := h.post(t, "/api/v1/checkin", server.CheckInRequest{
		Type: domain.TypePerson, ID: p.ID,
		TargetType: domain.TypeVehicle, TargetID: v.ID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.get(t, fmt.Sprintf("/api/v1/checkedin?type=%s&id=%d", domain.TypeVehicle, v.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got server.CheckedInResponse
	decode(t, resp, &got)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, domain.TypePerson, got.Entries[0].Type)
}

func TestCheckIn_FollowsVehicle(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()

	p, err := h.store.CreatePerson(ctx, "Kai Ortiz", nil)
	require.NoError(t, err)
	v, err := h.store.CreateVehicle(ctx, "AMB-2", "ambulance", nil)
	require.NoError(t, err)
	loc, err := h.locations.Create(ctx, &track.Location{Name: "Staging Area"})
	require.NoError(t, err)

	resp := h.post(t, "/api/v1/checkin", server.CheckInRequest{
		Type: domain.TypePerson, ID: p.ID,
		TargetType: domain.TypeVehicle, TargetID: v.ID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.post(t, "/api/v1/location", server.SetLocationRequest{
		Type: domain.TypeVehicle, ID: v.ID, LocationID: ptr(int64(loc)),
		Timestamp: time.Now().Add(time.Second),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.get(t, fmt.Sprintf("/api/v1/location?type=%s&id=%d&at=%s",
		domain.TypePerson, p.ID, time.Now().Add(time.Minute).UTC().Format(time.RFC3339)))
	var got server.LocationResponse
	decode(t, resp, &got)
	require.NotNil(t, got.Location)
	assert.Equal(t, track.LocationID(loc), got.Location.ID)
}

func TestCheckIn_MissingTarget(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()

	p, err := h.store.CreatePerson(ctx, "Riley Wu", nil)
	require.NoError(t, err)

	resp := h.post(t, "/api/v1/checkin", server.CheckInRequest{
		Type: domain.TypePerson, ID: p.ID,
		TargetType: domain.TypeVehicle, TargetID: 999,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCheckOut(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()

	p, err := h.store.CreatePerson(ctx, "Sam Ito", nil)
	require.NoError(t, err)
	v, err := h.store.CreateVehicle(ctx, "AMB-3", "ambulance", nil)
	require.NoError(t, err)

	resp := h.post(t, "/api/v1/checkin", server.CheckInRequest{
		Type: domain.TypePerson, ID: p.ID,
		TargetType: domain.TypeVehicle, TargetID: v.ID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.post(t, "/api/v1/checkout", server.CheckOutRequest{
		Type: domain.TypePerson, ID: p.ID,
		Timestamp: time.Now().Add(time.Minute),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.get(t, fmt.Sprintf("/api/v1/checkedin?type=%s&id=%d&at=%s",
		domain.TypeVehicle, v.ID, time.Now().Add(2*time.Minute).UTC().Format(time.RFC3339)))
	var got server.CheckedInResponse
	decode(t, resp, &got)
	assert.Empty(t, got.Entries)
}

func TestTypes(t *testing.T) {
	h := newAPIHarness(t)
	resp := h.get(t, "/api/v1/types")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []server.TypeEntry
	decode(t, resp, &entries)
	require.Len(t, entries, 5)

	byName := make(map[string]server.TypeEntry)
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.True(t, byName[domain.TypePerson].HasTrackID)
	assert.True(t, byName[domain.TypePerson].HasBaseLocation)
	assert.False(t, byName[domain.TypeFacility].HasTrackID)
	assert.True(t, byName[domain.TypeFacility].HasBaseLocation)
}

func TestStats(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()

	_, err := h.store.CreatePerson(ctx, "Jo Park", nil)
	require.NoError(t, err)
	_, err = h.locations.Create(ctx, &track.Location{Name: "EOC"})
	require.NoError(t, err)

	resp := h.get(t, "/api/v1/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats server.StatsResponse
	decode(t, resp, &stats)
	assert.EqualValues(t, 1, stats.Trackables)
	assert.EqualValues(t, 1, stats.Locations)
}

func TestHealth(t *testing.T) {
	h := newAPIHarness(t)
	resp := h.get(t, "/api/v1/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestMethodNotAllowed(t *testing.T) {
	h := newAPIHarness(t)
	resp := h.get(t, "/api/v1/checkin")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}

func ptr[T any](v T) *T { return &v }
