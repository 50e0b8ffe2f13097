package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/crisisops/sitrack/track"
)

// handleCheckIn binds an entity's position to a target entity.
//
// POST /api/v1/checkin
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req CheckInRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if req.Type == "" || req.TargetType == "" {
		writeError(w, http.StatusBadRequest, "type and target_type are required")
		return
	}

	tb, err := s.tracker.ByID(r.Context(), req.Type, track.RecordID(req.ID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if tb.Len() == 0 {
		writeError(w, http.StatusNotFound, "no such entity")
		return
	}
	if err := tb.CheckIn(r.Context(), req.TargetType, track.RecordID(req.TargetID), req.Timestamp); err != nil {
		writeDomainError(w, err)
		return
	}

	s.publish(PresenceEventMessage{
		Type:       "presence_event",
		Event:      "checkin",
		EntityType: req.Type,
		EntityID:   req.ID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Timestamp:  time.Now().Unix(),
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCheckOut releases an entity's interlock, freezing its position.
//
// POST /api/v1/checkout
func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req CheckOutRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}

	tb, err := s.tracker.ByID(r.Context(), req.Type, track.RecordID(req.ID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if tb.Len() == 0 {
		writeError(w, http.StatusNotFound, "no such entity")
		return
	}

	var target *track.Interlock
	if req.TargetType != "" {
		target = &track.Interlock{Type: req.TargetType, ID: track.RecordID(req.TargetID)}
	}
	if err := tb.CheckOut(r.Context(), target, req.Timestamp); err != nil {
		writeDomainError(w, err)
		return
	}

	s.publish(PresenceEventMessage{
		Type:       "presence_event",
		Event:      "checkout",
		EntityType: req.Type,
		EntityID:   req.ID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Timestamp:  time.Now().Unix(),
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLocation reports a position (POST) or resolves one (GET).
//
// POST /api/v1/location
// GET  /api/v1/location?type=persons&id=3&at=2026-04-01T12:00:00Z
func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSetLocation(w, r)
	case http.MethodGet:
		s.handleGetLocation(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleSetLocation(w http.ResponseWriter, r *http.Request) {
	var req SetLocationRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}

	tb, err := s.tracker.ByID(r.Context(), req.Type, track.RecordID(req.ID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if tb.Len() == 0 {
		writeError(w, http.StatusNotFound, "no such entity")
		return
	}

	// Resolve the reported location: an existing row by id, a new row from
	// coordinates, or nothing (an explicit unknown).
	var ref track.LocationRef
	var locID *int64
	switch {
	case req.LocationID != nil:
		ref = track.AtLocation(track.LocationID(*req.LocationID))
		locID = req.LocationID
	case req.Lat != nil && req.Lon != nil:
		id, err := s.locations.Create(r.Context(), &track.Location{Name: req.Name, Lat: req.Lat, Lon: req.Lon})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		ref = track.AtLocation(id)
		v := int64(id)
		locID = &v
	}

	if err := tb.SetLocation(r.Context(), ref, req.Timestamp); err != nil {
		writeDomainError(w, err)
		return
	}

	s.publish(PresenceEventMessage{
		Type:       "presence_event",
		Event:      "location",
		EntityType: req.Type,
		EntityID:   req.ID,
		LocationID: locID,
		Timestamp:  time.Now().Unix(),
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	typeName := r.URL.Query().Get("type")
	if typeName == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	at, ok := parseTimestamp(w, r)
	if !ok {
		return
	}

	tb, err := s.tracker.ByID(r.Context(), typeName, track.RecordID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if tb.Len() == 0 {
		writeError(w, http.StatusNotFound, "no such entity")
		return
	}

	locs, err := tb.GetLocation(r.Context(), at)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LocationResponse{Type: typeName, ID: id, Location: locs[0]})
}

// handleCheckedIn lists the entities bound to a target.
//
// GET /api/v1/checkedin?type=vehicles&id=3&at=...
func (s *Server) handleCheckedIn(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	typeName := r.URL.Query().Get("type")
	if typeName == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	at, ok := parseTimestamp(w, r)
	if !ok {
		return
	}

	rows, err := s.tracker.GetCheckedIn(r.Context(), typeName, track.RecordID(id), at)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := CheckedInResponse{TargetType: typeName, TargetID: id, Entries: make([]CheckedInEntry, 0, len(rows))}
	for _, row := range rows {
		resp.Entries = append(resp.Entries, CheckedInEntry{
			TrackID: int64(row.TrackID),
			Type:    row.EntityType,
			UUID:    row.UUID,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTypes lists the registered trackable types.
//
// GET /api/v1/types
func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	infos := s.tracker.Registry().Types()
	entries := make([]TypeEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, TypeEntry{
			Name:            info.Name,
			HasTrackID:      info.HasTrackID,
			HasBaseLocation: info.HasBaseLocation,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleStats reports tracking table row counts.
//
// GET /api/v1/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	var stats StatsResponse
	for _, q := range []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM trackables", &stats.Trackables},
		{"SELECT COUNT(*) FROM presence WHERE deleted = 0", &stats.Presence},
		{"SELECT COUNT(*) FROM locations", &stats.Locations},
	} {
		if err := s.db.QueryRowContext(r.Context(), q.query).Scan(q.dest); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseTimestamp reads the optional at query parameter (RFC 3339).
func parseTimestamp(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("at")
	if raw == "" {
		return time.Time{}, true
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "at must be an RFC 3339 timestamp")
		return time.Time{}, false
	}
	return at, true
}
