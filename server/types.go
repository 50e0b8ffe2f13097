package server

import (
	"time"

	"github.com/crisisops/sitrack/track"
)

// CheckInRequest binds an entity's position to a target entity.
type CheckInRequest struct {
	Type       string    `json:"type"`
	ID         int64     `json:"id"`
	TargetType string    `json:"target_type"`
	TargetID   int64     `json:"target_id"`
	Timestamp  time.Time `json:"timestamp,omitempty"` // zero = now
}

// CheckOutRequest releases an entity's interlock. Target fields empty =
// release whatever it is bound to.
type CheckOutRequest struct {
	Type       string    `json:"type"`
	ID         int64     `json:"id"`
	TargetType string    `json:"target_type,omitempty"`
	TargetID   int64     `json:"target_id,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

// SetLocationRequest reports an absolute position. Exactly one of
// LocationID or coordinates should be given; neither records an explicit
// "no known location".
type SetLocationRequest struct {
	Type       string    `json:"type"`
	ID         int64     `json:"id"`
	LocationID *int64    `json:"location_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Lat        *float64  `json:"lat,omitempty"`
	Lon        *float64  `json:"lon,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

// LocationResponse is one entity's resolved position.
type LocationResponse struct {
	Type     string          `json:"type"`
	ID       int64           `json:"id"`
	Location *track.Location `json:"location"` // null when unknown
}

// CheckedInResponse lists the entities currently bound to a target.
type CheckedInResponse struct {
	TargetType string           `json:"target_type"`
	TargetID   int64            `json:"target_id"`
	Entries    []CheckedInEntry `json:"entries"`
}

// CheckedInEntry is one bound entity.
type CheckedInEntry struct {
	TrackID int64  `json:"track_id"`
	Type    string `json:"type"`
	UUID    string `json:"uuid"`
}

// TypeEntry describes one registered trackable type.
type TypeEntry struct {
	Name            string `json:"name"`
	HasTrackID      bool   `json:"has_track_id"`
	HasBaseLocation bool   `json:"has_base_location"`
}

// StatsResponse reports row counts of the tracking tables.
type StatsResponse struct {
	Trackables int64 `json:"trackables"`
	Presence   int64 `json:"presence"`
	Locations  int64 `json:"locations"`
}

// PresenceEventMessage is pushed to WebSocket clients after each accepted
// presence write.
type PresenceEventMessage struct {
	Type       string `json:"type"`  // always "presence_event"
	Event      string `json:"event"` // checkin, checkout, location, remove
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	TargetType string `json:"target_type,omitempty"`
	TargetID   int64  `json:"target_id,omitempty"`
	LocationID *int64 `json:"location_id,omitempty"`
	Timestamp  int64  `json:"timestamp"` // unix seconds
}
