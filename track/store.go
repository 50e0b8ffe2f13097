// This file defines the storage interfaces that separate the tracking engine
// from storage implementation details. Implementations live in track/storage.
package track

import (
	"context"
	"time"
)

// Ledger defines storage operations for the append-only presence log.
//
// Appends never reject based on ordering: a record with an earlier timestamp
// than the current latest is permitted, and historical queries honor it
// (insertion order is not effective order).
type Ledger interface {
	// Append inserts a new presence record and sets rec.ID to the
	// insertion-order identifier.
	Append(ctx context.Context, rec *PresenceRecord) error

	// LatestAtOrBefore returns the most recent non-deleted record with
	// timestamp <= at, or nil if there is none. Ties on timestamp are
	// broken by insertion order (higher id wins).
	LatestAtOrBefore(ctx context.Context, trackID TrackID, at time.Time) (*PresenceRecord, error)

	// LatestInterlockMatching returns the effective record at `at` if its
	// interlock equals il, or nil. Used to make check-in idempotent.
	LatestInterlockMatching(ctx context.Context, trackID TrackID, il Interlock, at time.Time) (*PresenceRecord, error)

	// CheckedIn returns the track ids whose effective record at `at` is
	// interlocked to the given target.
	CheckedIn(ctx context.Context, il Interlock, at time.Time) ([]TrackID, error)

	// MarkDeleted soft-deletes a record by its insertion-order id. The
	// previously effective record becomes effective again.
	MarkDeleted(ctx context.Context, recordID int64) error
}

// InstanceStore defines storage operations over the trackable instance
// tables and the super-entity header table.
type InstanceStore interface {
	// Fetch returns descriptors for the given record ids of a registered
	// type, in ascending id order. A nil ids slice fetches all rows.
	Fetch(ctx context.Context, info TypeInfo, ids []RecordID) ([]Descriptor, error)

	// FetchFilter returns descriptors for rows matching the filter.
	FetchFilter(ctx context.Context, info TypeInfo, filter Filter) ([]Descriptor, error)

	// SuperRows returns super-entity header rows for the given track ids.
	// A nil ids slice fetches all rows.
	SuperRows(ctx context.Context, ids []TrackID) ([]SuperRow, error)

	// HeaderByTrackID returns the header row for a track id, or nil.
	HeaderByTrackID(ctx context.Context, trackID TrackID) (*SuperRow, error)

	// ConcreteByUUID returns the concrete instance row matched by the
	// super-entity's global unique key, or nil if it cannot be found.
	ConcreteByUUID(ctx context.Context, info TypeInfo, uuid string) (*Descriptor, error)

	// UpdateBaseLocations sets location_id for the given records of one
	// concrete type in a single statement.
	UpdateBaseLocations(ctx context.Context, info TypeInfo, ids []RecordID, loc LocationID) error

	// TouchTrackTimestamp updates the header row's convenience timestamp
	// after a ledger write.
	TouchTrackTimestamp(ctx context.Context, trackID TrackID, at time.Time) error
}

// LocationStore defines read/create access to location rows. The engine
// never mutates location attributes.
type LocationStore interface {
	// Get returns a location by id, or nil if it does not exist.
	Get(ctx context.Context, id LocationID) (*Location, error)

	// GetBatch returns the locations for the given ids, keyed by id.
	// Missing ids are absent from the result, not an error.
	GetBatch(ctx context.Context, ids []LocationID) (map[LocationID]*Location, error)

	// Create inserts a new location row and returns its id.
	Create(ctx context.Context, loc *Location) (LocationID, error)
}
