// Package track implements the generic entity location-tracking engine.
//
// Arbitrary domain entities ("trackables") report and query where they are as
// a function of time. A trackable's position can be absolute (a location
// reference) or relative: checked in to another trackable, in which case its
// position is wherever that target currently is. The engine is stateless
// between calls; all state lives in the backing store.
package track

import (
	"time"
)

// TrackID is the opaque key linking an instance to its presence ledger
// entries. It is allocated once per tracked instance by the super-entity
// header table and never reused.
type TrackID int64

// LocationID references a row in the locations table. Location attributes
// are opaque to the engine; it only stores and returns references.
type LocationID int64

// RecordID is a record identifier within a concrete instance table.
type RecordID int64

// Interlock references another trackable: "my position is wherever that
// entity's position currently is". Stored as an explicit (type, id) pair.
type Interlock struct {
	Type string   `json:"type"` // registered instance type name
	ID   RecordID `json:"id"`   // record id in the concrete instance table
}

// Equal reports whether two interlocks reference the same target.
func (il Interlock) Equal(other Interlock) bool {
	return il.Type == other.Type && il.ID == other.ID
}

// PresenceRecord is one immutable, timestamped position assertion. At most
// one of LocationID and Interlock is set; both nil means an explicit
// "no known location" assertion. Records are never mutated after insertion;
// corrections are newer records, removals are soft-deletes.
type PresenceRecord struct {
	ID         int64       // insertion order, tiebreak for equal timestamps
	TrackID    TrackID     // subject
	Timestamp  time.Time   // assertion time (caller-supplied ground truth, UTC)
	LocationID *LocationID // absolute position assertion
	Interlock  *Interlock  // relative position assertion
	Deleted    bool        // soft-deleted records are invisible to queries
}

// Location is a materialized row from the locations table. Lat/Lon are nil
// for placeholder "no coordinate" locations.
type Location struct {
	ID   LocationID `json:"id"`
	Name string     `json:"name,omitempty"`
	Lat  *float64   `json:"lat"`
	Lon  *float64   `json:"lon"`
}

// Placeholder returns a no-coordinate location used to keep result slots
// aligned with parallel collections (e.g. map marker layers).
func Placeholder() *Location {
	return &Location{}
}

// Descriptor is the canonical, validated form of one trackable instance as
// produced by the entity resolver. It carries whichever of the two tracking
// capabilities the instance type supports.
type Descriptor struct {
	Type           string      // registered instance type name
	RecordID       RecordID    // id in the concrete instance table
	UUID           string      // shared key with the super-entity header row
	TrackID        *TrackID    // nil if the type is not ledger-tracked
	BaseLocationID *LocationID // nil if unset or the type has no base location
}

// Filter is a predicate over a registered type's instance table, evaluated
// against the backing store. Where is a SQL fragment with ? placeholders.
type Filter struct {
	Where string
	Args  []interface{}
}

// SuperRow is one super-entity header row: discriminator plus global unique
// key, all other fields deferred to the concrete instance table.
type SuperRow struct {
	TrackID    TrackID
	UUID       string
	EntityType string // discriminator: name of the concrete instance type
}

// SuperRow satisfies Record so pre-fetched header rows can be handed to the
// resolver, which redirects them to their concrete instance rows.

func (r *SuperRow) InstanceType() string { return SuperEntityType }

func (r *SuperRow) InstanceID() RecordID { return RecordID(r.TrackID) }

func (r *SuperRow) InstanceUUID() string { return r.UUID }
