// Package domain provides the concrete trackable instance types of the
// situational-tracking deployment: responders, vehicles, assets, facilities
// and activity logs. The track engine itself is domain-agnostic; everything
// it knows about these types comes from the registry entries below and the
// capability methods on the row structs.
package domain

import (
	"time"

	"github.com/crisisops/sitrack/track"
)

// Registered instance type names. Each doubles as the instance table name.
const (
	TypePerson      = "persons"
	TypeVehicle     = "vehicles"
	TypeAsset       = "assets"
	TypeFacility    = "facilities"
	TypeActivityLog = "activity_logs"
)

// RegisterTypes registers the deployment's instance types with a registry.
//
// persons, vehicles, assets carry both capabilities; facilities only have a
// base location (a facility does not move); activity logs only have a
// tracking id (an incident report has a position but no home).
func RegisterTypes(reg *track.Registry) error {
	infos := []track.TypeInfo{
		{Name: TypePerson, HasTrackID: true, HasBaseLocation: true},
		{Name: TypeVehicle, HasTrackID: true, HasBaseLocation: true},
		{Name: TypeAsset, HasTrackID: true, HasBaseLocation: true},
		{Name: TypeFacility, HasTrackID: false, HasBaseLocation: true},
		{Name: TypeActivityLog, HasTrackID: true, HasBaseLocation: false},
	}
	for _, info := range infos {
		if err := reg.Register(info); err != nil {
			return err
		}
	}
	return nil
}

// Person is one responder row.
type Person struct {
	ID        int64
	UUID      string
	Track     *track.TrackID
	Location  *track.LocationID
	FullName  string
	CreatedAt time.Time
}

func (p *Person) InstanceType() string { return TypePerson }
func (p *Person) InstanceID() track.RecordID { return track.RecordID(p.ID) }
func (p *Person) InstanceUUID() string { return p.UUID }

func (p *Person) TrackID() (track.TrackID, bool) {
	if p.Track == nil {
		return 0, false
	}
	return *p.Track, true
}

func (p *Person) BaseLocationID() (track.LocationID, bool) {
	if p.Location == nil {
		return 0, false
	}
	return *p.Location, true
}

// Vehicle is one vehicle row.
type Vehicle struct {
	ID          int64
	UUID        string
	Track       *track.TrackID
	Location    *track.LocationID
	CallSign    string
	VehicleType string
	CreatedAt   time.Time
}

func (v *Vehicle) InstanceType() string { return TypeVehicle }
func (v *Vehicle) InstanceID() track.RecordID { return track.RecordID(v.ID) }
func (v *Vehicle) InstanceUUID() string { return v.UUID }

func (v *Vehicle) TrackID() (track.TrackID, bool) {
	if v.Track == nil {
		return 0, false
	}
	return *v.Track, true
}

func (v *Vehicle) BaseLocationID() (track.LocationID, bool) {
	if v.Location == nil {
		return 0, false
	}
	return *v.Location, true
}

// Asset is one equipment row.
type Asset struct {
	ID        int64
	UUID      string
	Track     *track.TrackID
	Location  *track.LocationID
	Label     string
	CreatedAt time.Time
}

func (a *Asset) InstanceType() string { return TypeAsset }
func (a *Asset) InstanceID() track.RecordID { return track.RecordID(a.ID) }
func (a *Asset) InstanceUUID() string { return a.UUID }

func (a *Asset) TrackID() (track.TrackID, bool) {
	if a.Track == nil {
		return 0, false
	}
	return *a.Track, true
}

func (a *Asset) BaseLocationID() (track.LocationID, bool) {
	if a.Location == nil {
		return 0, false
	}
	return *a.Location, true
}

// Facility is one fixed site row. Facilities have no tracking id; their
// position is always their base location.
type Facility struct {
	ID        int64
	UUID      string
	Location  *track.LocationID
	Name      string
	CreatedAt time.Time
}

func (f *Facility) InstanceType() string { return TypeFacility }
func (f *Facility) InstanceID() track.RecordID { return track.RecordID(f.ID) }
func (f *Facility) InstanceUUID() string { return f.UUID }

func (f *Facility) BaseLocationID() (track.LocationID, bool) {
	if f.Location == nil {
		return 0, false
	}
	return *f.Location, true
}

// ActivityLog is one incident report row. Reports are position-tracked but
// have no base location to fall back on.
type ActivityLog struct {
	ID        int64
	UUID      string
	Track     *track.TrackID
	Summary   string
	CreatedAt time.Time
}

func (l *ActivityLog) InstanceType() string { return TypeActivityLog }
func (l *ActivityLog) InstanceID() track.RecordID { return track.RecordID(l.ID) }
func (l *ActivityLog) InstanceUUID() string { return l.UUID }

func (l *ActivityLog) TrackID() (track.TrackID, bool) {
	if l.Track == nil {
		return 0, false
	}
	return *l.Track, true
}
