package track

import (
	"context"

	"github.com/crisisops/sitrack/errors"
)

// LocationRef is a reference to a location, accepted by SetLocation and
// SetBaseLocation. Construct one with AtLocation, AtLocationRow or AtBaseOf.
// A resolved nil id means the reference carries no concrete location.
type LocationRef interface {
	locationID(ctx context.Context, tr *Tracker) (*LocationID, error)
}

// AtLocation references a location by id.
func AtLocation(id LocationID) LocationRef {
	return locationIDRef(id)
}

// AtLocationRow references a materialized location row.
func AtLocationRow(loc *Location) LocationRef {
	return locationRowRef{loc: loc}
}

// AtBaseOf references the base location of another trackable's first
// resolved entity, e.g. to place an asset at its holder's facility.
func AtBaseOf(t *Trackable) LocationRef {
	return baseOfRef{t: t}
}

type locationIDRef LocationID

func (r locationIDRef) locationID(ctx context.Context, tr *Tracker) (*LocationID, error) {
	id := LocationID(r)
	return &id, nil
}

type locationRowRef struct {
	loc *Location
}

func (r locationRowRef) locationID(ctx context.Context, tr *Tracker) (*LocationID, error) {
	if r.loc == nil || r.loc.ID == 0 {
		return nil, nil
	}
	id := r.loc.ID
	return &id, nil
}

type baseOfRef struct {
	t *Trackable
}

func (r baseOfRef) locationID(ctx context.Context, tr *Tracker) (*LocationID, error) {
	if r.t == nil || len(r.t.descriptors) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "empty trackable in location reference")
	}
	locs, err := r.t.GetBaseLocation(ctx)
	if err != nil {
		return nil, err
	}
	if locs[0] == nil {
		return nil, nil
	}
	id := locs[0].ID
	return &id, nil
}
