package track

import (
	"context"
	"time"

	"github.com/crisisops/sitrack/errors"
	"github.com/crisisops/sitrack/logger"
)

// resolveLocations computes the position of each descriptor at the given
// time, one result slot per descriptor:
//
//  1. The effective presence record is the latest non-deleted one at or
//     before the query time (insertion order breaks timestamp ties).
//  2. An interlock record delegates to the target's position at the same
//     time, recursively. A target already on the exclusion chain for this
//     entity is skipped, so mutual check-ins terminate instead of looping.
//  3. An absolute record yields its location row.
//  4. If neither branch produced a location (no record, explicit unknown,
//     broken chain, or the recursion itself came back empty), the
//     instance's base location answers instead.
//  5. Still nothing: the slot is nil, or a coordinate-less placeholder when
//     fill is set, so results stay aligned with the input.
//
// Each top-level entity resolves against its own exclusion chain; a cycle
// broken while resolving one entity does not bleed into its neighbors.
func (tr *Tracker) resolveLocations(ctx context.Context, descs []Descriptor, at time.Time, excluded map[TrackID]bool, fill bool) ([]*Location, error) {
	results := make([]*Location, len(descs))
	for i, desc := range descs {
		loc, err := tr.resolveOne(ctx, desc, at, excluded)
		if err != nil {
			return nil, err
		}
		if loc == nil && fill {
			loc = Placeholder()
		}
		results[i] = loc
	}
	return results, nil
}

// resolveOne resolves a single descriptor. The returned location is nil when
// the entity's position is unknown even after the base-location fallback.
func (tr *Tracker) resolveOne(ctx context.Context, desc Descriptor, at time.Time, excluded map[TrackID]bool) (*Location, error) {
	var loc *Location

	if desc.TrackID != nil {
		rec, err := tr.ledger.LatestAtOrBefore(ctx, *desc.TrackID, at)
		if err != nil {
			return nil, errors.Wrapf(err, "query presence of track %d", *desc.TrackID)
		}
		switch {
		case rec == nil:
			// No presence history yet, fall through to base location.
		case rec.Interlock != nil:
			loc, err = tr.followInterlock(ctx, desc, *rec.Interlock, at, excluded)
			if err != nil {
				return nil, err
			}
		case rec.LocationID != nil:
			loc, err = tr.locations.Get(ctx, *rec.LocationID)
			if err != nil {
				return nil, errors.Wrapf(err, "fetch location %d", *rec.LocationID)
			}
		default:
			// Explicit "no known location" assertion.
		}
	}

	if loc == nil && desc.BaseLocationID != nil {
		var err error
		loc, err = tr.locations.Get(ctx, *desc.BaseLocationID)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch base location %d", *desc.BaseLocationID)
		}
	}
	return loc, nil
}

// followInterlock resolves the target of an interlock record and recurses
// into its position. Returns nil (without error) when the chain must be
// broken: the subject is already on the exclusion chain, the target row is
// gone, the target loops back onto the chain, or the depth cap is hit.
func (tr *Tracker) followInterlock(ctx context.Context, desc Descriptor, il Interlock, at time.Time, excluded map[TrackID]bool) (*Location, error) {
	if excluded[*desc.TrackID] {
		return nil, nil
	}
	if len(excluded) >= int(tr.maxChainDepth.Load()) {
		tr.logger.Warnw("interlock chain depth cap hit",
			logger.FieldTrackID, *desc.TrackID,
			"depth", len(excluded))
		return nil, nil
	}

	targets, err := tr.resolver.ResolveIDs(ctx, il.Type, []RecordID{il.ID})
	if err != nil {
		return nil, errors.Wrapf(err, "resolve interlock target %s:%d", il.Type, il.ID)
	}
	if len(targets) == 0 {
		// Dangling interlock, target row deleted out from under us.
		return nil, nil
	}
	target := targets[0]
	if target.TrackID != nil && excluded[*target.TrackID] {
		return nil, nil
	}

	chain := copyChain(excluded)
	chain[*desc.TrackID] = true
	return tr.resolveOne(ctx, target, at, chain)
}

func copyChain(chain map[TrackID]bool) map[TrackID]bool {
	out := make(map[TrackID]bool, len(chain)+1)
	for id := range chain {
		out[id] = true
	}
	return out
}
