package track

import (
	"context"
	"time"

	"github.com/crisisops/sitrack/errors"
	"github.com/crisisops/sitrack/logger"
)

// Trackable is the tracking interface over one or more resolved entities.
// All operations apply to every entity behind the handle; query results are
// positionally aligned with the resolved descriptor order.
type Trackable struct {
	tracker     *Tracker
	descriptors []Descriptor
}

// Len returns the number of resolved entities behind the handle.
func (t *Trackable) Len() int {
	return len(t.descriptors)
}

// Descriptors returns the resolved entities, in result order.
func (t *Trackable) Descriptors() []Descriptor {
	out := make([]Descriptor, len(t.descriptors))
	copy(out, t.descriptors)
	return out
}

// GetLocation returns each entity's position at the given time, nil slots
// for unknown positions. A zero time means now.
func (t *Trackable) GetLocation(ctx context.Context, at time.Time) ([]*Location, error) {
	return t.tracker.resolveLocations(ctx, t.descriptors, t.tracker.at(at), nil, false)
}

// GetLocationFilled is GetLocation with unknown positions substituted by
// coordinate-less placeholders, for callers that need aligned non-nil slots.
func (t *Trackable) GetLocationFilled(ctx context.Context, at time.Time) ([]*Location, error) {
	return t.tracker.resolveLocations(ctx, t.descriptors, t.tracker.at(at), nil, true)
}

// SetLocation appends an absolute position assertion for every ledger-tracked
// entity behind the handle. A nil ref records an explicit "no known location".
// Entities without a tracking identifier take the position as their new
// default location instead. A zero time means now.
func (t *Trackable) SetLocation(ctx context.Context, ref LocationRef, at time.Time) error {
	tr := t.tracker
	ts := tr.at(at)

	var locID *LocationID
	if ref != nil {
		id, err := ref.locationID(ctx, tr)
		if err != nil {
			return err
		}
		locID = id
	}

	var untracked []int
	for i, desc := range t.descriptors {
		if desc.TrackID == nil {
			untracked = append(untracked, i)
			continue
		}
		rec := &PresenceRecord{TrackID: *desc.TrackID, Timestamp: ts, LocationID: locID}
		if err := tr.ledger.Append(ctx, rec); err != nil {
			return errors.Wrapf(err, "append position for track %d", *desc.TrackID)
		}
		if err := tr.instances.TouchTrackTimestamp(ctx, *desc.TrackID, ts); err != nil {
			return errors.Wrapf(err, "touch track %d", *desc.TrackID)
		}
		tr.logger.Debugw("position set",
			logger.FieldTrackID, *desc.TrackID,
			logger.FieldLocationID, locID)
	}

	// Entities with no ledger have no position history to append to; the
	// position becomes their default location.
	if len(untracked) > 0 && locID != nil {
		descs := make([]Descriptor, len(untracked))
		for i, idx := range untracked {
			descs[i] = t.descriptors[idx]
		}
		if err := tr.setBaseLocations(ctx, descs, *locID); err != nil {
			return err
		}
		for _, idx := range untracked {
			if info, ok := tr.registry.Lookup(t.descriptors[idx].Type); ok && info.HasBaseLocation {
				id := *locID
				t.descriptors[idx].BaseLocationID = &id
			}
		}
	}
	return nil
}

// CheckIn binds every ledger-tracked entity's position to the target record:
// from the assertion time on, each entity is wherever the target is. Checking
// in to a target the entity is already interlocked with at that time is a
// no-op for that entity. A zero time means now.
func (t *Trackable) CheckIn(ctx context.Context, targetType string, targetID RecordID, at time.Time) error {
	tr := t.tracker
	ts := tr.at(at)

	il, err := tr.resolveTarget(ctx, targetType, targetID)
	if err != nil {
		return err
	}

	for _, desc := range t.descriptors {
		if desc.TrackID == nil {
			continue
		}
		existing, err := tr.ledger.LatestInterlockMatching(ctx, *desc.TrackID, *il, ts)
		if err != nil {
			return errors.Wrapf(err, "query interlock of track %d", *desc.TrackID)
		}
		if existing != nil {
			// Already checked in here, nothing to record.
			continue
		}
		rec := &PresenceRecord{TrackID: *desc.TrackID, Timestamp: ts, Interlock: il}
		if err := tr.ledger.Append(ctx, rec); err != nil {
			return errors.Wrapf(err, "append check-in for track %d", *desc.TrackID)
		}
		if err := tr.instances.TouchTrackTimestamp(ctx, *desc.TrackID, ts); err != nil {
			return errors.Wrapf(err, "touch track %d", *desc.TrackID)
		}
		tr.logger.Debugw("checked in",
			logger.FieldTrackID, *desc.TrackID,
			logger.FieldInstanceType, il.Type,
			"target_id", il.ID)
	}
	return nil
}

// CheckOut releases interlocks. For every entity whose effective record at
// the given time is an interlock (to the given target, or to anything when
// target is nil), the target's position at that time is resolved and frozen
// into a new absolute record, so the entity stops following the target. The
// release timestamp is advanced by one second when it would not be strictly
// after the interlock record's own timestamp. A zero time means now.
func (t *Trackable) CheckOut(ctx context.Context, target *Interlock, at time.Time) error {
	tr := t.tracker
	ts := tr.at(at)

	var want *Interlock
	if target != nil {
		il, err := tr.resolveTarget(ctx, target.Type, target.ID)
		if err != nil {
			if errors.IsNoTargetRecordError(err) {
				// Target row is gone, so nothing can be interlocked to it.
				return nil
			}
			return err
		}
		want = il
	}

	for _, desc := range t.descriptors {
		if desc.TrackID == nil {
			continue
		}
		rec, err := tr.ledger.LatestAtOrBefore(ctx, *desc.TrackID, ts)
		if err != nil {
			return errors.Wrapf(err, "query presence of track %d", *desc.TrackID)
		}
		if rec == nil || rec.Interlock == nil {
			continue
		}
		if want != nil && !rec.Interlock.Equal(*want) {
			continue
		}

		frozen, err := tr.freezeTargetLocation(ctx, *rec.Interlock, ts)
		if err != nil {
			return err
		}

		releaseAt := ts
		if !releaseAt.After(rec.Timestamp) {
			releaseAt = rec.Timestamp.Add(checkOutTick)
		}
		out := &PresenceRecord{TrackID: *desc.TrackID, Timestamp: releaseAt, LocationID: frozen}
		if err := tr.ledger.Append(ctx, out); err != nil {
			return errors.Wrapf(err, "append check-out for track %d", *desc.TrackID)
		}
		if err := tr.instances.TouchTrackTimestamp(ctx, *desc.TrackID, releaseAt); err != nil {
			return errors.Wrapf(err, "touch track %d", *desc.TrackID)
		}
		tr.logger.Debugw("checked out",
			logger.FieldTrackID, *desc.TrackID,
			logger.FieldInstanceType, rec.Interlock.Type,
			"target_id", rec.Interlock.ID,
			logger.FieldLocationID, frozen)
	}
	return nil
}

// freezeTargetLocation resolves an interlock target's position for a
// check-out. A nil result means the target's position is unknown; the
// check-out record then carries an explicit "no known location".
func (tr *Tracker) freezeTargetLocation(ctx context.Context, il Interlock, at time.Time) (*LocationID, error) {
	targets, err := tr.resolver.ResolveIDs(ctx, il.Type, []RecordID{il.ID})
	if err != nil {
		return nil, errors.Wrapf(err, "resolve check-out target %s:%d", il.Type, il.ID)
	}
	if len(targets) == 0 {
		return nil, nil
	}
	locs, err := tr.resolveLocations(ctx, targets[:1], at, nil, false)
	if err != nil {
		return nil, err
	}
	if locs[0] == nil || locs[0].ID == 0 {
		return nil, nil
	}
	id := locs[0].ID
	return &id, nil
}

// RemoveLocation soft-deletes each entity's effective presence record at the
// given time. The previously effective record becomes effective again; the
// ledger's history before that point is untouched. A zero time means now.
func (t *Trackable) RemoveLocation(ctx context.Context, at time.Time) error {
	tr := t.tracker
	ts := tr.at(at)

	for _, desc := range t.descriptors {
		if desc.TrackID == nil {
			continue
		}
		rec, err := tr.ledger.LatestAtOrBefore(ctx, *desc.TrackID, ts)
		if err != nil {
			return errors.Wrapf(err, "query presence of track %d", *desc.TrackID)
		}
		if rec == nil {
			continue
		}
		if err := tr.ledger.MarkDeleted(ctx, rec.ID); err != nil {
			return errors.Wrapf(err, "delete presence record %d", rec.ID)
		}
		tr.logger.Debugw("presence record removed",
			logger.FieldTrackID, *desc.TrackID,
			"record_id", rec.ID)
	}
	return nil
}

// GetBaseLocation returns each entity's default location, nil slots where
// none is set. Base locations are not time-dependent.
func (t *Trackable) GetBaseLocation(ctx context.Context) ([]*Location, error) {
	tr := t.tracker

	ids := make([]LocationID, 0, len(t.descriptors))
	for _, desc := range t.descriptors {
		if desc.BaseLocationID != nil {
			ids = append(ids, *desc.BaseLocationID)
		}
	}
	batch, err := tr.locations.GetBatch(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "fetch base locations")
	}

	results := make([]*Location, len(t.descriptors))
	for i, desc := range t.descriptors {
		if desc.BaseLocationID != nil {
			results[i] = batch[*desc.BaseLocationID]
		}
	}
	return results, nil
}

// SetBaseLocation updates the default location of every entity whose type
// supports one, grouped into one statement per instance type. A ref that
// does not resolve to a stored location leaves everything unchanged.
func (t *Trackable) SetBaseLocation(ctx context.Context, ref LocationRef) error {
	tr := t.tracker
	if ref == nil {
		return nil
	}
	locID, err := ref.locationID(ctx, tr)
	if err != nil {
		return err
	}
	if locID == nil {
		return nil
	}
	if loc, err := tr.locations.Get(ctx, *locID); err != nil {
		return errors.Wrapf(err, "fetch location %d", *locID)
	} else if loc == nil {
		return nil
	}

	if err := tr.setBaseLocations(ctx, t.descriptors, *locID); err != nil {
		return err
	}

	// Refresh the handle so subsequent fallbacks see the new base location.
	for i := range t.descriptors {
		if info, ok := tr.registry.Lookup(t.descriptors[i].Type); ok && info.HasBaseLocation {
			id := *locID
			t.descriptors[i].BaseLocationID = &id
		}
	}
	return nil
}

// setBaseLocations writes locID as the default location of the given
// descriptors, grouped into one statement per instance type. Descriptors
// whose type has no default-location field are skipped.
func (tr *Tracker) setBaseLocations(ctx context.Context, descs []Descriptor, locID LocationID) error {
	byType := make(map[string][]RecordID)
	for _, desc := range descs {
		info, ok := tr.registry.Lookup(desc.Type)
		if !ok || !info.HasBaseLocation {
			continue
		}
		byType[desc.Type] = append(byType[desc.Type], desc.RecordID)
	}
	for typeName, ids := range byType {
		info, _ := tr.registry.Lookup(typeName)
		if err := tr.instances.UpdateBaseLocations(ctx, info, ids, locID); err != nil {
			return errors.Wrapf(err, "update base location of %s rows", typeName)
		}
		tr.logger.Debugw("base location set",
			logger.FieldInstanceType, typeName,
			logger.FieldLocationID, locID,
			"rows", len(ids))
	}
	return nil
}
