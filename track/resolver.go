package track

import (
	"context"

	"github.com/crisisops/sitrack/errors"
)

// Resolver normalizes the accepted input shapes (type+id, type+ids, filter,
// pre-fetched record, pre-fetched records) into a uniform ordered list of
// descriptors. Super-entity references are redirected to their concrete
// instance rows here, once; no later code branches on entity kind.
//
// The resolver is read-only.
type Resolver struct {
	registry *Registry
	store    InstanceStore
}

// NewResolver creates a resolver over a registry and instance store.
func NewResolver(registry *Registry, store InstanceStore) *Resolver {
	return &Resolver{registry: registry, store: store}
}

// ResolveIDs resolves a type name plus record ids (nil for all rows) into
// descriptors in ascending id order.
func (r *Resolver) ResolveIDs(ctx context.Context, typeName string, ids []RecordID) ([]Descriptor, error) {
	if typeName == SuperEntityType {
		trackIDs := make([]TrackID, len(ids))
		for i, id := range ids {
			trackIDs[i] = TrackID(id)
		}
		if ids == nil {
			trackIDs = nil
		}
		rows, err := r.store.SuperRows(ctx, trackIDs)
		if err != nil {
			return nil, errors.Wrap(err, "fetch super-entity rows")
		}
		return r.redirect(ctx, rows)
	}

	info, ok := r.registry.Lookup(typeName)
	if !ok {
		return nil, errors.NewNotTrackableError("not a trackable type: %s", typeName)
	}
	descs, err := r.store.Fetch(ctx, info, ids)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s rows", typeName)
	}
	return descs, nil
}

// ResolveFilter resolves a filter predicate over a concrete type's instance
// table into descriptors.
func (r *Resolver) ResolveFilter(ctx context.Context, typeName string, filter Filter) ([]Descriptor, error) {
	if typeName == SuperEntityType {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "filters apply to concrete types, not the super-entity")
	}
	info, ok := r.registry.Lookup(typeName)
	if !ok {
		return nil, errors.NewNotTrackableError("not a trackable type: %s", typeName)
	}
	descs, err := r.store.FetchFilter(ctx, info, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "filter %s rows", typeName)
	}
	return descs, nil
}

// ResolveRecord resolves one pre-fetched row into a descriptor without a
// store round trip (except for super-entity redirection).
func (r *Resolver) ResolveRecord(ctx context.Context, rec Record) ([]Descriptor, error) {
	return r.ResolveRecords(ctx, []Record{rec})
}

// ResolveRecords resolves pre-fetched rows, order preserved. Super-entity
// rows whose concrete instance cannot be found are silently dropped.
func (r *Resolver) ResolveRecords(ctx context.Context, recs []Record) ([]Descriptor, error) {
	descs := make([]Descriptor, 0, len(recs))
	for _, rec := range recs {
		if sr, ok := rec.(*SuperRow); ok {
			redirected, err := r.redirect(ctx, []SuperRow{*sr})
			if err != nil {
				return nil, err
			}
			descs = append(descs, redirected...)
			continue
		}

		desc, err := r.descriptorFromRecord(rec)
		if err != nil {
			return nil, err
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

// descriptorFromRecord builds a descriptor from a materialized row's
// capability interfaces. Fails if the row supports neither capability.
func (r *Resolver) descriptorFromRecord(rec Record) (Descriptor, error) {
	_, trackable := rec.(HasTrackID)
	_, locatable := rec.(HasBaseLocation)
	if !trackable && !locatable {
		return Descriptor{}, errors.NewNotTrackableError("required fields not present in %s row", rec.InstanceType())
	}
	if _, registered := r.registry.Lookup(rec.InstanceType()); !registered {
		return Descriptor{}, errors.NewNotTrackableError("not a trackable type: %s", rec.InstanceType())
	}

	desc := Descriptor{
		Type:     rec.InstanceType(),
		RecordID: rec.InstanceID(),
		UUID:     rec.InstanceUUID(),
	}
	if t, ok := rec.(HasTrackID); ok {
		if id, set := t.TrackID(); set {
			desc.TrackID = &id
		}
	}
	if l, ok := rec.(HasBaseLocation); ok {
		if id, set := l.BaseLocationID(); set {
			desc.BaseLocationID = &id
		}
	}
	return desc, nil
}

// redirect substitutes super-entity header rows with their concrete instance
// rows, matched by the shared unique key. Headers without a reachable
// concrete row contribute no descriptor.
func (r *Resolver) redirect(ctx context.Context, rows []SuperRow) ([]Descriptor, error) {
	descs := make([]Descriptor, 0, len(rows))
	for _, row := range rows {
		info, ok := r.registry.Lookup(row.EntityType)
		if !ok {
			return nil, errors.NewNotTrackableError("not a trackable type: %s", row.EntityType)
		}
		desc, err := r.store.ConcreteByUUID(ctx, info, row.UUID)
		if err != nil {
			return nil, errors.Wrapf(err, "redirect %s header %s", row.EntityType, row.UUID)
		}
		if desc == nil {
			// Orphaned header, no concrete row to track
			continue
		}
		descs = append(descs, *desc)
	}
	return descs, nil
}
