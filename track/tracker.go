package track

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/crisisops/sitrack/errors"
)

// DefaultMaxChainDepth caps recursive interlock resolution. The exclusion
// set already guarantees termination; the cap guards against store-level
// data corruption that bypasses the append-only invariant.
const DefaultMaxChainDepth = 16

// checkOutTick is the minimum step a check-out release timestamp is advanced
// by when it would not be strictly after the interlock record's timestamp.
const checkOutTick = time.Second

// Tracker is the engine's front door. It is stateless between calls; all
// state lives in the backing store, so a single Tracker can be shared by
// concurrent callers.
type Tracker struct {
	registry  *Registry
	resolver  *Resolver
	ledger    Ledger
	instances InstanceStore
	locations LocationStore
	logger    *zap.SugaredLogger

	maxChainDepth atomic.Int32
}

// New creates a Tracker. logger may be nil for silent operation.
func New(registry *Registry, ledger Ledger, instances InstanceStore, locations LocationStore, logger *zap.SugaredLogger) *Tracker {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	tr := &Tracker{
		registry:  registry,
		resolver:  NewResolver(registry, instances),
		ledger:    ledger,
		instances: instances,
		locations: locations,
		logger:    logger,
	}
	tr.maxChainDepth.Store(DefaultMaxChainDepth)
	return tr
}

// SetMaxChainDepth overrides the defensive interlock chain depth cap.
// Safe to call while the tracker is serving.
func (tr *Tracker) SetMaxChainDepth(n int) {
	if n > 0 {
		tr.maxChainDepth.Store(int32(n))
	}
}

// Registry returns the type registry the tracker was built with.
func (tr *Tracker) Registry() *Registry {
	return tr.registry
}

// ByID returns a tracking interface for a single record of a type.
func (tr *Tracker) ByID(ctx context.Context, typeName string, id RecordID) (*Trackable, error) {
	descs, err := tr.resolver.ResolveIDs(ctx, typeName, []RecordID{id})
	if err != nil {
		return nil, err
	}
	return &Trackable{tracker: tr, descriptors: descs}, nil
}

// ByIDs returns a tracking interface for a list of records of a type,
// in ascending id order.
func (tr *Tracker) ByIDs(ctx context.Context, typeName string, ids []RecordID) (*Trackable, error) {
	descs, err := tr.resolver.ResolveIDs(ctx, typeName, ids)
	if err != nil {
		return nil, err
	}
	return &Trackable{tracker: tr, descriptors: descs}, nil
}

// All returns a tracking interface for every record of a type.
func (tr *Tracker) All(ctx context.Context, typeName string) (*Trackable, error) {
	descs, err := tr.resolver.ResolveIDs(ctx, typeName, nil)
	if err != nil {
		return nil, err
	}
	return &Trackable{tracker: tr, descriptors: descs}, nil
}

// ByFilter returns a tracking interface for records matching a filter
// predicate over the type's instance table.
func (tr *Tracker) ByFilter(ctx context.Context, typeName string, filter Filter) (*Trackable, error) {
	descs, err := tr.resolver.ResolveFilter(ctx, typeName, filter)
	if err != nil {
		return nil, err
	}
	return &Trackable{tracker: tr, descriptors: descs}, nil
}

// FromRecord returns a tracking interface for a pre-fetched row.
func (tr *Tracker) FromRecord(ctx context.Context, rec Record) (*Trackable, error) {
	descs, err := tr.resolver.ResolveRecord(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &Trackable{tracker: tr, descriptors: descs}, nil
}

// FromRecords returns a tracking interface for pre-fetched rows, order
// preserved.
func (tr *Tracker) FromRecords(ctx context.Context, recs []Record) (*Trackable, error) {
	descs, err := tr.resolver.ResolveRecords(ctx, recs)
	if err != nil {
		return nil, err
	}
	return &Trackable{tracker: tr, descriptors: descs}, nil
}

// GetCheckedIn returns the super-entity headers of all trackables whose
// effective presence record at the given time is interlocked to the target.
// A zero time means now.
func (tr *Tracker) GetCheckedIn(ctx context.Context, targetType string, targetID RecordID, at time.Time) ([]SuperRow, error) {
	il, err := tr.resolveTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	trackIDs, err := tr.ledger.CheckedIn(ctx, *il, tr.at(at))
	if err != nil {
		return nil, errors.Wrap(err, "query checked-in trackables")
	}

	rows := make([]SuperRow, 0, len(trackIDs))
	for _, id := range trackIDs {
		header, err := tr.instances.HeaderByTrackID(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch header for track %d", id)
		}
		if header != nil {
			rows = append(rows, *header)
		}
	}
	return rows, nil
}

// resolveTarget resolves a (type, id) reference, possibly via the
// super-entity, to the interlock value of its concrete instance.
// Returns ErrNoTargetRecord if no concrete record can be found.
func (tr *Tracker) resolveTarget(ctx context.Context, typeName string, id RecordID) (*Interlock, error) {
	descs, err := tr.resolver.ResolveIDs(ctx, typeName, []RecordID{id})
	if err != nil {
		return nil, err
	}
	if len(descs) == 0 {
		return nil, errors.NewNoTargetRecordError("no record %d in %s", id, typeName)
	}
	return &Interlock{Type: descs[0].Type, ID: descs[0].RecordID}, nil
}

// at normalizes a caller-supplied timestamp: zero means now, and all
// timestamps are treated as UTC ground truth.
func (tr *Tracker) at(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
