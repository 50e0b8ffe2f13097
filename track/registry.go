package track

import (
	"sort"
	"sync"

	"github.com/crisisops/sitrack/errors"
)

// SuperEntityType is the registry name of the polymorphic super-entity
// header table. References to it are redirected to the concrete instance
// type before any tracking logic runs.
const SuperEntityType = "trackables"

// TypeInfo describes one registered trackable instance type. Capabilities
// are declared once at registration instead of probed at query time.
type TypeInfo struct {
	Name            string // registry key, also the instance table name
	HasTrackID      bool   // table carries a track_id column
	HasBaseLocation bool   // table carries a location_id column
}

// Trackable capability interfaces for pre-fetched records. Domain types
// implement these so materialized rows can be handed to the resolver
// without a store round trip.

// Record is a materialized instance row.
type Record interface {
	InstanceType() string
	InstanceID() RecordID
	InstanceUUID() string
}

// HasTrackID is implemented by records that carry a tracking identifier.
// The bool result is false when the row's track_id is unset.
type HasTrackID interface {
	TrackID() (TrackID, bool)
}

// HasBaseLocation is implemented by records that carry a base location.
// The bool result is false when the row's location_id is unset.
type HasBaseLocation interface {
	BaseLocationID() (LocationID, bool)
}

// Registry answers "does type X have a tracking-identifier field / a
// base-location field" for the engine. Types register once at startup.
type Registry struct {
	mu    sync.RWMutex
	types map[string]TypeInfo
}

// NewRegistry creates an empty type registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]TypeInfo)}
}

// Register adds a trackable type. A type must support at least one of the
// two capabilities; this is checked here, once, rather than on every query.
func (r *Registry) Register(info TypeInfo) error {
	if info.Name == "" {
		return errors.Wrap(errors.ErrInvalidRequest, "type name is empty")
	}
	if info.Name == SuperEntityType {
		return errors.Newf("type name %q is reserved for the super-entity", SuperEntityType)
	}
	if !info.HasTrackID && !info.HasBaseLocation {
		return errors.NewNotTrackableError("type %q supports neither tracking id nor base location", info.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[info.Name]; exists {
		return errors.Newf("type %q already registered", info.Name)
	}
	r.types[info.Name] = info
	return nil
}

// Lookup returns the TypeInfo for a registered type name.
func (r *Registry) Lookup(name string) (TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.types[name]
	return info, ok
}

// Types returns all registered types, sorted by name.
func (r *Registry) Types() []TypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]TypeInfo, 0, len(r.types))
	for _, info := range r.types {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
