// Package archetype implements the archetype tag registry: every entity ID
// carries a compile-time-distinguishable archetype tag, and each archetype
// owns its own raw-index space and generation store (one
// entity.Allocator per archetype, since raw indices are never shared across
// archetypes). Grounded on the registry shape of ecs/storage/archetype.go's
// archetypeStorageImpl (PushArchetype / Archetype / Count), adapted from a
// serializable snapshot list to a live per-archetype allocator table.
package archetype

import (
	"fmt"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/nimblegames/ecsruntime/entity"
)

// Tag identifies an entity kind. Two entity IDs carrying different tags are
// never comparable; the runtime never narrows or widens a tag after
// registration (no dynamic archetype change).
type Tag string

// ID is the registration-order index assigned to a Tag. Stable for the
// life of a Registry, used as a dense array index by the scheduler and by
// per-archetype component store tables.
type ID int

// ErrDuplicateTag is returned by Register when the tag was already
// registered.
var ErrDuplicateTag = eris.New("archetype: tag already registered")

// ErrUnknownTag is returned by Lookup-family calls for a tag never
// registered.
var ErrUnknownTag = eris.New("archetype: unknown tag")

// Info bundles the identity and entity allocator owned by one archetype.
type Info struct {
	Tag       Tag
	ID        ID
	Allocator *entity.Allocator
}

// Registry holds every archetype declared at world-build time, each with
// its own raw-index allocator. world.Builder registers archetypes only
// before Finalize; Register itself does not check whether a Snapshot has
// already been taken.
type Registry struct {
	mu    sync.RWMutex
	byTag map[Tag]ID
	infos []*Info
}

// NewRegistry builds an empty archetype registry.
func NewRegistry() *Registry {
	return &Registry{byTag: make(map[Tag]ID)}
}

// Register declares a new archetype with its own entity allocator, sharded
// numShards ways using assigner for worker-to-shard routing (see
// entity.ShardAssigner). Returns ErrDuplicateTag if tag was already
// registered.
func (r *Registry) Register(tag Tag, numShards int, assigner entity.ShardAssigner) (*Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byTag[tag]; ok {
		return nil, eris.Wrapf(ErrDuplicateTag, "tag %q", tag)
	}

	id := ID(len(r.infos))
	info := &Info{
		Tag:       tag,
		ID:        id,
		Allocator: entity.NewAllocator(numShards, assigner),
	}
	r.byTag[tag] = id
	r.infos = append(r.infos, info)
	return info, nil
}

// Lookup returns the Info for tag, or ok=false if it was never registered.
func (r *Registry) Lookup(tag Tag) (*Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTag[tag]
	if !ok {
		return nil, false
	}
	return r.infos[id], true
}

// MustLookup returns the Info for tag, panicking with the offending tag if
// it was never registered. Used by accessor construction code where an
// unregistered tag is a programmer error, not a recoverable condition.
func (r *Registry) MustLookup(tag Tag) *Info {
	info, ok := r.Lookup(tag)
	if !ok {
		panic(fmt.Errorf("%w: %q", ErrUnknownTag, tag))
	}
	return info
}

// ByID returns the Info registered at id. Panics on an out-of-range id.
func (r *Registry) ByID(id ID) *Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.infos[id]
}

// Tags returns every registered tag in registration order.
func (r *Registry) Tags() []Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]Tag, len(r.infos))
	for i, info := range r.infos {
		tags[i] = info.Tag
	}
	return tags
}

// Count returns the number of registered archetypes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.infos)
}
