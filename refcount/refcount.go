// Package refcount implements a debug-mode reference tracker: a shared
// counter keyed by (archetype, raw) that proves deleted entities are
// unreachable before their slot is physically recycled.
package refcount

import (
	"fmt"
	"sync"

	"github.com/nimblegames/ecsruntime/entity"
)

// Key identifies one tracked slot.
type Key struct {
	Archetype string
	Raw       entity.Raw
}

// StoreMap maintains live strong-reference counts keyed by (archetype,
// raw). Every strong entity reference increments the counter for its key
// on creation and decrements it on drop; reconcile-time deletion asserts
// the counter has returned to zero.
type StoreMap struct {
	mu     sync.Mutex
	counts map[Key]int
}

// NewStoreMap builds an empty tracker.
func NewStoreMap() *StoreMap {
	return &StoreMap{counts: make(map[Key]int)}
}

// Incr records a new strong reference to (archetype, raw).
func (m *StoreMap) Incr(archetype string, raw entity.Raw) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[Key{archetype, raw}]++
}

// Decr drops a strong reference to (archetype, raw).
func (m *StoreMap) Decr(archetype string, raw entity.Raw) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := Key{archetype, raw}
	m.counts[key]--
	if m.counts[key] <= 0 {
		delete(m.counts, key)
	}
}

// Count returns the current strong-reference count for (archetype, raw).
func (m *StoreMap) Count(archetype string, raw entity.Raw) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[Key{archetype, raw}]
}

// AssertZero panics with the owning archetype and raw index if the
// reference count for (archetype, raw) is nonzero. Called at the moment
// reconciliation is about to physically free a slot.
func (m *StoreMap) AssertZero(archetype string, raw entity.Raw) {
	if count := m.Count(archetype, raw); count != 0 {
		panic(fmt.Errorf("refcount: archetype %q raw %d still has %d reachable reference(s) at deletion",
			archetype, raw, count))
	}
}

// MaybeStoreMap selects between live tracking and a no-op shim, chosen
// once at world-build time. Go has no compile-time debug-assertions
// switch, so the choice is made by a runtime flag instead — see
// ecsconfig.Config.DebugRefcount and world.Builder.WithDebugRefcount —
// both routes converge on this same type.
type MaybeStoreMap struct {
	live *StoreMap // nil selects the no-op shim
}

// NewMaybeStoreMap builds a MaybeStoreMap that tracks live references when
// enabled is true, or silently discards all operations otherwise.
func NewMaybeStoreMap(enabled bool) *MaybeStoreMap {
	if !enabled {
		return &MaybeStoreMap{}
	}
	return &MaybeStoreMap{live: NewStoreMap()}
}

// Enabled reports whether this MaybeStoreMap is actually tracking.
func (m *MaybeStoreMap) Enabled() bool { return m.live != nil }

// Incr records a new strong reference, a no-op when tracking is disabled.
func (m *MaybeStoreMap) Incr(archetype string, raw entity.Raw) {
	if m.live != nil {
		m.live.Incr(archetype, raw)
	}
}

// Decr drops a strong reference, a no-op when tracking is disabled.
func (m *MaybeStoreMap) Decr(archetype string, raw entity.Raw) {
	if m.live != nil {
		m.live.Decr(archetype, raw)
	}
}

// Count returns the live count, or 0 unconditionally when tracking is
// disabled.
func (m *MaybeStoreMap) Count(archetype string, raw entity.Raw) int {
	if m.live == nil {
		return 0
	}
	return m.live.Count(archetype, raw)
}

// AssertZero panics on a nonzero count when tracking is enabled; it is
// always a silent pass-through when disabled (no panic, no check, at all,
// when tracking is off).
func (m *MaybeStoreMap) AssertZero(archetype string, raw entity.Raw) {
	if m.live != nil {
		m.live.AssertZero(archetype, raw)
	}
}
