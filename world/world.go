package world

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/nimblegames/ecsruntime/archetype"
	"github.com/nimblegames/ecsruntime/entity"
	"github.com/nimblegames/ecsruntime/offline"
	"github.com/nimblegames/ecsruntime/refcount"
	"github.com/nimblegames/ecsruntime/scheduler"
	"github.com/nimblegames/ecsruntime/tracer"
)

// World is the finalized runtime produced by Builder.Finalize: every
// archetype, global, and system is fixed for its lifetime, since dynamic
// system loading after finalize is out of scope. Execute runs one tick.
type World struct {
	archetypes       *archetype.Registry
	schedule         *scheduler.Schedule
	shards           []*offline.BufferShard
	reconciler       *offline.Reconciler
	refcount         *refcount.MaybeStoreMap
	finalizerChecks  map[archetype.Tag]func(entity.ID) bool
	requiredDefaults map[archetype.Tag][]func(entity.Raw)
	numWorkers       int
	logger           zerolog.Logger

	tick atomic.Uint64
}

func (w *World) contextFor(workerID int) *Context {
	return &Context{
		world:    w,
		workerID: workerID,
		logger:   w.logger.With().Int("worker", workerID).Logger(),
	}
}

// Execute runs one full tick: the scheduler drives every registered system
// exactly once under its resource locks and partition ordering, then
// single-threaded reconciliation drains every worker's offline buffer and
// resolves each archetype's deletion-flag queue. Reconciliation always
// happens after every system of this tick and before every system of the
// next, even when a system returned an error; that first error is returned
// after the tick completes. A nil tracer discards every event.
func (w *World) Execute(trc tracer.Tracer) error {
	if trc == nil {
		trc = tracer.NopTracer{}
	}

	err := w.schedule.Execute(trc, w.numWorkers)

	trc.ReconcileStart()
	w.reconciler.Reconcile(func(tag archetype.Tag, id entity.ID) {
		w.archetypes.MustLookup(tag).Allocator.FlagForDelete(id)
	})
	for _, tag := range w.archetypes.Tags() {
		info := w.archetypes.MustLookup(tag)
		info.Allocator.Reconcile(0, w.canFreeFor(tag))
	}
	trc.ReconcileEnd()

	w.tick.Add(1)
	return err
}

// Tick returns the number of ticks completed so far.
func (w *World) Tick() uint64 { return w.tick.Load() }

// canFreeFor builds tag's CanFree predicate: a flagged entity may be
// physically freed only once its archetype's finalizer check (if any)
// reports no finalizer-marked component remains, at which point a nonzero
// reference count is an invariant violation rather than a retry condition
// and AssertZero panics instead of retaining: finalizer presence retries,
// stray strong references panic.
func (w *World) canFreeFor(tag archetype.Tag) entity.CanFree {
	check := w.finalizerChecks[tag]
	key := string(tag)
	return func(id entity.ID) bool {
		if check != nil && !check(id) {
			return false
		}
		w.refcount.AssertZero(key, id.Raw)
		return true
	}
}

// Rearrange records a raw-index permutation for tag's debug reference
// tracker. The actual movement of component-store data and of any
// application-held entity.ID values is the caller's responsibility —
// rearrangement mechanics are out of scope; only their interaction with
// the refcount invariant is modeled here (see the Open Question
// resolution in DESIGN.md). For each (old, new) pair in mapping, every
// strong reference tracked against old is moved to new; visit is called
// once per pair so the caller can update its own stored IDs' Raw fields in
// step. Must only be called between Execute calls: no system can reach
// this method from Context, so it is never callable mid-tick.
func (w *World) Rearrange(tag archetype.Tag, mapping map[entity.Raw]entity.Raw, visit func(old, new entity.Raw)) {
	key := string(tag)
	for old, n := range mapping {
		if w.refcount.Enabled() {
			count := w.refcount.Count(key, old)
			for i := 0; i < count; i++ {
				w.refcount.Decr(key, old)
				w.refcount.Incr(key, n)
			}
		}
		if visit != nil {
			visit(old, n)
		}
	}
}

// Archetypes exposes the registry for accessors built outside a Context
// (e.g. test setup, or a main-thread-only bootstrap step run before the
// first Execute).
func (w *World) Archetypes() *archetype.Registry { return w.archetypes }
