package world

import (
	"github.com/rs/zerolog"

	"github.com/nimblegames/ecsruntime/archetype"
	"github.com/nimblegames/ecsruntime/entity"
	"github.com/nimblegames/ecsruntime/iterator"
	"github.com/nimblegames/ecsruntime/offline"
	"github.com/nimblegames/ecsruntime/refcount"
)

// Context bundles the identity a running system needs: which worker it is
// executing on, the current tick, a logger, and the staging surfaces for
// creating and deleting entities. A per-worker view rather than one shared,
// mutex-guarded handle, since systems here run genuinely concurrently
// rather than behind a serialized transaction queue.
type Context struct {
	world    *World
	workerID int
	logger   zerolog.Logger
}

// WorkerID returns the worker this Context was built for.
func (c *Context) WorkerID() int { return c.workerID }

// Tick returns the tick counter's value as of the start of this tick.
func (c *Context) Tick() uint64 { return c.world.tick.Load() }

// Logger returns this Context's worker-scoped logger.
func (c *Context) Logger() *zerolog.Logger { return &c.logger }

// Create stages a new entity of the given archetype, allocating its ID
// immediately and deferring the init work to the next reconcile: first any
// RequireComponent fills registered for tag, in registration order, then
// init, which should call Set on whichever component stores the archetype
// owns for anything not already covered by a fill.
func (c *Context) Create(tag archetype.Tag, init func(raw entity.Raw)) entity.ID {
	info := c.world.archetypes.MustLookup(tag)
	fills := c.world.requiredDefaults[tag]
	return c.shard().Birth(info.Allocator, tag, func(raw entity.Raw) {
		for _, fill := range fills {
			fill(raw)
		}
		if init != nil {
			init(raw)
		}
	})
}

// Delete flags id for deletion. The entity is physically removed at a
// later reconcile once no finalizer-marked component remains set on it.
func (c *Context) Delete(tag archetype.Tag, id entity.ID) {
	c.shard().FlagDelete(tag, id)
}

// DeferMutation stages apply to run against id's raw right after id's birth
// initializer, at the next reconcile. Use this to write to an entity
// created earlier in the same tick — including one born on a different
// worker — before its components exist in any store. Staged on the calling
// worker's own shard, but matched against every shard's births at
// reconcile, since the birth and the deferred write are not guaranteed to
// originate from the same worker. A mutation whose id matches no birth
// staged this tick is discarded at reconcile without running.
func (c *Context) DeferMutation(id entity.ID, apply func(raw entity.Raw)) {
	c.shard().DeferMutation(id, apply)
}

// Snapshot returns a read-only view of tag's live raw set as of this call,
// suitable for iterator.New. It is not fixed at the start of the tick: it
// includes entities allocated earlier in this tick, whose components stay
// unset until reconciliation runs their birth initializers.
func (c *Context) Snapshot(tag archetype.Tag) entity.Snapshot {
	return c.world.archetypes.MustLookup(tag).Allocator.Snapshot()
}

// Iterate is a convenience wrapper combining Snapshot and iterator.New.
func (c *Context) Iterate(tag archetype.Tag) *iterator.EntityIterator {
	return iterator.New(c.Snapshot(tag))
}

// Refcount returns the process-wide strong-reference tracker. It is a
// no-op shim unless the world was built with debug refcounting enabled.
func (c *Context) Refcount() *refcount.MaybeStoreMap { return c.world.refcount }

// Archetype returns the registered archetype.Info for tag, for accessors
// that need its allocator directly (e.g. Generation or IsLive checks).
func (c *Context) Archetype(tag archetype.Tag) *archetype.Info {
	return c.world.archetypes.MustLookup(tag)
}

func (c *Context) shard() *offline.BufferShard { return c.world.shards[c.workerID] }
