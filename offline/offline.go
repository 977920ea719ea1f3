// Package offline implements the per-worker staging buffers that back
// entity creation and cross-entity writes: systems never write a
// freshly-created entity's components directly from inside a tick.
// Births, deletion flags, and writes that target an entity born earlier in
// the same tick are appended to the calling worker's BufferShard and
// resolved by a single-threaded Reconciler between ticks.
//
// Raw allocation happens immediately, online, when Birth is called — only
// the component-store writes that make the entity's data observable are
// deferred to the reconcile window. Births are staged and committed in
// deterministic shard order, the same "stage now, commit later,
// deterministic commit order" shape as any write-ahead buffer, without a
// persistence-backed transaction log since persistence is out of scope.
package offline

import (
	"sync"
	"sync/atomic"

	"github.com/nimblegames/ecsruntime/archetype"
	"github.com/nimblegames/ecsruntime/entity"
)

// BirthRecord pairs the already-allocated ID of a newly created entity with
// the closure that installs its initial component values at reconcile.
type BirthRecord struct {
	Tag  archetype.Tag
	ID   entity.ID
	Init func(raw entity.Raw)
}

// DeletionRecord pairs a deletion flag with the archetype that owns it, so
// the Reconciler can route it to the correct entity.Allocator.
type DeletionRecord struct {
	Tag archetype.Tag
	ID  entity.ID
}

type deferredMutation struct {
	id    entity.ID
	seq   uint64
	apply func(raw entity.Raw)
}

// BufferShard is one worker's append-only staging area for a single tick.
// All of its methods are safe to call only from the worker that owns it;
// no locking happens inside BufferShard itself, since shards are
// append-only during a tick under a single-writer assumption. seq is
// shared across every shard drained by the same Reconciler, so deferred
// mutations submitted on different workers against the same entity still
// sort into one submission order at reconcile.
type BufferShard struct {
	workerID int
	seq      *atomic.Uint64

	births    []BirthRecord
	deletions []DeletionRecord
	deferred  []deferredMutation
}

// NewBufferShard builds an empty shard for workerID, sequencing its
// deferred mutations from seq. Every shard handed to the same Reconciler
// must share the same seq so cross-worker submission order is well
// defined.
func NewBufferShard(workerID int, seq *atomic.Uint64) *BufferShard {
	return &BufferShard{workerID: workerID, seq: seq}
}

// Birth allocates a fresh entity.ID from alloc immediately (online), stages
// init to run against its raw at the next Reconcile, and returns the ID.
// The ID is real the moment this call returns: callers may store it,
// compare it, or target it with DeferMutation right away, even though the
// entity's components remain unset until reconciliation runs init.
func (b *BufferShard) Birth(alloc *entity.Allocator, tag archetype.Tag, init func(raw entity.Raw)) entity.ID {
	id := alloc.Allocate(b.workerID)
	b.births = append(b.births, BirthRecord{Tag: tag, ID: id, Init: init})
	return id
}

// FlagDelete stages a deletion request for id, resolved by tag's
// entity.Allocator at the next Reconcile.
func (b *BufferShard) FlagDelete(tag archetype.Tag, id entity.ID) {
	b.deletions = append(b.deletions, DeletionRecord{Tag: tag, ID: id})
}

// DeferMutation stages apply to run against id's raw once this tick's
// births have been initialized. Used when a system wants to write to an
// entity born earlier in the same tick, before its components exist in any
// store. Multiple deferred mutations against the same id, submitted from
// any worker, run in the order they were submitted.
func (b *BufferShard) DeferMutation(id entity.ID, apply func(raw entity.Raw)) {
	b.deferred = append(b.deferred, deferredMutation{id: id, seq: b.seq.Add(1), apply: apply})
}

// Births returns the staged birth queue, for the Reconciler.
func (b *BufferShard) Births() []BirthRecord { return b.births }

// Deletions returns the staged deletion queue, for the Reconciler.
func (b *BufferShard) Deletions() []DeletionRecord { return b.deletions }

// reset clears every queue after a successful Reconcile pass, ready for the
// next tick.
func (b *BufferShard) reset() {
	b.births = b.births[:0]
	b.deletions = b.deletions[:0]
	b.deferred = b.deferred[:0]
}

// FlagDeleteFor resolves a deletion flag against the tagged archetype's
// allocator, supplied by the owning world, which alone knows how to route a
// tag to its archetype's entity.Allocator.
type FlagDeleteFor func(tag archetype.Tag, id entity.ID)

// Reconciler drains every worker's BufferShard between ticks, in
// deterministic shard order, applying births (and any deferred mutations
// targeting them) before deletion flags. Reconciliation is inherently
// single-threaded: no system runs concurrently with it.
type Reconciler struct {
	mu     sync.Mutex
	shards []*BufferShard
}

// NewReconciler builds a Reconciler over the given shards, indexed by
// worker ID in the order they should be drained.
func NewReconciler(shards []*BufferShard) *Reconciler {
	return &Reconciler{shards: shards}
}

// Reconcile runs every shard's staged birth initializers, replays each
// birth's deferred mutations immediately after, then resolves every
// shard's deletion flags. flagDelete is supplied by the owning world.
//
// Deferred mutations are grouped across every shard before any birth
// initializer runs, not just the births staged on the same shard: the
// worker that defers a mutation against a freshly-born entity is not
// necessarily the worker that birthed it, so matching a shard's deferred
// mutations only against its own births would silently drop any
// cross-worker write.
func (r *Reconciler) Reconcile(flagDelete FlagDeleteFor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var allDeferred []deferredMutation
	for _, shard := range r.shards {
		allDeferred = append(allDeferred, shard.deferred...)
	}
	deferredByID := groupDeferredByID(allDeferred)

	for _, shard := range r.shards {
		for _, birth := range shard.births {
			if birth.Init != nil {
				birth.Init(birth.ID.Raw)
			}
			for _, mut := range deferredByID[birth.ID] {
				mut.apply(birth.ID.Raw)
			}
		}
	}

	for _, shard := range r.shards {
		for _, d := range shard.deletions {
			flagDelete(d.Tag, d.ID)
		}
	}

	for _, shard := range r.shards {
		shard.reset()
	}
}

func groupDeferredByID(deferred []deferredMutation) map[entity.ID][]deferredMutation {
	out := make(map[entity.ID][]deferredMutation)
	for _, d := range deferred {
		out[d.id] = append(out[d.id], d)
	}
	for id, muts := range out {
		sorted := append([]deferredMutation(nil), muts...)
		insertionSortBySeq(sorted)
		out[id] = sorted
	}
	return out
}

func insertionSortBySeq(muts []deferredMutation) {
	for i := 1; i < len(muts); i++ {
		for j := i; j > 0 && muts[j-1].seq > muts[j].seq; j-- {
			muts[j-1], muts[j] = muts[j], muts[j-1]
		}
	}
}
