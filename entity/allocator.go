package entity

import (
	"sync/atomic"

	"github.com/rotisserie/eris"
)

// DefaultBlockSize is the number of fresh raws a shard claims from the
// shared counter at once, amortizing the cost of the block claim across
// many allocations.
const DefaultBlockSize = 64

// ErrIntegerExhaustion is the allocator's only failure mode: the raw index
// space has been exhausted. This is fatal, surfaced as a panic from
// Allocate rather than a returned error, since there is no sensible way
// for a system to recover mid-tick.
var ErrIntegerExhaustion = eris.New("entity: raw index space exhausted")

// Allocator hands out fresh entity IDs, recycles freed ones, and maintains
// generation counters for a single archetype.
type Allocator struct {
	gens GenerationStore

	shards    []Shard
	assigner  ShardAssigner
	blockSize Raw

	nextBlock atomic.Uint32 // shared counter; claimed in blockSize chunks

	pendingDelete []ID // flag_for_delete requests, drained at Reconcile
}

// NewAllocator builds an Allocator with numShards shards (one per worker,
// typically) using the given shard-assignment policy.
func NewAllocator(numShards int, assigner ShardAssigner) *Allocator {
	if numShards < 1 {
		numShards = 1
	}
	if assigner == nil {
		assigner = StaticShardAssigner{}
	}
	return &Allocator{
		shards:    make([]Shard, numShards),
		assigner:  assigner,
		blockSize: DefaultBlockSize,
	}
}

// WithBlockSize overrides the per-shard block reservation size. Must be
// called before the first Allocate.
func (a *Allocator) WithBlockSize(n int) *Allocator {
	if n > 0 {
		a.blockSize = Raw(n)
	}
	return a
}

// Allocate returns a fresh or recycled ID for the given worker. It does not
// block on other workers in the common case: a recycled raw comes straight
// from the worker's own shard, and a fresh raw comes from the worker's
// reserve, refilled via a single lock-free fetch-add on the shared counter
// only when the reserve runs dry.
func (a *Allocator) Allocate(workerID int) ID {
	shardIdx := a.assigner.Assign(workerID, len(a.shards))
	shard := &a.shards[shardIdx]

	raw, ok := shard.take()
	if !ok {
		start := Raw(a.nextBlock.Add(uint32(a.blockSize))) - a.blockSize
		if start > start+a.blockSize { // wrapped around uint32
			panic(ErrIntegerExhaustion)
		}
		shard.fill(start, start+a.blockSize)
		raw, ok = shard.take()
		if !ok {
			panic(ErrIntegerExhaustion)
		}
	}

	gen := a.gens.Get(raw)
	if gen == 0 {
		gen = a.gens.Next(raw)
	}
	return ID{Raw: raw, Generation: gen}
}

// FlagForDelete records a deletion request for id, to be resolved at the
// next Reconcile. Flagging an already-expired ID is a silent no-op.
func (a *Allocator) FlagForDelete(id ID) {
	if !a.gens.IsLive(id) {
		return
	}
	a.pendingDelete = append(a.pendingDelete, id)
}

// releaseRaw queues raw on workerID's shard for reuse; take() sees it only
// after the shard's next mergePending. It does no generation bookkeeping.
// Used only by Reconcile once a flagged entity has been confirmed
// deletable; not part of the public allocator contract.
func (a *Allocator) releaseRaw(workerID int, raw Raw) {
	shardIdx := a.assigner.Assign(workerID, len(a.shards))
	a.shards[shardIdx].release(raw)
}

// CanFree decides whether a flagged-for-deletion entity may be physically
// removed: no finalizer components remain present and (in debug builds) its
// refcount is zero. Supplied by the owning world, which alone knows about
// component stores and the reference tracker — entity stays decoupled from
// both.
type CanFree func(id ID) bool

// Reconcile drains the free-list additions from every shard, bumps the
// generation of each slot finally freed this tick, and resolves the
// deletion-flag queue: retained entities (CanFree reports false) are
// re-queued for the next tick, resolved ones are freed via workerID's
// shard. Reconcile runs single-threaded, between ticks.
func (a *Allocator) Reconcile(workerID int, canFree CanFree) {
	for i := range a.shards {
		a.shards[i].mergePending()
	}

	if len(a.pendingDelete) == 0 {
		return
	}

	retained := a.pendingDelete[:0]
	for _, id := range a.pendingDelete {
		if !a.gens.IsLive(id) {
			continue // expired between flag and reconcile; drop silently
		}
		if !canFree(id) {
			retained = append(retained, id)
			continue
		}
		a.gens.Next(id.Raw)
		a.releaseRaw(workerID, id.Raw)
	}
	a.pendingDelete = retained

	for i := range a.shards {
		a.shards[i].mergePending()
	}
}

// Snapshot returns a copyable, read-only view of the currently-live raw set
// for this archetype, for use by EntityIterator. Valid only for the tick
// that produced it: entities created or deleted after the snapshot is taken
// are not reflected, by design.
func (a *Allocator) Snapshot() Snapshot {
	highWater := Raw(a.nextBlock.Load())
	dead := make(map[Raw]struct{})
	for i := range a.shards {
		for _, r := range a.shards[i].freeList {
			dead[r] = struct{}{}
		}
		if a.shards[i].reserve < a.shards[i].reserveEnd {
			for r := a.shards[i].reserve; r < a.shards[i].reserveEnd; r++ {
				dead[r] = struct{}{}
			}
		}
	}
	live := make([]Raw, 0, int(highWater))
	for r := Raw(0); r < highWater; r++ {
		if _, isDead := dead[r]; isDead {
			continue
		}
		if a.gens.Get(r) == 0 {
			continue
		}
		live = append(live, r)
	}
	return Snapshot{raws: live, gens: &a.gens}
}

// Generation exposes the current generation of raw, used by accessors that
// need to rehydrate a full ID from a bare raw index during iteration.
func (a *Allocator) Generation(raw Raw) Generation {
	return a.gens.Get(raw)
}

// IsLive reports whether id is the current occupant of its slot.
func (a *Allocator) IsLive(id ID) bool {
	return a.gens.IsLive(id)
}
