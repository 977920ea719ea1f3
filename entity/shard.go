package entity

import "sort"

// Shard is a single worker's local allocation state: a sorted free-list (a
// sorted-set hint that favors reusing the smallest freed raw first,
// keeping live entities packed near the front of dense stores) plus a
// contiguous reserve of never-allocated raw indices claimed from the
// shared block counter.
//
// A Shard is only ever touched by the worker it was handed to during a
// tick; cross-worker access is a programmer error.
type Shard struct {
	freeList []Raw // kept sorted ascending; smallest reused first
	reserve  Raw   // next unclaimed raw within the current block
	reserveEnd Raw // one past the last raw claimed in the current block

	pendingFree []Raw // freed this tick, merged into freeList at reconcile
}

// take pops the smallest free raw, or reports false if the free list and
// reserve are both exhausted (the caller must then claim a new block).
func (s *Shard) take() (Raw, bool) {
	if len(s.freeList) > 0 {
		r := s.freeList[0]
		s.freeList = s.freeList[1:]
		return r, true
	}
	if s.reserve < s.reserveEnd {
		r := s.reserve
		s.reserve++
		return r, true
	}
	return 0, false
}

// fill gives the shard a fresh block of never-allocated raws, replacing
// whatever remained of the previous block.
func (s *Shard) fill(start, end Raw) {
	s.reserve = start
	s.reserveEnd = end
}

// release marks raw for reuse once reconciled. Not visible to take() until
// mergePending runs.
func (s *Shard) release(raw Raw) {
	s.pendingFree = append(s.pendingFree, raw)
}

// mergePending folds this tick's released raws into the sorted free list.
// Called only during single-threaded reconciliation.
func (s *Shard) mergePending() {
	if len(s.pendingFree) == 0 {
		return
	}
	s.freeList = append(s.freeList, s.pendingFree...)
	s.pendingFree = s.pendingFree[:0]
	sort.Slice(s.freeList, func(i, j int) bool { return s.freeList[i] < s.freeList[j] })
}

// ShardAssigner chooses which Shard a call to Allocator.Allocate should use.
// The scheduler wires the static policy so that a given worker always hits
// its own shard and never contends with another worker's free-list.
type ShardAssigner interface {
	Assign(workerID int, numShards int) int
}

// StaticShardAssigner pins worker i to shard i % numShards. This is the
// policy World wires into its Allocator.
type StaticShardAssigner struct{}

func (StaticShardAssigner) Assign(workerID int, numShards int) int {
	if numShards <= 0 {
		return 0
	}
	return workerID % numShards
}

// RandomShardAssigner spreads calls from the same worker across shards
// using a per-call pseudo-random index, trading shard locality for load
// balance when worker-to-shard affinity is undesirable (e.g. a single
// worker issuing a burst of allocations).
type RandomShardAssigner struct {
	src randSource
}

// NewRandomShardAssigner builds a RandomShardAssigner seeded from seed.
// Each caller should own its own instance; the generator is not
// goroutine-safe, matching a thread-local RNG's usage contract.
func NewRandomShardAssigner(seed uint64) *RandomShardAssigner {
	return &RandomShardAssigner{src: randSource{state: seed | 1}}
}

func (a *RandomShardAssigner) Assign(_ int, numShards int) int {
	if numShards <= 0 {
		return 0
	}
	return int(a.src.next() % uint64(numShards))
}

// randSource is a tiny xorshift64* generator. A dependency-free PRNG is
// intentionally used here instead of math/rand: this picks one integer in
// a narrow range on a hot allocation path, and xorshift64* is the entire
// algorithm in four lines, with no global lock to contend on (math/rand's
// default source serializes through a mutex, and math/rand/v2's is not a
// fit for a caller that wants its own seeded, unshared instance per shard
// assigner). Not cryptographically relevant.
type randSource struct{ state uint64 }

func (r *randSource) next() uint64 {
	r.state ^= r.state << 13
	r.state ^= r.state >> 7
	r.state ^= r.state << 17
	return r.state * 2685821657736338717
}
