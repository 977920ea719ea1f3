// Package iterator implements EntityIterator: a read-only view over one
// archetype's live raw set as captured by a Snapshot, with per-entity, chunked, and
// parallel traversal modes. A chunk is a maximal contiguous run where
// every joined accessor is present.
package iterator

import (
	"sync"

	"github.com/nimblegames/ecsruntime/component"
	"github.com/nimblegames/ecsruntime/entity"
)

// PresenceChecker is satisfied by any component store accessor that can
// report whether it holds a value for a given raw index. SimpleStore[T] and
// TreeStore[T] implement it directly. IsotopeFull[T] and IsotopePartial[T]
// need a discriminant to answer presence, so bind one with FuncChecker
// before passing them to Chunks.
type PresenceChecker interface {
	IsPresent(raw entity.Raw) bool
}

// FuncChecker adapts a presence test function to PresenceChecker, for
// accessors — isotope views bound to a single discriminant — that can't
// implement IsPresent directly because presence also depends on which
// discriminant is being asked about.
type FuncChecker func(raw entity.Raw) bool

// IsPresent calls f.
func (f FuncChecker) IsPresent(raw entity.Raw) bool { return f(raw) }

// EntityIterator owns a copyable snapshot of one archetype's live raw set,
// as captured when the Snapshot was taken, and drives traversal over it. It does not itself
// read or write component data: callers fetch from their own typed
// accessors inside the iteration callback, keyed by the raw or ID the
// iterator yields — a joined-accessor view without relying on variadic
// generics.
type EntityIterator struct {
	snapshot entity.Snapshot
}

// New builds an EntityIterator over snapshot.
func New(snapshot entity.Snapshot) *EntityIterator {
	return &EntityIterator{snapshot: snapshot}
}

// Len returns the number of live entities in the snapshot.
func (it *EntityIterator) Len() int { return it.snapshot.Len() }

// Each calls fn once per live entity, in ascending raw order.
func (it *EntityIterator) Each(fn func(id entity.ID)) {
	for i := 0; i < it.snapshot.Len(); i++ {
		fn(it.snapshot.At(i))
	}
}

// Chunks computes the maximal contiguous raw runs within the snapshot for
// which every checker reports presence, enabling branch-free inner loops
// over dense storage. With no checkers, it returns the snapshot's own
// contiguous runs.
func (it *EntityIterator) Chunks(checkers ...PresenceChecker) []component.Chunk {
	raws := it.snapshot.Raws()
	var chunks []component.Chunk

	i := 0
	for i < len(raws) {
		if !allPresent(checkers, raws[i]) {
			i++
			continue
		}
		start := raws[i]
		j := i + 1
		for j < len(raws) && raws[j] == raws[j-1]+1 && allPresent(checkers, raws[j]) {
			j++
		}
		chunks = append(chunks, component.Chunk{Start: start, End: raws[j-1] + 1})
		i = j
	}
	return chunks
}

func allPresent(checkers []PresenceChecker, raw entity.Raw) bool {
	for _, c := range checkers {
		if !c.IsPresent(raw) {
			return false
		}
	}
	return true
}

// Parallel partitions the snapshot into n roughly-equal sub-iterators, one
// per worker, for use by a send system that wants to fan its own work out
// further within a single node's execution.
func (it *EntityIterator) Parallel(n int) []*EntityIterator {
	parts := it.snapshot.Split(n)
	out := make([]*EntityIterator, len(parts))
	for i, p := range parts {
		out[i] = New(p)
	}
	return out
}

// ParallelEach runs fn concurrently across n roughly-equal partitions of
// the snapshot, blocking until every partition has finished. fn receives
// the partition index (not a global entity-ordered worker id) and the
// entity being visited.
func (it *EntityIterator) ParallelEach(n int, fn func(partition int, id entity.ID)) {
	parts := it.Parallel(n)
	var wg sync.WaitGroup
	for i, part := range parts {
		wg.Add(1)
		go func(partition int, p *EntityIterator) {
			defer wg.Done()
			p.Each(func(id entity.ID) { fn(partition, id) })
		}(i, part)
	}
	wg.Wait()
}
