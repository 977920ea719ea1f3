package entity

// Snapshot is a copyable, read-only view of the live raw-index set for one
// archetype, captured when Allocator.Snapshot is called. Rearrangement must never run
// while a Snapshot is outstanding.
type Snapshot struct {
	raws []Raw
	gens *GenerationStore
}

// Len returns the number of live entities captured in the snapshot.
func (s Snapshot) Len() int { return len(s.raws) }

// RawAt returns the raw index at position i in iteration order.
func (s Snapshot) RawAt(i int) Raw { return s.raws[i] }

// At returns the full ID (raw + generation as captured at snapshot time)
// at position i.
func (s Snapshot) At(i int) ID {
	raw := s.raws[i]
	return ID{Raw: raw, Generation: s.gens.Get(raw)}
}

// Raws exposes the underlying slice of live raws for callers that want to
// build their own traversal (e.g. the parallel partitioner in package
// iterator). The slice must be treated as immutable.
func (s Snapshot) Raws() []Raw { return s.raws }

// Split partitions the snapshot into n contiguous, roughly equal shares for
// a parallel EntityIterator.
func (s Snapshot) Split(n int) []Snapshot {
	if n < 1 {
		n = 1
	}
	total := len(s.raws)
	out := make([]Snapshot, 0, n)
	chunk := (total + n - 1) / n
	if chunk == 0 {
		chunk = 1
	}
	for start := 0; start < total; start += chunk {
		end := start + chunk
		if end > total {
			end = total
		}
		out = append(out, Snapshot{raws: s.raws[start:end], gens: s.gens})
	}
	return out
}
