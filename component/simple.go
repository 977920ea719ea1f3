// Package component implements the storage layer: simple (dense) and tree
// (sparse) column stores keyed by entity raw index, and isotope stores that
// fan a component type out into one independent column per discriminant.
package component

import (
	"fmt"

	"github.com/nimblegames/ecsruntime/entity"
)

// Chunk is a maximal run of consecutive raws, all present, within a
// SimpleStore. Iterating by chunk instead of by individual raw lets a
// system's inner loop run over a dense, branchless slice.
type Chunk struct {
	Start entity.Raw
	End   entity.Raw // exclusive
}

// Len returns the number of entries covered by the chunk.
func (c Chunk) Len() int { return int(c.End - c.Start) }

// SimpleStore is a column of T indexed by raw, paired with a presence
// bitmap. At most one instance exists per (entity, component type): this is
// the "simple" component model. The Go shape is a dense slice of values
// paired with a parallel bool slice rather than a real bitset, following
// the column-store style already used for the rest of this package.
type SimpleStore[T any] struct {
	values   []T
	present  []bool
	required bool
}

// NewSimpleStore builds an empty store. required marks whether the
// invariant "every live entity has a value" is enforced by GetRequired.
func NewSimpleStore[T any](required bool) *SimpleStore[T] {
	return &SimpleStore[T]{required: required}
}

func (s *SimpleStore[T]) grow(raw entity.Raw) {
	if int(raw) < len(s.values) {
		return
	}
	n := int(raw) + 1
	values := make([]T, n)
	copy(values, s.values)
	s.values = values

	present := make([]bool, n)
	copy(present, s.present)
	s.present = present
}

// Get returns the value at raw and whether it is present.
func (s *SimpleStore[T]) Get(raw entity.Raw) (T, bool) {
	if int(raw) >= len(s.values) || !s.present[raw] {
		var zero T
		return zero, false
	}
	return s.values[raw], true
}

// GetRequired returns the value at raw, panicking with diagnostic context
// if it is absent. Use only for required-presence components outside a
// creation tick.
func (s *SimpleStore[T]) GetRequired(raw entity.Raw) T {
	v, ok := s.Get(raw)
	if !ok {
		panic(fmt.Errorf("%w: raw=%d", ErrMissingRequiredComponent, raw))
	}
	return v
}

// Set stores value at raw, marking it present.
func (s *SimpleStore[T]) Set(raw entity.Raw, value T) {
	s.grow(raw)
	s.values[raw] = value
	s.present[raw] = true
}

// Clear marks raw absent and resets its stored value to the zero value of
// T.
func (s *SimpleStore[T]) Clear(raw entity.Raw) {
	if int(raw) < len(s.present) {
		s.present[raw] = false
		var zero T
		s.values[raw] = zero
	}
}

// IsPresent reports whether raw currently holds a value.
func (s *SimpleStore[T]) IsPresent(raw entity.Raw) bool {
	return int(raw) < len(s.present) && s.present[raw]
}

// IterPresence calls fn for every present raw in ascending order.
func (s *SimpleStore[T]) IterPresence(fn func(raw entity.Raw, value T)) {
	for raw, ok := range s.present {
		if ok {
			fn(entity.Raw(raw), s.values[raw])
		}
	}
}

// IterChunks returns the maximal contiguous present runs in ascending
// order, enabling vectorised inner loops over dense, unbroken spans.
func (s *SimpleStore[T]) IterChunks() []Chunk {
	var chunks []Chunk
	var start = -1
	for i, ok := range s.present {
		if ok {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			chunks = append(chunks, Chunk{Start: entity.Raw(start), End: entity.Raw(i)})
			start = -1
		}
	}
	if start != -1 {
		chunks = append(chunks, Chunk{Start: entity.Raw(start), End: entity.Raw(len(s.present))})
	}
	return chunks
}

// Required reports whether this store enforces required presence.
func (s *SimpleStore[T]) Required() bool { return s.required }
