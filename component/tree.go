package component

import (
	"fmt"

	"github.com/nimblegames/ecsruntime/entity"
)

// TreeStore is the sparse equivalent of SimpleStore: same contract, backed
// by a map instead of a dense slice. Use for components expected to be
// populated on a small fraction of an archetype's entities. The choice
// between SimpleStore and
// TreeStore for a given component type is made once, at registration, and
// is immutable at runtime.
type TreeStore[T any] struct {
	values   map[entity.Raw]T
	required bool
}

// NewTreeStore builds an empty sparse store.
func NewTreeStore[T any](required bool) *TreeStore[T] {
	return &TreeStore[T]{values: make(map[entity.Raw]T), required: required}
}

// Get returns the value at raw and whether it is present.
func (s *TreeStore[T]) Get(raw entity.Raw) (T, bool) {
	v, ok := s.values[raw]
	return v, ok
}

// GetRequired returns the value at raw, panicking with diagnostic context
// if it is absent.
func (s *TreeStore[T]) GetRequired(raw entity.Raw) T {
	v, ok := s.Get(raw)
	if !ok {
		panic(fmt.Errorf("%w: raw=%d", ErrMissingRequiredComponent, raw))
	}
	return v
}

// Set stores value at raw.
func (s *TreeStore[T]) Set(raw entity.Raw, value T) {
	s.values[raw] = value
}

// Clear removes raw's entry entirely.
func (s *TreeStore[T]) Clear(raw entity.Raw) {
	delete(s.values, raw)
}

// IsPresent reports whether raw currently holds a value.
func (s *TreeStore[T]) IsPresent(raw entity.Raw) bool {
	_, ok := s.values[raw]
	return ok
}

// IterPresence calls fn for every present raw. Iteration order is
// unspecified, matching Go's map iteration order.
func (s *TreeStore[T]) IterPresence(fn func(raw entity.Raw, value T)) {
	for raw, v := range s.values {
		fn(raw, v)
	}
}

// Required reports whether this store enforces required presence.
func (s *TreeStore[T]) Required() bool { return s.required }
