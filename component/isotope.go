package component

import (
	"fmt"

	"github.com/nimblegames/ecsruntime/entity"
)

// IsotopeStore holds one independent SimpleStore per discriminant value for
// a single isotope component type, materialising columns lazily on first
// write through a full accessor or when Split binds them.
//
// No locking happens inside IsotopeStore: the scheduler's resource locks,
// taken around each system from its declared claims, are the sole source of
// exclusion during steady state, so two accessors are only ever live
// concurrently when their claims cannot touch overlapping discriminants.
type IsotopeStore[T any] struct {
	columns map[Discriminant]*SimpleStore[T]
}

// NewIsotopeStore builds an empty isotope store.
func NewIsotopeStore[T any]() *IsotopeStore[T] {
	return &IsotopeStore[T]{columns: make(map[Discriminant]*SimpleStore[T])}
}

func (s *IsotopeStore[T]) column(d Discriminant, create bool) *SimpleStore[T] {
	col, ok := s.columns[d]
	if !ok {
		if !create {
			return nil
		}
		col = NewSimpleStore[T](false)
		s.columns[d] = col
	}
	return col
}

// Discriminants returns every discriminant whose column has been
// materialised (by a full-accessor write or by Split), in no particular
// order. Once present here, a discriminant is never
// removed for the life of the process.
func (s *IsotopeStore[T]) Discriminants() []Discriminant {
	out := make([]Discriminant, 0, len(s.columns))
	for d := range s.columns {
		out = append(out, d)
	}
	return out
}

// Full returns an accessor that may observe or create any discriminant.
func (s *IsotopeStore[T]) Full() IsotopeFull[T] {
	return IsotopeFull[T]{store: s}
}

// Split binds a fixed, finite subset of discriminants into a partial
// accessor, materialising any of them that do not yet have a column. The
// discriminant set is fixed for the lifetime of the returned accessor;
// this is what lets the scheduler prove two partial writers with disjoint
// sets never conflict.
func (s *IsotopeStore[T]) Split(discriminants []Discriminant) IsotopePartial[T] {
	cols := make(map[Discriminant]*SimpleStore[T], len(discriminants))
	for _, d := range discriminants {
		cols[d] = s.column(d, true)
	}
	bound := make([]Discriminant, len(discriminants))
	copy(bound, discriminants)
	return IsotopePartial[T]{columns: cols, discriminants: bound}
}

// IsotopeFull is the unconstrained isotope accessor: any discriminant may
// be read, and writing to a new discriminant materialises its column.
type IsotopeFull[T any] struct {
	store *IsotopeStore[T]
}

// Get returns the value at (discriminant, raw) and whether it is present.
func (a IsotopeFull[T]) Get(d Discriminant, raw entity.Raw) (T, bool) {
	col := a.store.column(d, false)
	if col == nil {
		var zero T
		return zero, false
	}
	return col.Get(raw)
}

// Set stores value at (discriminant, raw), materialising the discriminant's
// column if this is its first write.
func (a IsotopeFull[T]) Set(d Discriminant, raw entity.Raw, value T) {
	a.store.column(d, true).Set(raw, value)
}

// Clear removes the value at (discriminant, raw), if any.
func (a IsotopeFull[T]) Clear(d Discriminant, raw entity.Raw) {
	if col := a.store.column(d, false); col != nil {
		col.Clear(raw)
	}
}

// Discriminants lists every discriminant materialised so far.
func (a IsotopeFull[T]) Discriminants() []Discriminant {
	return a.store.Discriminants()
}

// IsotopePartial is an isotope accessor constrained to a fixed, statically
// known subset of discriminants chosen at system-build time (via
// IsotopeStore.Split). Access to a bound discriminant is a single map
// lookup against a small pre-fetched set; access to an unbound one panics,
// since that would silently widen the resource claim the scheduler
// computed conflicts from.
type IsotopePartial[T any] struct {
	columns       map[Discriminant]*SimpleStore[T]
	discriminants []Discriminant
}

// ErrUnboundDiscriminant-style panic message; kept inline rather than a
// sentinel since it always carries the offending discriminant.
func (a IsotopePartial[T]) mustColumn(d Discriminant) *SimpleStore[T] {
	col, ok := a.columns[d]
	if !ok {
		panic(fmt.Errorf("component: discriminant %d not bound to this partial isotope accessor", d))
	}
	return col
}

// Get returns the value at (discriminant, raw) and whether it is present.
// Panics if discriminant is not one of the accessor's bound discriminants.
func (a IsotopePartial[T]) Get(d Discriminant, raw entity.Raw) (T, bool) {
	return a.mustColumn(d).Get(raw)
}

// Set stores value at (discriminant, raw). Panics if discriminant is not
// bound.
func (a IsotopePartial[T]) Set(d Discriminant, raw entity.Raw, value T) {
	a.mustColumn(d).Set(raw, value)
}

// Clear removes the value at (discriminant, raw). Panics if discriminant is
// not bound.
func (a IsotopePartial[T]) Clear(d Discriminant, raw entity.Raw) {
	a.mustColumn(d).Clear(raw)
}

// Discriminants returns the fixed set this accessor was bound to, in the
// order passed to Split. The scheduler reads this to decide whether two
// partial claims on the same component type conflict.
func (a IsotopePartial[T]) Discriminants() []Discriminant {
	return a.discriminants
}
