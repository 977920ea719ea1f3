// Package scheduler implements a conflict-aware parallel executor: systems
// declare resource claims up front, a dependency graph of before/after
// partition edges drives a ready queue of Runnable nodes, and resource
// exclusion between concurrently-runnable systems is enforced with actual
// locks acquired in canonical order around each system's invocation rather
// than extra wakeup-graph edges, since conflicting claims make concurrent
// execution impossible outright under the locks alone.
package scheduler

import (
	"fmt"
	"sort"

	"github.com/nimblegames/ecsruntime/archetype"
	"github.com/nimblegames/ecsruntime/component"
)

// Mode is the access mode of a resource claim.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// ResourceKind distinguishes the four claimable resource shapes.
type ResourceKind int

const (
	KindGlobal ResourceKind = iota
	KindSimpleStore
	KindIsotopeFull
	KindIsotopePartial
)

// ResourceType identifies one claimable resource. Component doubles as the
// global's name when Kind is KindGlobal. Discriminants is only meaningful
// for KindIsotopePartial.
type ResourceType struct {
	Kind          ResourceKind
	Archetype     archetype.Tag
	Component     string
	Discriminants []component.Discriminant
}

// GlobalResource identifies the global cell named name.
func GlobalResource(name string) ResourceType {
	return ResourceType{Kind: KindGlobal, Component: name}
}

// SimpleStoreResource identifies the simple (or tree) component store for
// component on archetype tag.
func SimpleStoreResource(tag archetype.Tag, comp string) ResourceType {
	return ResourceType{Kind: KindSimpleStore, Archetype: tag, Component: comp}
}

// IsotopeFullResource identifies an unconstrained isotope accessor for
// component on archetype tag: it may touch any discriminant, including
// ones not yet materialized.
func IsotopeFullResource(tag archetype.Tag, comp string) ResourceType {
	return ResourceType{Kind: KindIsotopeFull, Archetype: tag, Component: comp}
}

// IsotopePartialResource identifies an isotope accessor for component on
// archetype tag constrained to the given discriminants.
func IsotopePartialResource(tag archetype.Tag, comp string, discriminants []component.Discriminant) ResourceType {
	sorted := append([]component.Discriminant(nil), discriminants...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return ResourceType{Kind: KindIsotopePartial, Archetype: tag, Component: comp, Discriminants: sorted}
}

// tableKey identifies the underlying store a resource claim locks, folding
// KindIsotopeFull and KindIsotopePartial claims for the same (archetype,
// component) onto the same table.
func (r ResourceType) tableKey() string {
	switch r.Kind {
	case KindGlobal:
		return fmt.Sprintf("global:%s", r.Component)
	case KindSimpleStore:
		return fmt.Sprintf("simple:%s:%s", r.Archetype, r.Component)
	case KindIsotopeFull, KindIsotopePartial:
		return fmt.Sprintf("isotope:%s:%s", r.Archetype, r.Component)
	default:
		panic(fmt.Errorf("scheduler: unknown resource kind %d", r.Kind))
	}
}

// Claim is one (resource, mode) pair a system declares at registration.
type Claim struct {
	Resource ResourceType
	Mode     Mode
}

// conflicts reports whether a and b may never run concurrently. Two claims
// on different tables never conflict. On the same table: a KindIsotopeFull
// claim, which may touch any discriminant, conflicts with every other claim
// in any mode (matching the exclusive master lock it takes in lock.go);
// otherwise two shared claims never conflict; an isotope-partial pair
// conflicts only if their discriminant sets intersect; any other pairing
// conflicts whenever either claim is exclusive.
func conflicts(a, b Claim) bool {
	if a.Resource.tableKey() != b.Resource.tableKey() {
		return false
	}
	if a.Resource.Kind == KindIsotopeFull || b.Resource.Kind == KindIsotopeFull {
		return true
	}
	if a.Mode == Shared && b.Mode == Shared {
		return false
	}
	if a.Resource.Kind == KindIsotopePartial && b.Resource.Kind == KindIsotopePartial {
		return discriminantsIntersect(a.Resource.Discriminants, b.Resource.Discriminants)
	}
	return true
}

func discriminantsIntersect(a, b []component.Discriminant) bool {
	set := make(map[component.Discriminant]struct{}, len(a))
	for _, d := range a {
		set[d] = struct{}{}
	}
	for _, d := range b {
		if _, ok := set[d]; ok {
			return true
		}
	}
	return false
}

// Conflicts reports whether claim sets a and b declare at least one
// conflicting pair of resource claims. The executor does not call it:
// runtime exclusion comes from the locks in lock.go, which serialize a
// full isotope claim against every other claim on the same table whatever
// its mode.
func Conflicts(a, b []Claim) bool {
	for _, ca := range a {
		for _, cb := range b {
			if conflicts(ca, cb) {
				return true
			}
		}
	}
	return false
}
