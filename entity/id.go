// Package entity provides sharded, recyclable entity identity allocation.
//
// An ID is a (raw, generation) pair. raw is an index into the owning
// archetype's dense stores; generation is bumped every time raw is reused so
// that a stale ID can be detected without a liveness table lookup.
package entity

import "fmt"

// Raw is the index portion of an ID, assigned by an Allocator and reused
// once the slot it names is freed and reconciled.
type Raw uint32

// Generation counts how many times a Raw slot has been (re)allocated.
// A Generation of zero is never handed out; it marks a slot that has never
// been allocated.
type Generation uint32

// ID identifies one entity within a single archetype. Two IDs from
// different archetypes are never comparable; the archetype is carried by
// whichever typed store or allocator produced the ID, not by ID itself.
type ID struct {
	Raw        Raw
	Generation Generation
}

// Nil is the zero value of ID. No Allocator ever returns Nil.
var Nil = ID{}

func (id ID) String() string {
	return fmt.Sprintf("entity{raw:%d,gen:%d}", id.Raw, id.Generation)
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool {
	return id == Nil
}
