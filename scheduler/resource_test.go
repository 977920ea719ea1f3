package scheduler_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/nimblegames/ecsruntime/component"
	"github.com/nimblegames/ecsruntime/scheduler"
)

func TestSharedClaimsOnSameResourceNeverConflict(t *testing.T) {
	a := []scheduler.Claim{{Resource: scheduler.SimpleStoreResource("Bullet", "Position"), Mode: scheduler.Shared}}
	b := []scheduler.Claim{{Resource: scheduler.SimpleStoreResource("Bullet", "Position"), Mode: scheduler.Shared}}
	assert.Equal(t, scheduler.Conflicts(a, b), false)
}

func TestExclusiveClaimsOnSameSimpleStoreConflict(t *testing.T) {
	a := []scheduler.Claim{{Resource: scheduler.SimpleStoreResource("Bullet", "Velocity"), Mode: scheduler.Exclusive}}
	b := []scheduler.Claim{{Resource: scheduler.SimpleStoreResource("Bullet", "Velocity"), Mode: scheduler.Shared}}
	assert.Equal(t, scheduler.Conflicts(a, b), true)
}

func TestClaimsOnDifferentArchetypesNeverConflict(t *testing.T) {
	a := []scheduler.Claim{{Resource: scheduler.SimpleStoreResource("Bullet", "Position"), Mode: scheduler.Exclusive}}
	b := []scheduler.Claim{{Resource: scheduler.SimpleStoreResource("Player", "Position"), Mode: scheduler.Exclusive}}
	assert.Equal(t, scheduler.Conflicts(a, b), false)
}

func TestIsotopePartialDisjointDiscriminantsNeverConflict(t *testing.T) {
	a := []scheduler.Claim{{
		Resource: scheduler.IsotopePartialResource("Bullet", "Weight", []component.Discriminant{1, 2}),
		Mode:     scheduler.Exclusive,
	}}
	b := []scheduler.Claim{{
		Resource: scheduler.IsotopePartialResource("Bullet", "Weight", []component.Discriminant{3, 4}),
		Mode:     scheduler.Exclusive,
	}}
	assert.Equal(t, scheduler.Conflicts(a, b), false)
}

func TestIsotopePartialOverlappingDiscriminantsConflict(t *testing.T) {
	a := []scheduler.Claim{{
		Resource: scheduler.IsotopePartialResource("Bullet", "Weight", []component.Discriminant{2, 3}),
		Mode:     scheduler.Exclusive,
	}}
	b := []scheduler.Claim{{
		Resource: scheduler.IsotopePartialResource("Bullet", "Weight", []component.Discriminant{1, 2}),
		Mode:     scheduler.Exclusive,
	}}
	assert.Equal(t, scheduler.Conflicts(a, b), true)
}

func TestIsotopeFullAlwaysConflictsWithPartial(t *testing.T) {
	a := []scheduler.Claim{{Resource: scheduler.IsotopeFullResource("Bullet", "Weight"), Mode: scheduler.Shared}}
	b := []scheduler.Claim{{
		Resource: scheduler.IsotopePartialResource("Bullet", "Weight", []component.Discriminant{9}),
		Mode:     scheduler.Shared,
	}}
	assert.Equal(t, scheduler.Conflicts(a, b), true)
}

func TestGlobalClaimsConflictIndependentlyOfArchetype(t *testing.T) {
	a := []scheduler.Claim{{Resource: scheduler.GlobalResource("TickCount"), Mode: scheduler.Exclusive}}
	b := []scheduler.Claim{{Resource: scheduler.GlobalResource("TickCount"), Mode: scheduler.Shared}}
	assert.Equal(t, scheduler.Conflicts(a, b), true)
}
