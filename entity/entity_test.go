package entity_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/nimblegames/ecsruntime/entity"
)

func TestAllocateNeverReturnsNilID(t *testing.T) {
	a := entity.NewAllocator(1, nil)
	for i := 0; i < 10; i++ {
		id := a.Allocate(0)
		assert.Equal(t, id.IsNil(), false)
	}
}

func TestGenerationUniquenessAcrossReuse(t *testing.T) {
	a := entity.NewAllocator(1, nil).WithBlockSize(1)

	first := a.Allocate(0)
	a.FlagForDelete(first)
	a.Reconcile(0, func(entity.ID) bool { return true })

	second := a.Allocate(0)
	assert.Equal(t, first.Raw, second.Raw)
	assert.Equal(t, second.Generation > first.Generation, true)
}

func TestFlagForDeleteOfExpiredIDIsNoOp(t *testing.T) {
	a := entity.NewAllocator(1, nil).WithBlockSize(1)

	id := a.Allocate(0)
	a.FlagForDelete(id)
	a.Reconcile(0, func(entity.ID) bool { return true })

	// id is now expired; flagging it again must not panic or re-queue it.
	a.FlagForDelete(id)
	freed := false
	a.Reconcile(0, func(entity.ID) bool {
		freed = true
		return true
	})
	assert.Equal(t, freed, false)
}

func TestRetainedDeletionIsRequeued(t *testing.T) {
	a := entity.NewAllocator(1, nil).WithBlockSize(1)

	id := a.Allocate(0)
	a.FlagForDelete(id)

	calls := 0
	a.Reconcile(0, func(entity.ID) bool {
		calls++
		return false // finalizer still present, retain
	})
	assert.Equal(t, a.IsLive(id), true)

	a.Reconcile(0, func(entity.ID) bool { return true })
	assert.Equal(t, a.IsLive(id), false)
	assert.Equal(t, calls, 1)
}

func TestSnapshotExcludesFreedAndReservedRaws(t *testing.T) {
	a := entity.NewAllocator(1, nil).WithBlockSize(2)

	ids := make([]entity.ID, 0, 3)
	for i := 0; i < 3; i++ {
		ids = append(ids, a.Allocate(0))
	}
	a.FlagForDelete(ids[1])
	a.Reconcile(0, func(entity.ID) bool { return true })

	snap := a.Snapshot()
	seen := map[entity.Raw]bool{}
	for i := 0; i < snap.Len(); i++ {
		seen[snap.RawAt(i)] = true
	}
	assert.Equal(t, seen[ids[0].Raw], true)
	assert.Equal(t, seen[ids[1].Raw], false)
	assert.Equal(t, seen[ids[2].Raw], true)
}

func TestStaticShardAssignerPinsWorkerToShard(t *testing.T) {
	s := entity.StaticShardAssigner{}
	assert.Equal(t, s.Assign(0, 4), 0)
	assert.Equal(t, s.Assign(5, 4), 1)
}

func TestSnapshotSplitCoversAllRaws(t *testing.T) {
	a := entity.NewAllocator(1, nil).WithBlockSize(8)
	for i := 0; i < 7; i++ {
		a.Allocate(0)
	}
	snap := a.Snapshot()
	parts := snap.Split(3)

	total := 0
	for _, p := range parts {
		total += p.Len()
	}
	assert.Equal(t, total, snap.Len())
}
