package archetype_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/nimblegames/ecsruntime/archetype"
	"github.com/nimblegames/ecsruntime/entity"
)

func TestRegisterAssignsSequentialIDs(t *testing.T) {
	r := archetype.NewRegistry()

	bullet, err := r.Register("Bullet", 2, entity.StaticShardAssigner{})
	assert.NilError(t, err)
	assert.Equal(t, bullet.ID, archetype.ID(0))

	player, err := r.Register("Player", 2, entity.StaticShardAssigner{})
	assert.NilError(t, err)
	assert.Equal(t, player.ID, archetype.ID(1))

	assert.Equal(t, r.Count(), 2)
}

func TestRegisterDuplicateTagFails(t *testing.T) {
	r := archetype.NewRegistry()
	_, err := r.Register("Bullet", 1, entity.StaticShardAssigner{})
	assert.NilError(t, err)

	_, err = r.Register("Bullet", 1, entity.StaticShardAssigner{})
	assert.ErrorContains(t, err, "Bullet")
}

func TestLookupUnknownTag(t *testing.T) {
	r := archetype.NewRegistry()
	_, ok := r.Lookup("Ghost")
	assert.Equal(t, ok, false)
}

func TestMustLookupPanicsOnUnknownTag(t *testing.T) {
	r := archetype.NewRegistry()
	defer func() {
		rec := recover()
		assert.Assert(t, rec != nil)
	}()
	r.MustLookup("Ghost")
}

func TestEachArchetypeOwnsAnIndependentAllocator(t *testing.T) {
	r := archetype.NewRegistry()
	bullet, _ := r.Register("Bullet", 1, entity.StaticShardAssigner{})
	player, _ := r.Register("Player", 1, entity.StaticShardAssigner{})

	b := bullet.Allocator.Allocate(0)
	p := player.Allocator.Allocate(0)
	assert.Equal(t, b.Raw, p.Raw) // independent raw spaces both start at 0
}

func TestTagsPreservesRegistrationOrder(t *testing.T) {
	r := archetype.NewRegistry()
	r.Register("Bullet", 1, entity.StaticShardAssigner{})
	r.Register("Player", 1, entity.StaticShardAssigner{})

	tags := r.Tags()
	assert.DeepEqual(t, tags, []archetype.Tag{"Bullet", "Player"})
}
