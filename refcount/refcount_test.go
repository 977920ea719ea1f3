package refcount_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/nimblegames/ecsruntime/refcount"
)

func TestStoreMapIncrDecr(t *testing.T) {
	m := refcount.NewStoreMap()
	m.Incr("Bullet", 5)
	m.Incr("Bullet", 5)
	assert.Equal(t, m.Count("Bullet", 5), 2)

	m.Decr("Bullet", 5)
	assert.Equal(t, m.Count("Bullet", 5), 1)
}

func TestAssertZeroPanicsOnNonzero(t *testing.T) {
	m := refcount.NewStoreMap()
	m.Incr("Bullet", 1)

	defer func() {
		r := recover()
		assert.Assert(t, r != nil)
	}()
	m.AssertZero("Bullet", 1)
}

func TestMaybeStoreMapDisabledIsNoOp(t *testing.T) {
	m := refcount.NewMaybeStoreMap(false)
	m.Incr("Bullet", 1)
	assert.Equal(t, m.Count("Bullet", 1), 0)
	assert.Equal(t, m.Enabled(), false)

	// Must never panic, even though a live map would have.
	m.AssertZero("Bullet", 1)
}

func TestMaybeStoreMapEnabledTracksLikeStoreMap(t *testing.T) {
	m := refcount.NewMaybeStoreMap(true)
	m.Incr("Bullet", 1)
	m.Decr("Bullet", 1)
	assert.Equal(t, m.Count("Bullet", 1), 0)
	m.AssertZero("Bullet", 1) // must not panic: refcount dropped before flagging
}
