package world_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gotest.tools/v3/assert"

	"github.com/nimblegames/ecsruntime/component"
	"github.com/nimblegames/ecsruntime/entity"
	"github.com/nimblegames/ecsruntime/global"
	"github.com/nimblegames/ecsruntime/scheduler"
	"github.com/nimblegames/ecsruntime/tracer"
	"github.com/nimblegames/ecsruntime/world"
)

func TestCounterGlobalIncrementsAcrossTicks(t *testing.T) {
	counter := global.NewWithDefault("TickCounter", 0)

	b := world.NewBuilder(2)
	b.RegisterGlobal(counter)
	b.AddSendSystem("increment", []scheduler.Claim{
		{Resource: scheduler.GlobalResource("TickCounter"), Mode: scheduler.Exclusive},
	}, func(ctx *world.Context) error {
		counter.Set(counter.Get() + 1)
		return nil
	})

	w, err := b.Finalize()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.NilError(t, w.Execute(nil))
	}
	assert.Equal(t, counter.Get(), 3)
	assert.Equal(t, w.Tick(), uint64(3))
}

func TestMotionSystemAdvancesPositionByVelocity(t *testing.T) {
	type vec struct{ x, y float64 }

	position := component.NewSimpleStore[vec](true)
	velocity := component.NewSimpleStore[vec](true)

	b := world.NewBuilder(2)
	_, err := b.RegisterArchetype("Bullet", nil, nil)
	require.NoError(t, err)

	b.AddSendSystem("motion", []scheduler.Claim{
		{Resource: scheduler.SimpleStoreResource("Bullet", "Position"), Mode: scheduler.Exclusive},
		{Resource: scheduler.SimpleStoreResource("Bullet", "Velocity"), Mode: scheduler.Shared},
	}, func(ctx *world.Context) error {
		ctx.Iterate("Bullet").Each(func(id entity.ID) {
			v, ok := velocity.Get(id.Raw)
			if !ok {
				return
			}
			p := position.GetRequired(id.Raw)
			position.Set(id.Raw, vec{p.x + v.x, p.y + v.y})
		})
		return nil
	})

	w, err := b.Finalize()
	require.NoError(t, err)

	id := w.Archetypes().MustLookup("Bullet").Allocator.Allocate(0)
	position.Set(id.Raw, vec{0, 0})
	velocity.Set(id.Raw, vec{1, 2})

	assert.NilError(t, w.Execute(nil))
	got := position.GetRequired(id.Raw)
	assert.Equal(t, got, vec{1, 2})

	assert.NilError(t, w.Execute(nil))
	got = position.GetRequired(id.Raw)
	assert.Equal(t, got, vec{2, 4})
}

func TestDisjointIsotopePartialClaimsRunConcurrently(t *testing.T) {
	b := world.NewBuilder(2)
	_, err := b.RegisterArchetype("Unit", nil, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	release := make(chan struct{})

	b.AddSendSystem("writes_team_a", []scheduler.Claim{
		{Resource: scheduler.IsotopePartialResource("Unit", "Team", []component.Discriminant{1}), Mode: scheduler.Exclusive},
	}, func(ctx *world.Context) error {
		wg.Done()
		<-release
		return nil
	})
	b.AddSendSystem("writes_team_b", []scheduler.Claim{
		{Resource: scheduler.IsotopePartialResource("Unit", "Team", []component.Discriminant{2}), Mode: scheduler.Exclusive},
	}, func(ctx *world.Context) error {
		wg.Done()
		<-release
		return nil
	})

	w, err := b.Finalize()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Execute(nil) }()

	wg.Wait() // both systems entered concurrently; a deadlock here means they serialized
	close(release)
	assert.NilError(t, <-done)
}

func TestEntityBornThisTickIsVisibleImmediatelyButComponentsUnsetUntilReconcile(t *testing.T) {
	health := component.NewSimpleStore[int](false)

	b := world.NewBuilder(1)
	_, err := b.RegisterArchetype("Bullet", nil, nil)
	require.NoError(t, err)

	var spawned entity.ID
	var countSameTick int
	var healthPresentSameTick bool

	b.AddUnsendSystem("spawn_once", nil, func(ctx *world.Context) error {
		if ctx.Tick() != 0 {
			return nil
		}
		spawned = ctx.Create("Bullet", func(raw entity.Raw) { health.Set(raw, 10) })
		return nil
	})
	// Registered after spawn_once, so it observes the same tick's allocation:
	// the raw is already live (online allocation), but its component is not
	// set until reconciliation runs the birth initializer after this tick's
	// systems finish.
	b.AddUnsendSystem("observe_same_tick", nil, func(ctx *world.Context) error {
		if ctx.Tick() != 0 {
			return nil
		}
		countSameTick = ctx.Iterate("Bullet").Len()
		healthPresentSameTick = health.IsPresent(spawned.Raw)
		return nil
	})

	w, err := b.Finalize()
	require.NoError(t, err)

	assert.NilError(t, w.Execute(nil))
	assert.Equal(t, countSameTick, 1)
	assert.Equal(t, healthPresentSameTick, false)
	assert.Assert(t, !spawned.IsNil())

	got, ok := health.Get(spawned.Raw)
	assert.Assert(t, ok)
	assert.Equal(t, got, 10)
}

func TestDeletionRetainedUntilFinalizerComponentCleared(t *testing.T) {
	finalizerFlag := component.NewSimpleStore[struct{}](false)

	b := world.NewBuilder(1)
	_, err := b.RegisterArchetype("Bullet", nil, func(id entity.ID) bool {
		return !finalizerFlag.IsPresent(id.Raw)
	})
	require.NoError(t, err)

	w, err := b.Finalize()
	require.NoError(t, err)

	id := w.Archetypes().MustLookup("Bullet").Allocator.Allocate(0)
	finalizerFlag.Set(id.Raw, struct{}{})
	w.Archetypes().MustLookup("Bullet").Allocator.FlagForDelete(id)

	assert.NilError(t, w.Execute(nil))
	assert.Assert(t, w.Archetypes().MustLookup("Bullet").Allocator.IsLive(id))

	finalizerFlag.Clear(id.Raw)
	assert.NilError(t, w.Execute(nil))
	assert.Assert(t, !w.Archetypes().MustLookup("Bullet").Allocator.IsLive(id))
}

func TestFinalizeCombinesGlobalAndScheduleErrorsIntoOneReport(t *testing.T) {
	mandatory := global.NewMandatory[int]("Score")

	b := world.NewBuilder(1)
	b.RegisterGlobal(mandatory)

	claims := []scheduler.Claim{{Resource: scheduler.GlobalResource("Score"), Mode: scheduler.Exclusive}}
	sys := b.AddSendSystem("reads_score", claims, func(ctx *world.Context) error { return nil })
	partition, err := b.AddPartition("after_score")
	require.NoError(t, err)
	node := scheduler.Node{Kind: scheduler.SendSystemKind, Index: int(sys)}
	b.Before(node, partition)
	b.After(node, partition) // self-dependency: before AND after the same partition is a cycle

	_, err = b.Finalize()
	assert.ErrorContains(t, err, "invalid configuration")
	assert.ErrorContains(t, err, "Score")
}

func TestFinalizeReportsConfigurationErrorForRequiredComponentWithNoFillOrInitPath(t *testing.T) {
	b := world.NewBuilder(1)
	_, err := b.RegisterArchetype("Bullet", nil, nil)
	require.NoError(t, err)
	b.RequireComponent("Bullet", "Position", nil, false)

	_, err = b.Finalize()
	assert.ErrorContains(t, err, "invalid configuration")
	assert.ErrorContains(t, err, "Position")
	assert.ErrorContains(t, err, "Bullet")
}

func TestRequireComponentFillRunsAtBirthAheadOfCreateInit(t *testing.T) {
	type vec struct{ x, y float64 }
	position := component.NewSimpleStore[vec](true)

	b := world.NewBuilder(1)
	_, err := b.RegisterArchetype("Bullet", nil, nil)
	require.NoError(t, err)
	b.RequireComponent("Bullet", "Position", func(raw entity.Raw) {
		position.Set(raw, vec{0, 0})
	}, false)

	var sawFillBeforeInit bool
	b.AddUnsendSystem("spawn", nil, func(ctx *world.Context) error {
		ctx.Create("Bullet", func(raw entity.Raw) {
			_, sawFillBeforeInit = position.Get(raw)
		})
		return nil
	})

	w, err := b.Finalize()
	require.NoError(t, err)

	assert.NilError(t, w.Execute(nil))
	assert.Assert(t, sawFillBeforeInit)
}

func TestRequireComponentExplicitInitPathSkipsFinalizeError(t *testing.T) {
	b := world.NewBuilder(1)
	_, err := b.RegisterArchetype("Bullet", nil, nil)
	require.NoError(t, err)
	b.RequireComponent("Bullet", "Position", nil, true)

	_, err = b.Finalize()
	require.NoError(t, err)
}

func TestUnsendSystemsRunOnMainThreadOnly(t *testing.T) {
	b := world.NewBuilder(4)

	var mainGoroutineOnly sync.Mutex
	var overlapped bool
	locked := false

	b.AddUnsendSystem("main_only", nil, func(ctx *world.Context) error {
		assert.Equal(t, ctx.WorkerID(), 0) // worker 0 is the main thread
		if !mainGoroutineOnly.TryLock() {
			overlapped = true
			return nil
		}
		locked = true
		defer mainGoroutineOnly.Unlock()
		return nil
	})

	w, err := b.Finalize()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		assert.NilError(t, w.Execute(nil))
	}
	assert.Assert(t, locked)
	assert.Assert(t, !overlapped)
}

func TestExecuteReportsSchedulerEventsThroughTracer(t *testing.T) {
	b := world.NewBuilder(1)
	b.AddSendSystem("noop", nil, func(ctx *world.Context) error { return nil })

	w, err := b.Finalize()
	require.NoError(t, err)

	rec := tracer.NewRecording()
	assert.NilError(t, w.Execute(rec))

	events := rec.Events()
	assert.Assert(t, len(events) > 0)
	assert.Equal(t, events[0].Kind, tracer.EventTickStart)
	assert.Equal(t, events[len(events)-1].Kind, tracer.EventReconcileEnd)
}
