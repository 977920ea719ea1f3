package world

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/nimblegames/ecsruntime/archetype"
	"github.com/nimblegames/ecsruntime/entity"
	"github.com/nimblegames/ecsruntime/offline"
	"github.com/nimblegames/ecsruntime/refcount"
	"github.com/nimblegames/ecsruntime/scheduler"
)

// globalValidator is satisfied by global.Cell[T] for any T. Collecting it
// as an interface erases the type parameter so Builder can hold every
// registered global's validator in one slice without itself becoming
// generic.
type globalValidator interface {
	Validate() error
	Name() string
}

// ErrConfiguration wraps the combined report Finalize returns when one or
// more configuration checks fail: every registration error is collected
// before returning rather than failing on the first.
var ErrConfiguration = eris.New("world: invalid configuration")

// requiredComponentDecl records one archetype's obligation to populate a
// required-presence component by the time an entity's birth initializer
// finishes. The obligation is satisfied either by fill, run automatically
// at birth ahead of the caller's own Create closure, or by the caller's
// attestation (explicitInitPath) that its own Create closure already sets
// it directly. Declaring neither is a configuration error caught at
// Finalize, the same split global.Cell draws between an intrinsic default
// and a mandatory Set call.
type requiredComponentDecl struct {
	archetype        archetype.Tag
	name             string
	fill             func(raw entity.Raw)
	explicitInitPath bool
}

// Builder accumulates archetypes, globals, and systems, producing an
// immutable World at Finalize. No system, archetype, or global may be
// added after Finalize succeeds: archetype/global/system registration
// followed by a combined-report build(), in the chained option-struct
// builder idiom.
type Builder struct {
	archetypes *archetype.Registry
	globals    []globalValidator

	scheduler *scheduler.Builder

	finalizerChecks    map[archetype.Tag]func(entity.ID) bool
	requiredComponents []requiredComponentDecl
	registrationErrors []string

	numWorkers    int
	debugRefcount bool
	logger        zerolog.Logger

	world *World // allocated up front so system closures can capture it
}

// NewBuilder builds an empty world Builder with concurrency worker
// goroutines (minimum 1, including the main thread that runs unsend
// systems and reconciliation as worker 0).
func NewBuilder(concurrency int) *Builder {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Builder{
		archetypes:      archetype.NewRegistry(),
		scheduler:       scheduler.NewBuilder(),
		finalizerChecks: make(map[archetype.Tag]func(entity.ID) bool),
		numWorkers:      concurrency,
		logger:          zerolog.Nop(),
		world:           &World{},
	}
}

// WithLogger overrides the Builder's base logger, propagated (scoped per
// worker) to every Context built from the finished World.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithDebugRefcount enables live reference-count tracking in the built
// World, in place of the default no-op shim. See ecsconfig.Config.DebugRefcount
// for the environment-driven default most callers should use instead of
// hardcoding this.
func (b *Builder) WithDebugRefcount(enabled bool) *Builder {
	b.debugRefcount = enabled
	return b
}

// RegisterArchetype declares a new archetype with its own entity
// allocator, one shard per worker goroutine. A nil assigner defaults to
// entity.StaticShardAssigner. finalizerCheck, if non-nil, is consulted
// before an entity flagged for deletion is physically freed: while it
// reports false the entity is retained and retried at the next tick.
//
// A duplicate tag is returned immediately so a disciplined caller sees it
// at the call site, but is also folded into Finalize's combined report
// (which gathers every configuration error, including duplicate archetype
// registration, into one report) in case the caller doesn't check every
// registration call's error individually.
func (b *Builder) RegisterArchetype(tag archetype.Tag, assigner entity.ShardAssigner, finalizerCheck func(entity.ID) bool) (*archetype.Info, error) {
	info, err := b.archetypes.Register(tag, b.numWorkers, assigner)
	if err != nil {
		b.registrationErrors = append(b.registrationErrors, err.Error())
		return nil, err
	}
	if finalizerCheck != nil {
		b.finalizerChecks[tag] = finalizerCheck
	}
	return info, nil
}

// RegisterGlobal adds cell's mandatory-initialization check to the set
// validated at Finalize.
func (b *Builder) RegisterGlobal(cell globalValidator) {
	b.globals = append(b.globals, cell)
}

// RequireComponent declares that name, a required-presence component of
// tag's archetype, must hold a value for every entity once its birth
// initializer has run. Pass a non-nil fill to have it run automatically at
// every birth of tag, ahead of the caller's own Create closure — the
// "intrinsic default" case. Pass explicitInitPath true instead to attest
// that every Create call already sets name itself, with no automatic fill
// needed. Declaring neither is reported as a configuration error at
// Finalize, naming tag and name, rather than waiting to surface as a
// GetRequired panic the first time some entity of tag slips through
// without it.
func (b *Builder) RequireComponent(tag archetype.Tag, name string, fill func(raw entity.Raw), explicitInitPath bool) {
	b.requiredComponents = append(b.requiredComponents, requiredComponentDecl{
		archetype:        tag,
		name:             name,
		fill:             fill,
		explicitInitPath: explicitInitPath,
	})
}

// AddSendSystem registers a thread-safe system under the given resource
// claims. fn receives the Context built for whichever worker runs it.
func (b *Builder) AddSendSystem(name string, claims []scheduler.Claim, fn func(ctx *Context) error) scheduler.SendSystemIndex {
	return b.scheduler.AddSendSystem(name, claims, b.bind(fn))
}

// AddUnsendSystem registers a main-thread-only system under the given
// resource claims.
func (b *Builder) AddUnsendSystem(name string, claims []scheduler.Claim, fn func(ctx *Context) error) scheduler.UnsendSystemIndex {
	return b.scheduler.AddUnsendSystem(name, claims, b.bind(fn))
}

// AddPartition registers a named ordering barrier.
func (b *Builder) AddPartition(name string) (scheduler.PartitionIndex, error) {
	return b.scheduler.AddPartition(name)
}

// Before declares that node must complete before partition becomes
// eligible to complete.
func (b *Builder) Before(node scheduler.Node, partition scheduler.PartitionIndex) {
	b.scheduler.Before(node, partition)
}

// After declares that node may not start until partition has completed.
func (b *Builder) After(node scheduler.Node, partition scheduler.PartitionIndex) {
	b.scheduler.After(node, partition)
}

func (b *Builder) bind(fn func(ctx *Context) error) scheduler.SystemFunc {
	return func(workerID int) error {
		return fn(b.world.contextFor(workerID))
	}
}

// Finalize validates every global's mandatory-initialization policy, every
// RequireComponent declaration (fill or explicitInitPath must cover it),
// and the scheduler's ordering graph, combining every failure into a
// single ErrConfiguration-wrapped report rather than stopping at the
// first, then returns the immutable World. Once it succeeds, no further
// registration call is valid.
func (b *Builder) Finalize() (*World, error) {
	failures := append([]string(nil), b.registrationErrors...)

	for _, g := range b.globals {
		if err := g.Validate(); err != nil {
			failures = append(failures, err.Error())
		}
	}

	sched, schedErr := b.scheduler.Finalize()
	if schedErr != nil {
		failures = append(failures, schedErr.Error())
	}

	requiredDefaults := make(map[archetype.Tag][]func(entity.Raw))
	for _, rc := range b.requiredComponents {
		if rc.fill == nil && !rc.explicitInitPath {
			failures = append(failures, fmt.Sprintf(
				"required component %q on archetype %q has neither a default initializer nor an explicit init path",
				rc.name, rc.archetype))
			continue
		}
		if rc.fill != nil {
			requiredDefaults[rc.archetype] = append(requiredDefaults[rc.archetype], rc.fill)
		}
	}

	if len(failures) > 0 {
		return nil, eris.Wrapf(ErrConfiguration, "%d error(s):\n- %s", len(failures), strings.Join(failures, "\n- "))
	}

	deferredSeq := &atomic.Uint64{}
	shards := make([]*offline.BufferShard, b.numWorkers)
	for i := range shards {
		shards[i] = offline.NewBufferShard(i, deferredSeq)
	}

	*b.world = World{
		archetypes:       b.archetypes,
		schedule:         sched,
		shards:           shards,
		reconciler:       offline.NewReconciler(shards),
		refcount:         refcount.NewMaybeStoreMap(b.debugRefcount),
		finalizerChecks:  b.finalizerChecks,
		requiredDefaults: requiredDefaults,
		numWorkers:       b.numWorkers,
		logger:           b.logger,
	}
	return b.world, nil
}
