package scheduler

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/nimblegames/ecsruntime/tracer"
)

// SystemFunc is one system's invocation body. It receives only the calling
// worker's identity: the world package closes the returned func over its
// own Context construction (worker id, scheduler handle, partial view) so
// this package never needs to depend on world's types — the scheduler must
// stay independent of the Context type it will eventually be handed.
type SystemFunc func(workerID int) error

type systemEntry struct {
	name   string
	claims []Claim
	fn     SystemFunc
}

// ErrDuplicatePartitionName is returned by Builder.AddPartition for a name
// already registered.
var ErrDuplicatePartitionName = eris.New("scheduler: duplicate partition name")

// Builder accumulates systems, partitions, and before/after ordering
// declarations, producing an immutable Schedule at Finalize.
type Builder struct {
	send   []systemEntry
	unsend []systemEntry

	partitionNames []string
	partitionIndex map[string]PartitionIndex

	orders []order
}

// NewBuilder builds an empty scheduler Builder.
func NewBuilder() *Builder {
	return &Builder{partitionIndex: make(map[string]PartitionIndex)}
}

// AddSendSystem registers a thread-safe system and returns its index.
func (b *Builder) AddSendSystem(name string, claims []Claim, fn SystemFunc) SendSystemIndex {
	idx := SendSystemIndex(len(b.send))
	b.send = append(b.send, systemEntry{name: name, claims: claims, fn: fn})
	return idx
}

// AddUnsendSystem registers a main-thread-only system and returns its
// index.
func (b *Builder) AddUnsendSystem(name string, claims []Claim, fn SystemFunc) UnsendSystemIndex {
	idx := UnsendSystemIndex(len(b.unsend))
	b.unsend = append(b.unsend, systemEntry{name: name, claims: claims, fn: fn})
	return idx
}

// AddPartition registers a named ordering barrier and returns its index.
// Returns ErrDuplicatePartitionName if name was already registered.
func (b *Builder) AddPartition(name string) (PartitionIndex, error) {
	if _, ok := b.partitionIndex[name]; ok {
		return 0, eris.Wrapf(ErrDuplicatePartitionName, "name %q", name)
	}
	idx := PartitionIndex(len(b.partitionNames))
	b.partitionNames = append(b.partitionNames, name)
	b.partitionIndex[name] = idx
	return idx, nil
}

func sendNode(i SendSystemIndex) Node     { return Node{Kind: SendSystemKind, Index: int(i)} }
func unsendNode(i UnsendSystemIndex) Node { return Node{Kind: UnsendSystemKind, Index: int(i)} }
func partitionNode(i PartitionIndex) Node { return Node{Kind: PartitionKind, Index: int(i)} }

// Before declares that node must complete before partition becomes
// eligible to complete.
func (b *Builder) Before(node Node, partition PartitionIndex) {
	b.orders = append(b.orders, order{before: node, after: partitionNode(partition)})
}

// After declares that node may not start until partition has completed.
func (b *Builder) After(node Node, partition PartitionIndex) {
	b.orders = append(b.orders, order{before: partitionNode(partition), after: node})
}

// Finalize builds the immutable Schedule, detecting configuration errors
// (currently: ordering cycles) rather than panicking, so the caller (world
// .Builder) can fold them into a single combined report alongside its own
// finalize-time checks.
func (b *Builder) Finalize() (*Schedule, error) {
	nodes := make([]Node, 0, len(b.send)+len(b.unsend)+len(b.partitionNames))
	for i := range b.send {
		nodes = append(nodes, sendNode(SendSystemIndex(i)))
	}
	for i := range b.unsend {
		nodes = append(nodes, unsendNode(UnsendSystemIndex(i)))
	}
	for i := range b.partitionNames {
		nodes = append(nodes, partitionNode(PartitionIndex(i)))
	}

	describe := func(n Node) string {
		switch n.Kind {
		case SendSystemKind:
			return b.send[n.Index].name
		case UnsendSystemKind:
			return b.unsend[n.Index].name
		case PartitionKind:
			return b.partitionNames[n.Index]
		default:
			return fmt.Sprintf("%v", n)
		}
	}

	graph, err := buildDependencyGraph(nodes, b.orders, describe)
	if err != nil {
		return nil, err
	}

	return &Schedule{
		send:   b.send,
		unsend: b.unsend,
		names:  collectNames(describe, nodes),
		graph:  graph,
		locks:  NewResourceLocks(),
	}, nil
}

func collectNames(describe func(Node) string, nodes []Node) map[Node]string {
	names := make(map[Node]string, len(nodes))
	for _, n := range nodes {
		names[n] = describe(n)
	}
	return names
}

// Schedule is the finalized, immutable scheduling configuration produced by
// Builder.Finalize. A World calls Execute once per tick.
type Schedule struct {
	send   []systemEntry
	unsend []systemEntry
	names  map[Node]string

	graph *dependencyGraph
	locks *ResourceLocks
}

// NodeName returns the debug name a node was registered with, used for
// tracer events and panic diagnostics.
func (s *Schedule) NodeName(n Node) string { return s.names[n] }

func (s *Schedule) toTracerNode(n Node) tracer.Node {
	kind := tracer.SendSystem
	switch n.Kind {
	case UnsendSystemKind:
		kind = tracer.UnsendSystem
	case PartitionKind:
		kind = tracer.Partition
	}
	return tracer.Node{Kind: kind, Index: n.Index, Name: s.NodeName(n)}
}
