// Package tracer implements the scheduler's observability seam: the
// scheduler only ever *calls* a Tracer at well-defined events, never
// depends on what it does with them. Per-phase timing contexts and
// allocator-shard events are collapsed into system_start/system_end,
// since this runtime does not expose shard preparation as a
// user-observable phase.
package tracer

// NodeKind distinguishes the three schedulable item kinds a Node event may
// refer to, mirroring scheduler.NodeKind without importing the scheduler
// package (which itself depends on tracer.Tracer).
type NodeKind int

const (
	SendSystem NodeKind = iota
	UnsendSystem
	Partition
)

func (k NodeKind) String() string {
	switch k {
	case SendSystem:
		return "send_system"
	case UnsendSystem:
		return "unsend_system"
	case Partition:
		return "partition"
	default:
		return "unknown"
	}
}

// Node identifies one schedulable item by kind and registration-order
// index, the same identity the scheduler's conflict graph assigns at
// finalize time.
type Node struct {
	Kind  NodeKind
	Index int
	Name  string // debug name, e.g. the system's declared name
}

// Tracer receives scheduling events at well-defined points during a tick.
// Every method must return quickly: it runs on the same goroutine that is
// about to do (or has just done) real scheduling work. Implementations may
// be no-op.
type Tracer interface {
	TickStart()
	SystemStart(node Node)
	SystemEnd(node Node)
	PartitionComplete(node Node)
	ReconcileStart()
	ReconcileEnd()
}

// NopTracer discards every event. The zero value is ready to use.
type NopTracer struct{}

func (NopTracer) TickStart()             {}
func (NopTracer) SystemStart(Node)       {}
func (NopTracer) SystemEnd(Node)         {}
func (NopTracer) PartitionComplete(Node) {}
func (NopTracer) ReconcileStart()        {}
func (NopTracer) ReconcileEnd()          {}

var _ Tracer = NopTracer{}
