package tracer

import "sync"

// Event is one recorded call to a Recording tracer, in the order it was
// observed.
type Event struct {
	Kind EventKind
	Node Node // zero value for TickStart/ReconcileStart/ReconcileEnd
}

// EventKind distinguishes which Tracer method produced an Event.
type EventKind int

const (
	EventTickStart EventKind = iota
	EventSystemStart
	EventSystemEnd
	EventPartitionComplete
	EventReconcileStart
	EventReconcileEnd
)

// Recording is a Tracer that appends every event it observes to an
// in-memory log, for after-the-fact assertions in tests: a plain
// append-only log guarded by a mutex, leaving dependency-ordering
// assertions to the caller against the recorded Events slice.
type Recording struct {
	mu     sync.Mutex
	events []Event
}

// NewRecording builds an empty Recording tracer.
func NewRecording() *Recording {
	return &Recording{}
}

func (r *Recording) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of every event observed so far, in observation
// order.
func (r *Recording) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// IndexOf returns the position of the first event matching kind and, for
// node-carrying kinds, node, or -1 if never observed. Tests use this to
// assert relative ordering between two events (e.g. a partition's
// PartitionComplete must follow every contributing system's SystemEnd).
func (r *Recording) IndexOf(kind EventKind, node Node) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e.Kind == kind && e.Node == node {
			return i
		}
	}
	return -1
}

func (r *Recording) TickStart() { r.record(Event{Kind: EventTickStart}) }

func (r *Recording) SystemStart(node Node) { r.record(Event{Kind: EventSystemStart, Node: node}) }

func (r *Recording) SystemEnd(node Node) { r.record(Event{Kind: EventSystemEnd, Node: node}) }

func (r *Recording) PartitionComplete(node Node) {
	r.record(Event{Kind: EventPartitionComplete, Node: node})
}

func (r *Recording) ReconcileStart() { r.record(Event{Kind: EventReconcileStart}) }

func (r *Recording) ReconcileEnd() { r.record(Event{Kind: EventReconcileEnd}) }

var _ Tracer = (*Recording)(nil)
