package scheduler

import (
	"fmt"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/nimblegames/ecsruntime/tracer"
)

// ErrReadyQueueStarved is the fatal invariant violation of the
// scheduler's termination guarantee: the ready queue emptied while nodes
// remained Pending and none were Running, meaning a cycle slipped past
// Finalize.
var ErrReadyQueueStarved = eris.New("scheduler: ready queue empty with pending nodes and nothing running")

// execState is the tick-local mutable scheduling state: wakeup counts,
// the two ready queues, and the running-node count used to detect a
// starved ready queue. Exclusion-driven blocking is handled by the real
// resource locks in lock.go (see the package doc comment in resource.go)
// rather than extra wakeup edges.
type execState struct {
	mu   sync.Mutex
	cond *sync.Cond

	counts map[Node]int
	state  map[Node]WakeupState

	remaining  int // system nodes (send + unsend) not yet Completed
	running    int // nodes currently Running
	sendReady  []SendSystemIndex
	unsendReady []UnsendSystemIndex

	firstErr error
}

func newExecState(g *dependencyGraph) *execState {
	states, counts := g.initialStates()
	st := &execState{counts: counts, state: states}
	st.cond = sync.NewCond(&st.mu)

	for _, n := range g.nodes {
		switch n.Kind {
		case SendSystemKind:
			st.remaining++
			if states[n] == StateRunnable {
				st.sendReady = append(st.sendReady, SendSystemIndex(n.Index))
			}
		case UnsendSystemKind:
			st.remaining++
			if states[n] == StateRunnable {
				st.unsendReady = append(st.unsendReady, UnsendSystemIndex(n.Index))
			}
		}
	}
	return st
}

func (st *execState) popSend() (SendSystemIndex, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.sendReady) == 0 {
		return 0, false
	}
	idx := st.sendReady[0]
	st.sendReady = st.sendReady[1:]
	st.state[sendNode(idx)] = StateRunning
	st.running++
	return idx, true
}

func (st *execState) popUnsend() (UnsendSystemIndex, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.unsendReady) == 0 {
		return 0, false
	}
	idx := st.unsendReady[0]
	st.unsendReady = st.unsendReady[1:]
	st.state[unsendNode(idx)] = StateRunning
	st.running++
	return idx, true
}

// done reports whether the tick is finished: every system node Completed.
func (st *execState) done() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.remaining == 0
}

// waitForWork blocks until new work may be available, the tick completes,
// or a starved ready queue is detected.
func (st *execState) waitForWork() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for st.remaining > 0 && len(st.sendReady) == 0 && len(st.unsendReady) == 0 {
		if st.running == 0 {
			panic(ErrReadyQueueStarved)
		}
		st.cond.Wait()
	}
}

// complete marks node Completed, decrements every dependent's remaining
// count, and cascades any resulting transitions (dependents becoming
// Runnable, or dependency-less partitions completing in turn).
func (st *execState) complete(node Node, g *dependencyGraph, trc tracer.Tracer, toTracerNode func(Node) tracer.Node) {
	st.mu.Lock()
	st.state[node] = StateCompleted
	st.running--
	st.remaining--
	var completedPartitions []Node
	queue := append([]Node(nil), g.dependents[node]...)
	for len(queue) > 0 {
		dep := queue[0]
		queue = queue[1:]
		st.counts[dep]--
		if st.counts[dep] > 0 {
			continue
		}
		switch dep.Kind {
		case SendSystemKind:
			st.state[dep] = StateRunnable
			st.sendReady = append(st.sendReady, SendSystemIndex(dep.Index))
		case UnsendSystemKind:
			st.state[dep] = StateRunnable
			st.unsendReady = append(st.unsendReady, UnsendSystemIndex(dep.Index))
		case PartitionKind:
			st.state[dep] = StateCompleted
			completedPartitions = append(completedPartitions, dep)
			queue = append(queue, g.dependents[dep]...)
		}
	}
	// Trace partition completions while still holding mu, so no worker can
	// pop (and start) a dependent before its partition's event is recorded.
	if node.Kind == PartitionKind {
		trc.PartitionComplete(toTracerNode(node))
	}
	for _, par := range completedPartitions {
		trc.PartitionComplete(toTracerNode(par))
	}
	st.cond.Broadcast()
	st.mu.Unlock()
}

func (st *execState) recordErr(err error) {
	if err == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.firstErr == nil {
		st.firstErr = err
	}
}

// Execute runs one full tick: every registered system runs exactly once,
// respecting resource conflicts (via real locks, acquired in canonical
// order) and before/after partition ordering. workers send-safe systems
// run across a pool of size concurrency (minimum 1); the calling goroutine
// is the designated main thread and exclusively drains unsend systems,
// helping with send systems when idle. Returns the first error any system
// returned, if any — there is no in-tick cancellation, so every other
// non-conflicting system still runs to completion regardless.
func (s *Schedule) Execute(trc tracer.Tracer, concurrency int) error {
	if trc == nil {
		trc = tracer.NopTracer{}
	}
	if concurrency < 1 {
		concurrency = 1
	}

	st := newExecState(s.graph)
	trc.TickStart()

	var wg sync.WaitGroup
	for w := 1; w < concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.runSendOnly(st, trc, workerID)
		}(w)
	}

	s.runMain(st, trc)
	wg.Wait()

	return st.firstErr
}

func (s *Schedule) runSendOnly(st *execState, trc tracer.Tracer, workerID int) {
	for !st.done() {
		if idx, ok := st.popSend(); ok {
			s.runSend(st, trc, workerID, idx)
			continue
		}
		st.waitForWork()
	}
}

func (s *Schedule) runMain(st *execState, trc tracer.Tracer) {
	const mainWorkerID = 0
	for !st.done() {
		if idx, ok := st.popUnsend(); ok {
			s.runUnsend(st, trc, idx)
			continue
		}
		if idx, ok := st.popSend(); ok {
			s.runSend(st, trc, mainWorkerID, idx)
			continue
		}
		st.waitForWork()
	}
}

func (s *Schedule) runSend(st *execState, trc tracer.Tracer, workerID int, idx SendSystemIndex) {
	entry := s.send[idx]
	node := sendNode(idx)
	tn := s.toTracerNode(node)

	release := s.locks.Acquire(entry.claims)
	trc.SystemStart(tn)
	err := entry.fn(workerID)
	trc.SystemEnd(tn)
	release()

	st.recordErr(wrapSystemErr(entry.name, err))
	st.complete(node, s.graph, trc, s.toTracerNode)
}

func (s *Schedule) runUnsend(st *execState, trc tracer.Tracer, idx UnsendSystemIndex) {
	entry := s.unsend[idx]
	node := unsendNode(idx)
	tn := s.toTracerNode(node)

	release := s.locks.Acquire(entry.claims)
	trc.SystemStart(tn)
	err := entry.fn(0)
	trc.SystemEnd(tn)
	release()

	st.recordErr(wrapSystemErr(entry.name, err))
	st.complete(node, s.graph, trc, s.toTracerNode)
}

func wrapSystemErr(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("system %s generated an error: %w", name, err)
}
