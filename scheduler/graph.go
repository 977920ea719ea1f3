package scheduler

import (
	"fmt"
	"strings"
)

// order is a directed before -> after edge between two nodes, declared via
// a system's partition membership (system --before--> partition,
// partition --before--> system for an "after" declaration).
type order struct {
	before Node
	after  Node
}

// dependencyGraph is the directed ordering graph over every Node, built
// once at Finalize. It drives each Node's initial WakeupState and the
// dependents walked when a Node completes.
type dependencyGraph struct {
	nodes      []Node
	dependents map[Node][]Node
	depCount   map[Node]int
}

func buildDependencyGraph(nodes []Node, orders []order, describe func(Node) string) (*dependencyGraph, error) {
	dependents := make(map[Node][]Node, len(nodes))
	depCount := make(map[Node]int, len(nodes))
	for _, n := range nodes {
		dependents[n] = nil
		depCount[n] = 0
	}
	for _, o := range orders {
		dependents[o.before] = append(dependents[o.before], o.after)
		depCount[o.after]++
	}

	g := &dependencyGraph{nodes: nodes, dependents: dependents, depCount: depCount}
	if err := g.detectCycle(describe); err != nil {
		return nil, err
	}
	return g, nil
}

// detectCycle returns an error naming the cycle path if the ordering graph
// is not a DAG. This is a configuration error, collected by the caller
// alongside any other finalize-time errors rather than panicking
// immediately.
func (g *dependencyGraph) detectCycle(describe func(Node) string) error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[Node]int, len(g.nodes))
	var stack []Node
	var cycleErr error

	var visit func(n Node)
	visit = func(n Node) {
		if cycleErr != nil {
			return
		}
		switch state[n] {
		case done:
			return
		case visiting:
			cycle := append(append([]Node(nil), stack...), n)
			names := make([]string, len(cycle))
			for i, c := range cycle {
				names[i] = describe(c)
			}
			cycleErr = fmt.Errorf("scheduler: cyclic dependency among scheduled systems/partitions: %s",
				strings.Join(names, " -> "))
			return
		}
		state[n] = visiting
		stack = append(stack, n)
		for _, dep := range g.dependents[n] {
			visit(dep)
			if cycleErr != nil {
				break
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
	}

	for _, n := range g.nodes {
		if state[n] == unvisited {
			visit(n)
			if cycleErr != nil {
				return cycleErr
			}
		}
	}
	return nil
}

// initialStates returns the starting remaining-dependency count for every
// node, after cascading the immediate completion of every dependency-less
// partition (a partition with no body becomes Completed the instant it
// would become Runnable, which can in turn make its dependents
// dependency-less too). Systems with zero remaining dependencies
// start Runnable; partitions that survive the cascade with work still
// pending start Pending; everything else starts Pending with a positive
// count.
func (g *dependencyGraph) initialStates() (map[Node]WakeupState, map[Node]int) {
	counts := make(map[Node]int, len(g.nodes))
	for n, c := range g.depCount {
		counts[n] = c
	}

	var deplessPartitions []Node
	for _, n := range g.nodes {
		if n.Kind == PartitionKind && counts[n] == 0 {
			deplessPartitions = append(deplessPartitions, n)
		}
	}

	states := make(map[Node]WakeupState, len(g.nodes))
	for len(deplessPartitions) > 0 {
		par := deplessPartitions[len(deplessPartitions)-1]
		deplessPartitions = deplessPartitions[:len(deplessPartitions)-1]
		if states[par] == StateCompleted {
			continue
		}
		states[par] = StateCompleted
		for _, dep := range g.dependents[par] {
			counts[dep]--
			if counts[dep] == 0 && dep.Kind == PartitionKind {
				deplessPartitions = append(deplessPartitions, dep)
			}
		}
	}

	for _, n := range g.nodes {
		if _, done := states[n]; done {
			continue
		}
		if counts[n] == 0 {
			states[n] = StateRunnable
		} else {
			states[n] = StatePending
		}
	}
	return states, counts
}
