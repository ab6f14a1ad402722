package dag

import (
	"fmt"
	"slices"
	"sync"
)

type node struct {
	id         string
	order      int
	deps       map[string]*node
	dependents map[string]*node
}

// Graph is a directed graph whose edges point from a dependency to its
// dependents. Nodes remember their insertion order, which every listing and
// the topological order follow.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:         id,
		order:      len(g.nodes),
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist or if the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// Dependencies returns the IDs the given node depends on, in insertion order.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedIDs(n.deps), nil
}

// Dependents returns the IDs depending on the given node, in insertion order.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedIDs(n.dependents), nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// CycleError lists the nodes that could not be ordered because they sit on,
// or downstream of, a cycle.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected involving nodes %v", e.Nodes)
}

// TopologicalOrder returns every node ordered so that dependencies precede
// their dependents, using Kahn's algorithm. Among nodes that are ready at the
// same time, insertion order wins. A cycle yields *CycleError.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	indegree := make(map[string]int, len(g.nodes))
	var queue []*node
	for _, n := range g.nodes {
		indegree[n.id] = len(n.deps)
		if len(n.deps) == 0 {
			queue = append(queue, n)
		}
	}
	byOrder := func(a, b *node) int { return a.order - b.order }
	slices.SortFunc(queue, byOrder)

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n.id)

		var released []*node
		for _, d := range n.dependents {
			indegree[d.id]--
			if indegree[d.id] == 0 {
				released = append(released, d)
			}
		}
		queue = append(queue, released...)
		slices.SortFunc(queue, byOrder)
	}

	if len(order) != len(g.nodes) {
		var stuck []*node
		for _, n := range g.nodes {
			if indegree[n.id] > 0 {
				stuck = append(stuck, n)
			}
		}
		slices.SortFunc(stuck, byOrder)
		ids := make([]string, len(stuck))
		for i, n := range stuck {
			ids[i] = n.id
		}
		return nil, &CycleError{Nodes: ids}
	}
	return order, nil
}

func sortedIDs(m map[string]*node) []string {
	nodes := make([]*node, 0, len(m))
	for _, n := range m {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *node) int { return a.order - b.order })
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.id
	}
	return ids
}
