// Package dag provides directed graph traversal helpers for diagram
// layout: degree queries, root selection, breadth-first depth
// assignment and connected-component discovery. Unlike a build
// scheduler's DAG, cycles are allowed here; layout callers handle them
// with synthetic roots.
package dag

import "sort"

// Graph is a directed graph over string node IDs. Undirected queries
// (Neighbors, ConnectedComponents) treat every edge as bidirectional.
type Graph struct {
	nodes    map[string]struct{}
	children map[string][]string // from -> to
	parents  map[string][]string // to -> from
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]struct{}),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// AddNode adds a node to the graph. Adding an existing node is a
// no-op.
func (g *Graph) AddNode(id string) {
	if _, exists := g.nodes[id]; !exists {
		g.nodes[id] = struct{}{}
		g.children[id] = nil
		g.parents[id] = nil
	}
}

// AddEdge adds a directed edge from -> to, creating missing nodes.
// Duplicate edges and self-loops are ignored.
func (g *Graph) AddEdge(from, to string) {
	if from == to {
		return
	}
	g.AddNode(from)
	g.AddNode(to)
	if !contains(g.children[from], to) {
		g.children[from] = append(g.children[from], to)
	}
	if !contains(g.parents[to], from) {
		g.parents[to] = append(g.parents[to], from)
	}
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Nodes returns all node IDs, sorted for deterministic iteration.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// HasNode reports whether id is in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// InDegree returns the number of incoming edges of id.
func (g *Graph) InDegree(id string) int {
	return len(g.parents[id])
}

// OutDegree returns the number of outgoing edges of id.
func (g *Graph) OutDegree(id string) int {
	return len(g.children[id])
}

// Children returns the direct successors of id, sorted.
func (g *Graph) Children(id string) []string {
	return sortedCopy(g.children[id])
}

// Parents returns the direct predecessors of id, sorted.
func (g *Graph) Parents(id string) []string {
	return sortedCopy(g.parents[id])
}

// Neighbors returns the undirected neighbors of id (parents and
// children, deduplicated), sorted.
func (g *Graph) Neighbors(id string) []string {
	seen := make(map[string]struct{})
	for _, n := range g.children[id] {
		seen[n] = struct{}{}
	}
	for _, n := range g.parents[id] {
		seen[n] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NeighborCount returns the number of distinct undirected neighbors of
// id.
func (g *Graph) NeighborCount(id string) int {
	return len(g.Neighbors(id))
}

// Roots returns all nodes with in-degree 0 and at least one outgoing
// edge, sorted. Isolated nodes are not roots, and a fully cyclic graph
// has none.
func (g *Graph) Roots() []string {
	var roots []string
	for _, id := range g.Nodes() {
		if g.InDegree(id) == 0 && g.OutDegree(id) > 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// BFSDepths assigns each node reachable from roots its breadth-first
// depth, following edges in the forward direction. Roots are processed
// in the given order; the first root to reach a node wins and visited
// nodes are not revisited. Unreached nodes are absent from the result.
func (g *Graph) BFSDepths(roots []string) map[string]int {
	depths := make(map[string]int)
	queue := make([]string, 0, len(roots))
	for _, r := range roots {
		if !g.HasNode(r) {
			continue
		}
		if _, seen := depths[r]; !seen {
			depths[r] = 0
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range g.Children(id) {
			if _, seen := depths[child]; !seen {
				depths[child] = depths[id] + 1
				queue = append(queue, child)
			}
		}
	}
	return depths
}

// ConnectedComponents partitions the graph into maximal sets of nodes
// reachable from one another ignoring edge direction. Components are
// discovered in sorted node order and each component's members are
// sorted, so output is deterministic.
func (g *Graph) ConnectedComponents() [][]string {
	visited := make(map[string]bool)
	var components [][]string

	for _, start := range g.Nodes() {
		if visited[start] {
			continue
		}
		var members []string
		queue := []string{start}
		visited[start] = true
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			members = append(members, id)
			for _, n := range g.Neighbors(id) {
				if !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			}
		}
		sort.Strings(members)
		components = append(components, members)
	}

	return components
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

func sortedCopy(slice []string) []string {
	if len(slice) == 0 {
		return nil
	}
	out := make([]string, len(slice))
	copy(out, slice)
	sort.Strings(out)
	return out
}
