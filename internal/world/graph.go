// Package world builds the market graph a replica is played on.
package world

import (
	"slices"
	"sort"
)

// Graph is an undirected simple graph over nodes 0..n-1.
// It is immutable once returned by a builder.
type Graph struct {
	adj        []map[int]struct{}
	neighbours [][]int // sorted copies of adj
	edges      int
}

// newGraph creates a graph with n isolated nodes.
func newGraph(n int) *Graph {
	g := &Graph{adj: make([]map[int]struct{}, n)}
	for i := range g.adj {
		g.adj[i] = make(map[int]struct{})
	}
	return g
}

// addEdge links a and b. Self loops and duplicates are ignored.
func (g *Graph) addEdge(a, b int) bool {
	if a == b {
		return false
	}
	if _, ok := g.adj[a][b]; ok {
		return false
	}
	g.adj[a][b] = struct{}{}
	g.adj[b][a] = struct{}{}
	g.edges++
	return true
}

// freeze computes the sorted neighbour lists.
func (g *Graph) freeze() *Graph {
	g.neighbours = make([][]int, len(g.adj))
	for node, set := range g.adj {
		ns := make([]int, 0, len(set))
		for n := range set {
			ns = append(ns, n)
		}
		sort.Ints(ns)
		g.neighbours[node] = ns
	}
	return g
}

// NewGraph builds a graph from an explicit edge list. Used for fixed worlds.
func NewGraph(n int, edges [][2]int) (*Graph, error) {
	if n < 1 {
		return nil, invalidf("node count %d < 1", n)
	}
	g := newGraph(n)
	for _, e := range edges {
		if !g.Has(e[0]) || !g.Has(e[1]) {
			return nil, invalidf("edge %v references unknown node", e)
		}
		if e[0] == e[1] {
			return nil, invalidf("self loop on node %d", e[0])
		}
		g.addEdge(e[0], e[1])
	}
	return g.freeze(), nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.adj)
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Has reports whether node exists.
func (g *Graph) Has(node int) bool {
	return node >= 0 && node < len(g.adj)
}

// Neighbours returns a sorted copy of the neighbours of node.
func (g *Graph) Neighbours(node int) []int {
	if !g.Has(node) {
		return nil
	}
	return slices.Clone(g.neighbours[node])
}

// Adjacent reports whether a and b share an edge.
func (g *Graph) Adjacent(a, b int) bool {
	if !g.Has(a) || !g.Has(b) {
		return false
	}
	_, ok := g.adj[a][b]
	return ok
}

// Reachable reports whether a move from -> to is legal: staying put or
// stepping to a neighbour.
func (g *Graph) Reachable(from, to int) bool {
	if !g.Has(to) {
		return false
	}
	return from == to || g.Adjacent(from, to)
}

// Connected reports whether every node is reachable from node 0.
func (g *Graph) Connected() bool {
	n := len(g.adj)
	if n == 0 {
		return false
	}
	seen := make([]bool, n)
	seen[0] = true
	queue := []int{0}
	visited := 1
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.adj[cur] {
			if !seen[next] {
				seen[next] = true
				visited++
				queue = append(queue, next)
			}
		}
	}
	return visited == n
}
