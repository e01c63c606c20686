// Package cascade removes a mod together with every mod that transitively
// depends on it.
package cascade

import "strings"

// Graph is a dependents graph. An edge from A to B means B depends on A, so
// removing A must also remove B. Node identity ignores case; the first
// spelling seen is the one reported.
type Graph struct {
	// adjacency maps each node key to the keys of the nodes depending on it
	adjacency map[string][]string
	// names maps a node key to its display spelling
	names map[string]string
	// nodes tracks keys in insertion order for deterministic output
	nodes []string
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		names:     make(map[string]string),
	}
}

func key(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) {
	k := key(id)
	if k == "" {
		return
	}
	if _, ok := g.names[k]; ok {
		return
	}
	g.names[k] = strings.TrimSpace(id)
	g.nodes = append(g.nodes, k)
}

// AddEdge records that dependent depends on dependency.
func (g *Graph) AddEdge(dependency, dependent string) {
	g.AddNode(dependency)
	g.AddNode(dependent)
	from, to := key(dependency), key(dependent)
	if from == "" || to == "" {
		return
	}
	for _, existing := range g.adjacency[from] {
		if existing == to {
			return
		}
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	for i, k := range g.nodes {
		out[i] = g.names[k]
	}
	return out
}

// Dependents returns the direct dependents of id. It satisfies LookupFunc.
func (g *Graph) Dependents(id string) ([]string, error) {
	keys := g.adjacency[key(id)]
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = g.names[k]
	}
	return out, nil
}

// Order returns the ids Uninstall would remove for rootID, in removal order,
// without removing anything.
func (g *Graph) Order(rootID string) []string {
	removed, _ := Uninstall(rootID, g.Dependents, func(string) error { return nil }, Options{})
	return removed
}
