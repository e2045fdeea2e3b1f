package metadata

import (
	"fmt"
	"sort"
	"strings"
)

// DependencyGraph is the graph of required relationships between entity types.
// An edge runs from a dependent to its principal; self-references are left out.
type DependencyGraph struct {
	nodes []string
	edges map[string][]string // dependent -> principals
}

// NewDependencyGraph builds the dependency graph of m
func NewDependencyGraph(m *Model) *DependencyGraph {
	g := &DependencyGraph{edges: make(map[string][]string)}
	for _, et := range m.EntityTypes() {
		g.nodes = append(g.nodes, et.name)
	}
	for _, fk := range m.ForeignKeys() {
		if !fk.IsRequired() || fk.principalType.RootType() == fk.declaringType.RootType() {
			continue
		}
		from, to := fk.declaringType.name, fk.principalType.name
		if !containsItem(g.edges[from], to) {
			g.edges[from] = append(g.edges[from], to)
		}
	}
	for _, deps := range g.edges {
		sort.Strings(deps)
	}
	return g
}

// Dependencies returns the principals a dependent requires
func (g *DependencyGraph) Dependencies(name string) []string {
	return append([]string(nil), g.edges[name]...)
}

// Dependents returns the entity types that require name
func (g *DependencyGraph) Dependents(name string) []string {
	var result []string
	for _, node := range g.nodes {
		if containsItem(g.edges[node], name) {
			result = append(result, node)
		}
	}
	return result
}

// DetectCycles returns every cycle reachable by depth-first search, each
// starting at its first visited node.
func (g *DependencyGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, next := range g.edges[node] {
			if !visited[next] {
				dfs(next, path)
				continue
			}
			if !onStack[next] {
				continue
			}
			for i, n := range path {
				if n == next {
					cycle := make([]string, len(path)-i)
					copy(cycle, path[i:])
					cycles = append(cycles, cycle)
					break
				}
			}
		}
		onStack[node] = false
	}

	for _, node := range g.nodes {
		if !visited[node] {
			dfs(node, nil)
		}
	}
	return cycles
}

// TopologicalSort returns entity type names with principals first. Ties are
// broken by name so the order is stable.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	outDegree := make(map[string]int, len(g.nodes))
	reverse := make(map[string][]string)
	for _, node := range g.nodes {
		outDegree[node] = len(g.edges[node])
		for _, principal := range g.edges[node] {
			reverse[principal] = append(reverse[principal], node)
		}
	}

	var ready []string
	for _, node := range g.nodes {
		if outDegree[node] == 0 {
			ready = append(ready, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Strings(ready)
		node := ready[0]
		ready = ready[1:]
		result = append(result, node)

		for _, dependent := range reverse[node] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		if cycles := g.DetectCycles(); len(cycles) > 0 {
			return nil, fmt.Errorf("circular dependency detected: %s", formatCycles(cycles))
		}
		return nil, fmt.Errorf("circular dependency detected")
	}
	return result, nil
}

func formatCycles(cycles [][]string) string {
	parts := make([]string, len(cycles))
	for i, cycle := range cycles {
		parts[i] = strings.Join(cycle, " -> ") + " -> " + cycle[0]
	}
	return strings.Join(parts, "; ")
}
