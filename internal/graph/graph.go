// Package graph holds the static view of the definition table. It never
// drives resolution; it answers validation and debugging questions.
package graph

import (
	"sort"
	"sync"

	"github.com/danpasecinic/thimble/internal/scope"
)

type Node struct {
	ID           string
	Dependencies []string
	Scope        scope.Scope
}

type Graph struct {
	mu         sync.RWMutex
	nodes      map[string]*Node
	aliases    map[string]string
	dependents map[string]map[string]struct{}
}

func New() *Graph {
	return &Graph{
		nodes:      make(map[string]*Node),
		aliases:    make(map[string]string),
		dependents: make(map[string]map[string]struct{}),
	}
}

// Add records id with its declared dependencies. Adding an existing id
// replaces its edges.
func (g *Graph) Add(id string, dependencies []string, s scope.Scope) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.unlinkUnsafe(id)

	node := &Node{ID: id, Dependencies: append([]string(nil), dependencies...), Scope: s}
	g.nodes[id] = node
	for _, dep := range node.Dependencies {
		set, ok := g.dependents[dep]
		if !ok {
			set = make(map[string]struct{})
			g.dependents[dep] = set
		}
		set[id] = struct{}{}
	}
}

func (g *Graph) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.unlinkUnsafe(id)
	delete(g.nodes, id)
}

func (g *Graph) unlinkUnsafe(id string) {
	old, ok := g.nodes[id]
	if !ok {
		return
	}
	for _, dep := range old.Dependencies {
		delete(g.dependents[dep], id)
		if len(g.dependents[dep]) == 0 {
			delete(g.dependents, dep)
		}
	}
}

// Alias makes edges that name alias lead to target.
func (g *Graph) Alias(alias, target string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.aliases[alias] = target
}

func (g *Graph) canonicalUnsafe(id string) string {
	for i := 0; i <= len(g.aliases); i++ {
		target, ok := g.aliases[id]
		if !ok {
			return id
		}
		id = target
	}
	return id
}

// edgesUnsafe returns the dependencies of id that lead to a known node,
// with aliases followed.
func (g *Graph) edgesUnsafe(id string) []string {
	node, ok := g.nodes[id]
	if !ok {
		return nil
	}
	edges := make([]string, 0, len(node.Dependencies))
	for _, dep := range node.Dependencies {
		target := g.canonicalUnsafe(dep)
		if _, ok := g.nodes[target]; ok {
			edges = append(edges, target)
		}
	}
	return edges
}

func (g *Graph) Has(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.nodes[id]
	return ok
}

func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	cp := *node
	cp.Dependencies = append([]string(nil), node.Dependencies...)
	return cp, true
}

// DependenciesOf returns the names id declared, in declaration order.
func (g *Graph) DependenciesOf(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return append([]string(nil), node.Dependencies...)
}

// DependentsOf returns the components that declare id or one of its
// aliases as a dependency, sorted.
func (g *Graph) DependentsOf(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := make(map[string]struct{})
	for name, dependents := range g.dependents {
		if g.canonicalUnsafe(name) != id {
			continue
		}
		for d := range dependents {
			set[d] = struct{}{}
		}
	}

	result := make([]string, 0, len(set))
	for d := range set {
		result = append(result, d)
	}
	sort.Strings(result)
	return result
}

func (g *Graph) IDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.sortedIDsUnsafe()
}

func (g *Graph) sortedIDsUnsafe() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes)
}

// Snapshot returns an independent copy.
func (g *Graph) Snapshot() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cp := New()
	for alias, target := range g.aliases {
		cp.aliases[alias] = target
	}
	for _, id := range g.sortedIDsUnsafe() {
		node := g.nodes[id]
		cp.Add(id, node.Dependencies, node.Scope)
	}
	return cp
}

// Missing returns the dependency names that lead to no node, sorted.
func (g *Graph) Missing() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var missing []string
	for name := range g.dependents {
		if _, ok := g.nodes[g.canonicalUnsafe(name)]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
