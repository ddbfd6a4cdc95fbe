package graph

import "sort"

// tarjan finds strongly connected components over the alias-resolved edges.
type tarjan struct {
	graph   *Graph
	next    int
	stack   []string
	onStack map[string]bool
	index   map[string]int
	low     map[string]int
	sccs    [][]string
}

// Cycles returns the members of every strongly connected component that
// forms a cycle, self references included. Members are sorted.
func (g *Graph) Cycles() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.cyclesUnsafe()
}

func (g *Graph) HasCycle() bool {
	return len(g.Cycles()) > 0
}

func (g *Graph) cyclesUnsafe() [][]string {
	t := &tarjan{
		graph:   g,
		onStack: make(map[string]bool),
		index:   make(map[string]int),
		low:     make(map[string]int),
	}
	for _, id := range g.sortedIDsUnsafe() {
		if _, seen := t.index[id]; !seen {
			t.visit(id)
		}
	}

	var cycles [][]string
	for _, scc := range t.sccs {
		if len(scc) == 1 && !g.selfReferentUnsafe(scc[0]) {
			continue
		}
		sort.Strings(scc)
		cycles = append(cycles, scc)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

func (g *Graph) selfReferentUnsafe(id string) bool {
	for _, dep := range g.edgesUnsafe(id) {
		if dep == id {
			return true
		}
	}
	return false
}

func (t *tarjan) visit(id string) {
	t.index[id] = t.next
	t.low[id] = t.next
	t.next++
	t.stack = append(t.stack, id)
	t.onStack[id] = true

	for _, dep := range t.graph.edgesUnsafe(id) {
		if _, seen := t.index[dep]; !seen {
			t.visit(dep)
			t.low[id] = min(t.low[id], t.low[dep])
		} else if t.onStack[dep] {
			t.low[id] = min(t.low[id], t.index[dep])
		}
	}

	if t.low[id] != t.index[id] {
		return
	}

	var scc []string
	for {
		top := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[top] = false
		scc = append(scc, top)
		if top == id {
			break
		}
	}
	t.sccs = append(t.sccs, scc)
}

// PathThrough returns a dependency path that starts and ends at id, or nil
// when id is not on a cycle.
func (g *Graph) PathThrough(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.pathThroughUnsafe(id)
}

func (g *Graph) pathThroughUnsafe(id string) []string {
	if _, ok := g.nodes[id]; !ok {
		return nil
	}

	visited := map[string]bool{id: true}
	path := []string{id}

	var walk func(current string) bool
	walk = func(current string) bool {
		for _, dep := range g.edgesUnsafe(current) {
			if dep == id {
				path = append(path, id)
				return true
			}
			if visited[dep] {
				continue
			}
			visited[dep] = true
			path = append(path, dep)
			if walk(dep) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}

	if walk(id) {
		return path
	}
	return nil
}

// UnresolvableCycles returns one path per cycle that passes through a
// component that is never cached. No early reference exists for such a
// component, so the cycle fails at resolution time.
func (g *Graph) UnresolvableCycles() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var paths [][]string
	for _, scc := range g.cyclesUnsafe() {
		for _, id := range scc {
			if g.nodes[id].Scope.Cached() {
				continue
			}
			if path := g.pathThroughUnsafe(id); path != nil {
				paths = append(paths, path)
			}
			break
		}
	}
	return paths
}

// CyclePaths returns one path per cycle, starting at the cycle's first
// member in name order.
func (g *Graph) CyclePaths() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var paths [][]string
	for _, scc := range g.cyclesUnsafe() {
		if path := g.pathThroughUnsafe(scc[0]); path != nil {
			paths = append(paths, path)
		}
	}
	return paths
}
