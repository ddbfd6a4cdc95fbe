package graph

import (
	"fmt"
	"slices"
	"testing"

	"github.com/danpasecinic/thimble/internal/scope"
)

func TestGraph_Add(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("A", []string{"B", "C"}, scope.Singleton)

	if !g.Has("A") {
		t.Error("node A should exist")
	}
	if deps := g.DependenciesOf("A"); !slices.Equal(deps, []string{"B", "C"}) {
		t.Errorf("expected [B C], got %v", deps)
	}
}

func TestGraph_AddCopiesDependencies(t *testing.T) {
	t.Parallel()

	g := New()
	deps := []string{"B"}
	g.Add("A", deps, scope.Singleton)
	deps[0] = "mutated"

	if got := g.DependenciesOf("A"); got[0] != "B" {
		t.Errorf("graph should own its dependency slice, got %v", got)
	}
}

func TestGraph_AddReplacesEdges(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("A", []string{"B"}, scope.Singleton)
	g.Add("A", []string{"C"}, scope.Singleton)

	if got := g.DependentsOf("B"); len(got) != 0 {
		t.Errorf("stale dependent left behind: %v", got)
	}
	if got := g.DependentsOf("C"); !slices.Equal(got, []string{"A"}) {
		t.Errorf("expected [A], got %v", got)
	}
}

func TestGraph_Remove(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("A", []string{"B"}, scope.Singleton)
	g.Add("B", nil, scope.Singleton)

	g.Remove("A")

	if g.Has("A") {
		t.Error("node A should not exist after removal")
	}
	if !g.Has("B") {
		t.Error("node B should still exist")
	}
	if got := g.DependentsOf("B"); len(got) != 0 {
		t.Errorf("removed node still listed as dependent: %v", got)
	}
}

func TestGraph_DependentsOf(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("A", []string{"C"}, scope.Singleton)
	g.Add("B", []string{"settings"}, scope.Singleton)
	g.Add("C", nil, scope.Singleton)
	g.Alias("settings", "C")

	if got := g.DependentsOf("C"); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("expected [A B], got %v", got)
	}
}

func TestGraph_Missing(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("A", []string{"B", "C", "db"}, scope.Singleton)
	g.Add("B", nil, scope.Singleton)
	g.Alias("db", "B")

	if missing := g.Missing(); !slices.Equal(missing, []string{"C"}) {
		t.Errorf("expected missing dependency C, got %v", missing)
	}
}

func TestGraph_Snapshot(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("A", []string{"B"}, scope.Singleton)
	g.Add("B", nil, scope.Prototype)
	g.Alias("b", "B")

	snap := g.Snapshot()
	if snap.Len() != g.Len() {
		t.Error("snapshot should have same size")
	}

	node, _ := snap.Node("B")
	if node.Scope != scope.Prototype {
		t.Error("snapshot should keep scopes")
	}
	if got := snap.DependentsOf("B"); !slices.Equal(got, []string{"A"}) {
		t.Errorf("snapshot should keep reverse edges, got %v", got)
	}

	g.Add("C", []string{"b"}, scope.Singleton)
	if snap.Len() == g.Len() {
		t.Error("snapshot should be independent")
	}
	if got := g.DependentsOf("B"); !slices.Equal(got, []string{"A", "C"}) {
		t.Errorf("alias should lead to B, got %v", got)
	}
}

func TestGraph_Cycles_None(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("A", []string{"B"}, scope.Singleton)
	g.Add("B", []string{"C"}, scope.Singleton)
	g.Add("C", nil, scope.Singleton)

	if cycles := g.Cycles(); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestGraph_Cycles_Simple(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("husband", []string{"wife"}, scope.Singleton)
	g.Add("wife", []string{"husband"}, scope.Singleton)

	cycles := g.Cycles()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if !slices.Equal(cycles[0], []string{"husband", "wife"}) {
		t.Errorf("unexpected cycle members %v", cycles[0])
	}
}

func TestGraph_Cycles_SelfReference(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("A", []string{"A"}, scope.Singleton)

	if cycles := g.Cycles(); len(cycles) != 1 {
		t.Errorf("expected 1 cycle (self-reference), got %d", len(cycles))
	}
}

func TestGraph_Cycles_ThroughAlias(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("husband", []string{"spouse"}, scope.Singleton)
	g.Add("wife", []string{"husband"}, scope.Singleton)

	if g.HasCycle() {
		t.Fatal("no cycle before the alias exists")
	}

	g.Alias("spouse", "wife")
	if !g.HasCycle() {
		t.Error("alias should close the cycle")
	}
}

func TestGraph_PathThrough(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("A", []string{"B"}, scope.Singleton)
	g.Add("B", []string{"C"}, scope.Singleton)
	g.Add("C", []string{"A"}, scope.Singleton)
	g.Add("D", []string{"A"}, scope.Singleton)

	if path := g.PathThrough("B"); !slices.Equal(path, []string{"B", "C", "A", "B"}) {
		t.Errorf("expected [B C A B], got %v", path)
	}
	if g.PathThrough("D") != nil {
		t.Error("D is not on a cycle")
	}
}

func TestGraph_UnresolvableCycles(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("husband", []string{"wife"}, scope.Singleton)
	g.Add("wife", []string{"husband"}, scope.Singleton)

	if cycles := g.UnresolvableCycles(); len(cycles) != 0 {
		t.Fatalf("singleton cycles are resolvable, got %v", cycles)
	}

	g.Add("request", []string{"handler"}, scope.Prototype)
	g.Add("handler", []string{"request"}, scope.Singleton)

	cycles := g.UnresolvableCycles()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 unresolvable cycle, got %v", cycles)
	}
	if !slices.Equal(cycles[0], []string{"request", "handler", "request"}) {
		t.Errorf("expected path through the prototype, got %v", cycles[0])
	}
}

func TestGraph_CyclePaths(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("A", []string{"B"}, scope.Singleton)
	g.Add("B", []string{"A"}, scope.Singleton)
	g.Add("C", []string{"C"}, scope.Prototype)

	paths := g.CyclePaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 cycle paths, got %v", paths)
	}
	if !slices.Equal(paths[0], []string{"A", "B", "A"}) {
		t.Errorf("expected [A B A] first, got %v", paths[0])
	}
	for _, p := range paths {
		if p[0] != p[len(p)-1] {
			t.Errorf("cycle path should start and end with same node: %v", p)
		}
	}
}

func BenchmarkGraph_Cycles(b *testing.B) {
	g := New()
	for i := 0; i < 100; i++ {
		var deps []string
		if i > 0 {
			deps = []string{fmt.Sprintf("n%d", i-1)}
		}
		g.Add(fmt.Sprintf("n%d", i), deps, scope.Singleton)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g.Cycles()
	}
}
