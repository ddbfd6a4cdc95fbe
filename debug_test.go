package thimble_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/danpasecinic/thimble"
)

func newDebugContainer(t *testing.T) *thimble.Container {
	t.Helper()

	c := thimble.New()
	_ = thimble.DefineValue(c, "config", &Config{})
	_ = thimble.Define(c, "db", func(context.Context, thimble.Resolver) (*Database, error) {
		return &Database{}, nil
	}, thimble.WithDependencies("config"))
	_ = thimble.Define(c, "request", func(context.Context, thimble.Resolver) (*Server, error) {
		return &Server{}, nil
	}, thimble.WithScope(thimble.Prototype))
	return c
}

func TestPrintGraphEmpty(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	if got := c.SprintGraph(); !strings.Contains(got, "(empty container)") {
		t.Errorf("expected empty marker, got %q", got)
	}
}

func TestPrintGraph(t *testing.T) {
	t.Parallel()

	c := newDebugContainer(t)

	var buf bytes.Buffer
	c.FprintGraph(&buf)
	output := buf.String()

	for _, want := range []string{"○ config", "○ db ← config", "◇ request"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestPrintGraphAfterResolve(t *testing.T) {
	t.Parallel()

	c := newDebugContainer(t)
	_ = thimble.MustGet[*Database](context.Background(), c, "db")

	output := c.SprintGraph()
	if !strings.Contains(output, "● config") || !strings.Contains(output, "● db ← config") {
		t.Errorf("expected finished markers, got:\n%s", output)
	}
}

func TestPrintGraphDOT(t *testing.T) {
	t.Parallel()

	c := newDebugContainer(t)
	output := c.SprintGraphDOT()

	for _, want := range []string{
		"digraph dependencies {",
		`"db" -> "config";`,
		`"request" [label="request", style=dashed];`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestPrintGraphDOTMarksUnresolvableCycles(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	_ = thimble.DefineStruct[*Husband](c, "husband", thimble.WithScope(thimble.Prototype))
	_ = thimble.DefineStruct[*Wife](c, "wife")

	output := c.SprintGraphDOT()
	if !strings.Contains(output, "[color=red]") {
		t.Errorf("expected a red edge, got:\n%s", output)
	}
}

func TestGraphReportsSingletonCycles(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	_ = thimble.DefineStruct[*Husband](c, "husband")
	_ = thimble.DefineStruct[*Wife](c, "wife")

	info := c.Graph()
	if len(info.Cycles) != 1 {
		t.Fatalf("expected one cycle, got %v", info.Cycles)
	}
	if path := info.Cycles[0]; len(path) != 3 || path[0] != "husband" || path[2] != "husband" {
		t.Errorf("expected a path from husband back to husband, got %v", path)
	}

	output := c.SprintGraphDOT()
	if !strings.Contains(output, "[color=orange]") || strings.Contains(output, "[color=red]") {
		t.Errorf("expected only orange cycle edges, got:\n%s", output)
	}
}

func TestPrintTable(t *testing.T) {
	t.Parallel()

	c := newDebugContainer(t)
	_ = c.Alias("settings", "config")
	_ = thimble.MustGet[*Database](context.Background(), c, "db")

	output := c.SprintTable()
	for _, want := range []string{"config (settings)", "singleton", "prototype", "finished"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in table:\n%s", want, output)
		}
	}
}

func TestGraphInfo(t *testing.T) {
	t.Parallel()

	c := newDebugContainer(t)
	info := c.Graph()

	if len(info.Components) != 3 {
		t.Fatalf("expected 3 components, got %d", len(info.Components))
	}

	byName := make(map[string]thimble.ComponentInfo)
	for _, comp := range info.Components {
		byName[comp.Name] = comp
	}

	db := byName["db"]
	if len(db.Dependencies) != 1 || db.Dependencies[0] != "config" {
		t.Errorf("expected db to depend on config, got %v", db.Dependencies)
	}
	config := byName["config"]
	if len(config.Dependents) != 1 || config.Dependents[0] != "db" {
		t.Errorf("expected db to depend on config, got %v", config.Dependents)
	}
	if byName["request"].Scope != "prototype" {
		t.Errorf("expected request to be a prototype, got %s", byName["request"].Scope)
	}
	if config.Tier != "absent" {
		t.Errorf("expected config to be absent before resolve, got %s", config.Tier)
	}
}
