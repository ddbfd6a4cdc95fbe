package thimble

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

type GraphInfo struct {
	Components []ComponentInfo

	// Cycles holds one dependency path per cycle. Singleton cycles are
	// broken at resolution time by early references.
	Cycles [][]string
}

type ComponentInfo struct {
	Name         string
	Aliases      []string
	Dependencies []string
	Dependents   []string
	Scope        string
	Tier         string
	Lazy         bool
}

// Graph describes every definition with its current cache tier.
func (c *Container) Graph() GraphInfo {
	names := c.internal.Names()
	sort.Strings(names)

	graph := c.internal.Graph()
	components := make([]ComponentInfo, 0, len(names))

	for _, name := range names {
		def, _ := c.internal.Definition(name)
		components = append(
			components, ComponentInfo{
				Name:         name,
				Aliases:      c.internal.Aliases(name),
				Dependencies: graph.DependenciesOf(name),
				Dependents:   graph.DependentsOf(name),
				Scope:        def.Scope.String(),
				Tier:         c.internal.Tier(name).String(),
				Lazy:         def.Lazy,
			},
		)
	}

	return GraphInfo{Components: components, Cycles: graph.CyclePaths()}
}

func (c *Container) PrintGraph() {
	c.FprintGraph(os.Stdout)
}

func (c *Container) FprintGraph(w io.Writer) {
	info := c.Graph()

	if len(info.Components) == 0 {
		_, _ = fmt.Fprintln(w, "(empty container)")
		return
	}

	for _, comp := range info.Components {
		status := "○"
		if comp.Tier == "finished" {
			status = "●"
		}
		if comp.Scope == Prototype.String() {
			status = "◇"
		}

		if len(comp.Dependencies) == 0 {
			_, _ = fmt.Fprintf(w, "%s %s\n", status, comp.Name)
		} else {
			_, _ = fmt.Fprintf(w, "%s %s ← %s\n", status, comp.Name, strings.Join(comp.Dependencies, ", "))
		}
	}
}

func (c *Container) SprintGraph() string {
	var sb strings.Builder
	c.FprintGraph(&sb)
	return sb.String()
}

func (c *Container) PrintGraphDOT() {
	c.FprintGraphDOT(os.Stdout)
}

func (c *Container) FprintGraphDOT(w io.Writer) {
	info := c.Graph()

	edgeColors := make(map[[2]string]string)
	for _, path := range info.Cycles {
		for i := 0; i+1 < len(path); i++ {
			edgeColors[[2]string{path[i], path[i+1]}] = "orange"
		}
	}
	for _, path := range c.internal.Graph().UnresolvableCycles() {
		for i := 0; i+1 < len(path); i++ {
			edgeColors[[2]string{path[i], path[i+1]}] = "red"
		}
	}

	_, _ = fmt.Fprintln(w, "digraph dependencies {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for _, comp := range info.Components {
		style := ""
		switch {
		case comp.Scope == Prototype.String():
			style = ", style=dashed"
		case comp.Tier == "finished":
			style = ", style=filled, fillcolor=lightblue"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", comp.Name, comp.Name, style)
	}

	_, _ = fmt.Fprintln(w)

	for _, comp := range info.Components {
		for _, dep := range comp.Dependencies {
			if color, ok := edgeColors[[2]string{comp.Name, dep}]; ok {
				_, _ = fmt.Fprintf(w, "  %q -> %q [color=%s];\n", comp.Name, dep, color)
				continue
			}
			_, _ = fmt.Fprintf(w, "  %q -> %q;\n", comp.Name, dep)
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (c *Container) SprintGraphDOT() string {
	var sb strings.Builder
	c.FprintGraphDOT(&sb)
	return sb.String()
}

func (c *Container) PrintTable() {
	c.FprintTable(os.Stdout)
}

// FprintTable writes one row per component with its scope, tier and
// position in the disposal order.
func (c *Container) FprintTable(w io.Writer) {
	info := c.Graph()

	disposalRank := make(map[string]int)
	for i, name := range c.internal.DisposalOrder() {
		disposalRank[name] = i + 1
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Component", "Scope", "Tier", "Dependencies", "Dependents", "Dispose #"})

	for _, comp := range info.Components {
		rank := ""
		if r, ok := disposalRank[comp.Name]; ok {
			rank = fmt.Sprint(r)
		}
		name := comp.Name
		if len(comp.Aliases) > 0 {
			name += " (" + strings.Join(comp.Aliases, ", ") + ")"
		}
		t.AppendRow(table.Row{
			name,
			comp.Scope,
			comp.Tier,
			strings.Join(comp.Dependencies, ", "),
			strings.Join(comp.Dependents, ", "),
			rank,
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", "components", len(info.Components)})
	t.Render()
}

func (c *Container) SprintTable() string {
	var sb strings.Builder
	c.FprintTable(&sb)
	return sb.String()
}
