package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/recordsync/internal/schema"
)

// CycleWarning represents a cycle of cascading delete rules.
//
// Cycles are warnings, not errors: a self-referencing tree such as
// Folder.children is a normal model shape.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["Folder", "Note", "Folder"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCascades finds cycles among cascade delete rules.
//
// An edge A -> B exists when an A relationship to B cascades. Strongly
// connected components with more than one entity are warnings; an entity
// cascading to itself is reported at info level.
//
// Output is sorted by path.
func AnalyzeCascades(model *schema.Model) []CycleWarning {
	graph := buildCascadeGraph(model)

	var warnings []CycleWarning
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return slices.Compare(a.Path, b.Path)
	})
	return warnings
}

// cascadeGraph maps entity -> entities its deletes cascade into.
// Neighbor lists are sorted and deduplicated.
type cascadeGraph map[string][]string

func buildCascadeGraph(model *schema.Model) cascadeGraph {
	graph := make(cascadeGraph)
	for _, name := range model.Names() {
		e, _ := model.Entity(name)
		graph[name] = []string{}
		for _, r := range e.Relationships {
			if r.DeleteRule == schema.DeleteRuleCascade {
				graph[name] = append(graph[name], r.Destination)
			}
		}
		slices.Sort(graph[name])
		graph[name] = slices.Compact(graph[name])
	}
	return graph
}

func hasSelfLoop(node string, graph cascadeGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order.
func tarjanSCC(graph cascadeGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func cycleSCCToWarning(scc []string, graph cascadeGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("%s cascades deletes to itself", name),
			Level:   "info",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("cascade cycle: %s", strings.Join(path, " -> ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, graph cascadeGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	inSCC := make(map[string]bool, len(scc))
	for _, node := range scc {
		inSCC[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
