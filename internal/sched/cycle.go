// Cycle Detector: given the subgraph currently failing to progress,
// returns a concrete cycle for error reporting. No recovery is attempted;
// this is only used on the error path.
package sched

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/rescript-lang/bsb-ng/internal/module"
)

// depNode adapts a module name to gonum's graph.Node interface.
type depNode struct {
	id   int64
	name string
}

func (n depNode) ID() int64 { return n.id }

// DetectCycle builds a directed graph over universe's dependency edges
// (restricted to universe itself — edges leaving the universe don't
// matter for finding why progress stalled) and returns one concrete cycle
// as an ordered list of module names, or nil if the subgraph is in fact
// acyclic (which would indicate a bug elsewhere in the scheduler, since
// this is only called when the round loop made no progress).
//
// Determinism is not required by the spec: any cycle may be returned.
// Iteration order over the universe map is randomized by Go itself, so
// the edges are added in sorted-name order purely to make repeated runs
// over the same stuck universe more likely to report the same cycle,
// which is a kindness to the reader, not a correctness requirement.
//
// MlMap namespace modules are never dependents (spec invariant), so they
// cannot be internal nodes of a real cycle; they are included in the
// graph like any other node for uniformity, but since they have no Deps
// of their own, every edge touching one points *into* the namespace and
// they can only ever be cycle-irrelevant sinks.
func DetectCycle(universe map[string]*module.Module) []string {
	names := make([]string, 0, len(universe))
	for name := range universe {
		names = append(names, name)
	}
	sort.Strings(names)

	g := simple.NewDirectedGraph()
	ids := make(map[string]int64, len(names))
	for i, name := range names {
		ids[name] = int64(i)
		g.AddNode(depNode{id: int64(i), name: name})
	}
	for _, name := range names {
		m := universe[name]
		deps := make([]string, 0, len(m.Deps))
		for dep := range m.Deps {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			if _, inUniverse := universe[dep]; !inUniverse {
				continue
			}
			g.SetEdge(g.NewEdge(depNode{id: ids[name], name: name}, depNode{id: ids[dep], name: dep}))
		}
	}

	_, err := topo.Sort(g)
	if err == nil {
		return nil // subgraph is acyclic; nothing to report
	}
	unorderable, ok := err.(topo.Unorderable)
	if !ok || len(unorderable) == 0 {
		return nil
	}

	// The first strongly connected component with more than one node (or
	// a single self-referencing node) is a concrete cycle. Its members are
	// walked along their real edges, not sorted by name: an SCC of three or
	// more nodes has no guarantee that its members' alphabetical order
	// lines up with an actual edge path, so the walk is required to report
	// a sequence that is genuinely a cycle in the dependency graph.
	for _, component := range unorderable {
		if len(component) == 0 {
			continue
		}
		compIDs := make(map[int64]struct{}, len(component))
		for _, n := range component {
			compIDs[n.(depNode).id] = struct{}{}
		}
		if cycle := walkCycle(g, component, compIDs); cycle != nil {
			return cycle
		}
	}
	return nil
}

// walkCycle performs a depth-first search restricted to the nodes in
// compIDs, following g's real edges, and returns the first cycle found as
// a closed, edge-adjacent sequence of names (first == last).
func walkCycle(g graph.Directed, component []graph.Node, compIDs map[int64]struct{}) []string {
	names := make([]depNode, 0, len(component))
	for _, n := range component {
		names = append(names, n.(depNode))
	}
	sort.Slice(names, func(i, j int) bool { return names[i].name < names[j].name })

	visited := map[int64]bool{}
	onStack := map[int64]bool{}
	var stack []depNode
	var cycle []string

	var dfs func(n depNode) bool
	dfs = func(n depNode) bool {
		visited[n.id] = true
		onStack[n.id] = true
		stack = append(stack, n)

		to := g.From(n.id)
		for to.Next() {
			neighbor, ok := to.Node().(depNode)
			if !ok {
				continue
			}
			if _, inComponent := compIDs[neighbor.id]; !inComponent {
				continue
			}
			if onStack[neighbor.id] {
				start := 0
				for i, s := range stack {
					if s.id == neighbor.id {
						start = i
						break
					}
				}
				for _, s := range stack[start:] {
					cycle = append(cycle, s.name)
				}
				cycle = append(cycle, neighbor.name)
				return true
			}
			if !visited[neighbor.id] && dfs(neighbor) {
				return true
			}
		}

		onStack[n.id] = false
		stack = stack[:len(stack)-1]
		return false
	}

	for _, n := range names {
		if !visited[n.id] {
			if dfs(n) {
				return cycle
			}
		}
	}
	return nil
}

// FormatCycle renders a cycle as human-readable text, e.g.
// "A -> B -> A".
func FormatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return "(no cycle found)"
	}
	return strings.Join(cycle, " -> ")
}

// renderCycleError formats the final error text appended to the
// aggregate error string when the scheduler stalls.
func renderCycleError(cycle []string) string {
	return fmt.Sprintf("\nCan't continue... Found a circular dependency in your code:\n%s\n", FormatCycle(cycle))
}

var _ graph.Node = depNode{}
