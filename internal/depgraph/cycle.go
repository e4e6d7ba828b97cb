// Package depgraph validates and repairs the dependency graph formed by tasks
// and subtasks.
//
// Nodes are taskid.ID values: plain ids for top-level tasks and composite ids
// for subtasks. An edge runs from a node to each entry of its dependency list.
// Nothing in this package performs I/O; Repairer mutates the collection it is
// given in place and leaves persistence to an injected Persister.
package depgraph

import (
	"maps"
	"slices"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
)

// Edges maps a node to the nodes it depends on.
type Edges map[taskid.ID][]taskid.ID

// EdgesOf builds the edge map for every task and subtask in ts. Nodes without
// dependencies are present with an empty list. The lists alias ts and must
// not be modified. A repeated id contributes only its first occurrence, the
// same node FindTask and FindSubtask resolve to.
func EdgesOf(ts []tasks.Task) Edges {
	edges := make(Edges, len(ts))
	tasks.EachNode(ts, func(n taskid.ID, _ tasks.Status, deps *[]taskid.ID) {
		edges[n] = *deps
	})
	return edges
}

// HasCycle reports whether any directed cycle exists in edges.
func HasCycle(edges Edges) bool {
	return FindCycle(edges) != nil
}

// FindCycle returns the first cycle found as a closed path [a, b, ..., a], or
// nil. Start nodes are scanned in taskid order so the result is stable. The
// last edge of the path is the one that closed the cycle.
func FindCycle(edges Edges) []taskid.ID {
	d := newDFS(edges)
	for _, n := range sortedNodes(edges) {
		if d.visited[n] {
			continue
		}
		if cycle := d.visit(n); cycle != nil {
			return cycle
		}
	}
	return nil
}

// HasCycleFrom reports whether a cycle is reachable from start once the
// proposed edges are added to edges. Neither map is modified.
func HasCycleFrom(edges Edges, start taskid.ID, proposed Edges) bool {
	merged := edges
	if len(proposed) > 0 {
		merged = make(Edges, len(edges)+len(proposed))
		maps.Copy(merged, edges)
		for n, extra := range proposed {
			merged[n] = append(slices.Clone(edges[n]), extra...)
		}
	}
	return newDFS(merged).visit(start) != nil
}

// IsCircularDependency reports whether id can reach itself through its
// dependencies, including through a direct self-dependency.
func IsCircularDependency(ts []tasks.Task, id taskid.ID) bool {
	return reaches(EdgesOf(ts), id, id)
}

// reaches reports whether target is reachable from the dependencies of from.
func reaches(edges Edges, from, target taskid.ID) bool {
	seen := make(map[taskid.ID]bool)
	pending := slices.Clone(edges[from])
	for len(pending) > 0 {
		n := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if n == target {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		pending = append(pending, edges[n]...)
	}
	return false
}

// dfs is a depth-first search with a visited set and a recursion stack. The
// stack maps each node on the current path to its position in path.
type dfs struct {
	edges          Edges
	visited        map[taskid.ID]bool
	recursionStack map[taskid.ID]int
	path           []taskid.ID
}

func newDFS(edges Edges) *dfs {
	return &dfs{
		edges:          edges,
		visited:        make(map[taskid.ID]bool, len(edges)),
		recursionStack: make(map[taskid.ID]int),
	}
}

func (d *dfs) visit(n taskid.ID) []taskid.ID {
	d.visited[n] = true
	d.recursionStack[n] = len(d.path)
	d.path = append(d.path, n)

	for _, next := range d.edges[n] {
		if idx, onStack := d.recursionStack[next]; onStack {
			cycle := slices.Clone(d.path[idx:])
			return append(cycle, next)
		}
		if d.visited[next] {
			continue
		}
		if cycle := d.visit(next); cycle != nil {
			return cycle
		}
	}

	d.path = d.path[:len(d.path)-1]
	delete(d.recursionStack, n)
	return nil
}

func sortedNodes(edges Edges) []taskid.ID {
	nodes := slices.Collect(maps.Keys(edges))
	slices.SortFunc(nodes, taskid.Compare)
	return nodes
}
