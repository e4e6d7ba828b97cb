package depgraph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
)

var (
	ErrNodeNotFound   = errors.New("task not found")
	ErrSelfDependency = errors.New("task cannot depend on itself")
	ErrWouldCycle     = errors.New("dependency would create a cycle")
)

// AddDependency makes from depend on to. It returns false with no error when
// the edge already exists.
func AddDependency(ts []tasks.Task, from, to taskid.ID) (bool, error) {
	deps := dependencyList(ts, from)
	if deps == nil {
		return false, fmt.Errorf("%s: %w", noun(from), ErrNodeNotFound)
	}
	if !tasks.Exists(ts, to) {
		return false, fmt.Errorf("dependency %s: %w", noun(to), ErrNodeNotFound)
	}
	if from == to {
		return false, fmt.Errorf("%s: %w", noun(from), ErrSelfDependency)
	}
	if slices.Contains(*deps, to) {
		return false, nil
	}
	if WouldCreateCycle(ts, from, to) {
		return false, fmt.Errorf("adding %s -> %s: %w", from, to, ErrWouldCycle)
	}

	*deps = append(*deps, to)
	return true, nil
}

// WouldCreateCycle reports whether a cycle is reachable from from once the
// edge from -> to is added.
func WouldCreateCycle(ts []tasks.Task, from, to taskid.ID) bool {
	return HasCycleFrom(EdgesOf(ts), from, Edges{from: {to}})
}

// RemoveDependency drops the edge from -> to. It returns false with no error
// when the edge is absent.
func RemoveDependency(ts []tasks.Task, from, to taskid.ID) (bool, error) {
	deps := dependencyList(ts, from)
	if deps == nil {
		return false, fmt.Errorf("%s: %w", noun(from), ErrNodeNotFound)
	}
	if !slices.Contains(*deps, to) {
		return false, nil
	}
	*deps = without(*deps, to)
	return true, nil
}

// Dependents returns the nodes that list id as a dependency, in taskid order.
func Dependents(ts []tasks.Task, id taskid.ID) []taskid.ID {
	var out []taskid.ID
	for n, deps := range EdgesOf(ts) {
		if slices.Contains(deps, id) {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, taskid.Compare)
	return out
}
