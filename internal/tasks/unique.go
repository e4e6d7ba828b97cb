package tasks

import (
	"errors"
	"fmt"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"
)

// ErrDuplicateID marks a collection in which an id is used more than once.
var ErrDuplicateID = errors.New("duplicate id")

// DuplicateIDError names the first repeated id found by CheckUnique.
type DuplicateIDError struct {
	ID taskid.ID
}

func (e *DuplicateIDError) Error() string {
	if e.ID.IsSubtask() {
		return fmt.Sprintf("subtask id %s is used more than once", e.ID)
	}
	return fmt.Sprintf("task id %s is used more than once", e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// CheckUnique returns a *DuplicateIDError when two top-level tasks share an
// id or two subtasks of the same task share an id.
func CheckUnique(ts []Task) error {
	seen := make(map[int]bool, len(ts))
	for i := range ts {
		t := &ts[i]
		if seen[t.ID] {
			return &DuplicateIDError{ID: t.NodeID()}
		}
		seen[t.ID] = true

		subs := make(map[int]bool, len(t.Subtasks))
		for j := range t.Subtasks {
			s := &t.Subtasks[j]
			if subs[s.ID] {
				return &DuplicateIDError{ID: s.NodeID(t.ID)}
			}
			subs[s.ID] = true
		}
	}
	return nil
}

// EachNode calls fn for every task and then its subtasks, in collection
// order, with a pointer to the node's dependency list.
//
// Nodes are the ones lookups resolve to: when an id repeats, only its first
// occurrence is visited. A repeated task is skipped together with all of its
// subtasks, matching FindTask and FindSubtask.
func EachNode(ts []Task, fn func(n taskid.ID, status Status, deps *[]taskid.ID)) {
	seen := make(map[taskid.ID]bool, len(ts))
	for i := range ts {
		t := &ts[i]
		n := t.NodeID()
		if seen[n] {
			continue
		}
		seen[n] = true
		fn(n, t.Status, &t.Dependencies)

		for j := range t.Subtasks {
			s := &t.Subtasks[j]
			sn := s.NodeID(t.ID)
			if seen[sn] {
				continue
			}
			seen[sn] = true
			fn(sn, s.Status, &s.Dependencies)
		}
	}
}
