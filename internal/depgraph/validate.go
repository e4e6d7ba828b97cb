package depgraph

import (
	"fmt"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
)

// IssueType classifies a dependency problem.
type IssueType string

const (
	IssueMissing   IssueType = "missing"
	IssueSelf      IssueType = "self"
	IssueCircular  IssueType = "circular"
	IssueDuplicate IssueType = "duplicate"
)

// Issue is a single dependency problem found by Validate.
type Issue struct {
	Type         IssueType  `json:"type"`
	TaskID       taskid.ID  `json:"taskId"`
	DependencyID *taskid.ID `json:"dependencyId,omitempty"`
	Message      string     `json:"message"`
}

func (i Issue) String() string {
	return i.Message
}

// Result is the outcome of Validate. Valid is true iff Issues is empty.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Count returns the number of issues of type t.
func (r Result) Count(t IssueType) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Type == t {
			n++
		}
	}
	return n
}

// Validate reports self, missing, duplicate and circular dependencies across
// all tasks and subtasks. It never modifies ts.
//
// A plain id in a subtask's dependency list refers to a top-level task, never
// to a sibling subtask.
func Validate(ts []tasks.Task) Result {
	nodes := tasks.Nodes(ts)
	resolvable := make(Edges, len(nodes))
	var issues []Issue

	eachNode(ts, func(n taskid.ID, deps *[]taskid.ID) {
		seen := make(map[taskid.ID]bool, len(*deps))
		var kept []taskid.ID
		for _, dep := range *deps {
			if seen[dep] {
				issues = append(issues, newIssue(IssueDuplicate, n, dep,
					fmt.Sprintf("%s lists dependency %s more than once", label(n), dep)))
				continue
			}
			seen[dep] = true

			switch _, exists := nodes[dep]; {
			case dep == n:
				issues = append(issues, newIssue(IssueSelf, n, dep,
					fmt.Sprintf("%s depends on itself", label(n))))
			case !exists:
				issues = append(issues, newIssue(IssueMissing, n, dep,
					fmt.Sprintf("%s depends on missing %s", label(n), noun(dep))))
			default:
				kept = append(kept, dep)
			}
		}
		resolvable[n] = kept
	})

	if cycle := FindCycle(resolvable); cycle != nil {
		for i := 0; i < len(cycle)-1; i++ {
			issues = append(issues, newIssue(IssueCircular, cycle[i], cycle[i+1],
				fmt.Sprintf("%s is part of a dependency cycle through %s", label(cycle[i]), cycle[i+1])))
		}
	}

	return Result{Valid: len(issues) == 0, Issues: issues}
}

func newIssue(t IssueType, n, dep taskid.ID, msg string) Issue {
	return Issue{Type: t, TaskID: n, DependencyID: &dep, Message: msg}
}

// eachNode calls fn for every task and then its subtasks, in collection
// order, with a pointer to the node's dependency list. Repeated ids are
// visited once.
func eachNode(ts []tasks.Task, fn func(n taskid.ID, deps *[]taskid.ID)) {
	tasks.EachNode(ts, func(n taskid.ID, _ tasks.Status, deps *[]taskid.ID) {
		fn(n, deps)
	})
}

// dependencyList returns a pointer to the dependency list of n, or nil when n
// does not exist.
func dependencyList(ts []tasks.Task, n taskid.ID) *[]taskid.ID {
	if n.IsSubtask() {
		if s := tasks.FindSubtask(ts, n); s != nil {
			return &s.Dependencies
		}
		return nil
	}
	if t := tasks.FindTask(ts, n.Task()); t != nil {
		return &t.Dependencies
	}
	return nil
}

func label(n taskid.ID) string {
	if n.IsSubtask() {
		return "Subtask " + n.String()
	}
	return "Task " + n.String()
}

func noun(n taskid.ID) string {
	if n.IsSubtask() {
		return "subtask " + n.String()
	}
	return "task " + n.String()
}
