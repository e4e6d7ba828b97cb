package tasks

import "github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"

// NextTask returns the best pending task whose dependencies are all done:
// highest priority first, lowest id on ties. It returns nil when every task
// is finished or blocked. Missing dependency targets block the task.
func NextTask(ts []Task) *Task {
	nodes := Nodes(ts)

	var best *Task
	for i := range ts {
		t := &ts[i]
		if t.Status != StatusPending || !satisfied(t.Dependencies, nodes) {
			continue
		}
		if best == nil || outranks(t.Priority, t.ID, 0, best.Priority, best.ID, 0) {
			best = t
		}
	}
	return best
}

// NextAction prefers a ready subtask of a task already in progress, so work on
// a started task is finished first. Subtasks inherit their parent's priority.
// It falls back to NextTask.
func NextAction(ts []Task) *Match {
	nodes := Nodes(ts)

	var (
		bestParent *Task
		bestSub    *Subtask
	)
	for i := range ts {
		p := &ts[i]
		if p.Status != StatusInProgress {
			continue
		}
		for j := range p.Subtasks {
			s := &p.Subtasks[j]
			if s.Status != StatusPending || !satisfied(s.Dependencies, nodes) {
				continue
			}
			if bestSub == nil || outranks(p.Priority, p.ID, s.ID, bestParent.Priority, bestParent.ID, bestSub.ID) {
				bestParent, bestSub = p, s
			}
		}
	}

	if bestSub != nil {
		sub := *bestSub
		return &Match{
			Subtask: &sub,
			Parent:  &ParentRef{ID: bestParent.ID, Title: bestParent.Title, Status: bestParent.Status},
		}
	}

	if t := NextTask(ts); t != nil {
		cp := *t
		return &Match{Task: &cp}
	}
	return nil
}

func satisfied(deps []taskid.ID, nodes map[taskid.ID]Status) bool {
	for _, dep := range deps {
		status, ok := nodes[dep]
		if !ok || status != StatusDone {
			return false
		}
	}
	return true
}

func outranks(p Priority, id, sub int, bestP Priority, bestID, bestSub int) bool {
	if p.Rank() != bestP.Rank() {
		return p.Rank() > bestP.Rank()
	}
	if id != bestID {
		return id < bestID
	}
	return sub < bestSub
}
