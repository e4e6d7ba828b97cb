package depgraph

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
)

// Persister writes a repaired collection back to wherever it came from.
type Persister interface {
	Persist(ts []tasks.Task) error
}

// ChangeKind names the repair pass that removed an edge.
type ChangeKind string

const (
	ChangeDuplicate   ChangeKind = "duplicate"
	ChangeSelf        ChangeKind = "self"
	ChangeMissing     ChangeKind = "missing"
	ChangeCycle       ChangeKind = "cycle"
	ChangeIndependent ChangeKind = "independent"
)

// Change records one dependency edge removed by Repair.
type Change struct {
	Kind       ChangeKind `json:"kind"`
	Node       taskid.ID  `json:"node"`
	Dependency taskid.ID  `json:"dependency"`
}

// Report summarizes a repair run.
type Report struct {
	Changed           bool     `json:"changed"`
	DuplicatesRemoved int      `json:"duplicatesRemoved"`
	SelfRemoved       int      `json:"selfRemoved"`
	MissingRemoved    int      `json:"missingRemoved"`
	CyclesBroken      int      `json:"cyclesBroken"`
	SubtasksFreed     int      `json:"subtasksFreed"`
	Changes           []Change `json:"changes,omitempty"`
}

func (r *Report) record(kind ChangeKind, n, dep taskid.ID) {
	r.Changes = append(r.Changes, Change{Kind: kind, Node: n, Dependency: dep})
	r.Changed = true
}

// Repairer removes invalid dependency edges in place.
type Repairer struct {
	logger    *slog.Logger
	persister Persister
}

// RepairOption configures a Repairer.
type RepairOption func(*Repairer)

// WithLogger sets the logger used to report each removed edge.
func WithLogger(l *slog.Logger) RepairOption {
	return func(r *Repairer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPersister sets the collaborator called once after a run that changed
// something.
func WithPersister(p Persister) RepairOption {
	return func(r *Repairer) { r.persister = p }
}

// NewRepairer creates a Repairer. Without WithLogger it logs nowhere.
func NewRepairer(opts ...RepairOption) *Repairer {
	r := &Repairer{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Repair runs, in order: duplicate removal, self and missing edge removal,
// cycle breaking, and the independent-subtask guarantee. Each pass is safe to
// re-run, so a second Repair on the result reports no change.
//
// Cycle breaking is greedy: for each cycle found it drops the edge that closed
// the cycle and rescans. The result is acyclic but not necessarily the
// smallest possible edit.
//
// An empty collection is a no-op. The only error source is the Persister.
func (r *Repairer) Repair(ts []tasks.Task) (*Report, error) {
	report := &Report{}
	if len(ts) == 0 {
		return report, nil
	}

	r.removeInvalid(ts, report)
	r.breakCycles(ts, report)
	r.ensureIndependentSubtasks(ts, report)

	r.logger.Info("dependency repair finished",
		"changed", report.Changed,
		"duplicates", report.DuplicatesRemoved,
		"self", report.SelfRemoved,
		"missing", report.MissingRemoved,
		"cycles", report.CyclesBroken,
		"subtasks_freed", report.SubtasksFreed,
	)

	if report.Changed && r.persister != nil {
		if err := r.persister.Persist(ts); err != nil {
			return report, fmt.Errorf("persisting repaired tasks: %w", err)
		}
	}
	return report, nil
}

// Repair is NewRepairer().Repair without logging or persistence. It reports
// whether ts was modified.
func Repair(ts []tasks.Task) bool {
	report, _ := NewRepairer().Repair(ts)
	return report.Changed
}

func (r *Repairer) removeInvalid(ts []tasks.Task, report *Report) {
	nodes := tasks.Nodes(ts)

	eachNode(ts, func(n taskid.ID, deps *[]taskid.ID) {
		unique, dups := dedupe(*deps)
		valid, selfs, missing := dropInvalid(n, unique, nodes)
		if len(dups)+len(selfs)+len(missing) == 0 {
			return
		}
		*deps = valid

		for _, dep := range dups {
			report.DuplicatesRemoved++
			report.record(ChangeDuplicate, n, dep)
			r.logger.Debug("removed duplicate dependency", "node", n.String(), "dependency", dep.String())
		}
		for _, dep := range selfs {
			report.SelfRemoved++
			report.record(ChangeSelf, n, dep)
			r.logger.Debug("removed self dependency", "node", n.String())
		}
		for _, dep := range missing {
			report.MissingRemoved++
			report.record(ChangeMissing, n, dep)
			r.logger.Debug("removed missing dependency", "node", n.String(), "dependency", dep.String())
		}
	})
}

func (r *Repairer) breakCycles(ts []tasks.Task, report *Report) {
	for {
		cycle := FindCycle(EdgesOf(ts))
		if cycle == nil {
			return
		}
		from, to := cycle[len(cycle)-2], cycle[len(cycle)-1]
		deps := dependencyList(ts, from)
		if deps == nil {
			r.logger.Warn("cycle edge has no owning node", "node", from.String(), "cycle", formatPath(cycle))
			return
		}
		pruned := without(*deps, to)
		if len(pruned) == len(*deps) {
			// The edge map and the edited list disagree; rescanning would find
			// the same cycle forever.
			r.logger.Warn("could not remove cycle edge", "node", from.String(), "dependency", to.String())
			return
		}
		*deps = pruned

		report.CyclesBroken++
		report.record(ChangeCycle, from, to)
		r.logger.Debug("broke dependency cycle", "node", from.String(), "dependency", to.String(), "cycle", formatPath(cycle))
	}
}

func (r *Repairer) ensureIndependentSubtasks(ts []tasks.Task, report *Report) {
	for i := range ts {
		t := &ts[i]
		if !t.HasSubtasks() || hasIndependentSubtask(t) {
			continue
		}

		first := &t.Subtasks[0]
		n := first.NodeID(t.ID)
		for _, dep := range first.Dependencies {
			report.record(ChangeIndependent, n, dep)
		}
		first.Dependencies = []taskid.ID{}
		report.SubtasksFreed++
		r.logger.Debug("cleared dependencies of first subtask", "node", n.String())
	}
}

func hasIndependentSubtask(t *tasks.Task) bool {
	for _, s := range t.Subtasks {
		if len(s.Dependencies) == 0 {
			return true
		}
	}
	return false
}

// dedupe keeps the first occurrence of each dependency.
func dedupe(deps []taskid.ID) (unique, dropped []taskid.ID) {
	seen := make(map[taskid.ID]bool, len(deps))
	unique = make([]taskid.ID, 0, len(deps))
	for _, dep := range deps {
		if seen[dep] {
			dropped = append(dropped, dep)
			continue
		}
		seen[dep] = true
		unique = append(unique, dep)
	}
	return unique, dropped
}

// dropInvalid removes self edges and edges to nodes that do not exist.
func dropInvalid(n taskid.ID, deps []taskid.ID, nodes map[taskid.ID]tasks.Status) (valid, selfs, missing []taskid.ID) {
	valid = make([]taskid.ID, 0, len(deps))
	for _, dep := range deps {
		if dep == n {
			selfs = append(selfs, dep)
			continue
		}
		if _, ok := nodes[dep]; !ok {
			missing = append(missing, dep)
			continue
		}
		valid = append(valid, dep)
	}
	return valid, selfs, missing
}

// without returns deps minus every occurrence of target.
func without(deps []taskid.ID, target taskid.ID) []taskid.ID {
	out := make([]taskid.ID, 0, len(deps))
	for _, dep := range deps {
		if dep != target {
			out = append(out, dep)
		}
	}
	return out
}

func formatPath(path []taskid.ID) string {
	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = n.String()
	}
	return strings.Join(parts, " -> ")
}
