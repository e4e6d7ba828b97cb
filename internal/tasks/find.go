package tasks

import "github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"

// ParentRef is lookup metadata attached to a subtask match. It is a copy and
// never used to reach back into the parent.
type ParentRef struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Status Status `json:"status"`
}

// Match is the result of a successful lookup. Exactly one of Task and Subtask
// is set; both point at shallow copies owned by the Match.
type Match struct {
	Task    *Task      `json:"task,omitempty"`
	Subtask *Subtask   `json:"subtask,omitempty"`
	Parent  *ParentRef `json:"parentTask,omitempty"`

	// ComplexityScore is set when a complexity map was supplied and holds an
	// entry for the resolved top-level task.
	ComplexityScore *float64 `json:"complexityScore,omitempty"`

	// OriginalSubtaskCount is set only when subtasks were filtered by status.
	OriginalSubtaskCount *int `json:"originalSubtaskCount,omitempty"`
}

// IsSubtask reports whether the match is a subtask.
func (m *Match) IsSubtask() bool {
	return m.Subtask != nil
}

// ID returns the identifier of the matched node.
func (m *Match) ID() taskid.ID {
	if m.Subtask != nil {
		return m.Subtask.NodeID(m.Parent.ID)
	}
	return m.Task.NodeID()
}

// Title returns the matched node's title.
func (m *Match) Title() string {
	if m.Subtask != nil {
		return m.Subtask.Title
	}
	return m.Task.Title
}

// Status returns the matched node's status.
func (m *Match) Status() Status {
	if m.Subtask != nil {
		return m.Subtask.Status
	}
	return m.Task.Status
}

// Dependencies returns the matched node's dependency list.
func (m *Match) Dependencies() []taskid.ID {
	if m.Subtask != nil {
		return m.Subtask.Dependencies
	}
	return m.Task.Dependencies
}

type findConfig struct {
	scores   map[int]float64
	statuses []Status
}

// FindOption configures Find.
type FindOption func(*findConfig)

// WithComplexity enriches matches with scores keyed by top-level task id.
// A nil map is the same as no map.
func WithComplexity(scores map[int]float64) FindOption {
	return func(c *findConfig) { c.scores = scores }
}

// WithSubtaskStatus keeps only subtasks in one of the given statuses when a
// top-level task is matched.
func WithSubtaskStatus(statuses ...Status) FindOption {
	return func(c *findConfig) { c.statuses = statuses }
}

// Find resolves id against ts. Absence, at any level, is reported as nil.
func Find(ts []Task, id taskid.ID, opts ...FindOption) *Match {
	var cfg findConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	parent := FindTask(ts, id.Task())
	if parent == nil {
		return nil
	}

	var m *Match
	if id.IsSubtask() {
		sub := findSubtask(parent, id.Sub())
		if sub == nil {
			return nil
		}
		cp := *sub
		m = &Match{
			Subtask: &cp,
			Parent:  &ParentRef{ID: parent.ID, Title: parent.Title, Status: parent.Status},
		}
	} else {
		cp := *parent
		m = &Match{Task: &cp}
		if len(cfg.statuses) > 0 && cp.HasSubtasks() {
			original := len(cp.Subtasks)
			cp.Subtasks = filterSubtasks(cp.Subtasks, cfg.statuses)
			m.OriginalSubtaskCount = &original
		}
	}

	if score, ok := cfg.scores[parent.ID]; ok {
		m.ComplexityScore = &score
	}
	return m
}

// FindTask returns a pointer into ts for the task with the given id, or nil.
func FindTask(ts []Task, id int) *Task {
	for i := range ts {
		if ts[i].ID == id {
			return &ts[i]
		}
	}
	return nil
}

// FindSubtask returns a pointer into ts for the subtask addressed by a
// composite id, or nil.
func FindSubtask(ts []Task, id taskid.ID) *Subtask {
	if !id.IsSubtask() {
		return nil
	}
	parent := FindTask(ts, id.Task())
	if parent == nil {
		return nil
	}
	return findSubtask(parent, id.Sub())
}

// Exists reports whether id resolves to a task or subtask.
func Exists(ts []Task, id taskid.ID) bool {
	if id.IsSubtask() {
		return FindSubtask(ts, id) != nil
	}
	return FindTask(ts, id.Task()) != nil
}

func findSubtask(parent *Task, id int) *Subtask {
	for i := range parent.Subtasks {
		if parent.Subtasks[i].ID == id {
			return &parent.Subtasks[i]
		}
	}
	return nil
}

func filterSubtasks(subs []Subtask, statuses []Status) []Subtask {
	out := make([]Subtask, 0, len(subs))
	for _, s := range subs {
		for _, want := range statuses {
			if s.Status == want {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Nodes indexes every task and subtask by graph identifier. A repeated id
// keeps the status of its first occurrence.
func Nodes(ts []Task) map[taskid.ID]Status {
	nodes := make(map[taskid.ID]Status, len(ts))
	EachNode(ts, func(n taskid.ID, status Status, _ *[]taskid.ID) {
		nodes[n] = status
	})
	return nodes
}
