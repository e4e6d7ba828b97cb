// Package tasks holds the task and subtask data model together with the
// read-only traversals over it: lookup by identifier, next-task selection and
// status counts.
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"
)

// Status represents the lifecycle state of a task or subtask.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusDeferred   Status = "deferred"
	StatusBlocked    Status = "blocked"
	StatusReview     Status = "review"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every recognized status in display order.
var Statuses = []Status{
	StatusPending, StatusInProgress, StatusReview, StatusBlocked,
	StatusDeferred, StatusDone, StatusCancelled,
}

// Valid reports whether s is a recognized status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsFinished reports whether no further work is expected.
func (s Status) IsFinished() bool {
	return s == StatusDone || s == StatusCancelled
}

// Priority orders eligible tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank maps high > medium > low; unrecognized priorities rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Task is a top-level unit of work. Its ID is unique among top-level tasks.
type Task struct {
	ID           int         `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Status       Status      `json:"status"`
	Dependencies []taskid.ID `json:"dependencies"`
	Priority     Priority    `json:"priority,omitempty"`
	Details      string      `json:"details,omitempty"`
	TestStrategy string      `json:"testStrategy,omitempty"`
	Subtasks     []Subtask   `json:"subtasks,omitempty"`

	// Extra keeps fields this package does not model so they survive a
	// load/save cycle.
	Extra map[string]json.RawMessage `json:"-"`
}

// Subtask is owned by exactly one Task; its ID is unique only within the parent.
type Subtask struct {
	ID           int         `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Status       Status      `json:"status"`
	Dependencies []taskid.ID `json:"dependencies"`
	Details      string      `json:"details,omitempty"`
	TestStrategy string      `json:"testStrategy,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// NodeID returns the graph identifier of the task.
func (t *Task) NodeID() taskid.ID {
	return taskid.Plain(t.ID)
}

// NodeID returns the graph identifier of the subtask under parent.
func (s *Subtask) NodeID(parent int) taskid.ID {
	return taskid.Composite(parent, s.ID)
}

// HasSubtasks reports whether the task owns at least one subtask.
func (t *Task) HasSubtasks() bool {
	return len(t.Subtasks) > 0
}

var (
	taskFields    = []string{"id", "title", "description", "status", "dependencies", "priority", "details", "testStrategy", "subtasks"}
	subtaskFields = []string{"id", "title", "description", "status", "dependencies", "details", "testStrategy"}
)

// UnmarshalJSON accepts the id as a number or a numeric string.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		ID json.RawMessage `json:"id"`
		*plain
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decoding task: %w", err)
	}

	id, err := decodeNumber(aux.ID)
	if err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	t.ID = id

	extra, err := unknownFields(data, taskFields)
	if err != nil {
		return err
	}
	t.Extra = extra
	return nil
}

// MarshalJSON always writes a dependencies array and re-emits unknown fields.
func (t Task) MarshalJSON() ([]byte, error) {
	type plain Task
	p := plain(t)
	if p.Dependencies == nil {
		p.Dependencies = []taskid.ID{}
	}
	return withExtra(p, t.Extra)
}

// UnmarshalJSON accepts the id as a number or a numeric string.
func (s *Subtask) UnmarshalJSON(data []byte) error {
	type plain Subtask
	aux := struct {
		ID json.RawMessage `json:"id"`
		*plain
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decoding subtask: %w", err)
	}

	id, err := decodeNumber(aux.ID)
	if err != nil {
		return fmt.Errorf("subtask id: %w", err)
	}
	s.ID = id

	extra, err := unknownFields(data, subtaskFields)
	if err != nil {
		return err
	}
	s.Extra = extra
	return nil
}

// MarshalJSON always writes a dependencies array and re-emits unknown fields.
func (s Subtask) MarshalJSON() ([]byte, error) {
	type plain Subtask
	p := plain(s)
	if p.Dependencies == nil {
		p.Dependencies = []taskid.ID{}
	}
	return withExtra(p, s.Extra)
}

func decodeNumber(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing id: %w", taskid.ErrMalformed)
	}
	v, err := taskid.DecodeRaw(raw)
	if err != nil {
		return 0, err
	}
	return taskid.ParseNumber(v)
}

func unknownFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	for _, k := range known {
		delete(fields, k)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

func withExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, taken := fields[k]; !taken {
			fields[k] = raw
		}
	}
	return json.Marshal(fields)
}
