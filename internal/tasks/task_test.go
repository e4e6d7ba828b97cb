package tasks

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"
)

func TestTaskUnmarshal_LenientIDs(t *testing.T) {
	data := `{
		"id": "3",
		"title": "Build header",
		"status": "pending",
		"priority": "high",
		"dependencies": [1, "2"],
		"complexity": 7,
		"subtasks": [
			{"id": 1, "title": "Create Header Component", "status": "done", "dependencies": []},
			{"id": "2", "title": "Style header", "status": "pending", "dependencies": ["3.1"]}
		]
	}`

	var task Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if task.ID != 3 {
		t.Errorf("expected id 3, got %d", task.ID)
	}
	if len(task.Dependencies) != 2 || task.Dependencies[1] != taskid.Plain(2) {
		t.Errorf("unexpected dependencies %v", task.Dependencies)
	}
	if len(task.Subtasks) != 2 || task.Subtasks[1].ID != 2 {
		t.Fatalf("unexpected subtasks %+v", task.Subtasks)
	}
	if task.Subtasks[1].Dependencies[0] != taskid.Composite(3, 1) {
		t.Errorf("expected composite dependency 3.1, got %v", task.Subtasks[1].Dependencies[0])
	}
	if _, ok := task.Extra["complexity"]; !ok {
		t.Error("expected unknown field to be kept in Extra")
	}
}

func TestTaskUnmarshal_BadID(t *testing.T) {
	tests := []string{
		`{"title": "no id"}`,
		`{"id": "abc"}`,
		`{"id": "1.2"}`,
	}
	for _, data := range tests {
		var task Task
		if err := json.Unmarshal([]byte(data), &task); err == nil {
			t.Errorf("expected error for %s", data)
		}
	}
}

func TestTaskMarshal(t *testing.T) {
	task := Task{
		ID:     1,
		Title:  "Setup",
		Status: StatusPending,
		Extra:  map[string]json.RawMessage{"updatedAt": json.RawMessage(`"2025-01-01"`)},
		Subtasks: []Subtask{
			{ID: 1, Title: "Init", Status: StatusPending, Dependencies: []taskid.ID{taskid.Composite(1, 2)}},
		},
	}

	out, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `"dependencies":[]`) {
		t.Errorf("expected empty dependencies array, got %s", s)
	}
	if !strings.Contains(s, `"dependencies":["1.2"]`) {
		t.Errorf("expected composite dependency as string, got %s", s)
	}
	if !strings.Contains(s, `"updatedAt":"2025-01-01"`) {
		t.Errorf("expected extra field to be written back, got %s", s)
	}

	var back Task
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Subtasks[0].Dependencies[0] != taskid.Composite(1, 2) {
		t.Errorf("unexpected dependency after round trip: %v", back.Subtasks[0].Dependencies)
	}
}

func TestStatusAndPriority(t *testing.T) {
	if !StatusReview.Valid() || Status("started").Valid() {
		t.Error("unexpected Status.Valid result")
	}
	if !StatusCancelled.IsFinished() || StatusBlocked.IsFinished() {
		t.Error("unexpected Status.IsFinished result")
	}
	if !(PriorityHigh.Rank() > PriorityMedium.Rank() && PriorityMedium.Rank() > PriorityLow.Rank()) {
		t.Error("expected high > medium > low")
	}
	if Priority("urgent").Rank() >= PriorityLow.Rank() {
		t.Error("expected unknown priority to rank lowest")
	}
}

func TestStats(t *testing.T) {
	ts := []Task{
		{ID: 1, Status: StatusDone},
		{ID: 2, Status: StatusPending, Subtasks: []Subtask{
			{ID: 1, Status: StatusDone},
			{ID: 2, Status: StatusPending},
		}},
		{ID: 3, Status: StatusCancelled},
		{ID: 4, Status: StatusInProgress},
	}

	c := Stats(ts)
	if c.Total != 4 {
		t.Errorf("expected total 4, got %d", c.Total)
	}
	if c.Done() != 2 {
		t.Errorf("expected 2 done, got %d", c.Done())
	}
	if c.Progress() != 50.0 {
		t.Errorf("expected 50%% progress, got %.1f", c.Progress())
	}
	if c.Subtasks != 2 || c.SubtaskProgress() != 50.0 {
		t.Errorf("unexpected subtask counts: %d, %.1f", c.Subtasks, c.SubtaskProgress())
	}
	if c.IsComplete() {
		t.Error("expected not complete")
	}

	empty := Stats(nil)
	if empty.Progress() != 100.0 || empty.IsComplete() {
		t.Errorf("unexpected empty stats: %.1f %v", empty.Progress(), empty.IsComplete())
	}
}
