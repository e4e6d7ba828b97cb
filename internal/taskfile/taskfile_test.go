package taskfile

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
)

const taggedDoc = `{
  "master": {
    "tasks": [
      {"id": 1, "title": "Setup", "description": "", "status": "done", "dependencies": [], "assignee": "sam"},
      {"id": 2, "title": "API", "description": "", "status": "pending", "dependencies": [1, 1],
       "subtasks": [{"id": 1, "title": "Routes", "description": "", "status": "pending", "dependencies": ["2.2"]},
                    {"id": 2, "title": "Models", "description": "", "status": "pending", "dependencies": []}]}
    ],
    "metadata": {"created": "2025-01-01T00:00:00Z"}
  },
  "feature-x": {"tasks": [{"id": 7, "title": "Other", "status": "pending", "dependencies": []}]}
}`

const legacyDoc = `{"tasks": [{"id": "1", "title": "Only", "status": "pending", "dependencies": []}]}`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readDoc(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("saved document is not JSON: %v", err)
	}
	return doc
}

func TestLoad_Tagged(t *testing.T) {
	path := writeDoc(t, taggedDoc)

	f, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Tag != DefaultTag || f.Legacy {
		t.Errorf("expected tagged master document, got tag %q legacy %v", f.Tag, f.Legacy)
	}
	if len(f.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(f.Tasks))
	}
	if got := f.Tasks[1].Subtasks[0].Dependencies; len(got) != 1 || got[0] != taskid.Composite(2, 2) {
		t.Errorf("expected subtask dependency 2.2, got %v", got)
	}

	tags := f.Tags()
	if len(tags) != 2 || tags[0] != "feature-x" || tags[1] != "master" {
		t.Errorf("unexpected tags %v", tags)
	}

	other, err := Load(path, "feature-x")
	if err != nil {
		t.Fatalf("Load feature-x: %v", err)
	}
	if len(other.Tasks) != 1 || other.Tasks[0].ID != 7 {
		t.Errorf("unexpected feature-x tasks %+v", other.Tasks)
	}
}

func TestLoad_Legacy(t *testing.T) {
	path := writeDoc(t, legacyDoc)

	f, err := Load(path, DefaultTag)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !f.Legacy {
		t.Error("expected legacy layout")
	}
	if len(f.Tasks) != 1 || f.Tasks[0].ID != 1 {
		t.Fatalf("unexpected tasks %+v", f.Tasks)
	}

	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	doc := readDoc(t, path)
	if _, ok := doc["master"]; !ok {
		t.Errorf("expected legacy document rewritten under master, got keys %v", doc)
	}
	if _, ok := doc["tasks"]; ok {
		t.Error("expected legacy tasks key to be gone")
	}
}

func TestLoad_LegacyOtherTag(t *testing.T) {
	path := writeDoc(t, legacyDoc)

	f, err := Load(path, "feature-y")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Tasks) != 0 {
		t.Errorf("expected empty new tag, got %+v", f.Tasks)
	}
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	master, err := Load(path, DefaultTag)
	if err != nil {
		t.Fatalf("Load master: %v", err)
	}
	if len(master.Tasks) != 1 {
		t.Errorf("expected legacy tasks kept under master, got %+v", master.Tasks)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.json"), ""); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}

	bad := writeDoc(t, `{"master": `)
	if _, err := Load(bad, ""); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_RejectsRepeatedIDs(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		tag  string
	}{
		{
			name: "tagged tasks",
			doc:  `{"master": {"tasks": [{"id": 1, "title": "A"}, {"id": "1", "title": "B"}]}}`,
		},
		{
			name: "tagged subtasks",
			doc: `{"master": {"tasks": [{"id": 3, "title": "A", "subtasks": [
				{"id": 1, "title": "x"}, {"id": 1, "title": "y"}]}]}}`,
		},
		{
			name: "legacy",
			doc:  `{"tasks": [{"id": 2, "title": "A"}, {"id": 2, "title": "B"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDoc(t, tt.doc)
			if _, err := Load(path, tt.tag); !errors.Is(err, tasks.ErrDuplicateID) {
				t.Errorf("Load: expected ErrDuplicateID, got %v", err)
			}

			called := false
			_, err := Update(path, tt.tag, func([]tasks.Task) (bool, error) {
				called = true
				return false, nil
			})
			if !errors.Is(err, tasks.ErrDuplicateID) {
				t.Errorf("Update: expected ErrDuplicateID, got %v", err)
			}
			if called {
				t.Error("Update must not run fn on a collection with repeated ids")
			}
		})
	}
}

func TestLoad_RepeatedIDsInOtherTag(t *testing.T) {
	path := writeDoc(t, `{
  "master": {"tasks": [{"id": 1, "title": "A"}]},
  "draft": {"tasks": [{"id": 5, "title": "A"}, {"id": 5, "title": "B"}]}
}`)

	f, err := Load(path, "master")
	if err != nil {
		t.Fatalf("only the selected tag is checked, got %v", err)
	}
	if len(f.Tasks) != 1 {
		t.Errorf("expected 1 task, got %d", len(f.Tasks))
	}
}

func TestSave_PreservesOtherTagsAndFields(t *testing.T) {
	path := writeDoc(t, taggedDoc)

	f, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f.Tasks[1].Dependencies = []taskid.ID{taskid.Plain(1)}
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	doc := readDoc(t, path)
	if _, ok := doc["feature-x"]; !ok {
		t.Error("expected feature-x tag to survive")
	}

	again, err := Load(path, "")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(again.Tasks[1].Dependencies) != 1 {
		t.Errorf("expected saved dependency edit, got %v", again.Tasks[1].Dependencies)
	}
	if string(again.Tasks[0].Extra["assignee"]) != `"sam"` {
		t.Errorf("expected unknown field preserved, got %v", again.Tasks[0].Extra)
	}
	if len(again.Metadata) == 0 {
		t.Error("expected metadata preserved")
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, fs.ErrNotExist) {
		t.Error("expected temp file to be renamed away")
	}
}

func TestSave_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tasks.json")

	f := New(path, "")
	f.Tasks = append(f.Tasks, tasks.Task{ID: 1, Title: "First", Status: tasks.StatusPending})
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists(path) {
		t.Fatal("expected tasks file to exist")
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Tasks) != 1 || loaded.Tasks[0].Title != "First" {
		t.Errorf("unexpected tasks %+v", loaded.Tasks)
	}
}

func TestUpdate(t *testing.T) {
	path := writeDoc(t, taggedDoc)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Update(path, "", func([]tasks.Task) (bool, error) { return false, nil }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("expected unchanged update to leave the file alone")
	}

	f, err := Update(path, "", func(ts []tasks.Task) (bool, error) {
		ts[0].Status = tasks.StatusReview
		return true, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if f.Tasks[0].Status != tasks.StatusReview {
		t.Errorf("expected returned file to carry the edit")
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Tasks[0].Status != tasks.StatusReview {
		t.Errorf("expected saved status review, got %q", loaded.Tasks[0].Status)
	}
}

func TestUpdate_Error(t *testing.T) {
	path := writeDoc(t, taggedDoc)
	boom := errors.New("boom")

	_, err := Update(path, "", func(ts []tasks.Task) (bool, error) {
		ts[0].Status = tasks.StatusCancelled
		return true, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	loaded, _ := Load(path, "")
	if loaded.Tasks[0].Status != tasks.StatusDone {
		t.Error("expected no write after callback error")
	}
}

func TestWriter(t *testing.T) {
	path := writeDoc(t, taggedDoc)
	f, err := Load(path, "")
	if err != nil {
		t.Fatal(err)
	}

	ts := f.Tasks[:1]
	if err := (Writer{File: f}).Persist(ts); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	loaded, _ := Load(path, "")
	if len(loaded.Tasks) != 1 {
		t.Errorf("expected persisted collection of 1, got %d", len(loaded.Tasks))
	}
}

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")

	a := NewFileLock(path)
	if err := a.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	b := NewFileLock(path)
	acquired := make(chan error, 1)
	go func() { acquired <- b.Lock() }()

	select {
	case err := <-acquired:
		t.Fatalf("second Lock returned while held: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	if err := a.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("Lock after release: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second Lock did not acquire after release")
	}

	if err := b.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := b.Unlock(); err != nil {
		t.Errorf("expected second Unlock to be a no-op, got %v", err)
	}
}
