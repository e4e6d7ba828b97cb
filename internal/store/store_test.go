package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := openTestStore(t)
	if s.Path() != ":memory:" {
		t.Errorf("expected path :memory:, got %q", s.Path())
	}
}

func TestSchemaVersion(t *testing.T) {
	s := openTestStore(t)
	var version int
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil {
		t.Fatalf("querying schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestReopen(t *testing.T) {
	path := t.TempDir() + "/history.db"

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.RecordRun(&Run{Kind: KindValidate, TasksFile: "tasks.json", Valid: true}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s.Close()

	runs, err := s.ListRuns(nil)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run after reopen, got %d", len(runs))
	}
}

func TestRecordAndGetRun(t *testing.T) {
	s := openTestStore(t)

	run := &Run{
		Kind:       KindValidate,
		TasksFile:  "/repo/.taskmaster/tasks/tasks.json",
		IssueCount: 2,
		DurationMs: 12,
		Issues: []*RunIssue{
			{Kind: "self", TaskID: "1", DependencyID: "1", Message: "Task 1 depends on itself"},
			{Kind: "missing", TaskID: "2", DependencyID: "42", Message: "Task 2 depends on missing task 42"},
		},
	}
	if err := s.RecordRun(run); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if _, err := uuid.Parse(run.ID); err != nil {
		t.Errorf("expected UUID run id, got %q", run.ID)
	}
	if run.Tag != "master" {
		t.Errorf("expected default tag master, got %q", run.Tag)
	}
	if run.CreatedAt.IsZero() {
		t.Error("expected created_at to be filled")
	}

	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Valid || got.IssueCount != 2 || got.DurationMs != 12 {
		t.Errorf("unexpected run %+v", got)
	}
	if len(got.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(got.Issues))
	}
	if got.Issues[0].Kind != "self" || got.Issues[1].DependencyID != "42" {
		t.Errorf("unexpected issues %+v %+v", got.Issues[0], got.Issues[1])
	}

	byPrefix, err := s.GetRun(run.ID[:8])
	if err != nil {
		t.Fatalf("GetRun by prefix: %v", err)
	}
	if byPrefix.ID != run.ID {
		t.Errorf("expected prefix lookup to find %s, got %s", run.ID, byPrefix.ID)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []string{"", "nope"} {
		if _, err := s.GetRun(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetRun(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestRecordRun_RejectsUnknownKind(t *testing.T) {
	s := openTestStore(t)
	if err := s.RecordRun(&Run{Kind: "deploy", TasksFile: "tasks.json"}); err == nil {
		t.Error("expected check constraint failure")
	}
	runs, _ := s.ListRuns(nil)
	if len(runs) != 0 {
		t.Errorf("expected rollback, found %d runs", len(runs))
	}
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)

	records := []*Run{
		{Kind: KindValidate, TasksFile: "a.json", Valid: true},
		{Kind: KindRepair, TasksFile: "a.json", Changed: true, ChangeCount: 3},
		{Kind: KindValidate, TasksFile: "b.json"},
	}
	for _, r := range records {
		if err := s.RecordRun(r); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	tests := []struct {
		name  string
		query *RunQuery
		want  []string
	}{
		{"all newest first", nil, []string{records[2].ID, records[1].ID, records[0].ID}},
		{"by kind", &RunQuery{Kind: KindValidate}, []string{records[2].ID, records[0].ID}},
		{"by file", &RunQuery{TasksFile: "a.json"}, []string{records[1].ID, records[0].ID}},
		{"limit", &RunQuery{Limit: 1}, []string{records[2].ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.ListRuns(tt.query)
			if err != nil {
				t.Fatalf("ListRuns: %v", err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("expected %d runs, got %d", len(tt.want), len(runs))
			}
			for i, r := range runs {
				if r.ID != tt.want[i] {
					t.Errorf("run %d: expected %s, got %s", i, tt.want[i], r.ID)
				}
			}
		})
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)

	empty, err := s.Stats("")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if empty.Total != 0 || empty.AvgDurationMs != 0 {
		t.Errorf("expected zero stats, got %+v", empty)
	}

	runs := []*Run{
		{Kind: KindValidate, TasksFile: "t.json", Valid: true, DurationMs: 10},
		{Kind: KindValidate, TasksFile: "t.json", IssueCount: 4, DurationMs: 30},
		{Kind: KindRepair, TasksFile: "t.json", Valid: true, Changed: true, ChangeCount: 4, DurationMs: 20},
	}
	for _, r := range runs {
		if err := s.RecordRun(r); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.Stats("")
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 3 || all.Invalid != 1 || all.Changed != 1 || all.Issues != 4 || all.AvgDurationMs != 20 {
		t.Errorf("unexpected stats %+v", all)
	}

	validate, err := s.Stats(KindValidate)
	if err != nil {
		t.Fatal(err)
	}
	if validate.Total != 2 || validate.Changed != 0 {
		t.Errorf("unexpected validate stats %+v", validate)
	}
}

func TestDeleteRunsBefore(t *testing.T) {
	s := openTestStore(t)

	old := &Run{Kind: KindValidate, TasksFile: "t.json", Issues: []*RunIssue{{Kind: "self", TaskID: "1"}}}
	if err := s.RecordRun(old); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec("UPDATE runs SET created_at = '2020-01-01 00:00:00' WHERE id = ?", old.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordRun(&Run{Kind: KindValidate, TasksFile: "t.json"}); err != nil {
		t.Fatal(err)
	}

	n, err := s.DeleteRunsBefore(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteRunsBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned run, got %d", n)
	}

	issues, err := s.RunIssues(old.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 0 {
		t.Errorf("expected issues to cascade, got %d", len(issues))
	}
}
