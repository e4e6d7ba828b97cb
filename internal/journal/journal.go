// Package journal records validation and repair runs and renders them as a
// markdown history.
package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/depgraph"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/store"
)

// Journal is a thin wrapper over store for recording dependency runs.
type Journal struct {
	store *store.Store
}

// New creates a journal backed by s.
func New(s *store.Store) *Journal {
	return &Journal{store: s}
}

// RecordValidation stores the outcome of a validation run.
func (j *Journal) RecordValidation(file, tag string, res depgraph.Result, d time.Duration) (*store.Run, error) {
	run := &store.Run{
		Kind:       store.KindValidate,
		TasksFile:  file,
		Tag:        tag,
		Valid:      res.Valid,
		IssueCount: len(res.Issues),
		DurationMs: d.Milliseconds(),
	}
	for _, issue := range res.Issues {
		ri := &store.RunIssue{
			Kind:    string(issue.Type),
			TaskID:  issue.TaskID.String(),
			Message: issue.Message,
		}
		if issue.DependencyID != nil {
			ri.DependencyID = issue.DependencyID.String()
		}
		run.Issues = append(run.Issues, ri)
	}

	if err := j.store.RecordRun(run); err != nil {
		return nil, fmt.Errorf("recording validation: %w", err)
	}
	return run, nil
}

// RecordRepair stores the outcome of a repair run. A repaired graph is always
// valid afterwards.
func (j *Journal) RecordRepair(file, tag string, report *depgraph.Report, d time.Duration) (*store.Run, error) {
	run := &store.Run{
		Kind:        store.KindRepair,
		TasksFile:   file,
		Tag:         tag,
		Valid:       true,
		Changed:     report.Changed,
		ChangeCount: len(report.Changes),
		DurationMs:  d.Milliseconds(),
	}
	for _, c := range report.Changes {
		run.Issues = append(run.Issues, &store.RunIssue{
			Kind:         string(c.Kind),
			TaskID:       c.Node.String(),
			DependencyID: c.Dependency.String(),
			Message:      DescribeChange(c),
		})
	}

	if err := j.store.RecordRun(run); err != nil {
		return nil, fmt.Errorf("recording repair: %w", err)
	}
	return run, nil
}

// Recent returns the newest runs, at most limit (all when limit <= 0).
func (j *Journal) Recent(limit int) ([]*store.Run, error) {
	return j.store.ListRuns(&store.RunQuery{Limit: limit})
}

// Runs returns runs matching q, newest first.
func (j *Journal) Runs(q *store.RunQuery) ([]*store.Run, error) {
	return j.store.ListRuns(q)
}

// Run returns a single run with its issues.
func (j *Journal) Run(id string) (*store.Run, error) {
	return j.store.GetRun(id)
}

// Stats aggregates recorded runs of kind, or all runs when kind is empty.
func (j *Journal) Stats(kind string) (*store.RunStats, error) {
	return j.store.Stats(kind)
}

// Prune deletes runs recorded before cutoff.
func (j *Journal) Prune(cutoff time.Time) (int64, error) {
	return j.store.DeleteRunsBefore(cutoff)
}

// ExportMarkdown renders every run matching q, oldest first.
func (j *Journal) ExportMarkdown(q *store.RunQuery) (string, error) {
	runs, err := j.store.ListRuns(q)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("# Dependency History\n\n")
	if len(runs) == 0 {
		sb.WriteString("_No runs recorded._\n")
		return sb.String(), nil
	}

	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		issues, err := j.store.RunIssues(run.ID)
		if err != nil {
			return "", err
		}
		run.Issues = issues
		sb.WriteString(RenderRun(run))
		sb.WriteString("\n---\n\n")
	}
	return sb.String(), nil
}

// DescribeChange phrases a repair change for humans.
func DescribeChange(c depgraph.Change) string {
	switch c.Kind {
	case depgraph.ChangeDuplicate:
		return fmt.Sprintf("Removed duplicate dependency %s from %s", c.Dependency, c.Node)
	case depgraph.ChangeSelf:
		return fmt.Sprintf("Removed self-dependency from %s", c.Node)
	case depgraph.ChangeMissing:
		return fmt.Sprintf("Removed missing dependency %s from %s", c.Dependency, c.Node)
	case depgraph.ChangeCycle:
		return fmt.Sprintf("Broke cycle by removing %s -> %s", c.Node, c.Dependency)
	case depgraph.ChangeIndependent:
		return fmt.Sprintf("Cleared dependency %s from %s so a subtask can start", c.Dependency, c.Node)
	}
	return fmt.Sprintf("Removed dependency %s from %s", c.Dependency, c.Node)
}

// RenderRun formats a single run as markdown.
func RenderRun(r *store.Run) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s %s: %s\n", titleKind(r.Kind), shortID(r.ID), outcome(r))
	fmt.Fprintf(&sb, "**%s | %s | tag %s | %dms**\n\n",
		r.CreatedAt.Format("2006-01-02 15:04"), r.TasksFile, r.Tag, r.DurationMs)

	for _, issue := range r.Issues {
		fmt.Fprintf(&sb, "- `%s` %s\n", issue.Kind, issue.Message)
	}
	if len(r.Issues) > 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}

func outcome(r *store.Run) string {
	switch {
	case r.Kind == store.KindRepair && r.Changed:
		return fmt.Sprintf("%d change(s)", r.ChangeCount)
	case r.Kind == store.KindRepair:
		return "no changes"
	case r.Valid:
		return "valid"
	}
	return fmt.Sprintf("%d issue(s)", r.IssueCount)
}

func titleKind(kind string) string {
	switch kind {
	case store.KindValidate:
		return "Validation"
	case store.KindRepair:
		return "Repair"
	}
	return kind
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
