// Package store provides SQLite-based persistence for validation and repair history.
package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Run kinds.
const (
	KindValidate = "validate"
	KindRepair   = "repair"
)

// Store is the SQLite-backed run history.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a SQLite database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&name)

	if err == sql.ErrNoRows {
		if _, err := s.db.Exec(schemaSQL); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
		_, err = s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion)
		return err
	}
	if err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}

	var version int
	if err := s.db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version < currentSchemaVersion {
		return fmt.Errorf("schema version %d is older than %d and has no migration", version, currentSchemaVersion)
	}
	return nil
}

// --- Runs ---

// Run is one recorded validate or repair invocation.
type Run struct {
	ID          string      `json:"id"`
	Kind        string      `json:"kind"`
	TasksFile   string      `json:"tasksFile"`
	Tag         string      `json:"tag"`
	Valid       bool        `json:"valid"`
	Changed     bool        `json:"changed"`
	IssueCount  int         `json:"issueCount"`
	ChangeCount int         `json:"changeCount"`
	DurationMs  int64       `json:"durationMs"`
	CreatedAt   time.Time   `json:"createdAt"`
	Issues      []*RunIssue `json:"issues,omitempty"`
}

// RunIssue is a validation issue or repair change attached to a run.
type RunIssue struct {
	ID           int64  `json:"id"`
	RunID        string `json:"runId"`
	Kind         string `json:"kind"`
	TaskID       string `json:"taskId"`
	DependencyID string `json:"dependencyId,omitempty"`
	Message      string `json:"message,omitempty"`
}

// RecordRun inserts r and its issues in one transaction. An empty ID is
// replaced with a new UUID.
func (s *Store) RecordRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Tag == "" {
		r.Tag = "master"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, kind, tasks_file, tag, valid, changed, issue_count, change_count, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.TasksFile, r.Tag, r.Valid, r.Changed, r.IssueCount, r.ChangeCount, r.DurationMs,
	); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	for _, issue := range r.Issues {
		issue.RunID = r.ID
		result, err := tx.Exec(
			"INSERT INTO run_issues (run_id, kind, task_id, dependency_id, message) VALUES (?, ?, ?, ?, ?)",
			issue.RunID, issue.Kind, issue.TaskID, issue.DependencyID, issue.Message,
		)
		if err != nil {
			return fmt.Errorf("recording run issue: %w", err)
		}
		issue.ID, _ = result.LastInsertId()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}

	return s.db.QueryRow("SELECT created_at FROM runs WHERE id = ?", r.ID).Scan(&r.CreatedAt)
}

const runColumns = "id, kind, tasks_file, tag, valid, changed, issue_count, change_count, duration_ms, created_at"

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	r := &Run{}
	err := row.Scan(&r.ID, &r.Kind, &r.TasksFile, &r.Tag, &r.Valid, &r.Changed,
		&r.IssueCount, &r.ChangeCount, &r.DurationMs, &r.CreatedAt)
	return r, err
}

// GetRun returns a run and its issues. id may be a unique prefix.
func (s *Store) GetRun(id string) (*Run, error) {
	rows, err := s.db.Query(
		"SELECT "+runColumns+" FROM runs WHERE id = ? OR id LIKE ? || '%' ORDER BY id = ? DESC LIMIT 2",
		id, id, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	switch {
	case len(found) == 0 || id == "":
		return nil, fmt.Errorf("run %q: %w", id, ErrNotFound)
	case len(found) > 1 && found[0].ID != id:
		return nil, fmt.Errorf("run prefix %q is ambiguous", id)
	}

	r := found[0]
	r.Issues, err = s.RunIssues(r.ID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RunQuery specifies filters for listing runs.
type RunQuery struct {
	Kind      string
	TasksFile string
	Limit     int
}

// ListRuns returns runs newest first. Issues are not loaded.
func (s *Store) ListRuns(opts *RunQuery) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE 1=1"
	var args []any

	if opts != nil {
		if opts.Kind != "" {
			query += " AND kind = ?"
			args = append(args, opts.Kind)
		}
		if opts.TasksFile != "" {
			query += " AND tasks_file = ?"
			args = append(args, opts.TasksFile)
		}
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if opts != nil && opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunIssues returns the issues recorded for a run in insertion order.
func (s *Store) RunIssues(runID string) ([]*RunIssue, error) {
	rows, err := s.db.Query(
		"SELECT id, run_id, kind, task_id, dependency_id, message FROM run_issues WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing run issues: %w", err)
	}
	defer rows.Close()

	var issues []*RunIssue
	for rows.Next() {
		i := &RunIssue{}
		if err := rows.Scan(&i.ID, &i.RunID, &i.Kind, &i.TaskID, &i.DependencyID, &i.Message); err != nil {
			return nil, fmt.Errorf("scanning run issue: %w", err)
		}
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// DeleteRunsBefore removes runs older than cutoff and returns how many were removed.
func (s *Store) DeleteRunsBefore(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM runs WHERE created_at < ?", cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	return result.RowsAffected()
}

// --- Aggregates ---

// RunStats aggregates run history.
type RunStats struct {
	Total         int     `json:"total"`
	Invalid       int     `json:"invalid"`
	Changed       int     `json:"changed"`
	Issues        int     `json:"issues"`
	AvgDurationMs float64 `json:"avgDurationMs"`
}

// Stats aggregates all runs of kind, or all runs when kind is empty.
func (s *Store) Stats(kind string) (*RunStats, error) {
	st := &RunStats{}
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN valid = 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(changed), 0),
		        COALESCE(SUM(issue_count), 0),
		        COALESCE(AVG(duration_ms), 0)
		 FROM runs WHERE ? = '' OR kind = ?`,
		kind, kind,
	).Scan(&st.Total, &st.Invalid, &st.Changed, &st.Issues, &st.AvgDurationMs)
	if err != nil {
		return nil, fmt.Errorf("aggregating runs: %w", err)
	}
	return st, nil
}
