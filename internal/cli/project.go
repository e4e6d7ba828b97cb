package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/complexity"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/config"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/journal"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/store"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskfile"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
)

// ErrInvalidGraph is returned by validate --strict when issues were found.
var ErrInvalidGraph = errors.New("dependency graph has issues")

var errHistoryDisabled = errors.New("run history is disabled (history.enabled: false)")

// loadConfig reads the config file, then layers environment and flag
// overrides on top. Relative paths resolve against the config file's
// directory, except --file which is relative to the working directory.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if found, err := config.FindConfigFile(); err == nil {
			path = found
		}
	}

	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if path != "" && !filepath.IsAbs(c.Project.Root) {
		c.Project.Root = filepath.Join(filepath.Dir(path), c.Project.Root)
	}

	c.ApplyOverrides(viper.GetViper())
	if f := viper.GetString("file"); f != "" {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolving tasks file: %w", err)
		}
		c.Tasks.File = abs
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func loadTasks() (*taskfile.File, error) {
	f, err := taskfile.Load(cfg.TasksPath(), cfg.Tasks.Tag)
	if err != nil {
		return nil, tasksFileError(err)
	}
	logger.Debug("loaded tasks", "path", f.Path, "tag", f.Tag, "tasks", len(f.Tasks), "legacy", f.Legacy)
	return f, nil
}

func tasksFileError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tasks file not found: %s\nRun 'taskmaster init' to create one", cfg.TasksPath())
	}
	return err
}

// loadScores returns complexity scores, or nil when the report is unreadable.
func loadScores() complexity.Scores {
	scores, err := complexity.Load(cfg.ComplexityPath())
	if err != nil {
		logger.Warn("ignoring complexity report", "path", cfg.ComplexityPath(), "error", err)
		return nil
	}
	return scores
}

// attachComplexity sets the score of m's top-level task, when the report has
// one.
func attachComplexity(m *tasks.Match) {
	if m == nil {
		return
	}
	if score, ok := loadScores().Get(m.ID().Task()); ok {
		m.ComplexityScore = &score
	}
}

func openJournal() (*journal.Journal, func(), error) {
	if !cfg.History.Enabled {
		return nil, nil, errHistoryDisabled
	}
	path := cfg.HistoryPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating history directory: %w", err)
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history at %s: %w", path, err)
	}
	return journal.New(s), func() { s.Close() }, nil
}

// recordRun stores a run in the history database. Failures are logged and
// never fail the command.
func recordRun(record func(*journal.Journal) (*store.Run, error)) {
	j, closeFn, err := openJournal()
	if errors.Is(err, errHistoryDisabled) {
		return
	}
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
		return
	}
	defer closeFn()

	run, err := record(j)
	if err != nil {
		logger.Warn("recording run failed", "error", err)
		return
	}
	logger.Debug("recorded run", "id", run.ID, "kind", run.Kind)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
