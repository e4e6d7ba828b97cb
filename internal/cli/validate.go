package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/depgraph"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/journal"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/store"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/ui"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/watch"
)

var (
	validateJSON   bool
	validateStrict bool
	validateWatch  bool
)

var validateCmd = &cobra.Command{
	Use:     "validate",
	Aliases: []string{"validate-dependencies"},
	Short:   "Check task dependencies for problems",
	Long: `Validate reports dependency problems without changing anything:

- dependencies on tasks or subtasks that do not exist
- tasks that depend on themselves
- the same dependency listed twice
- circular dependency chains

Examples:
  taskmaster validate
  taskmaster validate --strict
  taskmaster validate --tag feature-x --json
  taskmaster validate --watch`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "output in JSON format")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "exit non-zero when issues are found")
	validateCmd.Flags().BoolVar(&validateWatch, "watch", false, "re-validate whenever the tasks file changes")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	res, err := validateOnce(out)
	if err != nil {
		return err
	}

	if validateWatch {
		return watchValidate(cmd.Context(), out)
	}

	if validateStrict && !res.Valid {
		return ErrInvalidGraph
	}
	return nil
}

func validateOnce(out io.Writer) (depgraph.Result, error) {
	f, err := loadTasks()
	if err != nil {
		return depgraph.Result{}, err
	}

	start := time.Now()
	res := depgraph.Validate(f.Tasks)
	elapsed := time.Since(start)

	logger.Info("validated dependencies", "tag", f.Tag, "valid", res.Valid, "issues", len(res.Issues))
	recordRun(func(j *journal.Journal) (*store.Run, error) {
		return j.RecordValidation(f.Path, f.Tag, res, elapsed)
	})

	if validateJSON {
		if res.Issues == nil {
			res.Issues = []depgraph.Issue{}
		}
		return res, writeJSON(out, res)
	}

	printValidation(out, tasks.Stats(f.Tasks), f.Tag, res)
	return res, nil
}

func printValidation(out io.Writer, counts tasks.Counts, tag string, res depgraph.Result) {
	scope := ui.Dim(fmt.Sprintf("(%d tasks, %d subtasks, tag %s)", counts.Total, counts.Subtasks, tag))
	if res.Valid {
		fmt.Fprintf(out, "%s All dependencies are valid %s\n", ui.Green("✓"), scope)
		return
	}

	fmt.Fprintf(out, "%s Found %d dependency issue(s) %s\n\n", ui.Red("✗"), len(res.Issues), scope)
	for _, issue := range res.Issues {
		fmt.Fprintf(out, "  [%s] %s\n", ui.IssueType(issue.Type), issue.Message)
	}

	fmt.Fprintln(out)
	for _, t := range []depgraph.IssueType{depgraph.IssueMissing, depgraph.IssueSelf, depgraph.IssueDuplicate, depgraph.IssueCircular} {
		if n := res.Count(t); n > 0 {
			fmt.Fprintf(out, "  %-10s %d\n", t, n)
		}
	}
	fmt.Fprintf(out, "\nRun 'taskmaster fix' to repair.\n")
}

func watchValidate(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(cfg.TasksPath(), watch.WithLogger(logger))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", ui.Dim("Watching "+w.Path()+" (Ctrl+C to stop)"))

	return w.Run(ctx, func(ctx context.Context) error {
		fmt.Fprintf(out, "\n%s\n", ui.Dim("--- "+time.Now().Format("15:04:05")+" ---"))
		_, err := validateOnce(out)
		return err
	})
}
