package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/depgraph"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/journal"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/store"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskfile"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/ui"
)

var (
	fixDryRun bool
	fixJSON   bool
)

var fixCmd = &cobra.Command{
	Use:     "fix",
	Aliases: []string{"fix-dependencies"},
	Short:   "Repair invalid task dependencies",
	Long: `Fix removes duplicate, self, and missing dependencies, breaks circular
chains, and makes sure every task with subtasks has at least one subtask that
can start. The tasks file is rewritten only when something changed.

Examples:
  taskmaster fix
  taskmaster fix --dry-run
  taskmaster fix --json`,
	RunE: runFix,
}

func init() {
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "show what would change without writing")
	fixCmd.Flags().BoolVar(&fixJSON, "json", false, "output in JSON format")
}

type fixOutput struct {
	*depgraph.Report
	DryRun bool `json:"dryRun"`
}

func runFix(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	repairer := depgraph.NewRepairer(depgraph.WithLogger(logger))

	var (
		f      *taskfile.File
		report *depgraph.Report
		err    error
	)
	start := time.Now()
	if fixDryRun {
		f, err = loadTasks()
		if err != nil {
			return err
		}
		report, err = repairer.Repair(f.Tasks)
	} else {
		f, err = taskfile.Update(cfg.TasksPath(), cfg.Tasks.Tag, func(ts []tasks.Task) (bool, error) {
			r, err := repairer.Repair(ts)
			report = r
			if err != nil {
				return false, err
			}
			return r.Changed, nil
		})
		err = tasksFileError(err)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if !fixDryRun {
		recordRun(func(j *journal.Journal) (*store.Run, error) {
			return j.RecordRepair(f.Path, f.Tag, report, elapsed)
		})
	}

	if fixJSON {
		return writeJSON(out, fixOutput{Report: report, DryRun: fixDryRun})
	}
	printRepair(out, report, fixDryRun)
	return nil
}

func printRepair(out io.Writer, report *depgraph.Report, dryRun bool) {
	if !report.Changed {
		fmt.Fprintf(out, "%s No dependency issues found\n", ui.Green("✓"))
		return
	}

	verb := "Fixed"
	if dryRun {
		verb = "Would fix"
	}
	fmt.Fprintf(out, "%s %s %d dependency issue(s):\n\n", ui.Yellow("●"), verb, len(report.Changes))
	for _, c := range report.Changes {
		fmt.Fprintf(out, "  - %s\n", journal.DescribeChange(c))
	}

	fmt.Fprintln(out)
	rows := []struct {
		label string
		n     int
	}{
		{"duplicates", report.DuplicatesRemoved},
		{"self", report.SelfRemoved},
		{"missing", report.MissingRemoved},
		{"cycles", report.CyclesBroken},
		{"freed", report.SubtasksFreed},
	}
	for _, row := range rows {
		if row.n > 0 {
			fmt.Fprintf(out, "  %-10s %d\n", row.label, row.n)
		}
	}
	if dryRun {
		fmt.Fprintf(out, "\n%s\n", ui.Dim("Dry run: tasks file not modified."))
	}
}
