package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/depgraph"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskfile"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/ui"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show task progress and dependency health",
	Long: `Status summarizes the current tag:

- overall completion percentage
- task and subtask counts by status
- dependency health
- the next task to work on

Examples:
  taskmaster status
  taskmaster status --tag feature-x
  taskmaster status --json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output in JSON format")
}

type statusOutput struct {
	Project    string       `json:"project"`
	Tag        string       `json:"tag"`
	Tags       []string     `json:"tags"`
	Progress   float64      `json:"progress"`
	Counts     tasks.Counts `json:"counts"`
	IsComplete bool         `json:"isComplete"`
	Valid      bool         `json:"valid"`
	Issues     int          `json:"issues"`
	Next       *tasks.Match `json:"next"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	f, err := loadTasks()
	if err != nil {
		return err
	}

	counts := tasks.Stats(f.Tasks)
	res := depgraph.Validate(f.Tasks)
	next := tasks.NextAction(f.Tasks)
	attachComplexity(next)

	st := statusOutput{
		Project:    cfg.Project.Name,
		Tag:        f.Tag,
		Tags:       f.Tags(),
		Progress:   counts.Progress(),
		Counts:     counts,
		IsComplete: counts.IsComplete(),
		Valid:      res.Valid,
		Issues:     len(res.Issues),
		Next:       next,
	}

	if statusJSON {
		return writeJSON(cmd.OutOrStdout(), st)
	}
	printStatus(cmd.OutOrStdout(), f, st)
	return nil
}

func printStatus(out io.Writer, f *taskfile.File, st statusOutput) {
	fmt.Fprintf(out, "%s %s %s\n\n", ui.BoldCyan("Project:"), st.Project, ui.Dim("(tag "+st.Tag+")"))

	fmt.Fprintf(out, "  Tasks     %s %5.1f%%  %d/%d done\n",
		ui.ProgressBar(st.Progress, 30), st.Progress, st.Counts.Done(), st.Counts.Total)
	if st.Counts.Subtasks > 0 {
		done := st.Counts.SubtasksByStatus[tasks.StatusDone] + st.Counts.SubtasksByStatus[tasks.StatusCancelled]
		fmt.Fprintf(out, "  Subtasks  %s %5.1f%%  %d/%d done\n",
			ui.ProgressBar(st.Counts.SubtaskProgress(), 30), st.Counts.SubtaskProgress(), done, st.Counts.Subtasks)
	}
	fmt.Fprintln(out)

	for _, s := range tasks.Statuses {
		n := st.Counts.ByStatus[s]
		if n == 0 {
			continue
		}
		fmt.Fprintf(out, "  %s %-12s %3d\n", ui.StatusIcon(s), s, n)
	}
	fmt.Fprintln(out)

	if st.Valid {
		fmt.Fprintf(out, "  %s Dependencies valid\n", ui.Green("✓"))
	} else {
		fmt.Fprintf(out, "  %s %d dependency issue(s), run 'taskmaster validate'\n", ui.Red("✗"), st.Issues)
	}

	switch {
	case st.Next != nil:
		fmt.Fprintf(out, "  %s Next: %s %s", ui.Cyan("►"), st.Next.ID(), truncate(st.Next.Title(), 60))
		if st.Next.ComplexityScore != nil {
			fmt.Fprint(out, ui.Dim(fmt.Sprintf(" (complexity %.1f)", *st.Next.ComplexityScore)))
		}
		fmt.Fprintln(out)
	case st.IsComplete:
		fmt.Fprintf(out, "  %s All tasks completed!\n", ui.Green("✓"))
	default:
		fmt.Fprintf(out, "  %s No available tasks (check dependencies)\n", ui.Yellow("⚠"))
	}

	if len(st.Tags) > 1 {
		fmt.Fprintf(out, "\n  %s\n", ui.Dim(fmt.Sprintf("Tags in %s: %v", f.Path, st.Tags)))
	}
}
