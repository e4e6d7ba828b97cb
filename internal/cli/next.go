package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/ui"
)

var nextJSON bool

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the next task to work on",
	Long: `Next picks the task to work on now. Pending subtasks of a task that is
already in progress come first; otherwise the highest-priority pending task
whose dependencies are all done is chosen, lowest id first on ties.

Examples:
  taskmaster next
  taskmaster next --json`,
	RunE: runNext,
}

func init() {
	nextCmd.Flags().BoolVar(&nextJSON, "json", false, "output in JSON format")
}

func runNext(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	f, err := loadTasks()
	if err != nil {
		return err
	}

	m := tasks.NextAction(f.Tasks)
	attachComplexity(m)

	if nextJSON {
		return writeJSON(out, m)
	}

	if m == nil {
		if tasks.Stats(f.Tasks).IsComplete() {
			fmt.Fprintf(out, "%s All tasks are done\n", ui.Green("✓"))
		} else {
			fmt.Fprintf(out, "%s No eligible task: every pending task is waiting on unfinished dependencies\n", ui.Yellow("⚠"))
			fmt.Fprintln(out, "Run 'taskmaster validate' to look for broken dependencies.")
		}
		return nil
	}

	printNext(out, m, tasks.Nodes(f.Tasks))
	return nil
}

func printNext(out io.Writer, m *tasks.Match, nodes map[taskid.ID]tasks.Status) {
	fmt.Fprintf(out, "%s %s %s\n\n", ui.BoldCyan("Next:"), ui.Bold(m.ID().String()), m.Title())
	if m.IsSubtask() {
		fmt.Fprintf(out, "  %-14s %d %s\n", "Parent:", m.Parent.ID, m.Parent.Title)
	} else {
		fmt.Fprintf(out, "  %-14s %s\n", "Priority:", ui.Priority(m.Task.Priority))
	}
	fmt.Fprintf(out, "  %-14s %s\n", "Status:", ui.Status(m.Status()))
	fmt.Fprintf(out, "  %-14s %s\n", "Dependencies:", ui.Dependencies(m.Dependencies(), nodes))
	if m.ComplexityScore != nil {
		fmt.Fprintf(out, "  %-14s %.1f\n", "Complexity:", *m.ComplexityScore)
	}

	if desc := description(m); desc != "" {
		fmt.Fprintf(out, "\n  %s\n", desc)
	}
	fmt.Fprintf(out, "\n%s\n", ui.Dim("Run 'taskmaster show "+m.ID().String()+"' for details."))
}

func description(m *tasks.Match) string {
	if m.IsSubtask() {
		return m.Subtask.Description
	}
	return m.Task.Description
}
