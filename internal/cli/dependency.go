package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/depgraph"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskfile"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/ui"
)

var (
	depID        string
	depDependsOn string
)

var addDependencyCmd = &cobra.Command{
	Use:   "add-dependency",
	Short: "Make a task depend on another",
	Long: `Add-dependency records that --id cannot start before --depends-on is done.
The edge is refused when either node is unknown, when a task would depend on
itself, or when the edge would close a cycle.

Examples:
  taskmaster add-dependency --id 4 --depends-on 2
  taskmaster add-dependency --id 4.2 --depends-on 4.1`,
	RunE: runAddDependency,
}

var removeDependencyCmd = &cobra.Command{
	Use:   "remove-dependency",
	Short: "Remove a dependency between tasks",
	Long: `Remove-dependency deletes the edge --id -> --depends-on if present.

Examples:
  taskmaster remove-dependency --id 4 --depends-on 2`,
	RunE: runRemoveDependency,
}

func init() {
	for _, cmd := range []*cobra.Command{addDependencyCmd, removeDependencyCmd} {
		cmd.Flags().StringVarP(&depID, "id", "i", "", "task or subtask id")
		cmd.Flags().StringVarP(&depDependsOn, "depends-on", "d", "", "id of the dependency")
		_ = cmd.MarkFlagRequired("id")
		_ = cmd.MarkFlagRequired("depends-on")
	}
}

func parseEdge() (from, to taskid.ID, err error) {
	from, err = taskid.ParseString(depID)
	if err != nil {
		return from, to, fmt.Errorf("invalid --id: %w", err)
	}
	to, err = taskid.ParseString(depDependsOn)
	if err != nil {
		return from, to, fmt.Errorf("invalid --depends-on: %w", err)
	}
	return from, to, nil
}

// editDependencies applies edit to the tasks file under the file lock.
func editDependencies(edit func([]tasks.Task, taskid.ID, taskid.ID) (bool, error)) (taskid.ID, taskid.ID, bool, error) {
	from, to, err := parseEdge()
	if err != nil {
		return from, to, false, err
	}

	var changed bool
	_, err = taskfile.Update(cfg.TasksPath(), cfg.Tasks.Tag, func(ts []tasks.Task) (bool, error) {
		c, err := edit(ts, from, to)
		changed = c
		return c, err
	})
	return from, to, changed, tasksFileError(err)
}

func runAddDependency(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	from, to, added, err := editDependencies(depgraph.AddDependency)
	if err != nil {
		return err
	}
	if !added {
		fmt.Fprintf(out, "%s %s already depends on %s\n", ui.Dim("="), from, to)
		return nil
	}

	logger.Info("added dependency", "from", from.String(), "to", to.String())
	fmt.Fprintf(out, "%s %s now depends on %s\n", ui.Green("✓"), from, to)
	return nil
}

func runRemoveDependency(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	from, to, removed, err := editDependencies(depgraph.RemoveDependency)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(out, "%s %s does not depend on %s\n", ui.Dim("="), from, to)
		return nil
	}

	logger.Info("removed dependency", "from", from.String(), "to", to.String())
	fmt.Fprintf(out, "%s %s no longer depends on %s\n", ui.Green("✓"), from, to)
	return nil
}
