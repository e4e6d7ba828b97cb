package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/depgraph"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/ui"
)

var (
	showStatus string
	showJSON   bool
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task or subtask",
	Long: `Show prints one task or subtask. Use a plain id for a task and
"parent.sub" for a subtask.

Examples:
  taskmaster show 3
  taskmaster show 3.2
  taskmaster show 3 --status pending,in-progress
  taskmaster show 3 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showStatus, "status", "s", "", "only list subtasks in these statuses (comma-separated)")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output in JSON format")
}

type showOutput struct {
	*tasks.Match
	Dependents []taskid.ID `json:"dependents"`
}

func runShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	id, err := taskid.ParseString(args[0])
	if err != nil {
		return fmt.Errorf("invalid task id: %w", err)
	}
	statuses, err := parseStatuses(showStatus)
	if err != nil {
		return err
	}

	f, err := loadTasks()
	if err != nil {
		return err
	}

	opts := []tasks.FindOption{tasks.WithComplexity(loadScores())}
	if len(statuses) > 0 {
		opts = append(opts, tasks.WithSubtaskStatus(statuses...))
	}
	m := tasks.Find(f.Tasks, id, opts...)
	if m == nil {
		return fmt.Errorf("task %s not found in tag %s", id, f.Tag)
	}

	dependents := depgraph.Dependents(f.Tasks, id)
	if showJSON {
		if dependents == nil {
			dependents = []taskid.ID{}
		}
		return writeJSON(out, showOutput{Match: m, Dependents: dependents})
	}

	printMatch(out, m, dependents, tasks.Nodes(f.Tasks))
	return nil
}

func parseStatuses(raw string) ([]tasks.Status, error) {
	if raw == "" {
		return nil, nil
	}
	var out []tasks.Status
	for _, part := range strings.Split(raw, ",") {
		s := tasks.Status(strings.TrimSpace(part))
		if !s.Valid() {
			return nil, fmt.Errorf("unknown status %q", s)
		}
		out = append(out, s)
	}
	return out, nil
}

func printMatch(out io.Writer, m *tasks.Match, dependents []taskid.ID, nodes map[taskid.ID]tasks.Status) {
	kind := "Task"
	if m.IsSubtask() {
		kind = "Subtask"
	}
	fmt.Fprintf(out, "%s %s: %s\n\n", ui.BoldCyan(kind), ui.Bold(m.ID().String()), m.Title())

	field := func(label, value string) {
		fmt.Fprintf(out, "  %-14s %s\n", label+":", value)
	}
	if m.IsSubtask() {
		field("Parent", fmt.Sprintf("%d %s (%s)", m.Parent.ID, m.Parent.Title, ui.Status(m.Parent.Status)))
	}
	field("Status", ui.Status(m.Status()))
	if !m.IsSubtask() {
		field("Priority", ui.Priority(m.Task.Priority))
	}
	field("Dependencies", ui.Dependencies(m.Dependencies(), nodes))
	if len(dependents) > 0 {
		names := make([]string, len(dependents))
		for i, d := range dependents {
			names[i] = d.String()
		}
		field("Blocks", strings.Join(names, ", "))
	}
	if m.ComplexityScore != nil {
		field("Complexity", fmt.Sprintf("%.1f", *m.ComplexityScore))
	}

	var details, strategy string
	if m.IsSubtask() {
		details, strategy = m.Subtask.Details, m.Subtask.TestStrategy
	} else {
		details, strategy = m.Task.Details, m.Task.TestStrategy
	}
	section := func(title, body string) {
		if body == "" {
			return
		}
		fmt.Fprintf(out, "\n%s\n  %s\n", ui.Bold(title), strings.ReplaceAll(body, "\n", "\n  "))
	}
	section("Description", description(m))
	section("Details", details)
	section("Test Strategy", strategy)

	if m.IsSubtask() || !m.Task.HasSubtasks() && m.OriginalSubtaskCount == nil {
		return
	}

	header := fmt.Sprintf("Subtasks (%d)", len(m.Task.Subtasks))
	if m.OriginalSubtaskCount != nil {
		header = fmt.Sprintf("Subtasks (%d of %d)", len(m.Task.Subtasks), *m.OriginalSubtaskCount)
	}
	fmt.Fprintf(out, "\n%s\n", ui.Bold(header))
	for _, s := range m.Task.Subtasks {
		id := s.NodeID(m.Task.ID)
		fmt.Fprintf(out, "  %s %-6s %s %s\n", ui.StatusIcon(s.Status), id, truncate(s.Title, 60),
			ui.Dim("deps: "+ui.Dependencies(s.Dependencies, nodes)))
	}
}
