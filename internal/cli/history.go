package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/journal"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/store"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "View validation and repair history",
	Long: `History lists recorded validate and fix runs, newest first. Pass a run id
(or a unique prefix of one) to see the issues and changes of a single run.

Examples:
  taskmaster history
  taskmaster history --last 5 --kind repair
  taskmaster history 3f2a9c1b
  taskmaster history --markdown > history.md
  taskmaster history --prune 720h`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var (
	historyLast     int
	historyKind     string
	historyMarkdown bool
	historyJSON     bool
	historyPrune    time.Duration
)

func init() {
	historyCmd.Flags().IntVar(&historyLast, "last", 10, "show last N runs (0 for all)")
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "filter by run kind (validate, repair)")
	historyCmd.Flags().BoolVar(&historyMarkdown, "markdown", false, "render as markdown")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output in JSON format")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "delete runs older than this duration")
}

func runHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if historyKind != "" && historyKind != store.KindValidate && historyKind != store.KindRepair {
		return fmt.Errorf("invalid kind %q (must be validate or repair)", historyKind)
	}

	j, closeFn, err := openJournal()
	if err != nil {
		return err
	}
	defer closeFn()

	if historyPrune > 0 {
		n, err := j.Prune(time.Now().Add(-historyPrune))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Pruned %d run(s) older than %s\n", n, historyPrune)
		return nil
	}

	if len(args) == 1 {
		run, err := j.Run(args[0])
		if err != nil {
			return fmt.Errorf("loading run: %w", err)
		}
		if historyJSON {
			return writeJSON(out, run)
		}
		fmt.Fprint(out, journal.RenderRun(run))
		return nil
	}

	q := &store.RunQuery{Kind: historyKind, Limit: historyLast}
	if historyMarkdown {
		md, err := j.ExportMarkdown(q)
		if err != nil {
			return fmt.Errorf("exporting history: %w", err)
		}
		fmt.Fprint(out, md)
		return nil
	}

	runs, err := j.Runs(q)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if historyJSON {
		if runs == nil {
			runs = []*store.Run{}
		}
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet. Run 'taskmaster validate' or 'taskmaster fix'.")
		return nil
	}

	for _, r := range runs {
		printRunLine(out, r)
	}

	stats, err := j.Stats(historyKind)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%s\n", ui.Dim(fmt.Sprintf("%d run(s) total, %d invalid, %d changed, avg %.0fms",
		stats.Total, stats.Invalid, stats.Changed, stats.AvgDurationMs)))
	return nil
}

func printRunLine(out io.Writer, r *store.Run) {
	var result string
	switch {
	case r.Kind == store.KindRepair && r.Changed:
		result = ui.Yellow(fmt.Sprintf("%d change(s)", r.ChangeCount))
	case r.Kind == store.KindRepair:
		result = ui.Green("no changes")
	case r.Valid:
		result = ui.Green("valid")
	default:
		result = ui.Red(fmt.Sprintf("%d issue(s)", r.IssueCount))
	}

	fmt.Fprintf(out, "%s  %s  %-8s  %-14s %s\n",
		ui.Dim(shortRunID(r.ID)),
		r.CreatedAt.Local().Format("2006-01-02 15:04"),
		r.Kind,
		r.Tag,
		result,
	)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
