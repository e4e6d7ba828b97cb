// Package ui holds terminal styling shared by the taskmaster commands.
package ui

import (
	"strings"

	"github.com/fatih/color"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/depgraph"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskid"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
)

// Sprint color functions for building styled strings.
var (
	Bold       = color.New(color.Bold).SprintFunc()
	Dim        = color.New(color.Faint).SprintFunc()
	Cyan       = color.New(color.FgCyan).SprintFunc()
	Green      = color.New(color.FgGreen).SprintFunc()
	Red        = color.New(color.FgRed).SprintFunc()
	Yellow     = color.New(color.FgYellow).SprintFunc()
	Magenta    = color.New(color.FgMagenta).SprintFunc()
	BoldCyan   = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen  = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed    = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow = color.New(color.Bold, color.FgYellow).SprintFunc()
)

// DisableColor turns styling off for the rest of the process.
func DisableColor() {
	color.NoColor = true
}

// StatusIcon returns a colored status icon for compact display.
func StatusIcon(s tasks.Status) string {
	switch s {
	case tasks.StatusDone:
		return Green("✓")
	case tasks.StatusInProgress:
		return Cyan("►")
	case tasks.StatusReview:
		return Magenta("?")
	case tasks.StatusBlocked:
		return Red("!")
	case tasks.StatusDeferred:
		return Yellow("⏱")
	case tasks.StatusCancelled:
		return Dim("✗")
	default:
		return Dim("○")
	}
}

// Status returns the colored status name.
func Status(s tasks.Status) string {
	switch s {
	case tasks.StatusDone:
		return Green(string(s))
	case tasks.StatusInProgress:
		return BoldCyan(string(s))
	case tasks.StatusReview:
		return Magenta(string(s))
	case tasks.StatusBlocked:
		return Red(string(s))
	case tasks.StatusDeferred:
		return Yellow(string(s))
	case tasks.StatusCancelled:
		return Dim(string(s))
	case "":
		return Dim("pending")
	default:
		return string(s)
	}
}

// Priority returns the colored priority name.
func Priority(p tasks.Priority) string {
	switch p {
	case tasks.PriorityHigh:
		return BoldRed(string(p))
	case tasks.PriorityMedium:
		return Yellow(string(p))
	case tasks.PriorityLow:
		return Dim(string(p))
	case "":
		return Dim("medium")
	}
	return string(p)
}

// IssueType returns a colored label for a validation issue.
func IssueType(t depgraph.IssueType) string {
	switch t {
	case depgraph.IssueCircular:
		return BoldRed(string(t))
	case depgraph.IssueMissing:
		return Red(string(t))
	case depgraph.IssueSelf:
		return Yellow(string(t))
	}
	return Magenta(string(t))
}

// Dependencies renders deps with each id colored by the status of the node it
// names: done in green, missing in red, everything else plain. Empty renders
// as a dim "None".
func Dependencies(deps []taskid.ID, nodes map[taskid.ID]tasks.Status) string {
	if len(deps) == 0 {
		return Dim("None")
	}
	parts := make([]string, len(deps))
	for i, dep := range deps {
		status, ok := nodes[dep]
		switch {
		case !ok:
			parts[i] = Red(dep.String() + " (missing)")
		case status.IsFinished():
			parts[i] = Green(dep.String() + " ✓")
		default:
			parts[i] = dep.String()
		}
	}
	return strings.Join(parts, ", ")
}

// ProgressBar renders pct (0-100) as a bar of width cells.
func ProgressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	pct = min(max(pct, 0), 100)
	filled := int(pct / 100 * float64(width))
	return Green(strings.Repeat("█", filled)) + Dim(strings.Repeat("░", width-filled))
}
