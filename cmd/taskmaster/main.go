// Taskmaster validates, repairs and navigates a project's task dependency graph.
package main

import (
	"fmt"
	"os"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
