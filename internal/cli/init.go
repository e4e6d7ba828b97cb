package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/config"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/taskfile"
)

var (
	initName  string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a project for taskmaster",
	Long: `Initialize creates the files taskmaster needs in the current directory:

- taskmaster.yaml - configuration file
- .taskmaster/tasks/tasks.json - an empty task list for the current tag

An existing config is kept unless --force is given. An existing task list
is never overwritten.

Examples:
  taskmaster init
  taskmaster init --name my-project
  taskmaster init --tag feature-x`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initName, "name", "n", "", "project name (defaults to directory name)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	name := initName
	if name == "" {
		name = filepath.Base(cwd)
	}

	logger.Info("initializing taskmaster project", "name", name, "tag", cfg.Tasks.Tag)

	created := []string{}
	if ok, err := createConfigFile(cwd, name); err != nil {
		return err
	} else if ok {
		created = append(created, config.FileName+"  (configuration)")
	}

	if ok, err := createTasksFile(); err != nil {
		return err
	} else if ok {
		created = append(created, cfg.Tasks.File+"  (task list, tag "+cfg.Tasks.Tag+")")
	}

	fmt.Fprintf(out, "\n✓ Initialized taskmaster project: %s\n", name)
	if len(created) > 0 {
		fmt.Fprintln(out, "\nCreated files:")
		for _, c := range created {
			fmt.Fprintf(out, "  - %s\n", c)
		}
	}
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Add tasks to the task list")
	fmt.Fprintln(out, "  2. Run 'taskmaster validate' to check dependencies")
	fmt.Fprintln(out, "  3. Run 'taskmaster next' to pick a task")

	return nil
}

func createConfigFile(dir, name string) (bool, error) {
	path := filepath.Join(dir, config.FileName)
	if cfgFile != "" {
		path = cfgFile
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			logger.Info("config already exists, skipping", "path", path)
			return false, nil
		}
	}

	c := config.DefaultConfig()
	c.Project.Name = name
	c.Tasks.Tag = cfg.Tasks.Tag

	if err := c.Save(path); err != nil {
		return false, fmt.Errorf("creating config file: %w", err)
	}

	logger.Info("created config", "path", path)
	return true, nil
}

func createTasksFile() (bool, error) {
	path := cfg.TasksPath()

	if taskfile.Exists(path) {
		logger.Info("tasks file already exists, skipping", "path", path)
		return false, nil
	}

	if err := taskfile.New(path, cfg.Tasks.Tag).Save(); err != nil {
		return false, fmt.Errorf("creating tasks file: %w", err)
	}

	logger.Info("created tasks file", "path", path)
	return true, nil
}
