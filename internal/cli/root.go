// Package cli provides the command-line interface for taskmaster.
package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/config"
	"github.com/zp-innovation/mcp-task-master-sub005/internal/ui"
)

var (
	cfgFile  string
	verbose  bool
	noColor  bool
	tasksArg string
	tagArg   string

	cfg    = config.DefaultConfig()
	logger = slog.New(slog.DiscardHandler)
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "taskmaster",
	Short: "Dependency-aware task list manager",
	Long: `Taskmaster keeps a project's task list consistent.

It validates and repairs the dependency graph between tasks and subtasks,
picks the next task that is ready to work on, and records every validation
and repair run in a local history database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		logger = newLogger(cmd.ErrOrStderr(), cfg)
		if noColor {
			ui.DisableColor()
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is taskmaster.yaml in the current or a parent directory)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.StringVarP(&tasksArg, "file", "f", "", "tasks file (overrides tasks.file)")
	flags.StringVar(&tagArg, "tag", "", "tag to operate on (overrides tasks.tag)")

	_ = viper.BindPFlag("file", flags.Lookup("file"))
	_ = viper.BindPFlag("tag", flags.Lookup("tag"))

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(addDependencyCmd)
	rootCmd.AddCommand(removeDependencyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	viper.SetEnvPrefix("taskmaster")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func newLogger(w io.Writer, c *config.Config) *slog.Logger {
	level := c.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
