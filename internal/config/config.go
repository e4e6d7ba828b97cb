// Package config handles taskmaster configuration parsing and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file searched for by FindConfigFile.
const FileName = "taskmaster.yaml"

// Config represents the taskmaster.yaml configuration file.
type Config struct {
	Version string        `yaml:"version"`
	Project ProjectConfig `yaml:"project"`
	Tasks   TasksConfig   `yaml:"tasks"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// ProjectConfig holds project-level settings.
type ProjectConfig struct {
	Name string `yaml:"name"`
	Root string `yaml:"root"`
}

// TasksConfig locates the task data.
type TasksConfig struct {
	File             string `yaml:"file"`
	Tag              string `yaml:"tag"`
	ComplexityReport string `yaml:"complexity_report"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Project: ProjectConfig{
			Name: "my-project",
			Root: ".",
		},
		Tasks: TasksConfig{
			File:             ".taskmaster/tasks/tasks.json",
			Tag:              "master",
			ComplexityReport: ".taskmaster/reports/task-complexity-report.json",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    ".taskmaster/history.db",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads and parses a config file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Tasks.File == "" {
		return fmt.Errorf("tasks.file must not be empty")
	}
	if c.Tasks.Tag == "" || strings.ContainsAny(c.Tasks.Tag, " \t\n") {
		return fmt.Errorf("invalid tag: %q", c.Tasks.Tag)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}

	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path must be set when history is enabled")
	}

	return nil
}

// ApplyOverrides layers flag and environment values from v over the file
// config. Keys: file, tag, complexity-report, history.enabled, history.path,
// log.level, log.format.
func (c *Config) ApplyOverrides(v *viper.Viper) {
	override := func(key string, dst *string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
	override("file", &c.Tasks.File)
	override("tag", &c.Tasks.Tag)
	override("complexity-report", &c.Tasks.ComplexityReport)
	override("history.path", &c.History.Path)
	override("log.level", &c.Log.Level)
	override("log.format", &c.Log.Format)

	if v.IsSet("history.enabled") {
		c.History.Enabled = v.GetBool("history.enabled")
	}
}

// Resolve returns p joined to the project root unless p is absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Project.Root, p)
}

// TasksPath is the resolved location of tasks.json.
func (c *Config) TasksPath() string {
	return c.Resolve(c.Tasks.File)
}

// ComplexityPath is the resolved location of the complexity report.
func (c *Config) ComplexityPath() string {
	return c.Resolve(c.Tasks.ComplexityReport)
}

// HistoryPath is the resolved location of the history database.
func (c *Config) HistoryPath() string {
	return c.Resolve(c.History.Path)
}

// SlogLevel maps Log.Level to a slog level. Unknown levels map to warn.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}

// FindConfigFile searches for taskmaster.yaml in the current and parent directories.
func FindConfigFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for dir := cwd; ; dir = filepath.Dir(dir) {
		configPath := filepath.Join(dir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		if dir == filepath.Dir(dir) {
			break
		}
	}

	return "", fmt.Errorf("%s not found in %s or parent directories", FileName, cwd)
}
