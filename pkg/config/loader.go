package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/viper"
)

// LoadPlan loads and parses a plan file
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %s: %w", path, err)
	}
	plan, err := ParsePlanYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", path, err)
	}
	return plan, nil
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validatePlan performs validation on the plan
func validatePlan(plan *Plan) error {
	if len(plan.Tasks) == 0 {
		return fmt.Errorf("at least one task must be defined")
	}

	taskNames := make(map[string]bool)
	for i := range plan.Tasks {
		t := &plan.Tasks[i]
		if t.Name == "" {
			return fmt.Errorf("task %d: name cannot be empty", i)
		}
		if taskNames[t.Name] {
			return fmt.Errorf("duplicate task name: %s", t.Name)
		}
		taskNames[t.Name] = true

		if t.Function == "" {
			return fmt.Errorf("task %s: function cannot be empty", t.Name)
		}
		if !identPattern.MatchString(t.TableName()) {
			return fmt.Errorf("task %s: invalid table name %q", t.Name, t.TableName())
		}
		if err := validateParameters(t.Parameters); err != nil {
			return fmt.Errorf("task %s: %w", t.Name, err)
		}
	}

	return nil
}

// validateParameters checks names are unique, non-empty and do not collide
// with the table id column.
func validateParameters(params Parameters) error {
	seen := make(map[string]bool)
	for _, p := range params {
		if p.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if p.Name == "id" {
			return fmt.Errorf("parameter name %q is reserved", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter: %s", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// settingsFile is the shape viper decodes: settings live under a top-level
// "settings" key so they can share a file with the plan.
type settingsFile struct {
	Settings Settings `mapstructure:"settings"`
}

// envBindings maps settings keys to the environment variables that can
// provide them, in order of preference.
var envBindings = map[string][]string{
	"settings.database_url":    {"GRIDRUN_DATABASE_URL", "DATABASE_URL"},
	"settings.log_level":       {"GRIDRUN_LOG_LEVEL"},
	"settings.log_file":        {"GRIDRUN_LOG_FILE"},
	"settings.log_dir":         {"GRIDRUN_LOG_DIR"},
	"settings.callback_url":    {"GRIDRUN_CALLBACK_URL"},
	"settings.callback_secret": {"GRIDRUN_CALLBACK_SECRET"},
	"settings.grpc_addr":       {"GRIDRUN_GRPC_ADDR"},
	"settings.http_addr":       {"GRIDRUN_HTTP_ADDR"},
}

// DefaultDatabaseURL returns sqlite:///$HOME/gridrun.db, or a relative
// gridrun.db when the home directory is unknown.
func DefaultDatabaseURL() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sqlite://gridrun.db"
	}
	return "sqlite://" + filepath.ToSlash(filepath.Join(home, "gridrun.db"))
}

// LoadSettings reads the "settings" section of the file at path, falling
// back to defaults when path is empty or does not exist. Environment
// variables override file values.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("settings.database_url", DefaultDatabaseURL())
	v.SetDefault("settings.log_level", "info")
	v.SetDefault("settings.grpc_addr", ":50051")
	v.SetDefault("settings.http_addr", ":8080")

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read settings from %s: %w", path, err)
			}
		}
	}

	var file settingsFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := validateSettings(&file.Settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return &file.Settings, nil
}

func validateSettings(s *Settings) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[s.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", s.LogLevel)
	}
	if s.DatabaseURL == "" {
		return fmt.Errorf("database_url cannot be empty")
	}
	if s.LogFile != "" && s.LogDir != "" {
		return fmt.Errorf("log_file and log_dir are mutually exclusive")
	}
	return nil
}
