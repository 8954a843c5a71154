// Package config loads CLI settings from defaults, TOML files and the
// environment. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"tasks-cli/logging"
	"tasks-cli/store"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"

	DefaultJSONFile   = "tasks.json"
	DefaultSQLiteFile = "tasks.db"
	ProjectFile       = "tasks.toml"
	appDir            = "tasks-cli"
)

var ErrInvalid = errors.New("invalid config")

// Config holds the resolved settings.
type Config struct {
	DataFile       string `toml:"data_file"`
	Backend        string `toml:"backend"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
	Backups        int    `toml:"backups"`
	RecoverCorrupt bool   `toml:"recover_corrupt"`
	Color          bool   `toml:"color"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Backend:   BackendJSON,
		LogLevel:  "warn",
		LogFormat: "text",
		Backups:   store.DefaultBackups,
		Color:     true,
	}
}

// Load applies, in order: defaults, the user config file, tasks.toml in the
// working directory, the explicit file (if any) and TASKS_* variables.
// Missing implicit files are skipped; a missing explicit file is an error.
func Load(explicit string) (*Config, error) {
	cfg := Defaults()

	if path := userConfigFile(); path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	if fileExists(ProjectFile) {
		if err := loadFile(&cfg, ProjectFile); err != nil {
			return nil, err
		}
	}
	if explicit != "" {
		path := expandPath(explicit)
		if !fileExists(path) {
			return nil, fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
		}
		if err := loadFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	if err := loadFromEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Finalize fills derived values and validates the result. It runs after
// flags have been applied.
func (c *Config) Finalize() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("%w: backend %q (want json or sqlite)", ErrInvalid, c.Backend)
	}
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("%w: log_format %q", ErrInvalid, c.LogFormat)
	}
	if c.Backups < 0 {
		return fmt.Errorf("%w: backups must be >= 0", ErrInvalid)
	}

	if strings.TrimSpace(c.DataFile) == "" {
		c.DataFile = DefaultJSONFile
		if c.Backend == BackendSQLite {
			c.DataFile = DefaultSQLiteFile
		}
	}
	c.DataFile = expandPath(c.DataFile)
	return nil
}

func loadFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("%w: %s: unknown keys %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	return nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("TASKS_FILE"); v != "" {
		cfg.DataFile = v
	}
	if v := os.Getenv("TASKS_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("TASKS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TASKS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TASKS_BACKUPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: TASKS_BACKUPS=%q", ErrInvalid, v)
		}
		cfg.Backups = n
	}
	if v := os.Getenv("TASKS_RECOVER_CORRUPT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: TASKS_RECOVER_CORRUPT=%q", ErrInvalid, v)
		}
		cfg.RecoverCorrupt = b
	}
	if v := os.Getenv("TASKS_COLOR"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: TASKS_COLOR=%q", ErrInvalid, v)
		}
		cfg.Color = b
	}
	return nil
}

// userConfigFile returns the per-user config path, or "" if none exists.
func userConfigFile() string {
	var dir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dir = xdg
	} else if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".config")
	}
	if dir == "" {
		return ""
	}
	path := filepath.Join(dir, appDir, "config.toml")
	if !fileExists(path) {
		return ""
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// expandPath expands environment variables and a leading ~.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	expanded := os.ExpandEnv(p)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return filepath.Join(home, strings.TrimPrefix(expanded[1:], "/"))
	}
	return expanded
}
