// Package config loads tagfs settings from YAML with environment expansion.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"tagfs/internal/logging"
	"tagfs/internal/state"
)

// Default file names, placed next to the executable.
const (
	DefaultDatabaseName = "tagfs.db"
	DefaultLogName      = "tagfs.log"
	DefaultBackupDir    = ".tagfs-backups"
)

// Config represents the application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Mount    MountConfig    `yaml:"mount"`
	Watch    WatchConfig    `yaml:"watch"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	State    StateConfig    `yaml:"state"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	// File receives log records; "stdout" and "stderr" are accepted.
	File string `yaml:"file"`
}

// DatabaseConfig locates the tag database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MountConfig holds FUSE mount options.
type MountConfig struct {
	Point      string `yaml:"point"`
	AllowOther bool   `yaml:"allow_other"`
	FSName     string `yaml:"fs_name"`
	UID        uint32 `yaml:"uid"`
	GID        uint32 `yaml:"gid"`
}

// WatchConfig toggles pruning of files whose location disappears.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig holds the metrics listener address. Empty disables it.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// StateConfig controls snapshot backups.
type StateConfig struct {
	BackupDir   string `yaml:"backup_dir"`
	BackupCount int    `yaml:"backup_count"`
}

// NewDefault returns the defaults, with the database and log file in
// execDir.
func NewDefault(execDir string) *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(execDir, DefaultLogName),
		},
		Database: DatabaseConfig{Path: filepath.Join(execDir, DefaultDatabaseName)},
		Mount: MountConfig{
			FSName: "tagfs",
			UID:    uint32(os.Getuid()),
			GID:    uint32(os.Getgid()),
		},
		Watch: WatchConfig{Enabled: true},
		State: StateConfig{
			BackupDir:   filepath.Join(execDir, DefaultBackupDir),
			BackupCount: state.DefaultBackupCount,
		},
	}
}

// ExecDir returns the directory holding the running executable.
func ExecDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// Load reads filename over the defaults for execDir. An empty filename or
// a missing file leaves the defaults in place. PUID and PGID override the
// mount owner.
func Load(filename, execDir string) (*Config, error) {
	cfg := NewDefault(execDir)

	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logging.GetLogger().Debug("No config file at %s, using defaults", filename)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
		default:
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if puid := os.Getenv("PUID"); puid != "" {
		uid, err := strconv.ParseUint(puid, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid PUID %q: %w", puid, err)
		}
		c.Mount.UID = uint32(uid)
	}
	if pgid := os.Getenv("PGID"); pgid != "" {
		gid, err := strconv.ParseUint(pgid, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid PGID %q: %w", pgid, err)
		}
		c.Mount.GID = uint32(gid)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Mount.Validate(); err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	if err := c.State.Validate(); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	return nil
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.Required, validation.By(func(value interface{}) error {
			_, err := logging.ParseLevel(value.(string))
			return err
		})),
	)
}

// LoggingConfig converts the section for logging.Configure.
func (c *LogConfig) LoggingConfig() (logging.Config, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return logging.Config{}, err
	}
	out := logging.Config{Level: level, Development: c.Development}
	if c.File != "" {
		out.OutputPaths = []string{c.File}
	}
	return out, nil
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// Validate validates the mount configuration.
func (c *MountConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FSName, validation.Required),
	)
}

// Validate validates the state configuration.
func (c *StateConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BackupDir, validation.Required),
		validation.Field(&c.BackupCount, validation.Required, validation.Min(1)),
	)
}
