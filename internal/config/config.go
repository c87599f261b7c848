package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultProgramName names the per-user directories when program_name is unset.
const DefaultProgramName = "idecore"

// Config represents the complete idecore configuration
type Config struct {
	// ProgramName is used for cache, data and config directory names
	ProgramName string         `mapstructure:"program_name"`
	Paths       PathsConfig    `mapstructure:"paths"`
	History     HistoryConfig  `mapstructure:"history"`
	Restore     RestoreConfig  `mapstructure:"restore"`
	Workers     WorkersConfig  `mapstructure:"workers"`
	Recent      RecentConfig   `mapstructure:"recent"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Shutdown    ShutdownConfig `mapstructure:"shutdown"`
}

// PathsConfig overrides the per-user base directories.
// Empty values fall back to the XDG base directory defaults.
type PathsConfig struct {
	CacheDir  string `mapstructure:"cache_dir"`
	DataDir   string `mapstructure:"data_dir"`
	ConfigDir string `mapstructure:"config_dir"`
}

// HistoryConfig controls the navigation history
type HistoryConfig struct {
	// MaxItems bounds the backward stack (default: 100)
	MaxItems int `mapstructure:"max_items"`
	// MaxPerTarget bounds entries per file when saving (default: 5)
	MaxPerTarget int `mapstructure:"max_per_target"`
	// MaxFileSizeMB rejects larger history files on load (default: 10)
	MaxFileSizeMB int `mapstructure:"max_file_size_mb"`
	// ChainLines is the line distance under which jumps in one file coalesce (default: 5)
	ChainLines int `mapstructure:"chain_lines"`
}

// RestoreConfig controls replay of unsaved drafts after bring-up
type RestoreConfig struct {
	// Enabled restores drafts on open (default: true)
	Enabled bool `mapstructure:"enabled"`
	// MaxFiles is the largest snapshot that is replayed; larger ones are discarded (default: 20)
	MaxFiles int `mapstructure:"max_files"`
}

// WorkersConfig controls the background worker pool
type WorkersConfig struct {
	// PoolSize is the number of concurrent background tasks (default: 8)
	PoolSize int `mapstructure:"pool_size"`
}

// RecentConfig controls the recent projects index
type RecentConfig struct {
	// Enabled records opened projects (default: true)
	Enabled bool `mapstructure:"enabled"`
	// IgnoreDownloads skips projects below the Downloads directory (default: true)
	IgnoreDownloads bool `mapstructure:"ignore_downloads"`
	// LockTimeoutMs bounds how long to wait for the index lock (default: 2000)
	LockTimeoutMs int `mapstructure:"lock_timeout_ms"`
}

// LockTimeout returns the lock timeout as a duration.
func (r *RecentConfig) LockTimeout() time.Duration {
	return time.Duration(r.LockTimeoutMs) * time.Millisecond
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled writes a log file under the cache directory (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is one of debug, info, warn, error (default: "info")
	Level string `mapstructure:"level"`
}

// ShutdownConfig controls unload
type ShutdownConfig struct {
	// TimeoutSeconds bounds a CLI-driven unload, 0 = no limit (default: 30)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Timeout returns the shutdown timeout as a duration.
func (s *ShutdownConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		ProgramName: DefaultProgramName,
		History: HistoryConfig{
			MaxItems:      100,
			MaxPerTarget:  5,
			MaxFileSizeMB: 10,
			ChainLines:    5,
		},
		Restore: RestoreConfig{
			Enabled:  true,
			MaxFiles: 20,
		},
		Workers: WorkersConfig{
			PoolSize: 8,
		},
		Recent: RecentConfig{
			Enabled:         true,
			IgnoreDownloads: true,
			LockTimeoutMs:   2000,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		Shutdown: ShutdownConfig{
			TimeoutSeconds: 30,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("program_name", defaults.ProgramName)

	viper.SetDefault("paths.cache_dir", defaults.Paths.CacheDir)
	viper.SetDefault("paths.data_dir", defaults.Paths.DataDir)
	viper.SetDefault("paths.config_dir", defaults.Paths.ConfigDir)

	viper.SetDefault("history.max_items", defaults.History.MaxItems)
	viper.SetDefault("history.max_per_target", defaults.History.MaxPerTarget)
	viper.SetDefault("history.max_file_size_mb", defaults.History.MaxFileSizeMB)
	viper.SetDefault("history.chain_lines", defaults.History.ChainLines)

	viper.SetDefault("restore.enabled", defaults.Restore.Enabled)
	viper.SetDefault("restore.max_files", defaults.Restore.MaxFiles)

	viper.SetDefault("workers.pool_size", defaults.Workers.PoolSize)

	viper.SetDefault("recent.enabled", defaults.Recent.Enabled)
	viper.SetDefault("recent.ignore_downloads", defaults.Recent.IgnoreDownloads)
	viper.SetDefault("recent.lock_timeout_ms", defaults.Recent.LockTimeoutMs)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	viper.SetDefault("shutdown.timeout_seconds", defaults.Shutdown.TimeoutSeconds)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if it
// cannot be loaded.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

func (c *Config) programName() string {
	if c.ProgramName == "" {
		return DefaultProgramName
	}
	return c.ProgramName
}

// CacheDir returns <cache base>/<program_name>.
func (c *Config) CacheDir() string {
	return filepath.Join(baseDir(c.Paths.CacheDir, "XDG_CACHE_HOME", ".cache"), c.programName())
}

// DataDir returns <data base>/<program_name>.
func (c *Config) DataDir() string {
	return filepath.Join(baseDir(c.Paths.DataDir, "XDG_DATA_HOME", filepath.Join(".local", "share")), c.programName())
}

// UserConfigDir returns <config base>/<program_name>.
func (c *Config) UserConfigDir() string {
	return filepath.Join(baseDir(c.Paths.ConfigDir, "XDG_CONFIG_HOME", ".config"), c.programName())
}

// LogDir returns the directory for log files.
func (c *Config) LogDir() string {
	return filepath.Join(c.CacheDir(), "logs")
}

// HistoryMaxFileBytes returns MaxFileSizeMB in bytes.
func (h *HistoryConfig) HistoryMaxFileBytes() int64 {
	return int64(h.MaxFileSizeMB) << 20
}

// baseDir resolves an override, then the XDG variable, then ~/fallback.
func baseDir(override, xdgVar, homeRel string) string {
	if override != "" {
		return expandHome(override)
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return xdg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return homeRel
	}
	return filepath.Join(home, homeRel)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}

// ConfigDir returns the directory holding the config file
func ConfigDir() string {
	return filepath.Join(baseDir("", "XDG_CONFIG_HOME", ".config"), DefaultProgramName)
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
