package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.ProgramName != "idecore" {
		t.Errorf("ProgramName = %q, want %q", cfg.ProgramName, "idecore")
	}
	if cfg.History.MaxItems != 100 {
		t.Errorf("History.MaxItems = %d, want 100", cfg.History.MaxItems)
	}
	if cfg.History.MaxPerTarget != 5 {
		t.Errorf("History.MaxPerTarget = %d, want 5", cfg.History.MaxPerTarget)
	}
	if cfg.History.MaxFileSizeMB != 10 {
		t.Errorf("History.MaxFileSizeMB = %d, want 10", cfg.History.MaxFileSizeMB)
	}
	if cfg.History.ChainLines != 5 {
		t.Errorf("History.ChainLines = %d, want 5", cfg.History.ChainLines)
	}
	if !cfg.Restore.Enabled {
		t.Error("Restore.Enabled should be true by default")
	}
	if cfg.Restore.MaxFiles != 20 {
		t.Errorf("Restore.MaxFiles = %d, want 20", cfg.Restore.MaxFiles)
	}
	if cfg.Workers.PoolSize != 8 {
		t.Errorf("Workers.PoolSize = %d, want 8", cfg.Workers.PoolSize)
	}
	if !cfg.Recent.IgnoreDownloads {
		t.Error("Recent.IgnoreDownloads should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()
	if got := cfg.Recent.LockTimeout(); got != 2*time.Second {
		t.Errorf("LockTimeout() = %v, want 2s", got)
	}
	if got := cfg.Shutdown.Timeout(); got != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", got)
	}
	if got := cfg.History.HistoryMaxFileBytes(); got != 10*1024*1024 {
		t.Errorf("HistoryMaxFileBytes() = %d, want %d", got, 10*1024*1024)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got, want := ConfigDir(), "/custom/config/idecore"; got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
		if got, want := ConfigFile(), "/custom/config/idecore/config.yaml"; got != want {
			t.Errorf("ConfigFile() = %q, want %q", got, want)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, _ := os.UserHomeDir()
		if got, want := ConfigDir(), filepath.Join(home, ".config", "idecore"); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})
}

func TestConfig_Dirs(t *testing.T) {
	t.Run("xdg defaults use program name", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "/xdg/cache")
		t.Setenv("XDG_DATA_HOME", "/xdg/data")
		cfg := Default()
		cfg.ProgramName = "builder"

		if got, want := cfg.CacheDir(), "/xdg/cache/builder"; got != want {
			t.Errorf("CacheDir() = %q, want %q", got, want)
		}
		if got, want := cfg.DataDir(), "/xdg/data/builder"; got != want {
			t.Errorf("DataDir() = %q, want %q", got, want)
		}
		if got, want := cfg.LogDir(), "/xdg/cache/builder/logs"; got != want {
			t.Errorf("LogDir() = %q, want %q", got, want)
		}
	})

	t.Run("overrides win", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "/xdg/cache")
		cfg := Default()
		cfg.Paths.CacheDir = "/override"
		if got, want := cfg.CacheDir(), "/override/idecore"; got != want {
			t.Errorf("CacheDir() = %q, want %q", got, want)
		}
	})

	t.Run("home expansion", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		cfg := Default()
		cfg.Paths.DataDir = "~/state"
		if got, want := cfg.DataDir(), filepath.Join(home, "state", "idecore"); got != want {
			t.Errorf("DataDir() = %q, want %q", got, want)
		}
	})

	t.Run("empty program name falls back", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
		cfg := &Config{}
		if got, want := cfg.UserConfigDir(), "/xdg/config/idecore"; got != want {
			t.Errorf("UserConfigDir() = %q, want %q", got, want)
		}
	})
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.History.MaxItems != 100 {
		t.Errorf("Get().History.MaxItems = %d, want 100", cfg.History.MaxItems)
	}
}

func TestLoad_Invalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("workers.pool_size", 0)

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail for pool_size 0")
	}
	if got := Get(); got.Workers.PoolSize != 8 {
		t.Errorf("Get() should fall back to defaults, pool_size = %d", got.Workers.PoolSize)
	}
}
