package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Listen.Addr != "tcp://0.0.0.0:8080" {
		t.Errorf("Listen.Addr = %q", cfg.Listen.Addr)
	}
	if cfg.Log.File != "fast-kv.log" || cfg.Log.MaxSize != 1 {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Pool.Workers != 0 || cfg.Pool.Ordered {
		t.Errorf("Pool = %+v", cfg.Pool)
	}
	if cfg.Metrics.Addr != "" {
		t.Errorf("Metrics.Addr = %q, want disabled", cfg.Metrics.Addr)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("FASTKV_LISTEN_ADDR", "tcp://127.0.0.1:9000")
	t.Setenv("FASTKV_POOL_WORKERS", "3")
	t.Setenv("FASTKV_POOL_ORDERED", "true")
	t.Setenv("FASTKV_LOG_MAXBACKUPS", "4")
	t.Setenv("FASTKV_SHUTDOWN_TIMEOUT", "2s")

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Listen.Addr != "tcp://127.0.0.1:9000" {
		t.Errorf("Listen.Addr = %q", cfg.Listen.Addr)
	}
	if cfg.Pool.Workers != 3 || !cfg.Pool.Ordered {
		t.Errorf("Pool = %+v", cfg.Pool)
	}
	if cfg.Log.MaxBackups != 4 {
		t.Errorf("Log.MaxBackups = %d, want 4", cfg.Log.MaxBackups)
	}
	if cfg.Log.File != "fast-kv.log" {
		t.Errorf("Log.File = %q, default should be kept", cfg.Log.File)
	}
	if cfg.Shutdown.Timeout != 2*time.Second {
		t.Errorf("Shutdown.Timeout = %s, want 2s", cfg.Shutdown.Timeout)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fast-kv.yaml")
	content := `
listen:
  addr: "tcp://127.0.0.1:7000"
log:
  file: "/tmp/kv.log"
  level: debug
metrics:
  addr: "127.0.0.1:9090"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("FASTKV_LOG_LEVEL", "warn")
	t.Setenv(FileEnv, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen.Addr != "tcp://127.0.0.1:7000" {
		t.Errorf("Listen.Addr = %q", cfg.Listen.Addr)
	}
	if cfg.Log.File != "/tmp/kv.log" {
		t.Errorf("Log.File = %q", cfg.Log.File)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, env should win over file", cfg.Log.Level)
	}
	if cfg.Metrics.Addr != "127.0.0.1:9090" {
		t.Errorf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFrom() with missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Listen.Addr = "" }},
		{"negative workers", func(c *Config) { c.Pool.Workers = -1 }},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }},
		{"empty log file", func(c *Config) { c.Log.File = "" }},
		{"zero max size", func(c *Config) { c.Log.MaxSize = 0 }},
		{"negative backups", func(c *Config) { c.Log.MaxBackups = -1 }},
		{"negative timeout", func(c *Config) { c.Shutdown.Timeout = -time.Second }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}
