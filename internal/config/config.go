// Package config loads the server configuration.
//
// The server has no command-line flags. Defaults describe the standard
// deployment (port 8080 on all interfaces); they can be overridden by a YAML
// file named in FASTKV_CONFIG and then by FASTKV_* environment variables:
//
//	FASTKV_LISTEN_ADDR=tcp://127.0.0.1:9000
//	FASTKV_POOL_WORKERS=8
//	FASTKV_LOG_FILE=/var/log/fast-kv.log
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix = "FASTKV_"
	// FileEnv names the environment variable holding the optional YAML file path.
	FileEnv = "FASTKV_CONFIG"
)

type Config struct {
	Listen   ListenConfig   `koanf:"listen"`
	Pool     PoolConfig     `koanf:"pool"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Shutdown ShutdownConfig `koanf:"shutdown"`
}

type ListenConfig struct {
	// Addr is a gnet protocol address, e.g. tcp://0.0.0.0:8080.
	Addr      string `koanf:"addr"`
	ReuseAddr bool   `koanf:"reuseaddr"`
}

type PoolConfig struct {
	Workers int  `koanf:"workers"`
	Ordered bool `koanf:"ordered"`
}

type LogConfig struct {
	File       string `koanf:"file"`
	Level      string `koanf:"level"`
	MaxSize    int    `koanf:"maxsize"`
	MaxBackups int    `koanf:"maxbackups"`
	Stderr     bool   `koanf:"stderr"`
}

type MetricsConfig struct {
	// Addr enables the /metrics and /debug/pprof endpoint when non-empty.
	Addr string `koanf:"addr"`
}

type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			Addr:      "tcp://0.0.0.0:8080",
			ReuseAddr: true,
		},
		Log: LogConfig{
			File:       "fast-kv.log",
			Level:      "info",
			MaxSize:    1,
			MaxBackups: 1,
		},
		Shutdown: ShutdownConfig{Timeout: 5 * time.Second},
	}
}

// Load returns the defaults overlaid with the file named in FASTKV_CONFIG (if
// any) and FASTKV_* environment variables, validated.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv(FileEnv))
}

// LoadFrom is Load with an explicit file path. An empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// FASTKV_LOG_MAXSIZE -> log.maxsize
	transform := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Listen.Addr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.Pool.Workers < 0 {
		return fmt.Errorf("pool workers must be non-negative: %d", c.Pool.Workers)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.File == "" {
		return fmt.Errorf("log file must not be empty")
	}
	if c.Log.MaxSize < 1 {
		return fmt.Errorf("log max size must be positive: %d", c.Log.MaxSize)
	}
	if c.Log.MaxBackups < 0 {
		return fmt.Errorf("log max backups must be non-negative: %d", c.Log.MaxBackups)
	}
	if c.Shutdown.Timeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive: %s", c.Shutdown.Timeout)
	}
	return nil
}
