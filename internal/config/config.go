package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	// MinReadBufferSize is the smallest PTY read buffer the pipeline accepts.
	MinReadBufferSize = 16 * 1024
	// MaxCoalesceWindow caps how long output may be held back for batching.
	MaxCoalesceWindow = 50 * time.Millisecond

	DefaultAddr           = "127.0.0.1:8585"
	DefaultShell          = "/bin/zsh"
	DefaultTermProgram    = "catnip-pty"
	DefaultCoalesceWindow = 2 * time.Millisecond
	DefaultKillGrace      = 2 * time.Second
	DefaultStreamBuffer   = 1024
)

// Config is the top-level configuration for the PTY host.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	PTY     PTYConfig     `yaml:"pty"`
}

// ServerConfig controls the HTTP/WebSocket surface.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	StreamBuffer int    `yaml:"stream_buffer"` // chunks held per session before backpressure
	AuthToken    string `yaml:"auth_token"`    // optional bearer token for /v1
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dev   bool   `yaml:"dev"` // console writer instead of JSON
}

// PTYConfig controls shell spawning and the output pipeline.
type PTYConfig struct {
	DefaultShell      string        `yaml:"default_shell"` // used when $SHELL is unset
	TermProgram       string        `yaml:"term_program"`
	ReadBufferSize    int           `yaml:"read_buffer_size"`
	CoalesceWindow    time.Duration `yaml:"coalesce_window"`
	KillGrace         time.Duration `yaml:"kill_grace"`
	ExtraDenylist     []string      `yaml:"extra_denylist"`      // additional env names to strip
	ExtraDenyPrefixes []string      `yaml:"extra_deny_prefixes"` // additional env prefixes to strip
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         DefaultAddr,
			StreamBuffer: DefaultStreamBuffer,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		PTY: PTYConfig{
			DefaultShell:   DefaultShell,
			TermProgram:    DefaultTermProgram,
			ReadBufferSize: MinReadBufferSize,
			CoalesceWindow: DefaultCoalesceWindow,
			KillGrace:      DefaultKillGrace,
		},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/catnip-pty/config.yaml or
// ~/.config/catnip-pty/config.yaml.
func DefaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "catnip-pty", "config.yaml")
}

// Load reads configuration from a YAML file, applies environment overrides
// and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// defaults
		default:
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	cfg.Validate()
	return cfg, nil
}

// ApplyEnv overlays CATNIP_PTY_* variables on top of the file values.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("CATNIP_PTY_ADDR"); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup("CATNIP_PTY_AUTH_TOKEN"); ok && v != "" {
		c.Server.AuthToken = v
	}
	if v, ok := lookup("CATNIP_PTY_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("CATNIP_PTY_DEFAULT_SHELL"); ok && v != "" {
		c.PTY.DefaultShell = v
	}
	if v, ok := lookup("DEBUG"); ok {
		if strings.EqualFold(v, "true") || v == "1" {
			c.Logging.Level = "debug"
		}
	}
}

// Validate clamps out-of-range values to something the pipeline can run with.
func (c *Config) Validate() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.StreamBuffer < 1 {
		c.Server.StreamBuffer = DefaultStreamBuffer
	}
	if c.PTY.DefaultShell == "" {
		c.PTY.DefaultShell = DefaultShell
	}
	if c.PTY.TermProgram == "" {
		c.PTY.TermProgram = DefaultTermProgram
	}
	if c.PTY.ReadBufferSize < MinReadBufferSize {
		c.PTY.ReadBufferSize = MinReadBufferSize
	}
	if c.PTY.CoalesceWindow < 0 {
		c.PTY.CoalesceWindow = 0
	}
	if c.PTY.CoalesceWindow > MaxCoalesceWindow {
		c.PTY.CoalesceWindow = MaxCoalesceWindow
	}
	if c.PTY.KillGrace <= 0 {
		c.PTY.KillGrace = DefaultKillGrace
	}
}
