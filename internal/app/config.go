package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"sqlbadlands/internal/sandbox"
)

const EnvPrefix = "SQLBADLANDS_"

// Config controls runtime behavior for the server and the CLI.
type Config struct {
	Addr           string        `env:"ADDR"`
	Isolation      string        `env:"ISOLATION"`
	QueryTimeout   time.Duration `env:"QUERY_TIMEOUT"`
	DataDir        string        `env:"DATA_DIR"`
	LogPath        string        `env:"LOG_PATH"`
	LogFormat      string        `env:"LOG_FORMAT"`
	CurriculumPath string        `env:"CURRICULUM_PATH"`
	RecordAttempts bool          `env:"RECORD_ATTEMPTS"`
	Style          string        `env:"STYLE"`
	Debug          bool          `env:"DEBUG"`
}

func DefaultConfig() Config {
	return Config{
		Addr:           "127.0.0.1:3000",
		Isolation:      sandbox.IsolationSnapshot,
		QueryTimeout:   5 * time.Second,
		LogFormat:      "json",
		RecordAttempts: true,
		Style:          "badlands",
	}
}

// ApplyEnv overrides fields from SQLBADLANDS_* variables. A nil environ
// reads the process environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Isolation {
	case "":
		c.Isolation = sandbox.IsolationSnapshot
	case sandbox.IsolationSnapshot, sandbox.IsolationRollback:
	default:
		return fmt.Errorf("invalid isolation mode %q", c.Isolation)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("invalid query timeout %s", c.QueryTimeout)
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 5 * time.Second
	}
	switch c.LogFormat {
	case "":
		c.LogFormat = "json"
	case "json", "logfmt", "text":
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	if c.Addr == "" {
		c.Addr = "127.0.0.1:3000"
	}
	if c.Style == "" {
		c.Style = "badlands"
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("cannot resolve user home directory")
		}
		c.DataDir = filepath.Join(home, ".local", "share", "sqlbadlands")
	}
	if c.LogPath == "" {
		c.LogPath = filepath.Join(c.DataDir, "sqlbadlands.log")
	}
	return nil
}
