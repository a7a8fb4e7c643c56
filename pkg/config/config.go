// Package config loads YAML configuration for the central, lobby, and room
// servers, following the same env-var-expansion-then-unmarshal pattern
// across all three.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/playforge/gamehost/pkg/logging"
)

// LoggingConfig is the YAML shape for pkg/logging.Config.
type LoggingConfig struct {
	Level  string           `yaml:"level"`
	Format string           `yaml:"format"`
	Output string           `yaml:"output"`
	File   *logging.LogFile `yaml:"file,omitempty"`
}

// ToLoggingConfig converts to the concrete logging.Config the logger
// constructor expects.
func (l LoggingConfig) ToLoggingConfig() logging.Config {
	return logging.Config{Level: l.Level, Format: l.Format, Output: l.Output, File: l.File}
}

// MonitoringConfig configures the Prometheus /metrics and /health endpoints.
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// StorageConfig configures the Metadata Store and Package Store roots.
type StorageConfig struct {
	Root    string     `yaml:"root"`    // base dir for db/data and db/storage
	Backend string     `yaml:"backend"` // json, sqlite, postgres, mysql
	SQL     *SQLConfig `yaml:"sql,omitempty"`
}

// SQLConfig configures the SQL metadata backend's connection.
type SQLConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

// LoadYAML reads path, expands environment variables, and unmarshals into
// out. An empty path or a missing file is not an error: out is left
// unchanged, so callers that pre-fill defaults can run with those and flag
// overrides alone.
func LoadYAML(path string, out interface{}) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), out); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// ParseDuration parses durationStr, falling back to fallback on error or an
// empty string.
func ParseDuration(durationStr string, fallback time.Duration) time.Duration {
	if durationStr == "" {
		return fallback
	}
	if d, err := time.ParseDuration(durationStr); err == nil {
		return d
	}
	return fallback
}
