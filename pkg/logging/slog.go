// Package logging builds slog.Logger instances from YAML configuration,
// shared by the central, lobby, and room servers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is slog-compatible logging configuration.
type Config struct {
	Level  string   `yaml:"level"`  // debug, info, warn, error
	Format string   `yaml:"format"` // json, text
	Output string   `yaml:"output"` // stdout, stderr, file
	File   *LogFile `yaml:"file,omitempty"`
}

// LogFile configures the rotating file sink.
type LogFile struct {
	Directory string `yaml:"directory"`
	Filename  string `yaml:"filename"`
	MaxSize   string `yaml:"max_size"` // e.g. "100MB"
	MaxFiles  int    `yaml:"max_files"`
	MaxAge    string `yaml:"max_age"` // e.g. "14d"
	Compress  bool   `yaml:"compress"`
}

// NewLogger creates a configured slog.Logger.
func NewLogger(config Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(config.Level)}
	writer := createWriter(config)

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	return slog.New(handler)
}

// NewServiceLogger creates a logger tagged with service and component
// fields, matching the connection-lifecycle/dispatch-error logging style
// used throughout the central, lobby, and room servers.
func NewServiceLogger(serviceName, componentName string, config Config) *slog.Logger {
	return NewLogger(config).With("service", serviceName, "component", componentName)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func createWriter(config Config) io.Writer {
	switch strings.ToLower(config.Output) {
	case "stdout", "":
		return os.Stdout
	case "stderr":
		return os.Stderr
	case "file":
		if config.File == nil {
			fmt.Fprintln(os.Stderr, "logging: file output requested without file config, falling back to stdout")
			return os.Stdout
		}
		writer, err := createFileWriter(config.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging: failed to create file writer (%v), falling back to stdout\n", err)
			return os.Stdout
		}
		return writer
	default:
		fmt.Fprintf(os.Stderr, "logging: unknown output %q, falling back to stdout\n", config.Output)
		return os.Stdout
	}
}

func createFileWriter(config *LogFile) (io.Writer, error) {
	if err := os.MkdirAll(config.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	maxSize, err := parseSizeMB(config.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("invalid max_size: %w", err)
	}
	maxAge, err := parseAgeDays(config.MaxAge)
	if err != nil {
		return nil, fmt.Errorf("invalid max_age: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(config.Directory, config.Filename),
		MaxSize:    maxSize,
		MaxBackups: config.MaxFiles,
		MaxAge:     maxAge,
		Compress:   config.Compress,
	}, nil
}

func parseSizeMB(sizeStr string) (int, error) {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))
	if sizeStr == "" {
		return 100, nil
	}
	switch {
	case strings.HasSuffix(sizeStr, "GB"):
		var size int
		_, err := fmt.Sscanf(strings.TrimSuffix(sizeStr, "GB"), "%d", &size)
		return size * 1024, err
	case strings.HasSuffix(sizeStr, "MB"):
		var size int
		_, err := fmt.Sscanf(strings.TrimSuffix(sizeStr, "MB"), "%d", &size)
		return size, err
	default:
		var size int
		_, err := fmt.Sscanf(sizeStr, "%d", &size)
		return size, err
	}
}

func parseAgeDays(ageStr string) (int, error) {
	ageStr = strings.ToLower(strings.TrimSpace(ageStr))
	if ageStr == "" {
		return 14, nil
	}
	ageStr = strings.TrimSuffix(strings.TrimSuffix(ageStr, "days"), "d")
	var age int
	_, err := fmt.Sscanf(ageStr, "%d", &age)
	return age, err
}
