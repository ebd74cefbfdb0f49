// Package logging configures the structured logger shared by every
// networkvector component. It is a thin layer over log/slog that adds file
// output, text or JSON rendering, and field helpers for scan events.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

const (
	logDirPerm  = 0750
	logFilePerm = 0600
)

// LogLevel is the minimum severity that is written.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Config holds logging configuration.
type Config struct {
	Level  LogLevel  `yaml:"level" json:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format LogFormat `yaml:"format" json:"format" mapstructure:"format" validate:"omitempty,oneof=text json"`
	// "stderr", "stdout" or a file path. Files are appended to.
	Output    string `yaml:"output" json:"output" mapstructure:"output"`
	AddSource bool   `yaml:"add_source" json:"add_source" mapstructure:"add_source"`
}

// DefaultConfig logs at info level as text on stderr, leaving stdout to the
// banner and summary table.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatText,
		Output: "stderr",
	}
}

// Logger is a slog.Logger with scan-specific helpers.
type Logger struct {
	*slog.Logger
}

// ParseLevel maps a LogLevel onto slog. Unknown values fall back to info.
func ParseLevel(l LogLevel) slog.Level {
	switch strings.ToLower(string(l)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing to cfg.Output.
func New(cfg Config) (*Logger, error) {
	w, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	return NewWithWriter(cfg, w), nil
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}
	if err := os.MkdirAll(filepath.Dir(output), logDirPerm); err != nil {
		return nil, err
	}
	return os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
}

// NewWithWriter builds a logger that writes to w, ignoring cfg.Output.
func NewWithWriter(cfg Config, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}
	if cfg.Format == FormatJSON {
		return &Logger{slog.New(slog.NewJSONHandler(w, opts))}
	}
	return &Logger{slog.New(slog.NewTextHandler(w, opts))}
}

// NewDiscard returns a logger that drops everything.
func NewDiscard() *Logger {
	return &Logger{slog.New(slog.DiscardHandler)}
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// WithComponent tags every record with the emitting component.
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithScanID tags every record with a session ID.
func (l *Logger) WithScanID(scanID string) *Logger {
	return l.with("scan_id", scanID)
}

// WithTarget tags every record with the address being worked on.
func (l *Logger) WithTarget(target string) *Logger {
	return l.with("target", target)
}

// InfoScan logs a per-target event.
func (l *Logger) InfoScan(msg, target string, args ...any) {
	l.Info(msg, append([]any{"target", target}, args...)...)
}

// ErrorScan logs a per-target failure.
func (l *Logger) ErrorScan(msg, target string, err error, args ...any) {
	l.Error(msg, append([]any{"target", target, "error", err}, args...)...)
}

// InfoPhase logs a dig phase transition.
func (l *Logger) InfoPhase(msg, phase string, args ...any) {
	l.Info(msg, append([]any{"phase", phase}, args...)...)
}

// WarnDegraded logs a collaborator failure that the scan tolerates.
func (l *Logger) WarnDegraded(msg, collaborator string, err error, args ...any) {
	l.Warn(msg, append([]any{"collaborator", collaborator, "error", err}, args...)...)
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NewWithWriter(DefaultConfig(), os.Stderr))
}

// SetDefault replaces the logger returned by Default. Components constructed
// without an explicit logger pick it up.
func SetDefault(logger *Logger) {
	if logger != nil {
		defaultLogger.Store(logger)
	}
}

// Default returns the process-wide logger.
func Default() *Logger {
	return defaultLogger.Load()
}
