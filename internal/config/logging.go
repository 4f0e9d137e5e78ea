package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelDebug
)

// ParseLogLevel parses a log level string.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "info":
		return LogLevelInfo
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelError:
		return "error"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelOff, LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Logger writes JSON log lines to a file through zap.
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	atom     zap.AtomicLevel
	sugar    *zap.SugaredLogger
	filePath string
}

// NewLogger creates a new logger writing to filePath.
// An empty path or LogLevelOff yields a logger that discards everything.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	logger := &Logger{
		level:    level,
		atom:     zap.NewAtomicLevelAt(level.zapLevel()),
		filePath: filePath,
	}

	if level == LogLevelOff || filePath == "" {
		return logger, nil
	}

	filePath = ExpandHome(filePath)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = logger.atom
	cfg.Sampling = nil
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{filePath}
	cfg.ErrorOutputPaths = []string{filePath}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	logger.sugar = zl.Sugar()
	logger.filePath = filePath
	return logger, nil
}

// NewLoggerFromZap wraps an existing zap logger.
func NewLoggerFromZap(level LogLevel, zl *zap.Logger) *Logger {
	return &Logger{
		level: level,
		atom:  zap.NewAtomicLevelAt(level.zapLevel()),
		sugar: zl.Sugar(),
	}
}

// Close flushes buffered entries.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sugar == nil {
		return nil
	}
	// Sync on a regular file succeeds; errors from stdout/stderr sinks are ignored.
	_ = l.sugar.Sync()
	return nil
}

// SetLevel changes the log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.atom.SetLevel(level.zapLevel())
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// FilePath returns the resolved log file path.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	if s := l.active(LogLevelDebug); s != nil {
		s.Debugf(format, args...)
	}
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	if s := l.active(LogLevelInfo); s != nil {
		s.Infof(format, args...)
	}
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	if s := l.active(LogLevelError); s != nil {
		s.Errorf(format, args...)
	}
}

// active returns the sugared logger when a message at level should be written.
func (l *Logger) active(level LogLevel) *zap.SugaredLogger {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sugar == nil || l.level == LogLevelOff || level > l.level {
		return nil
	}
	return l.sugar
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{level: LogLevelOff, atom: zap.NewAtomicLevel()}
}
