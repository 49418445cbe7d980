// Package logging provides the leveled, prefixed logger used across tagfs.
// Records are written through zap: console encoding for development and
// JSON otherwise.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	// LevelError only logs errors
	LevelError LogLevel = iota
	// LevelWarn logs warnings and errors
	LevelWarn
	// LevelInfo logs general information, warnings and errors
	LevelInfo
	// LevelDebug logs detailed debug information and all above
	LevelDebug
	// LevelTrace logs very detailed trace information and all above
	LevelTrace
)

var levelNames = map[LogLevel]string{
	LevelError: "ERROR",
	LevelWarn:  "WARN",
	LevelInfo:  "INFO",
	LevelDebug: "DEBUG",
	LevelTrace: "TRACE",
}

// String returns the upper-case level name.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel converts a level name such as "debug" or "TRACE" to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for level, levelName := range levelNames {
		if levelName == upper {
			return level, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// Config describes where and how records are written.
type Config struct {
	Level       LogLevel
	Development bool
	// OutputPaths are zap sink URLs or file paths; "stdout" and "stderr"
	// are accepted.
	OutputPaths []string
}

// sink is shared by a logger and every logger derived from it, so that
// reconfiguring the root logger also reaches prefixed children.
type sink struct {
	mu    sync.RWMutex
	level LogLevel
	sugar *zap.SugaredLogger
}

// Logger provides structured logging capabilities
type Logger struct {
	prefix string
	sink   *sink
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// GetLogger returns the default logger instance
func GetLogger() *Logger {
	once.Do(func() {
		defaultLogger = NewLogger("TAGFS")

		// Set initial log level from environment
		if env := os.Getenv("LOG_LEVEL"); env != "" {
			if level, err := ParseLevel(env); err == nil {
				defaultLogger.SetLevel(level)
			}
		}

		// Enable debug logging if FUSE_DEBUG is set
		if os.Getenv("FUSE_DEBUG") != "" {
			defaultLogger.SetLevel(LevelDebug)
		}
	})
	return defaultLogger
}

// NewLogger creates a new logger with the given prefix, writing
// development-encoded records to stdout.
func NewLogger(prefix string) *Logger {
	sugar, err := build(Config{Development: true, OutputPaths: []string{"stdout"}})
	if err != nil {
		sugar = zap.NewNop().Sugar()
	}
	return &Logger{
		prefix: prefix,
		sink: &sink{
			level: LevelInfo, // Default to INFO level
			sugar: sugar,
		},
	}
}

// Configure rebuilds the underlying zap logger. Loggers previously derived
// with WithPrefix pick up the new configuration.
func (l *Logger) Configure(cfg Config) error {
	sugar, err := build(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	l.sink.mu.Lock()
	old := l.sink.sugar
	l.sink.sugar = sugar
	l.sink.level = cfg.Level
	l.sink.mu.Unlock()

	_ = old.Sync()
	return nil
}

// Sync flushes buffered records.
func (l *Logger) Sync() error {
	l.sink.mu.RLock()
	defer l.sink.mu.RUnlock()
	return l.sink.sugar.Sync()
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

// Level reports the current logging level.
func (l *Logger) Level() LogLevel {
	l.sink.mu.RLock()
	defer l.sink.mu.RUnlock()
	return l.sink.level
}

// log performs the actual logging
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.sink.mu.RLock()
	if level > l.sink.level {
		l.sink.mu.RUnlock()
		return
	}
	sugar := l.sink.sugar
	l.sink.mu.RUnlock()

	msg := fmt.Sprintf(format, args...)
	switch level {
	case LevelError:
		sugar.Errorw(msg, "component", l.prefix)
	case LevelWarn:
		sugar.Warnw(msg, "component", l.prefix)
	case LevelInfo:
		sugar.Infow(msg, "component", l.prefix)
	case LevelDebug:
		sugar.Debugw(msg, "component", l.prefix)
	default:
		sugar.Debugw(msg, "component", l.prefix, "trace", true)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Trace logs a trace message
func (l *Logger) Trace(format string, args ...interface{}) {
	l.log(LevelTrace, format, args...)
}

// WithPrefix creates a new logger with a different prefix sharing this
// logger's level and output.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		sink:   l.sink,
	}
}

// build creates a zap logger that accepts every level; filtering happens in
// Logger.log so that Trace can sit below zap's Debug.
func build(cfg Config) (*zap.SugaredLogger, error) {
	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	encoding := "json"
	encoder := zap.NewProductionEncoderConfig()
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Development {
		encoding = "console"
		encoder = zap.NewDevelopmentEncoderConfig()
		encoder.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	zapCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(zapcore.DebugLevel),
		Development:       cfg.Development,
		Encoding:          encoding,
		EncoderConfig:     encoder,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}

	logger, err := zapCfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
