package clog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger handles leveled logging with a file sink and a stderr sink.
type Logger struct {
	mu         sync.Mutex
	level      Level     // minimum level to log
	fileWriter io.Writer // receives every line at or above level
	errWriter  io.Writer // receives warn/error unless quiet
	quiet      bool
	sugar      *zap.SugaredLogger
}

// NewLogger creates a new logger with default settings.
// By default, logs go to stderr at Info level.
func NewLogger() *Logger {
	l := &Logger{
		level:     LevelInfo,
		errWriter: os.Stderr,
	}
	l.rebuild()
	return l
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.rebuild()
}

// SetFileOutput sets the file writer for log output.
// Pass nil to disable file logging.
func (l *Logger) SetFileOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fileWriter = w
	l.rebuild()
}

// SetErrOutput sets the stderr writer for warn/error output.
// Pass nil to disable stderr logging.
func (l *Logger) SetErrOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errWriter = w
	l.rebuild()
}

// SetQuiet enables or disables quiet mode.
// In quiet mode, logs only go to the file writer, never to stderr, so the
// wrapped command's own stderr stays clean.
func (l *Logger) SetQuiet(quiet bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quiet = quiet
	l.rebuild()
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LevelDebug, format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

func (l *Logger) log(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch level {
	case LevelDebug:
		l.sugar.Debugf(format, args...)
	case LevelInfo:
		l.sugar.Infof(format, args...)
	case LevelWarn:
		l.sugar.Warnf(format, args...)
	default:
		l.sugar.Errorf(format, args...)
	}
}

// rebuild assembles the zap core tee from the current settings.
// Callers must hold l.mu.
func (l *Logger) rebuild() {
	min := l.level.zap()
	var cores []zapcore.Core

	if l.fileWriter != nil {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig(true)),
			zapcore.AddSync(l.fileWriter),
			min,
		))
	}

	if !l.quiet && l.errWriter != nil {
		stderrMin := min
		if stderrMin < zapcore.WarnLevel {
			stderrMin = zapcore.WarnLevel
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig(false)),
			zapcore.AddSync(l.errWriter),
			stderrMin,
		))
	}

	l.sugar = zap.New(zapcore.NewTee(cores...)).Sugar()
}

// encoderConfig renders "ts [LEVEL] msg" lines, without the timestamp
// for the stderr sink.
func encoderConfig(withTime bool) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
		EncodeLevel: func(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + fromZap(lvl).String() + "]")
		},
	}
	if withTime {
		cfg.TimeKey = "ts"
		cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.UTC().Format(time.RFC3339))
		}
	}
	return cfg
}

func fromZap(lvl zapcore.Level) Level {
	switch {
	case lvl <= zapcore.DebugLevel:
		return LevelDebug
	case lvl == zapcore.InfoLevel:
		return LevelInfo
	case lvl == zapcore.WarnLevel:
		return LevelWarn
	default:
		return LevelError
	}
}

// OpenLogFile opens a log file for writing, creating parent directories if needed.
// The file is opened in append mode.
func OpenLogFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return f, nil
}

// StateDir returns the XDG state directory for gh-gate.
// Returns ~/.local/state/gh-gate unless XDG_STATE_HOME is set.
func StateDir() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "gh-gate")
}

// DefaultLogPath returns the default operational log path,
// ~/.local/state/gh-gate/gh-gate.log.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "gh-gate.log")
}
