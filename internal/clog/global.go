package clog

import (
	"io"
	"os"
)

// std is the global logger instance used by package-level functions.
var std = NewLogger()

// Configure sets up the global logger.
// If logPath is empty, file logging is disabled.
// If quiet is true, stderr output is disabled.
func Configure(logPath string, level Level, quiet bool) error {
	std.SetLevel(level)
	std.SetQuiet(quiet)

	if logPath != "" {
		f, err := OpenLogFile(logPath)
		if err != nil {
			return err
		}
		std.SetFileOutput(f)
	}

	return nil
}

// SetLevel sets the minimum log level for the global logger.
func SetLevel(level Level) {
	std.SetLevel(level)
}

// SetFileOutput sets the file writer for the global logger.
func SetFileOutput(w io.Writer) {
	std.SetFileOutput(w)
}

// SetErrOutput sets the stderr writer for the global logger.
func SetErrOutput(w io.Writer) {
	std.SetErrOutput(w)
}

// SetQuiet enables or disables quiet mode for the global logger.
func SetQuiet(quiet bool) {
	std.SetQuiet(quiet)
}

// Debug logs a debug message using the global logger.
func Debug(format string, args ...any) {
	std.Debug(format, args...)
}

// Info logs an informational message using the global logger.
func Info(format string, args ...any) {
	std.Info(format, args...)
}

// Warn logs a warning message using the global logger.
func Warn(format string, args ...any) {
	std.Warn(format, args...)
}

// Error logs an error message using the global logger.
func Error(format string, args ...any) {
	std.Error(format, args...)
}

// Close flushes the global logger and closes the file writer if it
// implements io.Closer.
func Close() error {
	std.mu.Lock()
	defer std.mu.Unlock()

	_ = std.sugar.Sync()
	if closer, ok := std.fileWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Reset resets the global logger to default state.
// This is primarily useful for testing.
func Reset() {
	std = NewLogger()
}

// Discard configures the global logger to discard all output.
func Discard() {
	std.SetFileOutput(io.Discard)
	std.SetErrOutput(io.Discard)
}

// ReplaceGlobal replaces the global logger and returns the previous one.
// Caller should restore the original logger after test.
func ReplaceGlobal(l *Logger) *Logger {
	old := std
	std = l
	return old
}

// Writer returns an io.Writer that writes to clog at the specified level.
// Used to route third-party library diagnostics into the log.
func Writer(level Level) io.Writer {
	return &levelWriter{level: level}
}

type levelWriter struct {
	level Level
}

func (w *levelWriter) Write(p []byte) (n int, err error) {
	msg := string(p)
	if len(msg) > 0 && msg[len(msg)-1] == '\n' {
		msg = msg[:len(msg)-1]
	}
	switch w.level {
	case LevelDebug:
		Debug("%s", msg)
	case LevelInfo:
		Info("%s", msg)
	case LevelWarn:
		Warn("%s", msg)
	case LevelError:
		Error("%s", msg)
	}
	return len(p), nil
}

func init() {
	std.SetErrOutput(os.Stderr)
}
