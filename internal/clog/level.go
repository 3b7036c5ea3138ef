// Package clog provides operational logging for gh-gate.
// This is distinct from user-facing output (see internal/term) and from the
// decision trail (see internal/audit).
//
// Output destinations:
//   - File: every level at or above the configured one
//   - Stderr: Warn and Error only, disabled in quiet mode
package clog

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level represents the severity of a log message.
type Level int

const (
	// LevelDebug is for verbose diagnostic information.
	LevelDebug Level = iota
	// LevelInfo is for normal operational events.
	LevelInfo
	// LevelWarn is for unexpected conditions that don't prevent operation.
	LevelWarn
	// LevelError is for failures that affect functionality.
	LevelError
)

// String returns the uppercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zap() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel parses a level string (case-insensitive).
// Returns LevelInfo if the string is not recognized.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error", "err":
		return LevelError
	default:
		return LevelInfo
	}
}

// ValidLevel reports whether s names a level ParseLevel understands.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error", "err":
		return true
	}
	return false
}
