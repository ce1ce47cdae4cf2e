package slogobs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below DEBUG and is used for per-key alias matching detail.
const LevelTrace = slog.LevelDebug - 4

// Environment variables consulted by GetLogLevelFromEnv, in priority order.
const (
	EnvLogLevel        = "REPLYPARSE_LOG_LEVEL"
	EnvLogLevelGeneric = "LOG_LEVEL"
)

// GetLogLevelFromEnv reads the log level from REPLYPARSE_LOG_LEVEL, then
// LOG_LEVEL, defaulting to INFO.
func GetLogLevelFromEnv() slog.Level {
	level := os.Getenv(EnvLogLevel)
	if level == "" {
		level = os.Getenv(EnvLogLevelGeneric)
	}
	if level == "" {
		return slog.LevelInfo
	}
	return ParseLogLevel(level)
}

// ParseLogLevel parses a log level string into slog.Level.
// Supported values: TRACE, DEBUG, INFO, WARN, WARNING, ERROR (case-insensitive).
// Unknown values map to INFO with a warning on stderr.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "Warning: Unknown log level '%s', using INFO\n", level)
		return slog.LevelInfo
	}
}

// LogLevelString returns a human-readable string for the log level.
func LogLevelString(level slog.Level) string {
	switch level {
	case LevelTrace:
		return "TRACE"
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", level)
	}
}
