package slogobs

import (
	"os"
	"strings"
)

// Format represents the output format for logs.
type Format string

const (
	// FormatCompact is a single-line format with JSON attributes (default).
	// Example: 2026-03-02 10:40:35 DEBUG Fields mapped → {"alias.exact_count":2}
	FormatCompact Format = "compact"

	// FormatPretty is a multi-line format with one attribute per line, for reading parse traces by hand.
	// Example:
	// 2026-03-02 10:40:35 DEBUG  Fields mapped
	//                    └─ alias.exact_count: 2
	FormatPretty Format = "pretty"

	// FormatJSON is one JSON object per line, for log aggregation.
	// Example: {"time":"2026-03-02T10:40:35","level":"DEBUG","msg":"Fields mapped","alias.exact_count":2}
	FormatJSON Format = "json"
)

// Environment variables consulted by GetFormatFromEnv, in priority order.
const (
	EnvLogFormat        = "REPLYPARSE_LOG_FORMAT"
	EnvLogFormatGeneric = "LOG_FORMAT"
)

// ParseFormat parses a format string and returns the corresponding Format.
// If the format is invalid, it returns FormatCompact (default).
func ParseFormat(s string) Format {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "pretty":
		return FormatPretty
	case "json":
		return FormatJSON
	default:
		return FormatCompact
	}
}

// GetFormatFromEnv reads the log format from REPLYPARSE_LOG_FORMAT, then
// LOG_FORMAT, defaulting to FormatCompact.
func GetFormatFromEnv() Format {
	for _, key := range []string{EnvLogFormat, EnvLogFormatGeneric} {
		if format := os.Getenv(key); format != "" {
			return ParseFormat(format)
		}
	}
	return FormatCompact
}

// String returns the string representation of the Format.
func (f Format) String() string {
	return string(f)
}
