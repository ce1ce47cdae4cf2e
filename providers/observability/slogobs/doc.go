// Package slogobs provides an observability.Provider backed by log/slog.
//
// Logs go through a [Handler] that writes compact, pretty or JSON lines.
// Counters and histograms are kept in memory and logged at DEBUG; [Observer.Snapshot]
// reads them back, which the CLI uses for its batch summary.
// Format and level come from REPLYPARSE_LOG_FORMAT and REPLYPARSE_LOG_LEVEL
// unless overridden with [WithFormat] and [WithLevel].
package slogobs
