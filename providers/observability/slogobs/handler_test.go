package slogobs

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, format Format, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(&HandlerOptions{
		Format: format,
		Level:  level,
		Output: buf,
		Colors: false,
	}))
}

func TestHandler_Compact(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf, FormatCompact, slog.LevelDebug).Info("Fields mapped", "alias.key", "回复建议", "alias.exact_count", 2)

	output := buf.String()
	for _, want := range []string{"INFO", "Fields mapped", "→", `"alias.key":"回复建议"`, `"alias.exact_count":2`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in compact output, got: %s", want, output)
		}
	}
	if strings.Count(output, "\n") != 1 {
		t.Errorf("Expected a single line, got: %q", output)
	}
}

func TestHandler_Pretty(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf, FormatPretty, slog.LevelDebug).Info("Parse finished", "b", "second", "a", 1)

	output := buf.String()
	if !strings.Contains(output, "INFO") || !strings.Contains(output, "Parse finished") {
		t.Errorf("Expected level and message, got: %s", output)
	}

	// Attributes are sorted by key, the last one closes the tree.
	first := strings.Index(output, "├─ a: 1")
	last := strings.Index(output, "└─ b: second")
	if first < 0 || last < 0 || first > last {
		t.Errorf("Expected sorted tree attributes, got: %s", output)
	}
}

func TestHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf, FormatJSON, slog.LevelDebug).Info("Test message", "key1", "value1", "key2", 42)

	output := buf.String()
	for _, want := range []string{`"level":"INFO"`, `"msg":"Test message"`, `"key1":"value1"`, `"key2":42`, `"time":"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %s in JSON output, got: %s", want, output)
		}
	}
}

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, FormatCompact, slog.LevelWarn)
	logger.Debug("Should not appear")
	logger.Info("Should not appear")
	logger.Warn("Should appear")

	output := buf.String()
	if strings.Contains(output, "Should not appear") {
		t.Errorf("Expected DEBUG and INFO to be filtered out, got: %s", output)
	}
	if !strings.Contains(output, "Should appear") {
		t.Errorf("Expected WARN to appear, got: %s", output)
	}
}

func TestHandler_NoAttributes(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf, FormatCompact, slog.LevelDebug).Info("Message without attributes")

	output := buf.String()
	if strings.Contains(output, "→") || strings.Contains(output, "{}") {
		t.Errorf("Expected no attribute section, got: %s", output)
	}
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, FormatJSON, slog.LevelDebug)

	logger.With("operation", "op-1").WithGroup("alias").Info("matched", "key", "建议回复")

	output := buf.String()
	if !strings.Contains(output, `"operation":"op-1"`) {
		t.Errorf("Expected handler attribute, got: %s", output)
	}
	if !strings.Contains(output, `"alias.key":"建议回复"`) {
		t.Errorf("Expected group-prefixed key, got: %s", output)
	}
}

func TestHandler_Enabled(t *testing.T) {
	handler := NewHandler(&HandlerOptions{Format: FormatCompact, Level: slog.LevelInfo, Output: &bytes.Buffer{}})

	ctx := context.Background()
	if handler.Enabled(ctx, slog.LevelDebug) {
		t.Error("Expected DEBUG to be disabled when level is INFO")
	}
	for _, level := range []slog.Level{slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !handler.Enabled(ctx, level) {
			t.Errorf("Expected %v to be enabled when level is INFO", level)
		}
	}
}

func TestHandler_TraceLevel(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf, FormatCompact, LevelTrace).Log(context.Background(), LevelTrace, "Trace message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "TRACE") || !strings.Contains(output, "Trace message") {
		t.Errorf("Expected TRACE line, got: %s", output)
	}
}

func TestNewHandler_Defaults(t *testing.T) {
	h := NewHandler(nil)
	if h.format != FormatCompact {
		t.Errorf("NewHandler(nil).format = %v, want %v", h.format, FormatCompact)
	}
	if h.output == nil {
		t.Error("NewHandler(nil).output should default to stderr")
	}
}
