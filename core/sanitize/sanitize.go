package sanitize

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/replyparse/providers/observability"
)

// Options tunes one cleaning pass. The zero value runs the full pipeline
// without unicode repair or HTML conversion.
type Options struct {
	// DetailedLogging logs each step that changed the text at DEBUG.
	DetailedLogging bool
	// FixUnicode rewrites literal \uXXXX sequences into characters.
	FixUnicode bool
	// ExtractOnly skips every step except the JSON boundary scan.
	ExtractOnly bool
	// StripHTML converts HTML-wrapped responses to markdown before fence removal.
	StripHTML bool
}

// DefaultOptions is what the parser uses unless told otherwise. StripHTML is
// off; markdown rendering escapes characters in plain paragraphs.
func DefaultOptions() Options {
	return Options{FixUnicode: true}
}

// Sanitizer extracts the JSON payload from raw model text. It never fails:
// when no payload can be located the trimmed input comes back unchanged.
// A Sanitizer is stateless and safe for concurrent use.
type Sanitizer struct {
	observer observability.Provider
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithObserver sets the provider used for detailed logging.
func WithObserver(p observability.Provider) Option {
	return func(s *Sanitizer) {
		s.observer = p
	}
}

// New returns a Sanitizer.
func New(opts ...Option) *Sanitizer {
	s := &Sanitizer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultSanitizer = New()

// Clean runs the default sanitizer with opts.
func Clean(raw string, opts Options) string {
	return defaultSanitizer.Clean(context.Background(), raw, opts)
}

// Clean returns the JSON payload found in raw. Steps, in order: trim, HTML
// unwrap, markdown fence removal, unicode escape repair, boundary scan.
// Clean is idempotent: cleaning its own output returns the same text.
func (s *Sanitizer) Clean(ctx context.Context, raw string, opts Options) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}

	var steps []string
	if !opts.ExtractOnly {
		if opts.StripHTML && looksLikeHTML(text) {
			if converted, err := htmltomarkdown.ConvertString(text); err == nil && strings.TrimSpace(converted) != "" {
				text = strings.TrimSpace(converted)
				steps = append(steps, "html")
			}
		}
		if stripped, ok := stripFence(text); ok {
			text = stripped
			steps = append(steps, "fence")
		}
		if opts.FixUnicode {
			if fixed := fixUnicodeEscapes(text); fixed != text {
				text = fixed
				steps = append(steps, "unicode")
			}
		}
	}

	payload, found := extractPayload(text)
	if !found {
		payload = strings.TrimSpace(raw)
	} else if payload != text {
		steps = append(steps, "extract")
	}

	if opts.DetailedLogging {
		obs := observability.Resolve(ctx, s.observer)
		obs.Debug(ctx, "Text sanitized",
			observability.Int(observability.AttrRawLength, len([]rune(raw))),
			observability.Int(observability.AttrCleanedLength, len([]rune(payload))),
			observability.StringSlice(observability.AttrSanitizeSteps, steps),
			observability.Bool(observability.AttrSanitizeMiss, !found),
		)
	}
	return payload
}

// IsValid reports whether candidate is a non-empty, non-null JSON object or array.
func IsValid(candidate string) bool {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" || trimmed == "null" {
		return false
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return false
	}
	return json.Valid([]byte(trimmed))
}

var htmlPattern = regexp.MustCompile(`(?is)^\s*(<!doctype html|<html|<body|<div|<p>|<pre|<code)`)

func looksLikeHTML(s string) bool {
	return htmlPattern.MatchString(s)
}
