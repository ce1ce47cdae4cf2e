package fallback

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/leofalp/replyparse/core/record"
	"github.com/leofalp/replyparse/providers/observability"
)

// ErrUnknownKind is returned for a record kind outside record.Kinds.
var ErrUnknownKind = errors.New("unknown record kind")

// Options carries what the synthesizer knows about the failed parse.
type Options struct {
	// OriginalText is the raw model response, used for inference and logging.
	OriginalText string
	// OperationType names the calling operation in logs (e.g. "analyze").
	OperationType string
	// Cause is the decode failure, when the caller did not pass it directly.
	Cause error
	// IntelligentInference scans OriginalText for values of fields that would
	// otherwise be defaulted.
	IntelligentInference bool
	// DetailedLogging logs the truncated original text at DEBUG.
	DetailedLogging bool
}

// Synthesizer turns failed or partial decodes into fully populated records.
// It holds no mutable state and is safe for concurrent use.
type Synthesizer struct {
	observer observability.Provider
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithObserver sets the observability provider.
func WithObserver(p observability.Provider) Option {
	return func(s *Synthesizer) {
		s.observer = p
	}
}

// New returns a Synthesizer.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleParsingFailure answers a failed decode with the default record of
// kind, or with inferred values when opts.IntelligentInference is set. It
// succeeds for every valid kind whatever err is, nil included.
func (s *Synthesizer) HandleParsingFailure(ctx context.Context, err error, kind record.Kind, opts Options) record.Outcome[record.Record] {
	if err == nil {
		err = opts.Cause
	}
	return s.synthesize(ctx, kind, nil, err, opts)
}

// HandlePartialResult completes partial with defaults. Each field present in
// partial overrides its default exactly; values of the wrong Go type are
// ignored. With inference enabled, only absent fields are inferred.
func (s *Synthesizer) HandlePartialResult(ctx context.Context, partial record.Fields, kind record.Kind, opts Options) record.Outcome[record.Record] {
	return s.synthesize(ctx, kind, partial, opts.Cause, opts)
}

// GenerateDefault returns the default record of kind, filled in from
// opts.OriginalText when inference is enabled. It returns nil for an unknown kind.
func (s *Synthesizer) GenerateDefault(kind record.Kind, opts Options) record.Record {
	if !kind.Valid() {
		return nil
	}
	if !opts.IntelligentInference {
		return record.Default(kind)
	}
	return record.Build(kind, Infer(kind, opts.OriginalText))
}

func (s *Synthesizer) synthesize(ctx context.Context, kind record.Kind, partial record.Fields, cause error, opts Options) (out record.Outcome[record.Record]) {
	if !kind.Valid() {
		return record.Failure[record.Record](fmt.Errorf("%w: %v", ErrUnknownKind, kind))
	}

	obs := observability.Resolve(ctx, s.observer)
	ctx, span := obs.StartSpan(ctx, observability.SpanFallback,
		observability.String(observability.AttrRecordKind, kind.String()),
		observability.String(observability.AttrOperationType, opts.OperationType),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			obs.Error(ctx, "Fallback synthesis panicked, returning default record",
				observability.String(observability.AttrRecordKind, kind.String()),
				observability.String(observability.AttrError, fmt.Sprint(r)),
			)
			span.SetStatus(observability.StatusError, "panic recovered")
			out = record.Success(record.Default(kind), record.SourceDefault)
		}
	}()

	fields := record.Fields{}
	var recovered []string
	for _, name := range kind.FieldNames() {
		if v, ok := partial[name]; ok && kind.Accepts(name, v) {
			fields[name] = v
			recovered = append(recovered, name)
		}
	}

	var inferred []string
	if opts.IntelligentInference {
		guesses := Infer(kind, opts.OriginalText)
		for _, name := range slices.Sorted(maps.Keys(guesses)) {
			if !fields.Has(name) {
				fields[name] = guesses[name]
				inferred = append(inferred, name)
			}
		}
	}

	source := record.SourceDefault
	switch {
	case len(recovered) > 0:
		source = record.SourcePartial
	case len(inferred) > 0:
		source = record.SourceInferred
	}
	rec := record.Build(kind, fields)

	reason := reasonOf(cause)
	attrs := []observability.Attribute{
		observability.String(observability.AttrRecordKind, kind.String()),
		observability.String(observability.AttrSource, source.String()),
		observability.String(observability.AttrOperationType, opts.OperationType),
	}
	span.SetAttributes(append(attrs,
		observability.StringSlice(observability.AttrRecoveredFields, recovered),
		observability.StringSlice(observability.AttrFallbackInferred, inferred),
	)...)
	if cause != nil {
		span.RecordError(cause)
	}
	span.SetStatus(observability.StatusOK, "fallback record synthesized")
	obs.Counter(observability.MetricFallbackCount).Add(ctx, 1, attrs...)

	if partial == nil {
		obs.Warn(ctx, "Parsing failed, using fallback record",
			append(attrs,
				observability.String(observability.AttrFallbackReason, reason),
				observability.StringSlice(observability.AttrFallbackInferred, inferred),
			)...,
		)
	} else {
		obs.Info(ctx, "Partial result completed with defaults",
			append(attrs,
				observability.StringSlice(observability.AttrRecoveredFields, recovered),
				observability.StringSlice(observability.AttrFallbackInferred, inferred),
			)...,
		)
	}
	if opts.DetailedLogging {
		obs.Debug(ctx, "Fallback input",
			observability.Int(observability.AttrRawLength, len(opts.OriginalText)),
			observability.String(observability.AttrRawText, observability.TruncateStringDefault(opts.OriginalText)),
		)
	}

	return record.Success(rec, source)
}

func reasonOf(err error) string {
	if err == nil {
		return "unknown"
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fmt.Sprintf("%T with empty message", err)
}
