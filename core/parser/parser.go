package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/leofalp/replyparse/core/alias"
	"github.com/leofalp/replyparse/core/fallback"
	"github.com/leofalp/replyparse/core/record"
	"github.com/leofalp/replyparse/core/sanitize"
	"github.com/leofalp/replyparse/internal/jsonschema"
	"github.com/leofalp/replyparse/internal/utils"
	"github.com/leofalp/replyparse/providers/observability"
)

// ErrDecode wraps every failure reported by the Direct strategy.
var ErrDecode = errors.New("response does not decode as the requested record")

// Parser turns raw model responses into records. It is safe for concurrent
// use; the alias registry is the only state shared between calls.
type Parser struct {
	registry    *alias.Registry
	sanitizer   *sanitize.Sanitizer
	synthesizer *fallback.Synthesizer
	observer    observability.Provider

	cleanOpts sanitize.Options
	mapOpts   alias.Options
	inference bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithRegistry shares r with the parser. Learned aliases are written to it.
func WithRegistry(r *alias.Registry) Option {
	return func(p *Parser) {
		p.registry = r
	}
}

// WithSanitizer replaces the default sanitizer.
func WithSanitizer(s *sanitize.Sanitizer) Option {
	return func(p *Parser) {
		p.sanitizer = s
	}
}

// WithSynthesizer replaces the default fallback synthesizer.
func WithSynthesizer(s *fallback.Synthesizer) Option {
	return func(p *Parser) {
		p.synthesizer = s
	}
}

// WithObserver sets the observability provider. It is also handed to the
// stages through the context, so they need not be configured separately.
func WithObserver(o observability.Provider) Option {
	return func(p *Parser) {
		p.observer = o
	}
}

// WithCleanOptions replaces sanitize.DefaultOptions.
func WithCleanOptions(opts sanitize.Options) Option {
	return func(p *Parser) {
		p.cleanOpts = opts
	}
}

// WithMappingOptions replaces alias.DefaultOptions.
func WithMappingOptions(opts alias.Options) Option {
	return func(p *Parser) {
		p.mapOpts = opts
	}
}

// WithInference enables text inference for fields the fallback would
// otherwise leave at their defaults.
func WithInference(enabled bool) Option {
	return func(p *Parser) {
		p.inference = enabled
	}
}

// New returns a Parser with its own registry, holding alias.DefaultTable,
// unless WithRegistry is given.
func New(opts ...Option) *Parser {
	p := &Parser{
		cleanOpts: sanitize.DefaultOptions(),
		mapOpts:   alias.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = alias.NewRegistry()
	}
	if p.sanitizer == nil {
		p.sanitizer = sanitize.New()
	}
	if p.synthesizer == nil {
		p.synthesizer = fallback.New()
	}
	return p
}

// Registry returns the alias registry the parser maps and learns with.
func (p *Parser) Registry() *alias.Registry {
	return p.registry
}

// Parse parses raw as a record of type T.
//
// Example usage:
//
//	out := parser.Parse[record.AnalysisResult](ctx, p, raw, parser.Context{Strategy: parser.Resilient})
//	if out.OK() {
//	    fmt.Println(out.Value.ReplySuggestion)
//	}
func Parse[T record.Record](ctx context.Context, p *Parser, raw string, pc Context) record.Outcome[T] {
	var zero T
	if any(zero) == nil {
		return record.Failure[T](fmt.Errorf("%w: %v is not a concrete record type", fallback.ErrUnknownKind, reflect.TypeFor[T]()))
	}
	return record.As[T](p.ParseKind(ctx, zero.Kind(), raw, pc))
}

// ParseAnalysis parses raw as an AnalysisResult.
func (p *Parser) ParseAnalysis(ctx context.Context, raw string, pc Context) record.Outcome[record.AnalysisResult] {
	return Parse[record.AnalysisResult](ctx, p, raw, pc)
}

// ParseSafetyCheck parses raw as a SafetyCheckResult.
func (p *Parser) ParseSafetyCheck(ctx context.Context, raw string, pc Context) record.Outcome[record.SafetyCheckResult] {
	return Parse[record.SafetyCheckResult](ctx, p, raw, pc)
}

// ParseExtraction parses raw as ExtractedData.
func (p *Parser) ParseExtraction(ctx context.Context, raw string, pc Context) record.Outcome[record.ExtractedData] {
	return Parse[record.ExtractedData](ctx, p, raw, pc)
}

// ParseKind parses raw as a record of kind. Only the Direct strategy can
// return a failure (wrapping ErrDecode); the others always succeed with a
// fully populated record whose Source tells how it was obtained.
func (p *Parser) ParseKind(ctx context.Context, kind record.Kind, raw string, pc Context) record.Outcome[record.Record] {
	if !kind.Valid() {
		return record.Failure[record.Record](fmt.Errorf("%w: %v", fallback.ErrUnknownKind, kind))
	}
	pc = pc.withDefaults()

	obs := observability.Resolve(ctx, p.observer)
	ctx = observability.ContextWithObserver(ctx, obs)

	attrs := []observability.Attribute{
		observability.String(observability.AttrOperationID, pc.OperationID),
		observability.String(observability.AttrStrategy, pc.Strategy.String()),
		observability.String(observability.AttrRecordKind, kind.String()),
	}
	if pc.ModelName != "" {
		attrs = append(attrs, observability.String(observability.AttrModelName, pc.ModelName))
	}
	if pc.OperationType != "" {
		attrs = append(attrs, observability.String(observability.AttrOperationType, pc.OperationType))
	}

	ctx, span := obs.StartSpan(ctx, observability.SpanParse, attrs...)
	defer span.End()

	obs.Debug(ctx, "Parsing response", append(attrs, observability.Int(observability.AttrRawLength, len(raw)))...)
	if pc.DetailedLogging {
		obs.Debug(ctx, "Raw response",
			observability.String(observability.AttrOperationID, pc.OperationID),
			observability.String(observability.AttrRawText, observability.TruncateStringDefault(raw)),
		)
	}

	c := &call{
		kind: kind,
		raw:  raw,
		pc:   pc,
		obs:  obs,
		span: span,
	}
	c.cleanOpts = p.cleanOpts
	c.cleanOpts.DetailedLogging = c.cleanOpts.DetailedLogging || pc.DetailedLogging
	c.mapOpts = p.mapOpts
	c.mapOpts.DetailedLogging = c.mapOpts.DetailedLogging || pc.DetailedLogging

	timer := utils.NewTimer()
	out := p.run(ctx, c)
	timer.Stop()

	p.observe(ctx, c, out, timer, attrs)
	return out
}

// run executes the strategy. A panic in any stage becomes a decode failure
// under Direct and a default record otherwise.
func (p *Parser) run(ctx context.Context, c *call) (out record.Outcome[record.Record]) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err := fmt.Errorf("panic while parsing: %v", r)
		c.obs.Error(ctx, "Parser panicked",
			observability.String(observability.AttrOperationID, c.pc.OperationID),
			observability.Error(err),
		)
		if c.pc.Strategy == Direct {
			out = record.Failure[record.Record](fmt.Errorf("%w: %w", ErrDecode, err))
			return
		}
		out = record.Success(record.Default(c.kind), record.SourceDefault)
	}()
	return c.pc.Strategy.run(ctx, p, c)
}

func (p *Parser) observe(ctx context.Context, c *call, out record.Outcome[record.Record], timer *utils.Timer, attrs []observability.Attribute) {
	status := "success"
	if !out.OK() {
		status = "error"
	}
	metricAttrs := []observability.Attribute{
		observability.String(observability.AttrStatus, status),
		observability.String(observability.AttrStrategy, c.pc.Strategy.String()),
		observability.String(observability.AttrRecordKind, c.kind.String()),
		observability.String(observability.AttrSource, out.Source.String()),
	}
	c.obs.Counter(observability.MetricParseCount).Add(ctx, 1, metricAttrs...)
	c.obs.Histogram(observability.MetricParseDuration).Record(ctx, timer.Milliseconds(), metricAttrs...)

	logAttrs := append(attrs,
		observability.String(observability.AttrSource, out.Source.String()),
		observability.Duration(observability.AttrDuration, timer.GetDuration()),
	)
	if !out.OK() {
		c.span.RecordError(out.Err)
		c.span.SetStatus(observability.StatusError, "decode failed")
		c.obs.Error(ctx, "Response rejected", append(logAttrs, observability.Error(out.Err))...)
		return
	}

	c.span.SetAttributes(observability.String(observability.AttrSource, out.Source.String()))
	c.span.SetStatus(observability.StatusOK, out.Source.String())
	switch out.Source {
	case record.SourceDecoded:
		c.obs.Debug(ctx, "Response parsed", logAttrs...)
	default:
		c.obs.Info(ctx, "Response parsed with recovery", logAttrs...)
	}
}

// Schema returns the JSON Schema of kind's record, suitable as a format hint
// in a prompt.
func (p *Parser) Schema(kind record.Kind) (json.RawMessage, error) {
	return Schema(kind)
}

// Schema returns the JSON Schema of kind's record.
func Schema(kind record.Kind) (json.RawMessage, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %v", fallback.ErrUnknownKind, kind)
	}
	s, err := jsonschema.GenerateType(reflect.TypeOf(record.Default(kind)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for %s: %w", kind, err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schema for %s: %w", kind, err)
	}
	return data, nil
}
