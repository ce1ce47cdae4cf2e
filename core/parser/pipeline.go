package parser

import (
	"context"
	"errors"
	"fmt"

	"github.com/leofalp/replyparse/core/alias"
	"github.com/leofalp/replyparse/core/fallback"
	"github.com/leofalp/replyparse/core/parse"
	"github.com/leofalp/replyparse/core/record"
	"github.com/leofalp/replyparse/core/sanitize"
	"github.com/leofalp/replyparse/providers/observability"
)

var errNoFields = errors.New("object holds none of the record fields")

// call is the state of one ParseKind invocation.
type call struct {
	kind      record.Kind
	raw       string
	pc        Context
	cleanOpts sanitize.Options
	mapOpts   alias.Options
	obs       observability.Provider
	span      observability.Span
}

func (p *Parser) clean(ctx context.Context, c *call) string {
	cleaned := p.sanitizer.Clean(ctx, c.raw, c.cleanOpts)
	c.span.AddEvent(observability.EventCleaned,
		observability.Int(observability.AttrRawLength, len(c.raw)),
		observability.Int(observability.AttrCleanedLength, len(cleaned)),
		observability.Bool(observability.AttrSanitizeMiss, !sanitize.IsValid(cleaned)),
	)
	return cleaned
}

func (p *Parser) fallbackOptions(c *call, cause error) fallback.Options {
	return fallback.Options{
		OriginalText:         c.raw,
		OperationType:        c.pc.OperationType,
		Cause:                cause,
		IntelligentInference: p.inference,
		DetailedLogging:      c.pc.DetailedLogging,
	}
}

func (c *call) decodeFailed(err error) {
	c.span.AddEvent(observability.EventDecodeFailed, observability.Error(err))
}

func (direct) run(ctx context.Context, p *Parser, c *call) record.Outcome[record.Record] {
	cleaned := p.clean(ctx, c)
	rec, err := record.Decode(c.kind, cleaned)
	if err != nil {
		c.decodeFailed(err)
		return record.Failure[record.Record](fmt.Errorf("%w: %w", ErrDecode, err))
	}
	return record.Success(rec, record.SourceDecoded)
}

func (resilient) run(ctx context.Context, p *Parser, c *call) record.Outcome[record.Record] {
	cleaned := p.clean(ctx, c)
	rec, repaired, err := record.DecodeRepaired(c.kind, cleaned)
	if err != nil {
		c.decodeFailed(err)
		return p.synthesizer.HandleParsingFailure(ctx, err, c.kind, p.fallbackOptions(c, err))
	}
	if repaired {
		return record.Success(rec, record.SourceRepaired)
	}
	return record.Success(rec, record.SourceDecoded)
}

func (adaptive) run(ctx context.Context, p *Parser, c *call) record.Outcome[record.Record] {
	cleaned := p.clean(ctx, c)
	mapped, rep, repaired := p.mapFields(ctx, c, cleaned)

	obj, _, objErr := parse.Object(mapped)
	present := record.Fields{}
	if objErr == nil {
		present = record.Coerce(c.kind, obj)
	}

	rec, err := record.Decode(c.kind, mapped)
	if err == nil && len(present) == 0 {
		err = errNoFields
	}
	if err == nil {
		p.learn(ctx, c, rep, present)
		if repaired {
			return record.Success(rec, record.SourceRepaired)
		}
		return record.Success(rec, record.SourceDecoded)
	}
	c.decodeFailed(err)

	if objErr != nil {
		return p.synthesizer.HandleParsingFailure(ctx, err, c.kind, p.fallbackOptions(c, err))
	}
	if len(present) == 0 {
		present = envelope(c.kind, obj)
	}
	if len(present) == 0 {
		return p.synthesizer.HandleParsingFailure(ctx, err, c.kind, p.fallbackOptions(c, err))
	}

	p.learn(ctx, c, rep, present)
	return p.synthesizer.HandlePartialResult(ctx, present, c.kind, p.fallbackOptions(c, err))
}

// mapFields rewrites alias keys. Text that is not valid JSON is repaired and
// mapped again, since repair can expose keys the textual rewrite cannot see
// (single-quoted or unquoted ones). The boolean reports whether the repaired
// text was kept.
func (p *Parser) mapFields(ctx context.Context, c *call, cleaned string) (string, alias.Report, bool) {
	mapped, rep := p.registry.MapFieldsReport(ctx, cleaned, c.mapOpts)
	repaired := false

	if !sanitize.IsValid(mapped) {
		if fixed, err := parse.Repair(mapped); err == nil && sanitize.IsValid(fixed) {
			remapped, more := p.registry.MapFieldsReport(ctx, fixed, c.mapOpts)
			mapped = remapped
			rep = alias.Report{
				Exact:   append(rep.Exact, more.Exact...),
				Fuzzy:   append(rep.Fuzzy, more.Fuzzy...),
				Textual: rep.Textual,
			}
			repaired = true
		}
	}

	c.span.AddEvent(observability.EventFieldsMapped,
		observability.Int(observability.AttrAliasExactCount, len(rep.Exact)),
		observability.Int(observability.AttrAliasFuzzyCount, len(rep.Fuzzy)),
		observability.Bool("alias.repaired", repaired),
	)
	return mapped, rep, repaired
}

// envelope looks one level down for the record: models sometimes wrap it,
// as in {"result": {...}}. Only an object holding exactly one nested object
// whose fields can be recovered qualifies.
func envelope(kind record.Kind, obj map[string]any) record.Fields {
	var found record.Fields
	for _, v := range obj {
		nested, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if f := record.Coerce(kind, nested); len(f) > 0 {
			if found != nil {
				return nil
			}
			found = f
		}
	}
	return found
}

// learn commits each fuzzy match whose canonical field made it into the
// record, one AddMapping call per match.
func (p *Parser) learn(ctx context.Context, c *call, rep alias.Report, present record.Fields) {
	if !c.mapOpts.DynamicLearning {
		return
	}
	for _, m := range rep.Fuzzy {
		if !present.Has(m.Canonical) {
			continue
		}
		attrs := []observability.Attribute{
			observability.String(observability.AttrOperationID, c.pc.OperationID),
			observability.String(observability.AttrAliasKey, m.Key),
			observability.String(observability.AttrAliasCanonical, m.Canonical),
			observability.Float64(observability.AttrAliasScore, m.Score),
		}
		if err := p.registry.AddMapping(m.Canonical, m.Key); err != nil {
			c.obs.Warn(ctx, "Alias not learned", append(attrs, observability.Error(err))...)
			continue
		}
		c.span.AddEvent(observability.EventAliasLearned, attrs...)
		c.obs.Counter(observability.MetricAliasLearnedCount).Add(ctx, 1,
			observability.String(observability.AttrAliasCanonical, m.Canonical),
		)
		c.obs.Info(ctx, "Alias learned", attrs...)
	}
}
