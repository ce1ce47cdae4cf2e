package record

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Canonical field names, as the records expect them on the wire.
const (
	FieldReplySuggestion  = "replySuggestion"
	FieldStrategyAnalysis = "strategyAnalysis"
	FieldRiskLevel        = "riskLevel"

	FieldIsSafe         = "isSafe"
	FieldTriggeredRisks = "triggeredRisks"
	FieldSuggestion     = "suggestion"

	FieldFacts     = "facts"
	FieldRedTags   = "redTags"
	FieldGreenTags = "greenTags"
)

// DefaultSafetySuggestion is the suggestion carried by a synthesized safety-check record.
const DefaultSafetySuggestion = "安全检查完成，未发现明显风险"

// Kind selects one of the target record shapes.
type Kind int

const (
	KindAnalysis Kind = iota + 1
	KindSafetyCheck
	KindExtraction
)

// Kinds lists every supported record kind.
func Kinds() []Kind {
	return []Kind{KindAnalysis, KindSafetyCheck, KindExtraction}
}

func (k Kind) String() string {
	switch k {
	case KindAnalysis:
		return "analysis"
	case KindSafetyCheck:
		return "safety-check"
	case KindExtraction:
		return "extraction"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return k >= KindAnalysis && k <= KindExtraction
}

// ParseKind resolves a kind from its name. Matching is case-insensitive and
// accepts a few common spellings.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "analysis", "analyze":
		return KindAnalysis, nil
	case "safety-check", "safety", "safetycheck", "safety_check":
		return KindSafetyCheck, nil
	case "extraction", "extract", "extracted":
		return KindExtraction, nil
	default:
		return 0, fmt.Errorf("unknown record kind %q", s)
	}
}

// FieldNames returns the canonical field names of kind k in declaration order.
func (k Kind) FieldNames() []string {
	switch k {
	case KindAnalysis:
		return []string{FieldReplySuggestion, FieldStrategyAnalysis, FieldRiskLevel}
	case KindSafetyCheck:
		return []string{FieldIsSafe, FieldTriggeredRisks, FieldSuggestion}
	case KindExtraction:
		return []string{FieldFacts, FieldRedTags, FieldGreenTags}
	default:
		return nil
	}
}

// Fields maps canonical field names to values of the field's Go type
// (string, RiskLevel, bool, []string or map[string]string).
type Fields map[string]any

// Has reports whether name is present in f.
func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Names returns the present field names, sorted.
func (f Fields) Names() []string {
	return slices.Sorted(maps.Keys(f))
}

// Record is implemented by the three target record types only.
type Record interface {
	Kind() Kind
	Fields() Fields
}

// AnalysisResult is the outcome of analysing a conversation.
type AnalysisResult struct {
	ReplySuggestion  string    `json:"replySuggestion" jsonschema:"description=Suggested reply text,required"`
	StrategyAnalysis string    `json:"strategyAnalysis" jsonschema:"description=Narrative of the recommended strategy,required"`
	RiskLevel        RiskLevel `json:"riskLevel" jsonschema:"description=Risk classification,enum=SAFE,enum=WARNING,enum=DANGER,required"`
}

func (AnalysisResult) Kind() Kind { return KindAnalysis }

func (r AnalysisResult) Fields() Fields {
	return Fields{
		FieldReplySuggestion:  r.ReplySuggestion,
		FieldStrategyAnalysis: r.StrategyAnalysis,
		FieldRiskLevel:        r.RiskLevel,
	}
}

// SafetyCheckResult is the outcome of checking a draft message for risks.
type SafetyCheckResult struct {
	IsSafe         bool     `json:"isSafe" jsonschema:"description=Whether the draft is safe to send,required"`
	TriggeredRisks []string `json:"triggeredRisks" jsonschema:"description=Risk descriptors the draft triggered,required"`
	Suggestion     string   `json:"suggestion" jsonschema:"description=Suggested correction,required"`
}

func (SafetyCheckResult) Kind() Kind { return KindSafetyCheck }

func (r SafetyCheckResult) Fields() Fields {
	return Fields{
		FieldIsSafe:         r.IsSafe,
		FieldTriggeredRisks: slices.Clone(r.TriggeredRisks),
		FieldSuggestion:     r.Suggestion,
	}
}

// ExtractedData holds facts and tags extracted about a contact.
type ExtractedData struct {
	Facts     map[string]string `json:"facts" jsonschema:"description=Key/value facts about the contact,required"`
	RedTags   []string          `json:"redTags" jsonschema:"description=Topics or behaviours to avoid,required"`
	GreenTags []string          `json:"greenTags" jsonschema:"description=Recommended topics or behaviours,required"`
}

func (ExtractedData) Kind() Kind { return KindExtraction }

func (r ExtractedData) Fields() Fields {
	return Fields{
		FieldFacts:     maps.Clone(r.Facts),
		FieldRedTags:   slices.Clone(r.RedTags),
		FieldGreenTags: slices.Clone(r.GreenTags),
	}
}

// Default returns the fixed default record for kind k. Every field is
// populated: strings are empty but set, collections are empty and non-nil,
// RiskLevel is SAFE and IsSafe is true.
func Default(k Kind) Record {
	switch k {
	case KindAnalysis:
		return AnalysisResult{RiskLevel: RiskSafe}
	case KindSafetyCheck:
		return SafetyCheckResult{
			IsSafe:         true,
			TriggeredRisks: []string{},
			Suggestion:     DefaultSafetySuggestion,
		}
	case KindExtraction:
		return ExtractedData{
			Facts:     map[string]string{},
			RedTags:   []string{},
			GreenTags: []string{},
		}
	default:
		return nil
	}
}

// Build returns the default record for k with every field present in f
// applied on top. Values whose Go type does not match the field are ignored.
func Build(k Kind, f Fields) Record {
	switch k {
	case KindAnalysis:
		r := Default(k).(AnalysisResult)
		setString(f, FieldReplySuggestion, &r.ReplySuggestion)
		setString(f, FieldStrategyAnalysis, &r.StrategyAnalysis)
		if v, ok := f[FieldRiskLevel].(RiskLevel); ok && v.Valid() {
			r.RiskLevel = v
		}
		return r
	case KindSafetyCheck:
		r := Default(k).(SafetyCheckResult)
		if v, ok := f[FieldIsSafe].(bool); ok {
			r.IsSafe = v
		}
		setStrings(f, FieldTriggeredRisks, &r.TriggeredRisks)
		setString(f, FieldSuggestion, &r.Suggestion)
		return r
	case KindExtraction:
		r := Default(k).(ExtractedData)
		if v, ok := f[FieldFacts].(map[string]string); ok && v != nil {
			r.Facts = maps.Clone(v)
		}
		setStrings(f, FieldRedTags, &r.RedTags)
		setStrings(f, FieldGreenTags, &r.GreenTags)
		return r
	default:
		return nil
	}
}

// Accepts reports whether Build applies v to the field name of kind k.
func (k Kind) Accepts(name string, v any) bool {
	if !slices.Contains(k.FieldNames(), name) {
		return false
	}
	switch name {
	case FieldRiskLevel:
		r, ok := v.(RiskLevel)
		return ok && r.Valid()
	case FieldIsSafe:
		_, ok := v.(bool)
		return ok
	case FieldTriggeredRisks, FieldRedTags, FieldGreenTags:
		s, ok := v.([]string)
		return ok && s != nil
	case FieldFacts:
		m, ok := v.(map[string]string)
		return ok && m != nil
	default:
		_, ok := v.(string)
		return ok
	}
}

func setString(f Fields, name string, dst *string) {
	if v, ok := f[name].(string); ok {
		*dst = v
	}
}

func setStrings(f Fields, name string, dst *[]string) {
	if v, ok := f[name].([]string); ok && v != nil {
		*dst = slices.Clone(v)
	}
}
