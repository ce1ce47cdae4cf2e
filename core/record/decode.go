package record

import (
	"fmt"

	"github.com/leofalp/replyparse/core/parse"
)

// Wire shapes use pointers so an absent or null field can be told apart from
// a zero value and replaced with the record default.

type analysisWire struct {
	ReplySuggestion  *string    `json:"replySuggestion"`
	StrategyAnalysis *string    `json:"strategyAnalysis"`
	RiskLevel        *RiskLevel `json:"riskLevel"`
}

func (w analysisWire) fields() Fields {
	f := Fields{}
	if w.ReplySuggestion != nil {
		f[FieldReplySuggestion] = *w.ReplySuggestion
	}
	if w.StrategyAnalysis != nil {
		f[FieldStrategyAnalysis] = *w.StrategyAnalysis
	}
	if w.RiskLevel != nil {
		f[FieldRiskLevel] = *w.RiskLevel
	}
	return f
}

type safetyWire struct {
	IsSafe         *bool     `json:"isSafe"`
	TriggeredRisks *[]string `json:"triggeredRisks"`
	Suggestion     *string   `json:"suggestion"`
}

func (w safetyWire) fields() Fields {
	f := Fields{}
	if w.IsSafe != nil {
		f[FieldIsSafe] = *w.IsSafe
	}
	if w.TriggeredRisks != nil && *w.TriggeredRisks != nil {
		f[FieldTriggeredRisks] = *w.TriggeredRisks
	}
	if w.Suggestion != nil {
		f[FieldSuggestion] = *w.Suggestion
	}
	return f
}

type extractionWire struct {
	Facts     *map[string]string `json:"facts"`
	RedTags   *[]string          `json:"redTags"`
	GreenTags *[]string          `json:"greenTags"`
}

func (w extractionWire) fields() Fields {
	f := Fields{}
	if w.Facts != nil && *w.Facts != nil {
		f[FieldFacts] = *w.Facts
	}
	if w.RedTags != nil && *w.RedTags != nil {
		f[FieldRedTags] = *w.RedTags
	}
	if w.GreenTags != nil && *w.GreenTags != nil {
		f[FieldGreenTags] = *w.GreenTags
	}
	return f
}

type wire interface {
	analysisWire | safetyWire | extractionWire
	fields() Fields
}

// Decode strictly decodes content as a record of kind k. The content must be
// a JSON object whose present fields have the right JSON types; absent and
// null fields take their defaults. Unknown keys are ignored.
func Decode(k Kind, content string) (Record, error) {
	switch k {
	case KindAnalysis:
		return decodeStrict[analysisWire](k, content)
	case KindSafetyCheck:
		return decodeStrict[safetyWire](k, content)
	case KindExtraction:
		return decodeStrict[extractionWire](k, content)
	default:
		return nil, fmt.Errorf("unsupported record kind %v", k)
	}
}

// DecodeRepaired is Decode with JSON repair and schema-envelope unwrapping
// applied when the strict decode fails. The boolean reports whether a repair
// step was needed.
func DecodeRepaired(k Kind, content string) (Record, bool, error) {
	switch k {
	case KindAnalysis:
		return decodeRepaired[analysisWire](k, content)
	case KindSafetyCheck:
		return decodeRepaired[safetyWire](k, content)
	case KindExtraction:
		return decodeRepaired[extractionWire](k, content)
	default:
		return nil, false, fmt.Errorf("unsupported record kind %v", k)
	}
}

func decodeStrict[W wire](k Kind, content string) (Record, error) {
	w, err := parse.Strict[W](content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", k, err)
	}
	return Build(k, w.fields()), nil
}

func decodeRepaired[W wire](k Kind, content string) (Record, bool, error) {
	w, repaired, err := parse.Repaired[W](content)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", k, err)
	}
	return Build(k, w.fields()), repaired, nil
}
