package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RiskLevel classifies how risky a reply or conversation is.
type RiskLevel string

const (
	RiskSafe    RiskLevel = "SAFE"
	RiskWarning RiskLevel = "WARNING"
	RiskDanger  RiskLevel = "DANGER"
)

// riskSynonyms maps normalized spellings models use to a RiskLevel.
var riskSynonyms = map[string]RiskLevel{
	"safe":    RiskSafe,
	"low":     RiskSafe,
	"none":    RiskSafe,
	"安全":      RiskSafe,
	"低":       RiskSafe,
	"无风险":     RiskSafe,
	"warning": RiskWarning,
	"warn":    RiskWarning,
	"medium":  RiskWarning,
	"caution": RiskWarning,
	"警告":      RiskWarning,
	"注意":      RiskWarning,
	"中":       RiskWarning,
	"danger":  RiskDanger,
	"high":    RiskDanger,
	"危险":      RiskDanger,
	"高":       RiskDanger,
	"高风险":     RiskDanger,
}

// ParseRiskLevel resolves a risk level from text, case-insensitively.
func ParseRiskLevel(s string) (RiskLevel, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if level, ok := riskSynonyms[key]; ok {
		return level, nil
	}
	return "", fmt.Errorf("unknown risk level %q", s)
}

// Valid reports whether r is one of the three defined levels.
func (r RiskLevel) Valid() bool {
	return r == RiskSafe || r == RiskWarning || r == RiskDanger
}

func (r RiskLevel) String() string {
	return string(r)
}

// UnmarshalJSON accepts any spelling ParseRiskLevel understands.
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("risk level must be a string: %w", err)
	}
	level, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = level
	return nil
}
