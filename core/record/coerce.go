package record

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Coerce builds the subset of Fields for kind k that can be recovered from a
// loosely typed object. Each canonical key is converted on its own; keys that
// are missing, null or of an unusable type are left out rather than failing
// the whole record.
func Coerce(k Kind, obj map[string]any) Fields {
	f := Fields{}
	for _, name := range k.FieldNames() {
		raw, ok := obj[name]
		if !ok || raw == nil {
			continue
		}
		if v, ok := coerceField(name, raw); ok {
			f[name] = v
		}
	}
	return f
}

func coerceField(name string, raw any) (any, bool) {
	switch name {
	case FieldReplySuggestion, FieldStrategyAnalysis, FieldSuggestion:
		return coerceText(raw)
	case FieldRiskLevel:
		s, ok := scalarString(raw)
		if !ok {
			return nil, false
		}
		level, err := ParseRiskLevel(s)
		if err != nil {
			return nil, false
		}
		return level, true
	case FieldIsSafe:
		return coerceBool(raw)
	case FieldTriggeredRisks, FieldRedTags, FieldGreenTags:
		return coerceStrings(raw)
	case FieldFacts:
		return coerceFacts(raw)
	default:
		return nil, false
	}
}

// coerceText accepts a string, or a list of strings joined one per line.
func coerceText(raw any) (any, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []any:
		parts, ok := coerceStrings(v)
		if !ok {
			return nil, false
		}
		return strings.Join(parts.([]string), "\n"), true
	default:
		return nil, false
	}
}

func coerceBool(raw any) (any, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "safe", "是", "安全":
			return true, true
		case "false", "no", "n", "unsafe", "否", "不安全":
			return false, true
		}
	case json.Number:
		if n, err := v.Int64(); err == nil && (n == 0 || n == 1) {
			return n == 1, true
		}
	}
	return nil, false
}

// coerceStrings accepts a list of scalars or a single string. Blank and
// non-scalar elements are dropped.
func coerceStrings(raw any) (any, bool) {
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, true
		}
		return []string{v}, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := scalarString(item)
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func coerceFacts(raw any) (any, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(obj))
	for key, value := range obj {
		if s, ok := scalarString(value); ok {
			out[key] = s
		}
	}
	return out, true
}

func scalarString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}
