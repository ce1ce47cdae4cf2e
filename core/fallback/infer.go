package fallback

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/leofalp/replyparse/core/record"
)

var (
	replyLabels      = []string{"建议回复", "回复建议", "回复", "reply", "response"}
	strategyLabels   = []string{"策略", "分析", "strategy", "analysis"}
	suggestionLabels = []string{"建议", "suggestion", "advice"}

	dangerWords  = []string{"危险", "高风险", "严重", "danger", "high risk"}
	warningWords = []string{"注意", "风险", "谨慎", "warning", "caution"}
	unsafeWords  = []string{"不安全", "unsafe", "not safe"}
	safeWords    = []string{"安全", "无风险", "正常", "safe"}

	factKeys   = []string{"生日", "爱好", "职业", "年龄", "性别", "地区", "birthday", "hobby", "profession", "job", "age", "gender", "location"}
	redWords   = []string{"不要", "避免", "禁止", "don't", "avoid", "never", "prohibited"}
	greenWords = []string{"推荐", "建议", "可以", "recommend", "suggest", "should"}

	// Phrases that mention risk only to deny it.
	negations = strings.NewReplacer("无风险", "", "没有风险", "", "no risk", "", "not risky", "")

	riskPattern  = regexp.MustCompile(`(?i)(?:风险|雷区|问题|issue|risk)\s*[:：]\s*([^\n]+)`)
	quotePattern = regexp.MustCompile(`"([^"\n]+)"|“([^”\n]+)”|「([^」\n]+)」`)
)

// Infer makes a best-effort guess at field values from free text: labelled
// lines ("回复：...", "suggestion: ..."), risk keywords, the longest quoted
// fragment. Only fields it found evidence for are returned.
func Infer(kind record.Kind, text string) record.Fields {
	text = strings.TrimSpace(text)
	if text == "" {
		return record.Fields{}
	}
	switch kind {
	case record.KindAnalysis:
		return inferAnalysis(text)
	case record.KindSafetyCheck:
		return inferSafetyCheck(text)
	case record.KindExtraction:
		return inferExtraction(text)
	default:
		return record.Fields{}
	}
}

func inferAnalysis(text string) record.Fields {
	f := record.Fields{}
	for _, line := range strings.Split(text, "\n") {
		if !f.Has(record.FieldReplySuggestion) {
			if v, ok := labelled(line, replyLabels); ok {
				f[record.FieldReplySuggestion] = v
				continue
			}
		}
		if !f.Has(record.FieldStrategyAnalysis) {
			if v, ok := labelled(line, strategyLabels); ok {
				f[record.FieldStrategyAnalysis] = v
			}
		}
	}
	if !f.Has(record.FieldReplySuggestion) {
		if q, ok := longestQuote(text); ok {
			f[record.FieldReplySuggestion] = q
		}
	}

	lower := negations.Replace(strings.ToLower(text))
	switch {
	case containsAny(lower, dangerWords):
		f[record.FieldRiskLevel] = record.RiskDanger
	case containsAny(lower, warningWords):
		f[record.FieldRiskLevel] = record.RiskWarning
	}
	return f
}

func inferSafetyCheck(text string) record.Fields {
	f := record.Fields{}
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if !f.Has(record.FieldIsSafe) {
			key, value, labelOK := splitLabel(lower)
			switch {
			case labelOK && strings.Contains(key, "issafe"):
				if value == "true" || value == "false" {
					f[record.FieldIsSafe] = value == "true"
				}
			case containsAny(lower, unsafeWords):
				f[record.FieldIsSafe] = false
			case containsAny(lower, safeWords):
				f[record.FieldIsSafe] = !strings.Contains(negations.Replace(lower), "风险")
			}
		}
		if !f.Has(record.FieldSuggestion) {
			if v, ok := labelled(line, suggestionLabels); ok {
				f[record.FieldSuggestion] = v
			}
		}
	}

	var risks []string
	for _, m := range riskPattern.FindAllStringSubmatch(text, -1) {
		if r := trimValue(m[1]); r != "" && !slices.Contains(risks, r) {
			risks = append(risks, r)
		}
	}
	if len(risks) > 0 {
		f[record.FieldTriggeredRisks] = risks
	}

	if !f.Has(record.FieldIsSafe) {
		lower := strings.ToLower(text)
		if containsAny(lower, dangerWords) {
			f[record.FieldIsSafe] = false
		}
	}
	if !f.Has(record.FieldSuggestion) {
		if q, ok := longestQuote(text); ok {
			f[record.FieldSuggestion] = q
		}
	}
	return f
}

func inferExtraction(text string) record.Fields {
	f := record.Fields{}
	facts := map[string]string{}
	var red, green []string

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if key, value, ok := splitLabel(line); ok && containsAny(strings.ToLower(key), factKeys) {
			if k := trimValue(key); k != "" {
				facts[k] = value
				continue
			}
		}

		tag := line
		if _, value, ok := splitLabel(line); ok {
			tag = value
		}
		tag = trimValue(strings.TrimLeft(strings.TrimSpace(tag), "-*•·"))
		if tag == "" {
			continue
		}
		switch {
		case containsAny(lower, redWords):
			if !slices.Contains(red, tag) {
				red = append(red, tag)
			}
		case containsAny(lower, greenWords):
			if !slices.Contains(green, tag) {
				green = append(green, tag)
			}
		}
	}

	if len(facts) > 0 {
		f[record.FieldFacts] = facts
	}
	if len(red) > 0 {
		f[record.FieldRedTags] = red
	}
	if len(green) > 0 {
		f[record.FieldGreenTags] = green
	}
	return f
}

// labelled returns the value of a "label: value" line whose label contains
// one of labels.
func labelled(line string, labels []string) (string, bool) {
	key, value, ok := splitLabel(line)
	if !ok || !containsAny(strings.ToLower(key), labels) {
		return "", false
	}
	return value, true
}

// splitLabel splits a line at its first ASCII or full-width colon. Both
// halves are trimmed; an empty value is not a label line.
func splitLabel(line string) (string, string, bool) {
	i := strings.IndexAny(line, ":：")
	if i < 0 {
		return "", "", false
	}
	_, size := utf8.DecodeRuneInString(line[i:])
	value := trimValue(line[i+size:])
	if value == "" {
		return "", "", false
	}
	return line[:i], value, true
}

func trimValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ",，;；")
	s = strings.Trim(s, "\"'“”「」")
	return strings.TrimSpace(s)
}

func longestQuote(text string) (string, bool) {
	best := ""
	for _, m := range quotePattern.FindAllStringSubmatch(text, -1) {
		for _, g := range m[1:] {
			g = strings.TrimSpace(g)
			if utf8.RuneCountInString(g) > utf8.RuneCountInString(best) {
				best = g
			}
		}
	}
	return best, best != ""
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
