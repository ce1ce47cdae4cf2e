package alias

import (
	"slices"

	"github.com/leofalp/replyparse/core/record"
)

// Entry lists the aliases accepted for one canonical field name.
type Entry struct {
	Canonical string   `json:"canonical" yaml:"canonical"`
	Aliases   []string `json:"aliases" yaml:"aliases"`
}

// Table is an ordered alias table. Declaration order breaks ties between
// equally good fuzzy matches.
type Table []Entry

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for i, e := range t {
		out[i] = Entry{Canonical: e.Canonical, Aliases: slices.Clone(e.Aliases)}
	}
	return out
}

// Lookup returns the entry for canonical.
func (t Table) Lookup(canonical string) (Entry, bool) {
	for _, e := range t {
		if e.Canonical == canonical {
			return e, true
		}
	}
	return Entry{}, false
}

// DefaultTable returns the built-in alias table covering every field of the
// three record kinds, in English and Chinese. No alias in it belongs to two
// fields once normalized.
func DefaultTable() Table {
	return Table{
		{Canonical: record.FieldReplySuggestion, Aliases: []string{
			"replySuggestion", "suggestedReply", "replyText", "reply", "response",
			"回复建议", "建议回复", "话术建议", "具体的回复建议", "建议的回复内容", "回复内容", "回复",
		}},
		{Canonical: record.FieldStrategyAnalysis, Aliases: []string{
			"strategyAnalysis", "strategy", "analysis",
			"策略分析", "心理分析", "军师分析", "对方当前的情绪和潜在意图", "关键洞察", "策略建议", "分析结果", "分析",
		}},
		{Canonical: record.FieldRiskLevel, Aliases: []string{
			"riskLevel", "risk", "level",
			"风险等级", "风险级别", "风险",
		}},
		{Canonical: record.FieldIsSafe, Aliases: []string{
			"isSafe", "safe",
			"是否安全", "安全性", "安全",
		}},
		{Canonical: record.FieldTriggeredRisks, Aliases: []string{
			"triggeredRisks", "risks", "warnings",
			"触发的风险", "风险列表", "触发雷区", "触发风险",
		}},
		{Canonical: record.FieldSuggestion, Aliases: []string{
			"suggestion", "advice", "recommendation",
			"建议", "修改建议", "修正建议", "优化建议",
		}},
		{Canonical: record.FieldFacts, Aliases: []string{
			"facts", "info", "profile",
			"事实", "事实信息", "基本信息", "个人资料", "用户信息",
		}},
		{Canonical: record.FieldRedTags, Aliases: []string{
			"redTags",
			"红色标签", "雷区", "风险标签", "红标签", "不要做的事", "敏感话题",
		}},
		{Canonical: record.FieldGreenTags, Aliases: []string{
			"greenTags",
			"绿色标签", "策略标签", "绿标签", "推荐做法", "沟通技巧",
		}},
	}
}
