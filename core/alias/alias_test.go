package alias

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/replyparse/core/record"
)

var ctx = context.Background()

func decodeMap(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m), "output %q should stay valid JSON", s)
	return m
}

func TestDefaultTable_CoversEveryField(t *testing.T) {
	table := DefaultTable()
	for _, k := range record.Kinds() {
		for _, field := range k.FieldNames() {
			_, ok := table.Lookup(field)
			assert.True(t, ok, "no alias entry for %s", field)
		}
	}
}

func TestDefaultTable_Unambiguous(t *testing.T) {
	owner := map[string]string{}
	for _, e := range DefaultTable() {
		for _, a := range append([]string{e.Canonical}, e.Aliases...) {
			n := Normalize(a)
			if prev, ok := owner[n]; ok {
				assert.Equal(t, prev, e.Canonical, "alias %q is shared by %s and %s", a, prev, e.Canonical)
			}
			owner[n] = e.Canonical
		}
	}
}

func TestMapFields_AliasCoverage(t *testing.T) {
	r := NewRegistry()
	for _, e := range DefaultTable() {
		for _, a := range e.Aliases {
			t.Run(e.Canonical+"/"+a, func(t *testing.T) {
				in := fmt.Sprintf(`{%q:"v"}`, a)
				out := decodeMap(t, r.MapFields(ctx, in, Options{}))

				assert.Equal(t, "v", out[e.Canonical])
				if a != e.Canonical {
					assert.NotContains(t, out, a)
				}
			})
		}
	}
}

func TestMapFields_ChineseAlias(t *testing.T) {
	r := NewRegistry()
	out := r.MapFields(ctx, `{"回复建议":"x"}`, DefaultOptions())
	assert.Equal(t, `{"replySuggestion":"x"}`, out)
}

func TestMapFields_PreservesOrderAndValues(t *testing.T) {
	r := NewRegistry()
	in := `{"other":1.50,"风险等级":"高","nested":{"建议回复":"<b>hi</b> & bye"},"facts":{"建议":"keep"}}`

	out, rep := r.MapFieldsReport(ctx, in, Options{})

	assert.Equal(t, `{"other":1.50,"riskLevel":"高","nested":{"replySuggestion":"<b>hi</b> & bye"},"facts":{"建议":"keep"}}`, out)
	assert.Len(t, rep.Exact, 2)
	assert.Empty(t, rep.Fuzzy)
	assert.False(t, rep.Textual)
}

func TestMapFields_NoChangeReturnsInput(t *testing.T) {
	r := NewRegistry()
	in := `{ "replySuggestion" : "x",  "unknown": [1, 2] }`
	assert.Equal(t, in, r.MapFields(ctx, in, DefaultOptions()))
}

func TestMapFields_OneKeyPerCanonical(t *testing.T) {
	r := NewRegistry()

	out := r.MapFields(ctx, `{"回复建议":"alias","replySuggestion":"canonical"}`, Options{})
	m := decodeMap(t, out)
	assert.Equal(t, "canonical", m["replySuggestion"])
	assert.Equal(t, "alias", m["回复建议"], "losing alias passes through")

	out = r.MapFields(ctx, `{"回复建议":"first","建议回复":"second"}`, Options{})
	m = decodeMap(t, out)
	assert.Equal(t, "first", m["replySuggestion"])
	assert.Equal(t, "second", m["建议回复"])
}

func TestMapFields_CaseAndWidthInsensitive(t *testing.T) {
	r := NewRegistry()
	out := decodeMap(t, r.MapFields(ctx, `{"REPLY_SUGGESTION":"a","ｒｉｓｋＬｅｖｅｌ":"SAFE"}`, Options{}))
	assert.Equal(t, "a", out["replySuggestion"])
	assert.Equal(t, "SAFE", out["riskLevel"])
}

func TestMapFields_Fuzzy(t *testing.T) {
	r := NewRegistry()

	out, rep := r.MapFieldsReport(ctx, `{"replySugestion":"x","strategyAnalisys":"y"}`, DefaultOptions())
	m := decodeMap(t, out)
	assert.Equal(t, "x", m["replySuggestion"])
	assert.Equal(t, "y", m["strategyAnalysis"])
	require.Len(t, rep.Fuzzy, 2)
	for _, match := range rep.Fuzzy {
		assert.True(t, match.Fuzzy)
		assert.GreaterOrEqual(t, match.Score, DefaultFuzzyThreshold)
	}

	// Disabled fuzzy matching leaves the typo alone.
	assert.Contains(t, decodeMap(t, r.MapFields(ctx, `{"replySugestion":"x"}`, Options{})), "replySugestion")

	// Far-off keys are not matched.
	out = r.MapFields(ctx, `{"weather":"sunny"}`, DefaultOptions())
	assert.Equal(t, `{"weather":"sunny"}`, out)
}

func TestMapFields_FuzzyHighestScoreClaims(t *testing.T) {
	r := NewRegistry()
	// Both are typos of replySuggestion; the closer one wins.
	out, rep := r.MapFieldsReport(ctx, `{"replySugestio":"far","replySugestion":"near"}`, Options{FuzzyMatching: true, FuzzyThreshold: 0.8})

	m := decodeMap(t, out)
	assert.Equal(t, "near", m["replySuggestion"])
	assert.Equal(t, "far", m["replySugestio"])
	require.Len(t, rep.Fuzzy, 1)
	assert.Equal(t, "replySugestion", rep.Fuzzy[0].Key)
}

func TestMapFields_FuzzyThresholdMonotonic(t *testing.T) {
	r := NewRegistry()
	in := `{"replySugestion":1,"replySugestio":2,"strategyAnalisys":3,"riskLevl":4,"isSaf":5,"sugestion":6,"factz":7,"redTag":8,"greenTagz":9,"风险等级啊":10,"回复建意":11,"weather":12}`

	fuzzyKeys := func(th float64) map[string]bool {
		_, rep := r.MapFieldsReport(ctx, in, Options{FuzzyMatching: true, FuzzyThreshold: th})
		keys := map[string]bool{}
		for _, m := range rep.Fuzzy {
			keys[m.Key] = true
		}
		return keys
	}

	thresholds := []float64{-1, 0, 0.05, 0.3, 0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1}
	prev := fuzzyKeys(thresholds[0])
	for _, th := range thresholds[1:] {
		cur := fuzzyKeys(th)
		for key := range cur {
			assert.True(t, prev[key], "key %q matched at %.2f but not at a lower threshold", key, th)
		}
		prev = cur
	}
}

func TestMapFields_Malformed(t *testing.T) {
	r := NewRegistry()
	in := `{"回复建议": "x", "facts": {"建议": "keep"}, "风险等级": "高",`

	out, rep := r.MapFieldsReport(ctx, in, Options{})

	assert.True(t, rep.Textual)
	assert.Equal(t, `{"replySuggestion": "x", "facts": {"建议": "keep"}, "riskLevel": "高",`, out)
}

func TestMapFields_NeverFails(t *testing.T) {
	r := NewRegistry()
	for _, in := range []string{"", "   ", "not json at all", "[1,2,3]", `"just a string"`, `{"a":`, "null", `{"é":1}`} {
		assert.NotPanics(t, func() { r.MapFields(ctx, in, DefaultOptions()) }, in)
	}
	assert.Equal(t, "not json at all", r.MapFields(ctx, "not json at all", DefaultOptions()))
}

func TestMapFields_ArrayOfObjects(t *testing.T) {
	r := NewRegistry()
	out := r.MapFields(ctx, `[{"建议":"a"},{"建议":"b"}]`, Options{})
	assert.Equal(t, `[{"suggestion":"a"},{"suggestion":"b"}]`, out)
}

func TestAddMapping(t *testing.T) {
	r := NewRegistry()
	before := r.Stats()

	require.NoError(t, r.AddMapping(record.FieldReplySuggestion, "答复", "答复", " "))
	require.NoError(t, r.AddMapping(record.FieldReplySuggestion, "答复"), "merging is idempotent")

	canonical, ok := r.Lookup("答复")
	require.True(t, ok)
	assert.Equal(t, record.FieldReplySuggestion, canonical)

	after := r.Stats()
	assert.Equal(t, before.Aliases+1, after.Aliases)
	assert.Equal(t, 1, after.Learned)

	entry, _ := r.Mappings().Lookup(record.FieldReplySuggestion)
	assert.Contains(t, entry.Aliases, "回复建议", "existing aliases are kept")
	assert.Contains(t, entry.Aliases, "答复")
}

func TestAddMapping_Conflicts(t *testing.T) {
	r := NewRegistry()

	err := r.AddMapping(record.FieldSuggestion, "回复建议", "提示")
	require.ErrorIs(t, err, ErrAliasConflict)
	canonical, _ := r.Lookup("提示")
	assert.Equal(t, record.FieldSuggestion, canonical, "non-conflicting aliases are still merged")
	canonical, _ = r.Lookup("回复建议")
	assert.Equal(t, record.FieldReplySuggestion, canonical, "owner is unchanged")

	assert.ErrorIs(t, r.AddMapping("  "), ErrEmptyCanonical)
	assert.ErrorIs(t, r.AddMapping("回复", "x"), ErrAliasConflict, "canonical already used as an alias")
}

func TestAddMapping_NewCanonical(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddMapping("mood", "心情"))

	out := r.MapFields(ctx, `{"心情":"good"}`, Options{})
	assert.Equal(t, `{"mood":"good"}`, out)

	table := r.Mappings()
	assert.Equal(t, "mood", table[len(table)-1].Canonical)
	assert.Equal(t, []string{"mood", "心情"}, table[len(table)-1].Aliases)
}

func TestMappings_IsCopy(t *testing.T) {
	r := NewRegistry()
	snapshot := r.Mappings()
	snapshot[0].Aliases[0] = "mutated"
	snapshot[0].Canonical = "mutated"

	_, ok := r.Mappings().Lookup(record.FieldReplySuggestion)
	assert.True(t, ok)
	_, ok = r.Lookup("mutated")
	assert.False(t, ok)
}

func TestReset_RestoresBaseline(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddMapping(record.FieldReplySuggestion, "答复"))
	require.NoError(t, r.AddMapping("mood", "心情"))

	r.Reset()

	assert.Equal(t, DefaultTable(), r.Mappings())
	_, ok := r.Lookup("答复")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Stats().Learned)
	assert.NotZero(t, r.Stats().Aliases, "reset goes back to the baseline, not to empty")
}

func TestWithBaseline(t *testing.T) {
	r := NewRegistry(WithBaseline(Table{
		{Canonical: "a", Aliases: []string{"x"}},
		{Canonical: "b", Aliases: []string{"x", "y"}},
	}))

	table := r.Mappings()
	require.Len(t, table, 2)
	assert.Equal(t, []string{"a", "x"}, table[0].Aliases)
	assert.Equal(t, []string{"b", "y"}, table[1].Aliases, "conflicting baseline alias dropped")
}

func TestMerge(t *testing.T) {
	r := NewRegistry()
	err := r.Merge(Table{
		{Canonical: record.FieldGreenTags, Aliases: []string{"加分项"}},
		{Canonical: record.FieldRedTags, Aliases: []string{"加分项"}},
	})
	assert.ErrorIs(t, err, ErrAliasConflict)

	canonical, ok := r.Lookup("加分项")
	require.True(t, ok)
	assert.Equal(t, record.FieldGreenTags, canonical)
}

func TestStats(t *testing.T) {
	r := NewRegistry(WithBaseline(Table{{Canonical: "a", Aliases: []string{"b", "c"}}}))
	s := r.Stats()
	assert.Equal(t, Stats{Canonicals: 1, Aliases: 3}, s)
	assert.InDelta(t, 3.0, s.AveragePerField(), 1e-9)
	assert.Zero(t, Stats{}.AveragePerField())
}

func TestRegistry_ConcurrentLearning(t *testing.T) {
	r := NewRegistry()
	const writers = 16
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				assert.NoError(t, r.AddMapping(record.FieldSuggestion, fmt.Sprintf("learned%dx%d", w, i)))
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				r.MapFields(ctx, `{"建议":"x","learned0x0":"y"}`, DefaultOptions())
				_ = r.Mappings()
			}
		}()
	}
	wg.Wait()

	entry, ok := r.Mappings().Lookup(record.FieldSuggestion)
	require.True(t, ok)
	base, _ := DefaultTable().Lookup(record.FieldSuggestion)
	assert.Len(t, entry.Aliases, len(base.Aliases)+writers*perWriter, "no learned alias may be lost")
	assert.Equal(t, writers*perWriter, r.Stats().Learned)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("replySuggestion", "REPLY_SUGGESTION"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("", ""), 1e-9)
	assert.InDelta(t, 0.75, Similarity("回复建意", "回复建议"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
}

func TestOptions_Threshold(t *testing.T) {
	assert.Equal(t, 0.0, Options{}.Threshold())
	assert.Equal(t, 0.0, Options{FuzzyThreshold: -2}.Threshold())
	assert.Equal(t, 0.05, Options{FuzzyThreshold: 0.05}.Threshold())
	assert.Equal(t, 1.0, Options{FuzzyThreshold: 7}.Threshold())
	assert.Equal(t, 0.6, Options{FuzzyThreshold: 0.6}.Threshold())
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()

	m, ok := r.Resolve("回复建议", DefaultOptions())
	require.True(t, ok)
	assert.Equal(t, record.FieldReplySuggestion, m.Canonical)
	assert.False(t, m.Fuzzy)
	assert.Equal(t, 1.0, m.Score)

	m, ok = r.Resolve("replySugestion", DefaultOptions())
	require.True(t, ok)
	assert.Equal(t, record.FieldReplySuggestion, m.Canonical)
	assert.True(t, m.Fuzzy)
	assert.Equal(t, "replySugestion", m.Key)
	assert.Less(t, m.Score, 1.0)

	_, ok = r.Resolve("replySugestion", Options{})
	assert.False(t, ok, "fuzzy matching is off in the zero Options")

	_, ok = r.Resolve("completelyUnrelated", DefaultOptions())
	assert.False(t, ok)

	_, ok = r.Resolve("--", DefaultOptions())
	assert.False(t, ok)
}
