package alias

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/leofalp/replyparse/providers/observability"
)

// DefaultFuzzyThreshold is the minimum similarity accepted for a fuzzy match.
const DefaultFuzzyThreshold = 0.8

// Options tunes one mapping pass.
type Options struct {
	// FuzzyMatching enables edit-distance matching for keys with no exact alias.
	FuzzyMatching bool
	// FuzzyThreshold is the minimum similarity in [0, 1]. Values outside
	// the range are clamped.
	FuzzyThreshold float64
	// DynamicLearning lets the parser commit fuzzy matches back to the registry.
	// MapFields itself never writes.
	DynamicLearning bool
	// DetailedLogging logs each match.
	DetailedLogging bool
}

// DefaultOptions enables fuzzy matching at DefaultFuzzyThreshold and learning.
func DefaultOptions() Options {
	return Options{
		FuzzyMatching:   true,
		FuzzyThreshold:  DefaultFuzzyThreshold,
		DynamicLearning: true,
	}
}

// Threshold returns the effective fuzzy threshold.
func (o Options) Threshold() float64 {
	switch {
	case o.FuzzyThreshold < 0:
		return 0
	case o.FuzzyThreshold > 1:
		return 1
	default:
		return o.FuzzyThreshold
	}
}

// Match records one key rewritten to a canonical name.
type Match struct {
	Key       string
	Canonical string
	// Alias is the registered alias that matched best.
	Alias string
	Score float64
	Fuzzy bool
}

// Report lists what a mapping pass rewrote.
type Report struct {
	Exact []Match
	Fuzzy []Match
	// Textual is set when the input was not valid JSON and keys were
	// rewritten in place in the text.
	Textual bool
}

// Matched returns the total number of rewritten keys.
func (r Report) Matched() int {
	return len(r.Exact) + len(r.Fuzzy)
}

// MapFields rewrites alias keys in input to their canonical names.
func (r *Registry) MapFields(ctx context.Context, input string, opts Options) string {
	out, _ := r.MapFieldsReport(ctx, input, opts)
	return out
}

// MapFieldsReport rewrites alias keys in input to their canonical names and
// reports every rewrite.
//
// For valid JSON, keys of every object are resolved, except inside the value
// of a key that resolved to a canonical field. Key order and values are kept.
// Within one object a canonical name is given to at most one key: a key
// already spelled canonically wins, then exact aliases in order, then the
// highest-scoring fuzzy match. Losing and unmatched keys pass through.
//
// Text that is not valid JSON has its top-level keys rewritten in place.
// MapFieldsReport never fails and never modifies the registry.
func (r *Registry) MapFieldsReport(ctx context.Context, input string, opts Options) (string, Report) {
	var rep Report
	if strings.TrimSpace(input) == "" {
		return input, rep
	}

	r.mu.RLock()
	out, ok := r.rewriteJSON(input, opts, &rep)
	if !ok {
		rep.Textual = true
		out = r.rewriteText(input, opts, &rep)
	}
	r.mu.RUnlock()

	r.report(ctx, rep, opts)
	return out, rep
}

func (r *Registry) report(ctx context.Context, rep Report, opts Options) {
	if rep.Matched() == 0 && !opts.DetailedLogging {
		return
	}
	obs := observability.Resolve(ctx, r.observer)
	counter := obs.Counter(observability.MetricAliasMatchCount)
	if n := len(rep.Exact); n > 0 {
		counter.Add(ctx, int64(n), observability.String("match", "exact"))
	}
	if n := len(rep.Fuzzy); n > 0 {
		counter.Add(ctx, int64(n), observability.String("match", "fuzzy"))
	}

	if !opts.DetailedLogging {
		return
	}
	obs.Debug(ctx, "Fields mapped",
		observability.Int(observability.AttrAliasExactCount, len(rep.Exact)),
		observability.Int(observability.AttrAliasFuzzyCount, len(rep.Fuzzy)),
		observability.Bool("alias.textual", rep.Textual),
	)
	for _, m := range slices.Concat(rep.Exact, rep.Fuzzy) {
		obs.Trace(ctx, "Alias matched",
			observability.String(observability.AttrAliasKey, m.Key),
			observability.String(observability.AttrAliasCanonical, m.Canonical),
			observability.Float64(observability.AttrAliasScore, m.Score),
		)
	}
}

// resolveLocked assigns canonical names to the keys of one object. The
// result holds the canonical name per key, or "" for keys left alone.
func (r *Registry) resolveLocked(keys []string, opts Options, rep *Report) []string {
	resolved := make([]string, len(keys))
	norms := make([]string, len(keys))
	for i, k := range keys {
		norms[i] = Normalize(k)
	}
	claimed := make(map[string]bool)
	aliasHit := make([]bool, len(keys))

	// Keys spelled as a canonical name claim it first.
	for i, n := range norms {
		e, ok := r.owner[n]
		if !ok || Normalize(e.canonical) != n || claimed[e.canonical] {
			continue
		}
		resolved[i] = e.canonical
		claimed[e.canonical] = true
		if keys[i] != e.canonical {
			rep.Exact = append(rep.Exact, Match{Key: keys[i], Canonical: e.canonical, Alias: e.canonical, Score: 1})
		}
	}

	for i, n := range norms {
		if resolved[i] != "" {
			continue
		}
		e, ok := r.owner[n]
		if !ok {
			continue
		}
		aliasHit[i] = true
		if claimed[e.canonical] {
			continue
		}
		resolved[i] = e.canonical
		claimed[e.canonical] = true
		rep.Exact = append(rep.Exact, Match{Key: keys[i], Canonical: e.canonical, Alias: e.aliasFor(n), Score: 1})
	}

	if !opts.FuzzyMatching {
		return resolved
	}

	threshold := opts.Threshold()
	var candidates []int
	best := make([]Match, len(keys))
	for i, n := range norms {
		if resolved[i] != "" || aliasHit[i] || n == "" {
			continue
		}
		m, ok := r.bestFuzzyLocked(n)
		if !ok || m.Score < threshold || claimed[m.Canonical] {
			continue
		}
		m.Key = keys[i]
		best[i] = m
		candidates = append(candidates, i)
	}

	// Highest score first; SortStableFunc keeps key order among equal scores.
	slices.SortStableFunc(candidates, func(a, b int) int {
		return cmp.Compare(best[b].Score, best[a].Score)
	})
	for _, i := range candidates {
		if claimed[best[i].Canonical] {
			continue
		}
		resolved[i] = best[i].Canonical
		claimed[best[i].Canonical] = true
		rep.Fuzzy = append(rep.Fuzzy, best[i])
	}
	return resolved
}

// bestFuzzyLocked scores n against every alias. Each field scores its best
// alias; the best field wins and ties go to the field declared first.
func (r *Registry) bestFuzzyLocked(n string) (Match, bool) {
	var best Match
	found := false
	for _, e := range r.entries {
		for j, alias := range e.norms {
			score := similarityNormalized(n, alias)
			if !found || score > best.Score {
				best = Match{Canonical: e.canonical, Alias: e.aliases[j], Score: score, Fuzzy: true}
				found = true
			}
		}
	}
	return best, found
}

func (e *entry) aliasFor(norm string) string {
	for i, n := range e.norms {
		if n == norm {
			return e.aliases[i]
		}
	}
	return e.canonical
}

// --- valid JSON ---

type nodeKind int

const (
	kindScalar nodeKind = iota
	kindObject
	kindArray
)

type member struct {
	key   string
	value *node
}

// node is an order-preserving JSON value. Numbers stay json.Number so they
// are written back exactly as they were read.
type node struct {
	kind    nodeKind
	members []member
	items   []*node
	scalar  any
}

func (r *Registry) rewriteJSON(input string, opts Options, rep *Report) (string, bool) {
	root, err := decodeTree(input)
	if err != nil {
		return "", false
	}
	if !r.rewriteNode(root, opts, rep) {
		return input, true
	}

	var buf bytes.Buffer
	if err := writeNode(&buf, root); err != nil {
		return "", false
	}
	return buf.String(), true
}

func (r *Registry) rewriteNode(n *node, opts Options, rep *Report) bool {
	changed := false
	switch n.kind {
	case kindObject:
		keys := make([]string, len(n.members))
		for i, m := range n.members {
			keys[i] = m.key
		}
		resolved := r.resolveLocked(keys, opts, rep)
		for i := range n.members {
			if canonical := resolved[i]; canonical != "" {
				if n.members[i].key != canonical {
					n.members[i].key = canonical
					changed = true
				}
				continue
			}
			if r.rewriteNode(n.members[i].value, opts, rep) {
				changed = true
			}
		}
	case kindArray:
		for _, item := range n.items {
			if r.rewriteNode(item, opts, rep) {
				changed = true
			}
		}
	}
	return changed
}

var errMalformed = errors.New("malformed JSON")

func decodeTree(input string) (*node, error) {
	if !json.Valid([]byte(input)) {
		return nil, errMalformed
	}
	dec := json.NewDecoder(strings.NewReader(input))
	dec.UseNumber()
	return readNode(dec)
}

func readNode(dec *json.Decoder) (*node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return &node{kind: kindScalar, scalar: tok}, nil
	}

	switch delim {
	case '{':
		n := &node{kind: kindObject}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, errMalformed
			}
			value, err := readNode(dec)
			if err != nil {
				return nil, err
			}
			n.members = append(n.members, member{key: key, value: value})
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return n, nil
	case '[':
		n := &node{kind: kindArray}
		for dec.More() {
			item, err := readNode(dec)
			if err != nil {
				return nil, err
			}
			n.items = append(n.items, item)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, errMalformed
	}
}

func writeNode(buf *bytes.Buffer, n *node) error {
	switch n.kind {
	case kindObject:
		buf.WriteByte('{')
		for i, m := range n.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, m.key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeNode(buf, m.value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case kindArray:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		switch v := n.scalar.(type) {
		case string:
			return writeString(buf, v)
		case json.Number:
			buf.WriteString(v.String())
		case nil:
			buf.WriteString("null")
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			buf.Write(data)
		}
	}
	return nil
}

// writeString writes s as a JSON string without HTML escaping, so
// characters such as '<' and '&' in model text survive unchanged.
func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	return nil
}

// --- malformed JSON ---

type keySpan struct {
	start, end int // byte range of the quoted key, quotes included
	key        string
}

func (r *Registry) rewriteText(input string, opts Options, rep *Report) string {
	spans := topLevelKeys(input)
	if len(spans) == 0 {
		return input
	}

	keys := make([]string, len(spans))
	for i, s := range spans {
		keys[i] = s.key
	}
	resolved := r.resolveLocked(keys, opts, rep)

	var buf bytes.Buffer
	last := 0
	for i, s := range spans {
		if resolved[i] == "" || resolved[i] == s.key {
			continue
		}
		buf.WriteString(input[last:s.start])
		if err := writeString(&buf, resolved[i]); err != nil {
			return input
		}
		last = s.end
	}
	if last == 0 {
		return input
	}
	buf.WriteString(input[last:])
	return buf.String()
}

// topLevelKeys finds the quoted keys of the outermost object: strings at
// object depth one that are followed by a colon.
func topLevelKeys(s string) []keySpan {
	var spans []keySpan
	var stack []byte

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case '"':
			end := stringEnd(s, i)
			if end < 0 {
				return spans
			}
			if len(stack) == 1 && stack[0] == '{' && followedByColon(s, end+1) {
				raw := s[i : end+1]
				var key string
				if err := json.Unmarshal([]byte(raw), &key); err != nil {
					key = raw[1 : len(raw)-1]
				}
				spans = append(spans, keySpan{start: i, end: end + 1, key: key})
			}
			i = end
		}
	}
	return spans
}

// stringEnd returns the index of the quote closing the string opened at start, or -1.
func stringEnd(s string, start int) int {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func followedByColon(s string, from int) bool {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case ':':
			return true
		default:
			return false
		}
	}
	return false
}
