package alias

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/leofalp/replyparse/providers/observability"
)

var (
	// ErrEmptyCanonical is returned when a mapping names no canonical field.
	ErrEmptyCanonical = errors.New("canonical field name is empty")

	// ErrAliasConflict is returned for an alias already owned by another canonical field.
	ErrAliasConflict = errors.New("alias already belongs to another field")
)

type entry struct {
	canonical string
	aliases   []string
	norms     []string
}

// Registry is a concurrency-safe alias table. Reads (MapFields, Mappings,
// Lookup) share a read lock; writes (AddMapping, Merge, Reset) are additive
// merges under the write lock, so concurrent learning never loses an alias.
type Registry struct {
	mu       sync.RWMutex
	baseline Table
	entries  []*entry
	owner    map[string]*entry // normalized alias -> entry
	learned  int
	observer observability.Provider
}

// Option configures a Registry.
type Option func(*Registry)

// WithBaseline replaces the built-in table the registry starts from and
// returns to on Reset. Conflicting aliases in the baseline are dropped.
func WithBaseline(t Table) Option {
	return func(r *Registry) {
		r.baseline = t.Clone()
	}
}

// WithObserver sets the provider used for match logging.
func WithObserver(p observability.Provider) Option {
	return func(r *Registry) {
		r.observer = p
	}
}

// NewRegistry returns a registry holding DefaultTable, or the baseline set
// with WithBaseline.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{baseline: DefaultTable()}
	for _, opt := range opts {
		opt(r)
	}
	r.resetLocked()
	return r
}

// AddMapping merges aliases into the entry for canonical, creating the entry
// if needed; a new canonical is also registered as its own alias. Merging is
// idempotent and never removes an alias. Aliases owned by another field are
// skipped and reported with ErrAliasConflict; the rest are still merged.
func (r *Registry) AddMapping(canonical string, aliases ...string) error {
	canonical = strings.TrimSpace(canonical)
	if canonical == "" {
		return ErrEmptyCanonical
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	added, err := r.addLocked(canonical, aliases)
	r.learned += added
	return err
}

// Merge calls AddMapping for every entry of t.
func (r *Registry) Merge(t Table) error {
	var errs []error
	for _, e := range t {
		if err := r.AddMapping(e.Canonical, e.Aliases...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Mappings returns a deep copy of the current table.
func (r *Registry) Mappings() Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(Table, len(r.entries))
	for i, e := range r.entries {
		out[i] = Entry{Canonical: e.canonical, Aliases: slices.Clone(e.aliases)}
	}
	return out
}

// Reset restores the baseline table, discarding learned aliases.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

// Lookup resolves key by exact (normalized) match.
func (r *Registry) Lookup(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.owner[Normalize(key)]; ok {
		return e.canonical, true
	}
	return "", false
}

// Resolve reports how a single key would be mapped under opts: by exact
// alias, by fuzzy match above the threshold, or not at all.
func (r *Registry) Resolve(key string, opts Options) (Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := Normalize(key)
	if e, ok := r.owner[n]; ok {
		return Match{Key: key, Canonical: e.canonical, Alias: e.aliasFor(n), Score: 1}, true
	}
	if !opts.FuzzyMatching || n == "" {
		return Match{}, false
	}
	m, ok := r.bestFuzzyLocked(n)
	if !ok || m.Score < opts.Threshold() {
		return Match{}, false
	}
	m.Key = key
	return m, true
}

// Stats summarizes the registry contents.
type Stats struct {
	Canonicals int
	Aliases    int
	// Learned counts aliases added since construction or the last Reset.
	Learned int
}

// AveragePerField returns the mean number of aliases per canonical field.
func (s Stats) AveragePerField() float64 {
	if s.Canonicals == 0 {
		return 0
	}
	return float64(s.Aliases) / float64(s.Canonicals)
}

// Stats returns the current statistics.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{Canonicals: len(r.entries), Learned: r.learned}
	for _, e := range r.entries {
		s.Aliases += len(e.aliases)
	}
	return s
}

func (r *Registry) resetLocked() {
	r.entries = nil
	r.owner = make(map[string]*entry)
	r.learned = 0
	for _, e := range r.baseline {
		if strings.TrimSpace(e.Canonical) == "" {
			continue
		}
		// Conflicts in a custom baseline are resolved by declaration order.
		_, _ = r.addLocked(strings.TrimSpace(e.Canonical), e.Aliases)
	}
}

// addLocked merges aliases and returns how many were new.
func (r *Registry) addLocked(canonical string, aliases []string) (int, error) {
	target := r.entryLocked(canonical)
	var errs []error
	if target == nil {
		owner := r.owner[Normalize(canonical)]
		return 0, fmt.Errorf("%w: canonical %q is an alias of %q", ErrAliasConflict, canonical, owner.canonical)
	}

	added := 0
	for _, a := range aliases {
		a = strings.TrimSpace(a)
		n := Normalize(a)
		if n == "" {
			continue
		}
		if owner, ok := r.owner[n]; ok {
			if owner != target {
				errs = append(errs, fmt.Errorf("%w: %q belongs to %q, not %q", ErrAliasConflict, a, owner.canonical, canonical))
			}
			continue
		}
		target.aliases = append(target.aliases, a)
		target.norms = append(target.norms, n)
		r.owner[n] = target
		added++
	}
	return added, errors.Join(errs...)
}

// entryLocked finds or creates the entry for canonical. It returns nil when
// the canonical name is already an alias of a different field.
func (r *Registry) entryLocked(canonical string) *entry {
	for _, e := range r.entries {
		if e.canonical == canonical {
			return e
		}
	}

	n := Normalize(canonical)
	if owner, taken := r.owner[n]; taken {
		if Normalize(owner.canonical) == n {
			return owner
		}
		return nil
	}
	e := &entry{canonical: canonical, aliases: []string{canonical}, norms: []string{n}}
	r.entries = append(r.entries, e)
	r.owner[n] = e
	return e
}
