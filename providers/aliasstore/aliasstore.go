package aliasstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leofalp/replyparse/core/alias"
)

// ErrInvalidTable is returned when a stored or supplied table is malformed.
var ErrInvalidTable = errors.New("invalid alias table")

// Store persists an alias table. Save is additive: aliases already stored
// are never removed, mirroring the registry's merge semantics.
type Store interface {
	Load(ctx context.Context) (alias.Table, error)
	Save(ctx context.Context, t alias.Table) error
}

// Restore loads the stored table and merges it into r. Conflicting aliases
// are reported but do not stop the merge.
func Restore(ctx context.Context, s Store, r *alias.Registry) error {
	t, err := s.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load alias table: %w", err)
	}
	if err := r.Merge(t); err != nil {
		return fmt.Errorf("failed to merge alias table: %w", err)
	}
	return nil
}

// Persist saves the current mappings of r, learned aliases included.
func Persist(ctx context.Context, s Store, r *alias.Registry) error {
	if err := s.Save(ctx, r.Mappings()); err != nil {
		return fmt.Errorf("failed to save alias table: %w", err)
	}
	return nil
}

// Validate checks that every entry names a canonical field and no alias is
// empty or claimed by two fields.
func Validate(t alias.Table) error {
	var errs []error
	owner := make(map[string]string)
	for i, e := range t {
		canonical := strings.TrimSpace(e.Canonical)
		if canonical == "" {
			errs = append(errs, fmt.Errorf("%w: entry %d has no canonical name", ErrInvalidTable, i))
			continue
		}
		for _, a := range e.Aliases {
			n := alias.Normalize(a)
			if n == "" {
				errs = append(errs, fmt.Errorf("%w: %s has an empty alias", ErrInvalidTable, canonical))
				continue
			}
			if prev, ok := owner[n]; ok && prev != canonical {
				errs = append(errs, fmt.Errorf("%w: alias %q claimed by %s and %s", ErrInvalidTable, a, prev, canonical))
				continue
			}
			owner[n] = canonical
		}
	}
	return errors.Join(errs...)
}

// Merge returns dst with src folded in additively. dst keeps its order; new
// canonicals and aliases are appended.
func Merge(dst, src alias.Table) alias.Table {
	out := dst.Clone()
	for _, e := range src {
		i := indexOf(out, e.Canonical)
		if i < 0 {
			out = append(out, alias.Entry{Canonical: e.Canonical})
			i = len(out) - 1
		}
		for _, a := range e.Aliases {
			if !containsNormalized(out[i].Aliases, a) {
				out[i].Aliases = append(out[i].Aliases, a)
			}
		}
	}
	return out
}

func indexOf(t alias.Table, canonical string) int {
	for i, e := range t {
		if e.Canonical == canonical {
			return i
		}
	}
	return -1
}

func containsNormalized(list []string, a string) bool {
	n := alias.Normalize(a)
	for _, x := range list {
		if alias.Normalize(x) == n {
			return true
		}
	}
	return false
}
