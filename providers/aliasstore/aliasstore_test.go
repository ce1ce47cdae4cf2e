package aliasstore_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/leofalp/replyparse/core/alias"
	"github.com/leofalp/replyparse/providers/aliasstore"
	"github.com/leofalp/replyparse/providers/aliasstore/inmemory"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		table   alias.Table
		wantErr bool
	}{
		{"default table", alias.DefaultTable(), false},
		{"empty", nil, false},
		{"missing canonical", alias.Table{{Canonical: " ", Aliases: []string{"x"}}}, true},
		{"empty alias", alias.Table{{Canonical: "a", Aliases: []string{"_-"}}}, true},
		{
			"alias owned twice",
			alias.Table{
				{Canonical: "a", Aliases: []string{"shared"}},
				{Canonical: "b", Aliases: []string{"SHARED"}},
			},
			true,
		},
		{
			"same canonical repeated",
			alias.Table{
				{Canonical: "a", Aliases: []string{"x"}},
				{Canonical: "a", Aliases: []string{"x"}},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := aliasstore.Validate(tt.table)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, aliasstore.ErrInvalidTable) {
				t.Fatalf("expected ErrInvalidTable, got %v", err)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	dst := alias.Table{
		{Canonical: "a", Aliases: []string{"a", "alpha"}},
	}
	src := alias.Table{
		{Canonical: "a", Aliases: []string{"ALPHA", "first"}},
		{Canonical: "b", Aliases: []string{"beta"}},
	}

	got := aliasstore.Merge(dst, src)
	want := alias.Table{
		{Canonical: "a", Aliases: []string{"a", "alpha", "first"}},
		{Canonical: "b", Aliases: []string{"beta"}},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %#v", len(want), len(got), got)
	}
	for i := range want {
		if got[i].Canonical != want[i].Canonical || !slices.Equal(got[i].Aliases, want[i].Aliases) {
			t.Fatalf("entry %d: expected %#v, got %#v", i, want[i], got[i])
		}
	}

	if len(dst[0].Aliases) != 2 {
		t.Fatalf("Merge modified dst: %#v", dst)
	}
}

func TestPersistRestore(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New(nil)

	learner := alias.NewRegistry()
	if err := learner.AddMapping("replySuggestion", "answerText"); err != nil {
		t.Fatalf("AddMapping: %v", err)
	}
	if err := aliasstore.Persist(ctx, store, learner); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	fresh := alias.NewRegistry()
	if _, ok := fresh.Lookup("answerText"); ok {
		t.Fatalf("fresh registry should not know answerText")
	}
	if err := aliasstore.Restore(ctx, store, fresh); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, ok := fresh.Lookup("answer_text")
	if !ok || got != "replySuggestion" {
		t.Fatalf("expected answer_text -> replySuggestion, got %q (%v)", got, ok)
	}
}

func TestRestore_ConflictsAreReported(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New(alias.Table{
		{Canonical: "custom", Aliases: []string{"reply"}},
	})

	r := alias.NewRegistry()
	err := aliasstore.Restore(ctx, store, r)
	if !errors.Is(err, alias.ErrAliasConflict) {
		t.Fatalf("expected ErrAliasConflict, got %v", err)
	}
	if _, ok := r.Mappings().Lookup("custom"); !ok {
		t.Fatalf("non-conflicting canonical should still be merged")
	}
}

type failingStore struct{ err error }

func (f failingStore) Load(context.Context) (alias.Table, error) { return nil, f.err }
func (f failingStore) Save(context.Context, alias.Table) error   { return f.err }

func TestStoreErrorsAreWrapped(t *testing.T) {
	boom := errors.New("boom")
	s := failingStore{err: boom}
	r := alias.NewRegistry()

	if err := aliasstore.Restore(context.Background(), s, r); !errors.Is(err, boom) {
		t.Fatalf("Restore: expected wrapped boom, got %v", err)
	}
	if err := aliasstore.Persist(context.Background(), s, r); !errors.Is(err, boom) {
		t.Fatalf("Persist: expected wrapped boom, got %v", err)
	}
}
