package sqlitestore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/replyparse/core/alias"
	"github.com/leofalp/replyparse/providers/aliasstore"
)

func openTemp(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "aliases.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_InvalidTableName(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "a.db"), WithTableName("aliases; DROP TABLE x"))
	require.Error(t, err)
}

func TestOpen_InMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, alias.Table{{Canonical: "a", Aliases: []string{"x"}}}))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoad_Empty(t *testing.T) {
	s := openTemp(t)
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t, WithTableName("custom_aliases"))

	table := alias.Table{
		{Canonical: "replySuggestion", Aliases: []string{"replySuggestion", "回复建议"}},
		{Canonical: "isSafe", Aliases: []string{"isSafe", "是否安全"}},
	}
	require.NoError(t, s.Save(ctx, table))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, table, got)
}

func TestSave_IsAdditiveAndIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.Save(ctx, alias.Table{{Canonical: "a", Aliases: []string{"x"}}}))
	require.NoError(t, s.Save(ctx, alias.Table{{Canonical: "a", Aliases: []string{"X", "y"}}}))
	require.NoError(t, s.Save(ctx, alias.Table{{Canonical: "a", Aliases: []string{"x", "y"}}}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, alias.Table{{Canonical: "a", Aliases: []string{"x", "y"}}}, got)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSave_ConflictKeepsStoredOwner(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.Save(ctx, alias.Table{{Canonical: "a", Aliases: []string{"shared"}}}))
	err := s.Save(ctx, alias.Table{{Canonical: "b", Aliases: []string{"Shared", "own"}}})
	require.ErrorIs(t, err, alias.ErrAliasConflict)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, alias.Table{
		{Canonical: "a", Aliases: []string{"shared"}},
		{Canonical: "b", Aliases: []string{"own"}},
	}, got)
}

func TestSave_RejectsInvalidTable(t *testing.T) {
	s := openTemp(t)
	err := s.Save(context.Background(), alias.Table{{Canonical: "", Aliases: []string{"x"}}})
	require.ErrorIs(t, err, aliasstore.ErrInvalidTable)
}

func TestPersistRestore_SharedFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	first, err := Open(ctx, path)
	require.NoError(t, err)
	defer first.Close()
	second, err := Open(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	learner := alias.NewRegistry()
	require.NoError(t, learner.AddMapping("riskLevel", "threat_grade"))
	require.NoError(t, aliasstore.Persist(ctx, first, learner))

	r := alias.NewRegistry()
	require.NoError(t, aliasstore.Restore(ctx, second, r))
	got, ok := r.Lookup("threatGrade")
	require.True(t, ok)
	assert.Equal(t, "riskLevel", got)
	assert.Equal(t, learner.Mappings(), r.Mappings())
}

func TestSave_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "concurrent.db")

	stores := make([]*Store, 3)
	for i := range stores {
		s, err := Open(ctx, path, WithRetry(20, 0))
		require.NoError(t, err)
		defer s.Close()
		stores[i] = s
	}

	var wg sync.WaitGroup
	for i := range 30 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := stores[i%len(stores)]
			entry := alias.Entry{Canonical: "field", Aliases: []string{fmt.Sprintf("key%d", i)}}
			assert.NoError(t, s.Save(ctx, alias.Table{entry}))
		}(i)
	}
	wg.Wait()

	n, err := stores[0].Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30, n)
}

func TestIsBusy(t *testing.T) {
	assert.True(t, isBusy(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, isBusy(fmt.Errorf("exec: %w", errors.New("database is locked"))))
	assert.False(t, isBusy(errors.New("no such table: x")))
}

func TestWithRetry_StopsOnOtherErrors(t *testing.T) {
	s := openTemp(t, WithRetry(5, 0))

	calls := 0
	boom := errors.New("boom")
	err := s.withRetry(context.Background(), func() error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)

	calls = 0
	err = s.withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}
