package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"modernc.org/sqlite"

	"github.com/leofalp/replyparse/core/alias"
	"github.com/leofalp/replyparse/providers/aliasstore"
	"github.com/leofalp/replyparse/providers/observability"
)

const (
	defaultTableName = "replyparse_aliases"
	defaultAttempts  = 5
	defaultDelay     = 10 * time.Millisecond

	sqliteBusy   = 5
	sqliteLocked = 6
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store keeps an alias table in SQLite. Several processes may share one
// database file; writes that hit a locked database are retried.
type Store struct {
	db        *sql.DB
	path      string
	tableName string
	table     string // quoted tableName
	attempts  uint
	delay     time.Duration
	observer  observability.Provider
}

var _ aliasstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTableName overrides the default table name ("replyparse_aliases").
// The name must be a plain SQL identifier.
func WithTableName(name string) Option {
	return func(s *Store) {
		s.tableName = name
	}
}

// WithRetry sets how often and how far apart a busy write is retried.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(s *Store) {
		s.attempts = attempts
		s.delay = delay
	}
}

// WithObserver sets the provider used for load and save logging.
func WithObserver(p observability.Provider) Option {
	return func(s *Store) {
		s.observer = p
	}
}

// Open opens (creating if needed) the database at path and ensures the
// alias table exists.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:      path,
		tableName: defaultTableName,
		attempts:  defaultAttempts,
		delay:     defaultDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !identifierPattern.MatchString(s.tableName) {
		return nil, fmt.Errorf("sqlitestore: invalid table name %q", s.tableName)
	}
	s.table = quote(s.tableName)
	if s.attempts == 0 {
		s.attempts = 1
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open database: %w", err)
	}

	// Writes are serialized by SQLite anyway; an in-memory database exists
	// per connection, so it gets exactly one.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
	}
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("sqlitestore: connect: %w", err)
	}

	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("sqlitestore: check journal mode: %w", err)
	}
	switch strings.ToLower(journalMode) {
	case "wal", "delete", "memory":
	default:
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("sqlitestore: unexpected journal mode %q", journalMode)
	}

	s.db = db
	if err := s.withRetry(ctx, func() error { return s.initSchema(ctx) }); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored table in insertion order.
func (s *Store) Load(ctx context.Context) (alias.Table, error) {
	query := fmt.Sprintf(`SELECT canonical, alias FROM %s ORDER BY id ASC`, s.table)

	var table alias.Table
	err := s.withRetry(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		table = alias.Table{}
		index := make(map[string]int)
		for rows.Next() {
			var canonical, a string
			if err := rows.Scan(&canonical, &a); err != nil {
				return err
			}
			i, ok := index[canonical]
			if !ok {
				table = append(table, alias.Entry{Canonical: canonical})
				i = len(table) - 1
				index[canonical] = i
			}
			table[i].Aliases = append(table[i].Aliases, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: load: %w", err)
	}

	observability.Resolve(ctx, s.observer).Debug(ctx, "Alias table loaded", s.attrs(len(table))...)
	return table, nil
}

// Save inserts the aliases of t that are not stored yet, in one transaction.
// An alias already stored under a different canonical field is kept as is
// and reported with alias.ErrAliasConflict after the rest is committed.
func (s *Store) Save(ctx context.Context, t alias.Table) error {
	if err := aliasstore.Validate(t); err != nil {
		return err
	}

	var conflicts []error
	inserted := 0
	err := s.withRetry(ctx, func() error {
		conflicts, inserted = nil, 0
		return s.saveTx(ctx, t, &conflicts, &inserted)
	})
	if err != nil {
		return fmt.Errorf("sqlitestore: save: %w", err)
	}

	observability.Resolve(ctx, s.observer).Debug(ctx, "Alias table saved",
		append(s.attrs(len(t)), observability.Int(observability.AttrAliasLearned, inserted))...)
	return errors.Join(conflicts...)
}

func (s *Store) saveTx(ctx context.Context, t alias.Table, conflicts *[]error, inserted *int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (canonical, alias, normalized) VALUES (?, ?, ?) ON CONFLICT(normalized) DO NOTHING`, s.table))
	if err != nil {
		return err
	}
	defer insert.Close()

	owner, err := tx.PrepareContext(ctx, fmt.Sprintf(`SELECT canonical FROM %s WHERE normalized = ?`, s.table))
	if err != nil {
		return err
	}
	defer owner.Close()

	for _, e := range t {
		canonical := strings.TrimSpace(e.Canonical)
		for _, a := range e.Aliases {
			a = strings.TrimSpace(a)
			n := alias.Normalize(a)
			res, err := insert.ExecContext(ctx, canonical, a, n)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected > 0 {
				*inserted++
				continue
			}
			var stored string
			if err := owner.QueryRowContext(ctx, n).Scan(&stored); err != nil {
				return err
			}
			if stored != canonical {
				*conflicts = append(*conflicts, fmt.Errorf("%w: %q is stored for %q, not %q", alias.ErrAliasConflict, a, stored, canonical))
			}
		}
	}
	return tx.Commit()
}

// Count returns the number of stored aliases.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.withRetry(ctx, func() error {
		return s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: count: %w", err)
	}
	return count, nil
}

// withRetry runs op, retrying while SQLite reports the database busy or
// locked. busy_timeout already waits inside SQLite; this covers the cases
// it gives up on, such as a deferred transaction upgrading to a write.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	return retry.Do(op,
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.RetryIf(isBusy),
		retry.LastErrorOnly(true),
	)
}

func isBusy(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == sqliteBusy || code == sqliteLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) attrs(entries int) []observability.Attribute {
	return []observability.Attribute{
		observability.String(observability.AttrStoreBackend, "sqlite"),
		observability.String(observability.AttrStorePath, s.path),
		observability.Int(observability.AttrStoreEntries, entries),
	}
}

func quote(identifier string) string {
	return `"` + identifier + `"`
}
