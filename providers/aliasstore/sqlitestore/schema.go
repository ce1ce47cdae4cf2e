package sqlitestore

import (
	"context"
	"fmt"
)

// createTableSQL keeps one row per alias. id preserves insertion order, so
// Load returns canonicals and aliases in the order they were first saved.
// normalized is the registry's comparison form and the uniqueness key: an
// alias belongs to exactly one canonical field.
const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	canonical  TEXT NOT NULL,
	alias      TEXT NOT NULL,
	normalized TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const createCanonicalIndexSQL = `CREATE INDEX IF NOT EXISTS %s ON %s (canonical)`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(createTableSQL, s.table)); err != nil {
		return fmt.Errorf("sqlitestore: create table: %w", err)
	}
	index := quote("idx_" + s.tableName + "_canonical")
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(createCanonicalIndexSQL, index, s.table)); err != nil {
		return fmt.Errorf("sqlitestore: create canonical index: %w", err)
	}
	return nil
}
