// Package sqlitestore keeps an alias table in a SQLite database through the
// pure-Go modernc.org/sqlite driver, so no cgo toolchain is needed.
//
// Example usage:
//
//	store, err := sqlitestore.Open(ctx, "aliases.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	err = aliasstore.Restore(ctx, store, p.Registry())
package sqlitestore
