// Package aliasstore defines the Store interface for persisting alias tables
// between runs, so aliases learned by a parser survive a restart.
// Implementations live in the sibling packages:
// [github.com/leofalp/replyparse/providers/aliasstore/inmemory],
// [github.com/leofalp/replyparse/providers/aliasstore/filestore] and
// [github.com/leofalp/replyparse/providers/aliasstore/sqlitestore].
package aliasstore
