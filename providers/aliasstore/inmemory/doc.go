// Package inmemory provides an in-memory implementation of aliasstore.Store.
package inmemory
