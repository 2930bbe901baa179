// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the store.Store interface.
//
// It backs panels when no database is configured: values survive edits
// but not a restart.
package inmemorystore
