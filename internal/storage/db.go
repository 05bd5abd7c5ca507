// Package storage provides the key-value store behind the token metadata
// cache.
package storage

import "errors"

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("key not found")

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach calls fn for every key starting with prefix. Returning a
	// non-nil error from fn stops the walk and is passed back to the caller.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}
