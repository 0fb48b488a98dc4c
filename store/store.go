// Package store defines the sorted key-value boundary the pivot core runs
// against, and ships an in-memory reference implementation.
//
// The contract that matters is ordering: iterators MUST yield keys in
// lexicographic byte order. Row assembly groups adjacent keys sharing an
// identity, which is only correct under sorted iteration. Real deployments
// plug the host engine's store in behind these interfaces; Memory exists for
// embedding and tests.
package store

import "errors"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Store is a sorted byte-string key-value store.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the value for key. The second result is false when the
	// key is absent.
	Get(key []byte) ([]byte, bool, error)

	// Put stores value under key, overwriting any previous value.
	Put(key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// NewIterator returns a forward iterator positioned before the first
	// entry. Callers must Close it.
	NewIterator() Iterator

	// NewBatch returns an empty atomic batch bound to this store.
	NewBatch() Batch
}

// Iterator is a forward iterator over the store in lexicographic key order.
//
// An Iterator is single-owner; it must not be shared across goroutines.
type Iterator interface {
	// Seek positions the iterator at the first entry with key >= key.
	Seek(key []byte)

	// Valid reports whether the iterator is positioned at an entry.
	Valid() bool

	// Next advances to the following entry.
	Next()

	// Key returns the current key. The slice is valid until the next Seek,
	// Next or Close call; copy it to retain it.
	Key() []byte

	// Value returns the current value, with the same lifetime as Key.
	Value() []byte

	// Error returns the first error the iterator encountered, if any.
	Error() error

	// Close releases the iterator.
	Close() error
}

// Batch buffers put/delete operations and applies them atomically.
//
// Commit applies every buffered operation or none; Discard drops the buffer
// without touching the store. A Batch is single-owner.
type Batch interface {
	// Put buffers a put.
	Put(key, value []byte)

	// Delete buffers a delete.
	Delete(key []byte)

	// Len returns the number of buffered operations.
	Len() int

	// Commit applies all buffered operations atomically and clears the
	// buffer. On error the store is unchanged.
	Commit() error

	// Discard drops all buffered operations.
	Discard()
}
