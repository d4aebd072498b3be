// Package kvstore abstracts the prefix-scoped, metadata-bearing key-value
// storage the bot keeps its records in. Keys are opaque to the adapter;
// callers namespace them ("sticker/{bot}/{id}", "state/{owner}").
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kvstore: key not found")

// Metadata is the denormalized slice of a sticker record that must be
// readable during a prefix scan without fetching the full value. It is
// written atomically together with the value.
type Metadata struct {
	FileID string
	Tokens []string
}

// Entry is a single scan hit: the key plus its metadata, if any.
type Entry struct {
	Key  string
	Meta *Metadata
}

// Page is one slice of a prefix scan. When Complete is false the caller
// must continue from Cursor; a page that is neither complete nor carries
// a cursor indicates a broken adapter.
type Page struct {
	Entries  []Entry
	Cursor   string
	Complete bool
}

// Store is the persistence primitive consumed by the core.
type Store interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes value and metadata as one atomic operation.
	Put(ctx context.Context, key string, value []byte, meta *Metadata) error
	// Delete removes the key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Scan lists keys under prefix in ascending key order, cursor-paginated.
	Scan(ctx context.Context, prefix, cursor string) (Page, error)
}
