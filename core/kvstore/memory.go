package kvstore

import (
	"context"
	"sort"
	"sync"
)

type memoryEntry struct {
	value []byte
	meta  *Metadata
}

// MemoryStore is an in-memory Store implementation for tests and development.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]memoryEntry
	pageSize int
}

// NewMemory constructs an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]memoryEntry),
		pageSize: defaultPageSize,
	}
}

// SetPageSize overrides the scan page size, letting tests exercise pagination.
func (m *MemoryStore) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = n
}

// Get returns the stored value or ErrNotFound.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Put stores value and metadata under key.
func (m *MemoryStore) Put(_ context.Context, key string, value []byte, meta *Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = memoryEntry{value: stored, meta: copyMeta(meta)}
	return nil
}

// Delete removes the key if present.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Scan lists keys under prefix in ascending order, one page at a time.
func (m *MemoryStore) Scan(_ context.Context, prefix, cursor string) (Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix && key > cursor {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	page := Page{}
	if len(keys) > m.pageSize {
		keys = keys[:m.pageSize]
		page.Cursor = keys[len(keys)-1]
	} else {
		page.Complete = true
	}
	page.Entries = make([]Entry, 0, len(keys))
	for _, key := range keys {
		page.Entries = append(page.Entries, Entry{Key: key, Meta: copyMeta(m.entries[key].meta)})
	}
	return page, nil
}

func copyMeta(meta *Metadata) *Metadata {
	if meta == nil {
		return nil
	}
	out := &Metadata{FileID: meta.FileID}
	if meta.Tokens != nil {
		out.Tokens = append([]string(nil), meta.Tokens...)
	}
	return out
}
