package session

import (
	"context"
	"net/http"
	"sync"
	"time"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryStorage is a process-local [Storage]. It honours expiry but does not survive
// restarts.
type MemoryStorage struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStorage returns an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func memoryKey(name, path string) string {
	return normalizePath(path) + "\x00" + name
}

func (m *MemoryStorage) Get(_ context.Context, name, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey(name, path)
	e, ok := m.entries[key]
	if !ok {
		return "", ErrEntryNotFound
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return "", ErrEntryNotFound
	}
	return e.value, nil
}

func (m *MemoryStorage) Set(_ context.Context, entries ...*http.Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, c := range entries {
		if c == nil {
			continue
		}
		key := memoryKey(c.Name, c.Path)
		ttl := entryTTL(c, now)
		if ttl <= 0 {
			delete(m.entries, key)
			continue
		}
		m.entries[key] = memoryEntry{value: c.Value, expires: now.Add(ttl)}
	}
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, path string, names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range names {
		delete(m.entries, memoryKey(name, path))
	}
	return nil
}

// Len returns the number of live entries.
func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for _, e := range m.entries {
		if now.Before(e.expires) {
			n++
		}
	}
	return n
}
