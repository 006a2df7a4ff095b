package handoff

import (
	"context"
	"sync"
	"time"

	"github.com/anvishah1/ForReal/internal/upload"
)

type memoryEntry struct {
	bundle  upload.Bundle
	expires time.Time
}

// MemoryStore keeps bundles in process memory.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates a store whose entries live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Put stores bundle and returns its token. Expired entries are swept on
// every write.
func (m *MemoryStore) Put(_ context.Context, bundle upload.Bundle) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for token, entry := range m.entries {
		if now.After(entry.expires) {
			delete(m.entries, token)
		}
	}

	token := newToken()
	m.entries[token] = memoryEntry{bundle: bundle, expires: now.Add(m.ttl)}
	return token, nil
}

// Take returns and removes the bundle for token.
func (m *MemoryStore) Take(_ context.Context, token string) (upload.Bundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[token]
	if !ok {
		return upload.Bundle{}, ErrNotFound
	}
	delete(m.entries, token)
	if m.now().After(entry.expires) {
		return upload.Bundle{}, ErrNotFound
	}
	return entry.bundle, nil
}
