package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

const memoryMaxEntries = 500

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a process-local cache. When it grows past its bound it is wiped
// rather than evicted entry by entry.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries:    make(map[string]memoryEntry),
		maxEntries: memoryMaxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(ttl)}
	if len(m.entries) > m.maxEntries {
		m.entries = map[string]memoryEntry{key: m.entries[key]}
	}
	return nil
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}
