package registry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memStore is the fallback used when no redis is configured. TTL is
// enforced lazily on read.
type memStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	records map[string]memEntry
}

type memEntry struct {
	rec     Record
	savedAt time.Time
}

func NewMemoryStore(ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &memStore{ttl: ttl, records: make(map[string]memEntry)}
}

func (m *memStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return nil
	}
	copied := *rec
	copied.MovesUCI = append([]string(nil), rec.MovesUCI...)
	m.mu.Lock()
	m.records[rec.ID] = memEntry{rec: copied, savedAt: time.Now()}
	m.mu.Unlock()
	return nil
}

func (m *memStore) Load(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	entry, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Since(entry.savedAt) > m.ttl {
		m.mu.Lock()
		delete(m.records, id)
		m.mu.Unlock()
		return nil, nil
	}
	copied := entry.rec
	copied.MovesUCI = append([]string(nil), entry.rec.MovesUCI...)
	return &copied, nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.records, id)
	m.mu.Unlock()
	return nil
}

func (m *memStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.records))
	for id, entry := range m.records {
		if time.Since(entry.savedAt) <= m.ttl {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

func (m *memStore) Close() error { return nil }
