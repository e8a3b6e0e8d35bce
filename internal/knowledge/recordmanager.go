package knowledge

import (
	"context"
	"sync"
	"time"
)

// RecordManager tracks which document hashes have been written to the vector
// store, when, and under which source group. The indexer consults it to skip
// unchanged documents and to find stale ones to delete.
type RecordManager interface {
	CreateSchema(ctx context.Context) error
	// Exists reports, per key, whether it is already recorded.
	Exists(ctx context.Context, keys []string) ([]bool, error)
	// Update upserts keys with their group ids and the given timestamp.
	// groupIDs must be the same length as keys.
	Update(ctx context.Context, keys, groupIDs []string, at time.Time) error
	// ListKeys returns keys written strictly before the given time. An empty
	// groupIDs slice matches every group in the namespace.
	ListKeys(ctx context.Context, groupIDs []string, before time.Time) ([]string, error)
	DeleteKeys(ctx context.Context, keys []string) error
}

type memoryRecord struct {
	group     string
	updatedAt time.Time
}

// MemoryRecordManager keeps records in process memory. Used when Postgres is
// not configured; records do not survive restarts.
type MemoryRecordManager struct {
	mu        sync.RWMutex
	namespace string
	records   map[string]memoryRecord
}

func NewMemoryRecordManager(namespace string) *MemoryRecordManager {
	return &MemoryRecordManager{namespace: namespace, records: make(map[string]memoryRecord)}
}

func (m *MemoryRecordManager) CreateSchema(context.Context) error { return nil }

func (m *MemoryRecordManager) Exists(_ context.Context, keys []string) ([]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]bool, len(keys))
	for i, k := range keys {
		_, out[i] = m.records[k]
	}
	return out, nil
}

func (m *MemoryRecordManager) Update(_ context.Context, keys, groupIDs []string, at time.Time) error {
	if err := checkGroups(keys, groupIDs); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, k := range keys {
		m.records[k] = memoryRecord{group: groupIDs[i], updatedAt: at}
	}
	return nil
}

func (m *MemoryRecordManager) ListKeys(_ context.Context, groupIDs []string, before time.Time) ([]string, error) {
	groups := make(map[string]struct{}, len(groupIDs))
	for _, g := range groupIDs {
		groups[g] = struct{}{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for k, r := range m.records {
		if !r.updatedAt.Before(before) {
			continue
		}
		if len(groups) > 0 {
			if _, ok := groups[r.group]; !ok {
				continue
			}
		}
		out = append(out, k)
	}
	return out, nil
}

func (m *MemoryRecordManager) DeleteKeys(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.records, k)
	}
	return nil
}
