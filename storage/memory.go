package storage

import (
	"context"
	"maps"
	"sync"
)

var _ Repo = (*MemoryRepo)(nil)

// MemoryRepo keeps the record in process memory; it survives Store restarts but not process restarts.
type MemoryRepo struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{values: make(map[string]string)}
}

func (m *MemoryRepo) Load(_ context.Context) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return decode(m.values)
}

func (m *MemoryRepo) Save(_ context.Context, record Record) error {
	if err := validate(record); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.values, encode(record))
	return nil
}

func (m *MemoryRepo) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range Keys {
		delete(m.values, k)
	}
	return nil
}

// Values returns a copy of the raw persisted keys.
func (m *MemoryRepo) Values() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values)
}

func (m *MemoryRepo) Close() error { return nil }
