package driver

import (
	"context"
	"sync"
)

// MemoryPersistence keeps blobs in a map. Contents are lost on exit.
type MemoryPersistence struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{blobs: make(map[string][]byte)}
}

func (m *MemoryPersistence) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryPersistence) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryPersistence) Close(context.Context) error {
	return nil
}
