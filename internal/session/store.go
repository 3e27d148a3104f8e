// Package session keeps per-visitor blobs (cached tables, login state, flash
// messages) behind a small key/value interface.
package session

import (
	"context"
	"sync"
)

// Well-known value names stored under a session id.
const (
	KeyTable = "csv_data"
	KeyUser  = "user"
	KeyFlash = "flash"
)

// Key builds the storage key of a named value within a session.
func Key(sid, name string) string { return sid + ":" + name }

// Store is a blob store keyed by string.
type Store interface {
	Put(ctx context.Context, key string, blob []byte) error
	// Get reports ok=false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Evict(ctx context.Context, key string) error
}

// Memory is a process-local Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory { return &Memory{data: map[string][]byte{}} }

func (m *Memory) Put(_ context.Context, key string, blob []byte) error {
	cp := append([]byte(nil), blob...)
	m.mu.Lock()
	m.data[key] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	b, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (m *Memory) Evict(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
