package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryBackend is the process-only tier and the fallback for every other
// tier that fails its canary check.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]json.RawMessage)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value json.RawMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = append(json.RawMessage(nil), value...)
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
	return nil
}
